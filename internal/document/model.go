package document

import "fmt"

// TextChunk 文档分块模型
// 表示一段受Token上限约束的文本片段，是检索的基本单元
type TextChunk struct {
	Content    string                 // 分块文本内容
	StartChar  int                    // 在源文本中的起始字符偏移（按rune计）
	EndChar    int                    // 在源文本中的结束字符偏移（按rune计）
	ChunkIndex int                    // 分块序号，同一文档内从0开始连续递增
	TokenCount int                    // Token数量
	PageNumber int                    // 页码（0表示未知）
	Metadata   map[string]interface{} // 元数据，继承自父文档并附加分块字段
}

// ChunkerConfig 分块器配置
type ChunkerConfig struct {
	MaxTokens          int  // 单个分块的最大Token数
	OverlapTokens      int  // 相邻分块之间的重叠Token数
	PreserveParagraphs bool // 是否保持段落边界
	PreserveSentences  bool // 是否保持句子边界
	MinChunkSize       int  // 分块的最小Token数（过小的中间分块会向后合并）
}

// DefaultChunkerConfig 返回默认分块器配置
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxTokens:          1000,
		OverlapTokens:      200,
		PreserveParagraphs: true,
		PreserveSentences:  true,
		MinChunkSize:       100,
	}
}

// ConfigurationError 配置错误
// 在处理开始前被拒绝，属于致命错误
type ConfigurationError struct {
	Message string // 错误消息
}

// Error 实现error接口
func (e ConfigurationError) Error() string {
	return fmt.Sprintf("chunker configuration error: %s", e.Message)
}

// Validate 校验分块器配置
func (c ChunkerConfig) Validate() error {
	if c.MaxTokens <= 0 {
		return ConfigurationError{Message: "max tokens must be positive"}
	}
	if c.OverlapTokens < 0 {
		return ConfigurationError{Message: "overlap tokens cannot be negative"}
	}
	if c.OverlapTokens >= c.MaxTokens {
		return ConfigurationError{Message: fmt.Sprintf(
			"overlap tokens (%d) must be smaller than max tokens (%d)",
			c.OverlapTokens, c.MaxTokens)}
	}
	if c.MinChunkSize < 0 {
		return ConfigurationError{Message: "min chunk size cannot be negative"}
	}
	return nil
}
