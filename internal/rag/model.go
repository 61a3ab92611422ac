package rag

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/fyerfyer/compliance-QA-system/internal/vectordb"
)

// 来源片段的最大长度（字符）
const maxSnippetChars = 200

// RAGResponse 检索增强问答的响应结构
type RAGResponse struct {
	Answer   string           `json:"answer"`   // 回答内容
	Sources  []Source         `json:"sources"`  // 引用来源
	Metadata ResponseMetadata `json:"metadata"` // 处理元信息
}

// Source 引用来源
// 每个检索块对应一条来源记录
type Source struct {
	ID           string  `json:"id"`                     // 记录标识
	FileName     string  `json:"file_name"`              // 来源文档名
	Region       string  `json:"region,omitempty"`       // 地区（如果有）
	Organization string  `json:"organization,omitempty"` // 发布机构（如果有）
	Similarity   float32 `json:"similarity"`             // 相似度，保留3位小数
	Snippet      string  `json:"snippet"`                // 内容片段，最长200字符
	Page         int     `json:"page,omitempty"`         // 页码（如果有）
}

// ResponseMetadata 响应元信息
type ResponseMetadata struct {
	RetrievedChunks  int    `json:"retrieved_chunks"`      // 检索到的块数
	Model            string `json:"model"`                 // 使用的模型标识
	TokenCount       int    `json:"token_count,omitempty"` // token用量（如果提供方报告）
	ProcessingTimeMs int64  `json:"processing_time_ms"`    // 处理耗时（毫秒）
	TemplateID       string `json:"template_id"`           // 使用的提示词模板
	Cached           bool   `json:"cached,omitempty"`      // 是否命中缓存
}

// QueryFailedError 问答操作失败错误
// 提供方或网络失败通过该错误向调用方传播
type QueryFailedError struct {
	Stage string // 失败的阶段: "retrieval", "prompt", "generation"
	Err   error  // 底层错误
}

// Error 实现error接口
func (e *QueryFailedError) Error() string {
	return fmt.Sprintf("query failed at %s stage: %v", e.Stage, e.Err)
}

// Unwrap 返回底层错误
func (e *QueryFailedError) Unwrap() error {
	return e.Err
}

// buildSources 将检索结果转换为来源列表
func buildSources(chunks []vectordb.SearchResult) []Source {
	sources := make([]Source, 0, len(chunks))
	for _, chunk := range chunks {
		sources = append(sources, Source{
			ID:           chunk.ID,
			FileName:     metadataString(chunk.Metadata, "file_name"),
			Region:       metadataString(chunk.Metadata, "region"),
			Organization: metadataString(chunk.Metadata, "organization"),
			Similarity:   roundSimilarity(chunk.Similarity),
			Snippet:      truncateSnippet(chunk.Content),
			Page:         metadataInt(chunk.Metadata, "page_number"),
		})
	}
	return sources
}

// roundSimilarity 相似度保留3位小数
func roundSimilarity(similarity float32) float32 {
	return float32(math.Round(float64(similarity)*1000) / 1000)
}

// truncateSnippet 截断内容片段
func truncateSnippet(content string) string {
	if utf8.RuneCountInString(content) <= maxSnippetChars {
		return content
	}
	runes := []rune(content)
	return string(runes[:maxSnippetChars-3]) + "..."
}

// metadataString 从元数据中读取字符串字段
func metadataString(metadata map[string]interface{}, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

// metadataInt 从元数据中读取整数字段
func metadataInt(metadata map[string]interface{}, key string) int {
	if metadata == nil {
		return 0
	}
	switch value := metadata[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}
