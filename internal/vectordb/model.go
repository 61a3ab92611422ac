package vectordb

import (
	"errors"
	"fmt"
	"time"
)

// 常用错误定义
var (
	ErrEmptyVector      = errors.New("empty vector")
	ErrInvalidDimension = errors.New("vector dimension mismatch")
)

// Record 向量记录模型
// 由检索器在摄取阶段创建，除批量重置外不可变
type Record struct {
	ID        string                 // 稳定标识，由文档ID和分块序号派生
	Content   string                 // 分块文本内容
	Metadata  map[string]interface{} // 附加元数据
	Embedding []float32              // 向量表示
	CreatedAt time.Time              // 创建时间
}

// SearchResult 检索结果
// 每次查询临时产生
type SearchResult struct {
	ID         string                 // 记录标识
	Content    string                 // 文本内容
	Metadata   map[string]interface{} // 元数据
	Similarity float32                // 余弦相似度，范围[-1,1]
}

// SearchFilter 检索过滤条件
type SearchFilter struct {
	TopK          int                    // 最大返回结果数
	MinSimilarity float32                // 最低相似度阈值
	Metadata      map[string]interface{} // 元数据过滤，在排序之前应用
}

// DefaultSearchFilter 返回默认的检索过滤器
func DefaultSearchFilter() SearchFilter {
	return SearchFilter{
		TopK:          5,
		MinSimilarity: 0.0,
	}
}

// Store 向量存储接口
// 参考语义为精确的暴力余弦检索；近似索引实现不改变该契约
type Store interface {
	// Add 批量添加记录，按ID幂等去重（相同ID覆盖）
	Add(records []Record) error

	// Search 按向量做相似度检索
	// 空存储返回空结果而不是错误
	Search(vector []float32, filter SearchFilter) ([]SearchResult, error)

	// Count 获取记录总数
	Count() (int, error)

	// Reset 删除所有记录
	Reset() error

	// Dimensions 返回向量维度
	Dimensions() int

	// Close 关闭存储
	Close() error
}

// Config 向量存储配置
type Config struct {
	Type      string // 存储类型，如 "memory", "sqlite"
	DSN       string // 数据库文件路径（sqlite使用）
	Dimension int    // 向量维度
}

// Factory 向量存储工厂函数类型
type Factory func(config Config) (Store, error)

// 注册的向量存储实现
var storeRegistry = map[string]Factory{}

// RegisterStore 注册向量存储工厂函数
func RegisterStore(name string, factory Factory) {
	storeRegistry[name] = factory
}

// NewStore 根据配置创建向量存储实例
func NewStore(config Config) (Store, error) {
	factory, ok := storeRegistry[config.Type]
	if !ok {
		// 默认使用内存实现
		factory = NewMemoryStore
	}
	return factory(config)
}

// ValidateVector 校验查询向量的维度和有效性
func ValidateVector(vector []float32, expectedDim int) error {
	if len(vector) == 0 {
		return ErrEmptyVector
	}
	if expectedDim > 0 && len(vector) != expectedDim {
		return fmt.Errorf("%w: expected %d, got %d", ErrInvalidDimension, expectedDim, len(vector))
	}
	return nil
}

// matchMetadata 检查记录元数据是否满足过滤条件
func matchMetadata(recordMeta, filterMeta map[string]interface{}) bool {
	if len(filterMeta) == 0 {
		return true
	}
	for key, want := range filterMeta {
		got, exists := recordMeta[key]
		if !exists || got != want {
			return false
		}
	}
	return true
}

// sortResults 按相似度降序稳定排序检索结果
func sortResults(results []SearchResult) {
	// 结果集通常很小，插入排序足够且天然稳定
	for i := 1; i < len(results); i++ {
		current := results[i]
		j := i - 1
		for j >= 0 && results[j].Similarity < current.Similarity {
			results[j+1] = results[j]
			j--
		}
		results[j+1] = current
	}
}

// applyFilter 对已计算相似度的结果应用阈值、排序和TopK截断
func applyFilter(results []SearchResult, filter SearchFilter) []SearchResult {
	kept := make([]SearchResult, 0, len(results))
	for _, result := range results {
		if result.Similarity >= filter.MinSimilarity {
			kept = append(kept, result)
		}
	}

	sortResults(kept)

	if filter.TopK > 0 && len(kept) > filter.TopK {
		kept = kept[:filter.TopK]
	}
	return kept
}
