package vectordb

import (
	"fmt"
	"sync"
	"time"

	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
)

// MemoryStore 内存向量存储实现
// 精确的暴力余弦检索，作为参考语义实现，也用于开发和测试环境
type MemoryStore struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]Record
	order     []string // 插入顺序，保证遍历顺序稳定
}

// NewMemoryStore 创建内存向量存储
func NewMemoryStore(config Config) (Store, error) {
	if config.Dimension <= 0 {
		return nil, fmt.Errorf("vector dimension must be positive")
	}

	return &MemoryStore{
		dimension: config.Dimension,
		records:   make(map[string]Record),
	}, nil
}

// Add 批量添加记录
// 按ID幂等：已存在的ID被覆盖，不会产生重复记录
func (s *MemoryStore) Add(records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range records {
		record := records[i]
		if err := ValidateVector(record.Embedding, s.dimension); err != nil {
			return fmt.Errorf("invalid vector for record %s: %w", record.ID, err)
		}
		if record.CreatedAt.IsZero() {
			record.CreatedAt = time.Now()
		}
		if record.Metadata == nil {
			record.Metadata = make(map[string]interface{})
		}

		if _, exists := s.records[record.ID]; !exists {
			s.order = append(s.order, record.ID)
		}
		s.records[record.ID] = record
	}

	return nil
}

// Search 对所有存储向量做精确余弦检索
// 元数据过滤在排序之前应用；空存储返回空结果
func (s *MemoryStore) Search(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	if err := ValidateVector(vector, s.dimension); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.records))
	for _, id := range s.order {
		record, exists := s.records[id]
		if !exists {
			continue
		}
		if !matchMetadata(record.Metadata, filter.Metadata) {
			continue
		}
		// 损坏或缺失的向量跳过而不是中断检索
		if len(record.Embedding) != s.dimension {
			continue
		}

		similarity, err := embedding.CosineSimilarity(vector, record.Embedding)
		if err != nil {
			continue
		}

		results = append(results, SearchResult{
			ID:         record.ID,
			Content:    record.Content,
			Metadata:   record.Metadata,
			Similarity: similarity,
		})
	}

	return applyFilter(results, filter), nil
}

// Count 获取记录总数
func (s *MemoryStore) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Reset 删除所有记录
// 重置之后的读取将看到空存储
func (s *MemoryStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	s.order = nil
	return nil
}

// Dimensions 返回向量维度
func (s *MemoryStore) Dimensions() int {
	return s.dimension
}

// Close 关闭存储
// 内存实现没有需要释放的资源
func (s *MemoryStore) Close() error {
	return nil
}

// 在包初始化时注册内存存储
func init() {
	RegisterStore("memory", NewMemoryStore)
}
