package vectordb

import (
	"context"
	"fmt"

	"github.com/fyerfyer/compliance-QA-system/internal/embedding"
)

// Retriever 向量检索器
// 组合嵌入客户端和向量存储，支持按文本或按向量检索
type Retriever struct {
	store    Store
	embedder embedding.Client
}

// NewRetriever 创建向量检索器
func NewRetriever(store Store, embedder embedding.Client) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
	}
}

// Add 批量写入向量记录
func (r *Retriever) Add(records []Record) error {
	return r.store.Add(records)
}

// SearchText 按查询文本检索
// 先生成查询向量再做相似度检索
func (r *Retriever) SearchText(ctx context.Context, query string, filter SearchFilter) ([]SearchResult, error) {
	result, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return r.store.Search(result.Embedding, filter)
}

// SearchVector 按查询向量检索
func (r *Retriever) SearchVector(vector []float32, filter SearchFilter) ([]SearchResult, error) {
	return r.store.Search(vector, filter)
}

// Stats 返回存储统计信息
func (r *Retriever) Stats() (int, error) {
	return r.store.Count()
}

// Reset 清空向量存储
func (r *Retriever) Reset() error {
	return r.store.Reset()
}
