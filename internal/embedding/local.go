package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
)

// LocalClient 本地进程内嵌入模型客户端
// 基于确定性的词哈希投影生成向量，不依赖任何网络服务，
// 适用于离线环境、开发调试以及对外部API不可用时的降级
type LocalClient struct {
	model      string
	dimensions int

	// 模型句柄的惰性初始化保证并发首次调用时只初始化一次
	initOnce sync.Once
	initErr  error

	mu     sync.RWMutex
	closed bool
}

// NewLocalClient 创建本地嵌入客户端
func NewLocalClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = 256
	}

	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "text-embedding") {
		model = "local-hash-v1"
	}

	return &LocalClient{
		model:      model,
		dimensions: dimensions,
	}, nil
}

// Initialize 显式初始化本地模型
// 幂等操作：在Embed之前未调用时会被隐式触发
func (c *LocalClient) Initialize() error {
	c.initOnce.Do(func() {
		// 哈希投影模型没有权重文件需要加载，这里只做状态校验，
		// 保留显式初始化入口以对齐需要加载权重的实现
		if c.dimensions <= 0 {
			c.initErr = NewEmbeddingError(ErrCodeInvalidRequest, "invalid embedding dimensions")
		}
	})
	return c.initErr
}

// Name 返回模型名称
func (c *LocalClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *LocalClient) Dimensions() int {
	return c.dimensions
}

// Embed 生成单条文本的向量表示
func (c *LocalClient) Embed(ctx context.Context, text string) (*Result, error) {
	if err := c.Initialize(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, NewEmbeddingError(ErrCodeInvalidRequest, "client is closed")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	processed := preprocessText(text)
	words := strings.Fields(strings.ToLower(processed))

	vector := make([]float32, c.dimensions)
	for _, word := range words {
		idx, sign := hashWord(word, c.dimensions)
		vector[idx] += sign
	}

	normalize(vector)

	return &Result{
		Embedding:  vector,
		TokenCount: len(words),
		Model:      c.model,
	}, nil
}

// EmbedBatch 批量生成文本的向量表示
func (c *LocalClient) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	results := make([]*Result, 0, len(texts))
	for _, text := range texts {
		result, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// Close 释放本地模型资源
func (c *LocalClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// 注册本地客户端
func init() {
	RegisterClient("local", NewLocalClient)
}

// hashWord 将单词哈希为向量下标和符号
func hashWord(word string, dimensions int) (int, float32) {
	h := fnv.New64a()
	h.Write([]byte(word))
	sum := h.Sum64()

	idx := int(sum % uint64(dimensions))
	sign := float32(1)
	if sum&(1<<63) != 0 {
		sign = -1
	}
	return idx, sign
}

// normalize 原地归一化向量为单位长度
func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vector {
		vector[i] /= norm
	}
}
