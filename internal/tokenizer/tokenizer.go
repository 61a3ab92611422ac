package tokenizer

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding 默认使用的BPE编码方案
// 分块器和Token预算逻辑必须共享同一编码，保证Token计数一致
const DefaultEncoding = "cl100k_base"

// Codec Token编解码器接口
// 提供文本与Token序列之间的转换能力
type Codec interface {
	// Encode 将文本编码为Token序列
	Encode(text string) []int

	// Decode 将Token序列解码回文本
	Decode(tokens []int) string

	// Count 统计文本的Token数量
	Count(text string) int

	// Close 释放编解码器持有的资源
	Close() error
}

// BPECodec 基于tiktoken的BPE编解码器实现
type BPECodec struct {
	mu     sync.RWMutex
	tke    *tiktoken.Tiktoken
	name   string
	closed bool
}

// NewCodec 创建指定编码方案的编解码器
func NewCodec(encoding string) (*BPECodec, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encoding, err)
	}

	return &BPECodec{
		tke:  tke,
		name: encoding,
	}, nil
}

// Name 返回编码方案名称
func (c *BPECodec) Name() string {
	return c.name
}

// Encode 将文本编码为Token序列
func (c *BPECodec) Encode(text string) []int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || text == "" {
		return []int{}
	}
	return c.tke.Encode(text, nil, nil)
}

// Decode 将Token序列解码回文本
func (c *BPECodec) Decode(tokens []int) string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed || len(tokens) == 0 {
		return ""
	}
	return c.tke.Decode(tokens)
}

// Count 统计文本的Token数量
func (c *BPECodec) Count(text string) int {
	return len(c.Encode(text))
}

// Close 释放编码表资源
// 关闭后的编解码器不再可用
func (c *BPECodec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.tke = nil
	return nil
}
