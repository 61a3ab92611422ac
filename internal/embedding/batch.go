package embedding

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
)

// BatchProcessor 批量嵌入处理器
// 将大量文本按固定大小分组，组间顺序处理并插入短暂停顿，
// 避免对提供商造成请求洪峰；组内请求在远程提供商下可以并发
type BatchProcessor struct {
	client     Client        // 嵌入客户端
	batchSize  int           // 每组的文本数量
	groupDelay time.Duration // 组间延迟
	maxWorkers int           // 组内最大并发数（1表示组内也串行）
}

// NewBatchProcessor 创建新的批量处理器
func NewBatchProcessor(client Client, batchSize int, groupDelay time.Duration, maxWorkers int) *BatchProcessor {
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &BatchProcessor{
		client:     client,
		batchSize:  batchSize,
		groupDelay: groupDelay,
		maxWorkers: maxWorkers,
	}
}

// Process 处理一批文本，返回与输入顺序一一对应的嵌入结果
func (p *BatchProcessor) Process(ctx context.Context, texts []string) ([]*Result, error) {
	if len(texts) == 0 {
		return []*Result{}, nil
	}

	groups := splitIntoGroups(texts, p.batchSize)
	results := make([]*Result, 0, len(texts))

	for i, group := range groups {
		// 组间停顿，首组不等待
		if i > 0 && p.groupDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.groupDelay):
			}
		}

		var groupResults []*Result
		var err error
		if p.maxWorkers > 1 {
			groupResults, err = p.processGroupConcurrent(ctx, group)
		} else {
			groupResults, err = p.client.EmbedBatch(ctx, group)
		}
		if err != nil {
			return nil, err
		}

		results = append(results, groupResults...)
	}

	return results, nil
}

// processGroupConcurrent 并发处理单个分组内的文本
// 结果按输入顺序收集
func (p *BatchProcessor) processGroupConcurrent(ctx context.Context, group []string) ([]*Result, error) {
	wp := workerpool.New(p.maxWorkers)

	results := make([]*Result, len(group))
	var mu sync.Mutex
	var firstErr error

	for i, text := range group {
		i, text := i, text
		wp.Submit(func() {
			select {
			case <-ctx.Done():
				mu.Lock()
				if firstErr == nil {
					firstErr = ctx.Err()
				}
				mu.Unlock()
				return
			default:
			}

			result, err := p.client.Embed(ctx, text)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[i] = result
		})
	}

	wp.StopWait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// splitIntoGroups 将文本列表切分为多个固定大小的分组
func splitIntoGroups(texts []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}

	groups := make([][]string, 0, (len(texts)+size-1)/size)
	for i := 0; i < len(texts); i += size {
		end := i + size
		if end > len(texts) {
			end = len(texts)
		}
		groups = append(groups, texts[i:end])
	}
	return groups
}
