package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAIClient OpenAI兼容嵌入API客户端
// 适用于OpenAI以及各类提供兼容接口的托管服务
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	maxRetries int
	dimensions int
}

// openAIEmbeddingRequest 嵌入请求结构
type openAIEmbeddingRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
}

// openAIEmbeddingResponse 嵌入响应结构
type openAIEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient 创建新的OpenAI兼容嵌入客户端
func NewOpenAIClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	if cfg.APIKey == "" {
		return nil, NewEmbeddingError(ErrCodeInvalidAPIKey, ErrMsgInvalidAPIKey)
	}

	endpoint := strings.TrimSuffix(cfg.BaseURL, "/") + "/embeddings"

	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		dimensions: cfg.Dimensions,
	}, nil
}

// Name 返回模型名称
func (c *OpenAIClient) Name() string {
	return c.model
}

// Dimensions 返回向量维度
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// Close 释放客户端资源
// 远程客户端没有需要释放的本地资源
func (c *OpenAIClient) Close() error {
	return nil
}

// Embed 生成单条文本的向量表示
func (c *OpenAIClient) Embed(ctx context.Context, text string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewEmbeddingError(ErrCodeEmptyInput, ErrMsgEmptyInput)
	}

	results, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, NewEmbeddingError(ErrCodeServerError, "no embedding vectors returned")
	}
	return results[0], nil
}

// EmbedBatch 批量生成文本的向量表示
// 结果顺序与输入一一对应
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([]*Result, error) {
	if len(texts) == 0 {
		return []*Result{}, nil
	}

	// 单条和批量路径使用相同的预处理规则
	inputs := make([]string, len(texts))
	for i, text := range texts {
		inputs[i] = preprocessText(text)
	}

	reqData := openAIEmbeddingRequest{
		Model:          c.model,
		Input:          inputs,
		EncodingFormat: "float",
	}

	var resp openAIEmbeddingResponse
	if err := c.sendRequest(ctx, reqData, &resp); err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, NewEmbeddingError(ErrCodeServerError,
			fmt.Sprintf("expected %d embeddings, got %d", len(texts), len(resp.Data)))
	}

	// 按接口返回的索引恢复输入顺序
	model := resp.Model
	if model == "" {
		model = c.model
	}
	perItemTokens := resp.Usage.PromptTokens / len(texts)

	results := make([]*Result, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			continue
		}
		results[item.Index] = &Result{
			Embedding:  item.Embedding,
			TokenCount: perItemTokens,
			Model:      model,
		}
	}

	return results, nil
}

// sendRequest 发送API请求并解析响应
// 使用封顶指数退避重试，重试耗尽后返回携带最后错误的ProviderError
func (c *OpenAIClient) sendRequest(ctx context.Context, reqData interface{}, respObj interface{}) error {
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return &ProviderError{Provider: c.model, Attempts: attempt, Err: ctx.Err()}
			case <-time.After(backoffDelay(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
		if err != nil {
			return NewEmbeddingError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		// 服务端错误和限流可以重试，客户端错误直接失败
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return NewEmbeddingError(ErrCodeServerError,
				fmt.Sprintf("API error (status %d): %s", resp.StatusCode, string(body)))
		}

		if err := json.Unmarshal(body, respObj); err != nil {
			return NewEmbeddingError(ErrCodeServerError, fmt.Sprintf("failed to parse response: %v", err))
		}
		return nil
	}

	return &ProviderError{Provider: c.model, Attempts: c.maxRetries + 1, Err: lastErr}
}

// backoffDelay 计算第attempt次重试前的等待时间
// 100ms起步按2的幂增长，封顶5秒
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * 100 * time.Millisecond
	if delay > 5*time.Second {
		delay = 5 * time.Second
	}
	return delay
}

// preprocessText 嵌入前的文本预处理
// 压缩空白、去除首尾空格并截断到最大长度
func preprocessText(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > MaxInputChars {
		runes = runes[:MaxInputChars]
	}
	return string(runes)
}

// 注册OpenAI兼容客户端
func init() {
	RegisterClient("openai", NewOpenAIClient)
}
