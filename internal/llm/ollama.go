package llm

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

const (
	// 本地ollama服务默认端点
	defaultOllamaEndpoint = "http://localhost:11434"
)

// OllamaClient 本地ollama大模型客户端实现
// 用于无外部API依赖的开发环境和离线部署
type OllamaClient struct {
	baseURL     string       // 服务端点
	model       string       // 模型名称
	httpClient  *http.Client // HTTP客户端
	maxTokens   int          // 最大生成Token数
	temperature float32      // 温度参数
}

// ollamaChatRequest ollama /api/chat 请求结构
type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

// ollamaOptions 生成参数
type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float32 `json:"temperature,omitempty"`
}

// ollamaChatResponse ollama /api/chat 响应结构
type ollamaChatResponse struct {
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	EvalCount int     `json:"eval_count"`
}

// NewOllamaClient 创建本地ollama大模型客户端
// 不需要API密钥
func NewOllamaClient(opts ...Option) (Client, error) {
	cfg := NewConfig(opts...)

	baseURL := cfg.BaseURL
	if baseURL == "" || strings.Contains(baseURL, "api.openai.com") {
		baseURL = defaultOllamaEndpoint
	}

	model := cfg.Model
	if model == "" || model == ModelGPT4oMini {
		model = ModelLlama3
	}

	return &OllamaClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       model,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// Name 返回模型名称
func (c *OllamaClient) Name() string {
	return c.model
}

// Generate 根据用户提示词和系统提示词生成回答
func (c *OllamaClient) Generate(ctx context.Context, userPrompt, systemPrompt string, options ...GenerateOption) (*Response, error) {
	if userPrompt == "" {
		return nil, NewLLMError(ErrCodeEmptyPrompt, ErrMsgEmptyPrompt)
	}

	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: systemPrompt})
	}
	messages = append(messages, Message{Role: RoleUser, Content: userPrompt})

	return c.Chat(ctx, messages, options...)
}

// Chat 进行多轮对话
func (c *OllamaClient) Chat(ctx context.Context, messages []Message, options ...GenerateOption) (*Response, error) {
	if len(messages) == 0 {
		return nil, NewLLMError(ErrCodeInvalidRequest, "messages cannot be empty")
	}

	opts := &GenerateOptions{}
	for _, opt := range options {
		opt(opts)
	}

	req := &ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	numPredict := c.maxTokens
	if opts.MaxTokens != nil {
		numPredict = *opts.MaxTokens
	}
	temperature := c.temperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if numPredict > 0 || temperature > 0 {
		req.Options = &ollamaOptions{
			NumPredict:  numPredict,
			Temperature: temperature,
		}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/chat",
		bytes.NewReader(jsonData),
	)
	if err != nil {
		return nil, NewLLMError(ErrCodeInvalidRequest, fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewLLMError(ErrCodeNetworkError, fmt.Sprintf("request failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewLLMError(ErrCodeServerError, fmt.Sprintf("failed to read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("ollama error (status %d): %s", resp.StatusCode, string(body)))
	}

	var chatResp ollamaChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, NewLLMError(ErrCodeServerError,
			fmt.Sprintf("failed to parse response: %v", err))
	}

	if chatResp.Message.Content == "" {
		return nil, NewLLMError(ErrCodeEmptyResponse, ErrMsgEmptyResponse)
	}

	return &Response{
		Text:       chatResp.Message.Content,
		Messages:   []Message{chatResp.Message},
		TokenCount: chatResp.EvalCount,
		ModelName:  c.model,
		FinishTime: time.Now(),
	}, nil
}

// 在包初始化时注册ollama客户端
func init() {
	RegisterClient("ollama", NewOllamaClient)
}
