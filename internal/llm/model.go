package llm

import "time"

// MessageRole 消息角色类型
type MessageRole string

const (
	// RoleSystem 系统角色
	RoleSystem MessageRole = "system"
	// RoleUser 用户角色
	RoleUser MessageRole = "user"
	// RoleAssistant 助手角色
	RoleAssistant MessageRole = "assistant"
)

// Message 对话消息结构
type Message struct {
	Role    MessageRole `json:"role"`           // 角色
	Content string      `json:"content"`        // 内容
	Name    string      `json:"name,omitempty"` // 可选名称标识
}

// chatCompletionRequest OpenAI兼容的聊天补全请求结构
type chatCompletionRequest struct {
	Model       string    `json:"model"`                 // 模型名称
	Messages    []Message `json:"messages"`              // 消息列表
	MaxTokens   *int      `json:"max_tokens,omitempty"`  // 最大生成Token数
	Temperature *float32  `json:"temperature,omitempty"` // 采样温度
	TopP        *float32  `json:"top_p,omitempty"`       // 核采样概率阈值
	Stream      bool      `json:"stream,omitempty"`      // 是否流式输出
}

// chatCompletionResponse OpenAI兼容的聊天补全响应结构
type chatCompletionResponse struct {
	ID      string                 `json:"id"`      // 响应ID
	Model   string                 `json:"model"`   // 模型名称
	Choices []chatCompletionChoice `json:"choices"` // 选择列表
	Usage   chatCompletionUsage    `json:"usage"`   // 资源使用情况
	Error   *chatCompletionError   `json:"error,omitempty"`
}

// chatCompletionChoice 输出选择
type chatCompletionChoice struct {
	Index        int     `json:"index"`         // 选择序号
	FinishReason string  `json:"finish_reason"` // 结束原因
	Message      Message `json:"message"`       // 消息内容
}

// chatCompletionUsage 资源使用情况
type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`     // 输入token数
	CompletionTokens int `json:"completion_tokens"` // 输出token数
	TotalTokens      int `json:"total_tokens"`      // 总token数
}

// chatCompletionError API错误响应体
type chatCompletionError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Response 统一的生成响应结构
type Response struct {
	Text       string    // 生成的文本
	Messages   []Message // 消息列表（如果是对话）
	TokenCount int       // 使用的token数
	ModelName  string    // 使用的模型名称
	FinishTime time.Time // 完成时间
}

// 常用模型名称
const (
	ModelGPT4oMini = "gpt-4o-mini" // 默认模型，平衡成本和能力
	ModelGPT4o     = "gpt-4o"      // 高级能力模型
	ModelLlama3    = "llama3.2"    // 本地ollama默认模型
)
