package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newChatServer 创建模拟的聊天补全服务
// failures指定前几次请求返回500
func newChatServer(t *testing.T, failures int) (*httptest.Server, *int32) {
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := atomic.AddInt32(&calls, 1)

		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if int(count) <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := chatCompletionResponse{
			ID:    "chatcmpl-test",
			Model: req.Model,
			Choices: []chatCompletionChoice{
				{
					Index:        0,
					FinishReason: "stop",
					Message: Message{
						Role:    RoleAssistant,
						Content: "The policy addresses governance requirements.",
					},
				},
			},
			Usage: chatCompletionUsage{
				PromptTokens:     42,
				CompletionTokens: 8,
				TotalTokens:      50,
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))

	return server, &calls
}

// TestOpenAIGenerate 测试文本生成
func TestOpenAIGenerate(t *testing.T) {
	server, calls := newChatServer(t, 0)
	defer server.Close()

	client, err := NewOpenAIClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
	)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(),
		"Does the report cover board oversight?",
		"You are a compliance analyst.")
	require.NoError(t, err)

	assert.Equal(t, "The policy addresses governance requirements.", resp.Text)
	assert.Equal(t, 50, resp.TokenCount)
	assert.Equal(t, ModelGPT4oMini, resp.ModelName)
	assert.False(t, resp.FinishTime.IsZero())
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

// TestOpenAIGenerateSystemPrompt 测试系统提示词的传递
func TestOpenAIGenerateSystemPrompt(t *testing.T) {
	var captured chatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(chatCompletionResponse{
			Choices: []chatCompletionChoice{
				{Message: Message{Role: RoleAssistant, Content: "ok"}},
			},
		})
	}))
	defer server.Close()

	client, err := NewOpenAIClient(WithAPIKey("test-key"), WithBaseURL(server.URL))
	require.NoError(t, err)

	t.Run("with system prompt", func(t *testing.T) {
		_, err := client.Generate(context.Background(), "question", "system instructions")
		require.NoError(t, err)

		require.Len(t, captured.Messages, 2)
		assert.Equal(t, RoleSystem, captured.Messages[0].Role)
		assert.Equal(t, "system instructions", captured.Messages[0].Content)
		assert.Equal(t, RoleUser, captured.Messages[1].Role)
		assert.Equal(t, "question", captured.Messages[1].Content)
	})

	t.Run("without system prompt", func(t *testing.T) {
		_, err := client.Generate(context.Background(), "question", "")
		require.NoError(t, err)

		require.Len(t, captured.Messages, 1, "空系统提示词不应附加系统消息")
		assert.Equal(t, RoleUser, captured.Messages[0].Role)
	})
}

// TestOpenAIRetry 测试瞬时错误的重试恢复
func TestOpenAIRetry(t *testing.T) {
	server, calls := newChatServer(t, 2)
	defer server.Close()

	client, err := NewOpenAIClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(3),
	)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "question", "")
	require.NoError(t, err, "重试次数内恢复的请求应成功")
	assert.Equal(t, "The policy addresses governance requirements.", resp.Text)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

// TestOpenAIRetryExhausted 测试重试耗尽后的错误
func TestOpenAIRetryExhausted(t *testing.T) {
	server, calls := newChatServer(t, 100)
	defer server.Close()

	client, err := NewOpenAIClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(2),
	)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), "question", "")
	require.Error(t, err)

	var llmErr LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrCodeNetworkError, llmErr.Code)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls), "初次请求加2次重试应共调用3次")
}

// TestOpenAIValidation 测试请求参数校验
func TestOpenAIValidation(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		_, err := NewOpenAIClient()
		require.Error(t, err)

		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeInvalidAPIKey, llmErr.Code)
	})

	t.Run("empty prompt", func(t *testing.T) {
		client, err := NewOpenAIClient(WithAPIKey("test-key"))
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), "", "system")
		require.Error(t, err)

		var llmErr LLMError
		require.ErrorAs(t, err, &llmErr)
		assert.Equal(t, ErrCodeEmptyPrompt, llmErr.Code)
	})

	t.Run("unregistered client", func(t *testing.T) {
		_, err := NewClient("nonexistent")
		require.Error(t, err)
	})
}

// TestOpenAICancellation 测试上下文取消中止重试
func TestOpenAICancellation(t *testing.T) {
	server, _ := newChatServer(t, 100)
	defer server.Close()

	client, err := NewOpenAIClient(
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithMaxRetries(10),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = client.Generate(ctx, "question", "")
	require.Error(t, err, "取消的上下文应中止重试循环")
}

// TestOllamaChat 测试本地ollama客户端
func TestOllamaChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message:   Message{Role: RoleAssistant, Content: "local answer"},
			Done:      true,
			EvalCount: 12,
		})
	}))
	defer server.Close()

	client, err := NewOllamaClient(WithBaseURL(server.URL))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), "question", "system")
	require.NoError(t, err)
	assert.Equal(t, "local answer", resp.Text)
	assert.Equal(t, 12, resp.TokenCount)
	assert.Equal(t, ModelLlama3, resp.ModelName)
}
