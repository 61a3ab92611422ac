package embedding

import "fmt"

// EmbeddingError 嵌入请求错误类型
type EmbeddingError struct {
	Code    int    // 错误码
	Message string // 错误消息
}

// Error 实现error接口
func (e EmbeddingError) Error() string {
	return fmt.Sprintf("embedding error (code=%d): %s", e.Code, e.Message)
}

// 错误码常量
const (
	ErrCodeInvalidAPIKey  = 1001 // 无效的API密钥
	ErrCodeInvalidRequest = 1002 // 无效的请求
	ErrCodeNetworkError   = 1003 // 网络连接错误
	ErrCodeRateLimited    = 1004 // 请求频率超限
	ErrCodeServerError    = 1005 // 服务器错误
	ErrCodeTimeout        = 1006 // 请求超时
	ErrCodeEmptyInput     = 1007 // 输入为空
)

// 错误消息常量
const (
	ErrMsgInvalidAPIKey  = "invalid API key"
	ErrMsgInvalidRequest = "invalid request parameters"
	ErrMsgEmptyInput     = "input text cannot be empty"
)

// NewEmbeddingError 创建新的嵌入错误
func NewEmbeddingError(code int, message string) EmbeddingError {
	return EmbeddingError{
		Code:    code,
		Message: message,
	}
}

// ProviderError 提供商调用错误
// 重试次数耗尽后返回，携带最后一次的底层错误
type ProviderError struct {
	Provider string // 提供商名称
	Attempts int    // 已尝试次数
	Err      error  // 最后一次的底层错误
}

// Error 实现error接口
func (e *ProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s failed after %d attempts: %v",
		e.Provider, e.Attempts, e.Err)
}

// Unwrap 返回底层错误
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DimensionMismatchError 向量维度不匹配错误
// 比较不同维度的向量属于程序或数据错误，始终向上抛出
type DimensionMismatchError struct {
	LenA int // 第一个向量的维度
	LenB int // 第二个向量的维度
}

// Error 实现error接口
func (e DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d vs %d", e.LenA, e.LenB)
}
