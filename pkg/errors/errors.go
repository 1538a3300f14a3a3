// Package errors 提供统一的错误定义
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误 (1xxx)
	CodeSuccess            ErrorCode = "0"
	CodeUnknown            ErrorCode = "1000"
	CodeInvalidParam       ErrorCode = "1001"
	CodeNotFound           ErrorCode = "1004"
	CodeConflict           ErrorCode = "1005"
	CodeTooManyRequests    ErrorCode = "1006"
	CodeInternalError      ErrorCode = "1007"
	CodeServiceUnavailable ErrorCode = "1008"
	CodePayloadTooLarge    ErrorCode = "1009"

	// 提示词错误 (2xxx)
	CodePromptInvalidFrame   ErrorCode = "2001"
	CodeTokenizerUnavailable ErrorCode = "2002"
	CodeUnknownVariation     ErrorCode = "2003"

	// 评估错误 (3xxx)
	CodeReferenceMissing   ErrorCode = "3001"
	CodeEmbeddingFailed    ErrorCode = "3002"
	CodeImageDecodeFailed  ErrorCode = "3003"
	CodeNoProviderImages   ErrorCode = "3004"
	CodeEvaluationNotFound ErrorCode = "3005"
	CodeKeyPhrasesMissing  ErrorCode = "3006"

	// 生成错误 (4xxx)
	CodeGenerationFailed ErrorCode = "4001"
	CodeProviderNotFound ErrorCode = "4002"
	CodePlannerFailed    ErrorCode = "4003"
	CodeLLMCallFailed    ErrorCode = "4004"

	// 外部服务错误 (5xxx)
	CodeDatabaseError ErrorCode = "5001"
	CodeCacheError    ErrorCode = "5002"
	CodeVectorDBError ErrorCode = "5003"
	CodeStorageError  ErrorCode = "5004"
	CodeQueueError    ErrorCode = "5005"
)

// AppError 应用错误
type AppError struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	Detail     string    `json:"detail,omitempty"`
	HTTPStatus int       `json:"-"`
	Err        error     `json:"-"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码比较
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail 返回带详细信息的副本
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithError 返回带底层错误的副本
func (e *AppError) WithError(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// New 创建新的应用错误
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Newf 创建带格式化消息的应用错误
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap 包装错误
func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Err:        err,
	}
}

// codeToHTTPStatus 错误码转 HTTP 状态码
func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParam, CodePromptInvalidFrame, CodeUnknownVariation, CodeImageDecodeFailed:
		return http.StatusBadRequest
	case CodeNotFound, CodeEvaluationNotFound, CodeProviderNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeNoProviderImages:
		return http.StatusUnprocessableEntity
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeServiceUnavailable, CodeTokenizerUnavailable:
		return http.StatusServiceUnavailable
	case CodeGenerationFailed, CodeEmbeddingFailed, CodePlannerFailed, CodeLLMCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// 预定义错误
var (
	ErrInvalidParam       = New(CodeInvalidParam, "invalid parameter")
	ErrNotFound           = New(CodeNotFound, "resource not found")
	ErrTooManyRequests    = New(CodeTooManyRequests, "too many requests")
	ErrInternalError      = New(CodeInternalError, "internal server error")
	ErrServiceUnavailable = New(CodeServiceUnavailable, "service unavailable")

	ErrReferenceMissing   = New(CodeReferenceMissing, "reference image missing")
	ErrKeyPhrasesMissing  = New(CodeKeyPhrasesMissing, "key feature phrases missing")
	ErrEmbeddingFailed    = New(CodeEmbeddingFailed, "embedding failed")
	ErrImageDecodeFailed  = New(CodeImageDecodeFailed, "image decode failed")
	ErrNoProviderImages   = New(CodeNoProviderImages, "no provider produced an image")
	ErrEvaluationNotFound = New(CodeEvaluationNotFound, "evaluation run not found")

	ErrGenerationFailed = New(CodeGenerationFailed, "image generation failed")
	ErrProviderNotFound = New(CodeProviderNotFound, "image provider not found")
	ErrPlannerFailed    = New(CodePlannerFailed, "story planning failed")
	ErrLLMCallFailed    = New(CodeLLMCallFailed, "LLM call failed")
)

// IsAppError 检查是否为 AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError 将错误转换为 AppError
func AsAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeUnknown, "unknown error")
}

// HasCode 判断错误链中是否包含指定错误码
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}
