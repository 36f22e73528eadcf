// Package apperr 定义了跨层共享的业务错误类型。
package apperr

import (
	"errors"
	"net/http"
)

// Code 是稳定的错误码，会出现在 HTTP 响应中。
type Code string

const (
	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeDimensionMismatch      Code = "DIMENSION_MISMATCH"
	CodeEmbeddingUnavailable   Code = "EMBEDDING_UNAVAILABLE"
	CodeEmbeddingRequestFailed Code = "EMBEDDING_REQUEST_FAILED"
	CodeProviderUnavailable    Code = "PROVIDER_UNAVAILABLE"
	CodeNotFound               Code = "NOT_FOUND"
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeForbidden              Code = "FORBIDDEN"
	CodeValidationFailed       Code = "VALIDATION_FAILED"
	CodePartialBatchInvalid    Code = "PARTIAL_BATCH_INVALID"
	CodeInternal               Code = "INTERNAL"
)

// Error 携带错误码、面向调用方的消息以及可选的底层原因。
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is 按错误码匹配，使 errors.Is(err, apperr.ErrNotFound) 对任意同码错误成立。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New 创建一个新的业务错误。
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap 创建一个包含底层原因的业务错误。
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

var (
	ErrInvalidInput           = New(CodeInvalidInput, "invalid input")
	ErrDimensionMismatch      = New(CodeDimensionMismatch, "vector dimensions do not match")
	ErrEmbeddingUnavailable   = New(CodeEmbeddingUnavailable, "embedding provider is not configured")
	ErrEmbeddingRequestFailed = New(CodeEmbeddingRequestFailed, "embedding request failed")
	ErrProviderUnavailable    = New(CodeProviderUnavailable, "language model provider is unavailable")
	ErrNotFound               = New(CodeNotFound, "resource not found")
	ErrUnauthorized           = New(CodeUnauthorized, "authentication required")
	ErrForbidden              = New(CodeForbidden, "access denied")
	ErrValidationFailed       = New(CodeValidationFailed, "validation failed")
	ErrPartialBatchInvalid    = New(CodePartialBatchInvalid, "batch contains invalid items")
)

// CodeOf 返回错误链中第一个业务错误的错误码，没有则返回 CodeInternal。
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// MessageOf 返回可以展示给调用方的消息。
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// HTTPStatus 将错误映射为 HTTP 状态码。
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidInput, CodeValidationFailed, CodeDimensionMismatch, CodePartialBatchInvalid:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeEmbeddingUnavailable, CodeProviderUnavailable:
		return http.StatusServiceUnavailable
	case CodeEmbeddingRequestFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
