package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Validation error codes — raised synchronously before dispatch.
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidWeights ErrorCode = "INVALID_WEIGHTS"
)

// Source error codes — recorded per source, never escalated to the caller.
const (
	ErrTimeout           ErrorCode = "TIMEOUT"
	ErrSourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
)

// Aggregation error codes.
const (
	// ErrAllSourcesFailed 仅在 strict 模式下对调用方可见；
	// 默认模式下零来源成功是一个正常的降级终态，不是错误。
	ErrAllSourcesFailed ErrorCode = "ALL_SOURCES_FAILED"
	ErrTokenizerError   ErrorCode = "TOKENIZER_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	SourceID  SourceID  `json:"source_id,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithSource sets the source the error belongs to.
func (e *Error) WithSource(id SourceID) *Error {
	e.SourceID = id
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
