package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Configuration and rubric errors. Rejected before any execution starts and
// propagated synchronously to the caller.
const (
	ErrInvalidConfig         ErrorCode = "INVALID_CONFIG"
	ErrUnsupportedCapability ErrorCode = "UNSUPPORTED_CAPABILITY"
	ErrInvalidRubric         ErrorCode = "INVALID_RUBRIC"
)

// Backend errors. Transient errors are retried with bounded backoff and then
// surface as step degradation; fatal errors abort the owning session.
const (
	ErrTransientBackend ErrorCode = "TRANSIENT_BACKEND"
	ErrFatalBackend     ErrorCode = "FATAL_BACKEND"
)

// Pipeline errors.
const (
	ErrEmptyEvidence ErrorCode = "EMPTY_EVIDENCE"
	ErrCancelled     ErrorCode = "CANCELLED"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
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

// NewTransient creates a retryable backend error attributed to a provider.
func NewTransient(provider, message string) *Error {
	return &Error{Code: ErrTransientBackend, Message: message, Provider: provider, Retryable: true}
}

// NewFatal creates a non-retryable backend error attributed to a provider.
func NewFatal(provider, message string) *Error {
	return &Error{Code: ErrFatalBackend, Message: message, Provider: provider}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
