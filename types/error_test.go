package types

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransient("openai", "upstream failure").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find cause")
	}
	if !IsRetryable(err) {
		t.Errorf("transient error should be retryable")
	}
	if GetErrorCode(err) != ErrTransientBackend {
		t.Errorf("unexpected code: %s", GetErrorCode(err))
	}
}

func TestError_Wrapped(t *testing.T) {
	inner := NewFatal("tavily", "invalid api key").WithHTTPStatus(401)
	wrapped := fmt.Errorf("search step: %w", inner)

	if !IsCode(wrapped, ErrFatalBackend) {
		t.Errorf("expected fatal code through wrapping")
	}
	if IsRetryable(wrapped) {
		t.Errorf("fatal error must not be retryable")
	}
	e, ok := AsError(wrapped)
	if !ok || e.HTTPStatus != 401 {
		t.Errorf("expected to recover structured error, got %v", e)
	}
}

func TestGetErrorCode_Plain(t *testing.T) {
	if GetErrorCode(errors.New("plain")) != "" {
		t.Errorf("plain error should have empty code")
	}
}
