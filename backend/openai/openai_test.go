package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(backend.ClientConfig{APIKey: "test-key", BaseURL: srv.URL}, nil)
}

func TestGenerate_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hello", req.Messages[0].Content)

		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message      chatMessage `json:"message"`
				FinishReason string      `json:"finish_reason"`
			}{{Message: chatMessage{Role: "assistant", Content: "world"}}},
		})
	})

	out, err := c.Generate(context.Background(), "hello", backend.GenerateOptions{Model: "gpt-4o-mini"})
	require.NoError(t, err)
	assert.Equal(t, "world", out)
}

func TestGenerate_RateLimitIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	})

	_, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "m"})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
	assert.True(t, types.IsCode(err, types.ErrTransientBackend))

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, e.HTTPStatus)
	assert.Contains(t, e.Message, "rate limit exceeded")
}

func TestGenerate_AuthFailureIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "m"})
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
	assert.True(t, types.IsCode(err, types.ErrFatalBackend))
}

func TestGenerate_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "m"})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	_, err := Factory(nil)(backend.ClientConfig{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	status := c.Health(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, ProviderName, status.Provider)
}
