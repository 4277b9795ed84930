package anthropic

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

func TestGenerate_JoinsTextBlocks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		// max_tokens is mandatory; the zero value must be defaulted.
		assert.Greater(t, req.MaxTokens, 0)

		json.NewEncoder(w).Encode(messagesResponse{
			Content: []contentBlock{
				{Type: "text", Text: "part one "},
				{Type: "thinking", Text: "ignored"},
				{Type: "text", Text: "part two"},
			},
		})
	})

	out, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "claude-sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "part one part two", out)
}

func TestGenerate_OverloadedIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		w.Write([]byte(`{"error":{"type":"overloaded_error","message":"overloaded"}}`))
	})

	_, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "m"})
	require.Error(t, err)
	assert.True(t, types.IsRetryable(err))
}

func TestGenerate_BadRequestIsFatal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad model"}}`))
	})

	_, err := c.Generate(context.Background(), "p", backend.GenerateOptions{Model: "m"})
	require.Error(t, err)
	assert.False(t, types.IsRetryable(err))
	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Contains(t, e.Message, "bad model")
}

func TestFactory_RequiresAPIKey(t *testing.T) {
	_, err := Factory(nil)(backend.ClientConfig{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}
