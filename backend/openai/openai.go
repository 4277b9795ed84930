// Package openai implements a generate-capable adapter over the OpenAI chat
// completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/types"
)

const (
	// ProviderName is the registry id of this adapter.
	ProviderName = "openai"

	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
)

// Client is a generate-capable OpenAI adapter.
type Client struct {
	cfg    backend.ClientConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an OpenAI client. A nil logger falls back to a no-op logger.
func New(cfg backend.ClientConfig, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Factory adapts New to the registry factory signature.
func Factory(logger *zap.Logger) backend.Factory {
	return func(cfg backend.ClientConfig) (backend.Adapter, error) {
		if cfg.APIKey == "" {
			return nil, types.NewError(types.ErrInvalidConfig, "openai: api key is required")
		}
		return New(cfg, logger), nil
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapabilityGenerate}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Generate calls the chat completions endpoint with a single user message.
func (c *Client) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       opts.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", types.NewError(types.ErrCancelled, "openai: request cancelled").WithCause(ctx.Err())
		}
		return "", types.NewTransient(ProviderName, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, readErrMsg(resp.Body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewTransient(ProviderName, "decode response").WithCause(err)
	}
	if len(parsed.Choices) == 0 {
		return "", types.NewTransient(ProviderName, "empty choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// Health probes the models endpoint.
func (c *Client) Health(ctx context.Context) backend.HealthStatus {
	start := time.Now()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	status := backend.HealthStatus{Provider: ProviderName, CheckedAt: start}
	resp, err := c.client.Do(req)
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return status
	}
	status.Healthy = true
	return status
}

// classifyStatus maps an HTTP status to transient or fatal. 408/429/5xx are
// retryable; 4xx client errors are not.
func classifyStatus(code int, msg string) error {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 {
		return types.NewTransient(ProviderName, msg).WithHTTPStatus(code)
	}
	return types.NewFatal(ProviderName, msg).WithHTTPStatus(code)
}

func readErrMsg(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e apiError
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(data))
}
