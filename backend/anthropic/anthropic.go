// Package anthropic implements a generate-capable adapter over the Anthropic
// messages API. Differs from the OpenAI wire format: authentication uses the
// x-api-key header and content arrives as a content-block array.
package anthropic

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
	ProviderName = "anthropic"

	defaultBaseURL = "https://api.anthropic.com"
	defaultTimeout = 60 * time.Second
	apiVersion     = "2023-06-01"
)

// Client is a generate-capable Anthropic adapter.
type Client struct {
	cfg    backend.ClientConfig
	client *http.Client
	logger *zap.Logger
}

// New creates an Anthropic client. A nil logger falls back to a no-op logger.
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
			return nil, types.NewError(types.ErrInvalidConfig, "anthropic: api key is required")
		}
		return New(cfg, logger), nil
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapabilityGenerate}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate calls the messages endpoint with a single user message and joins
// the text content blocks of the response.
func (c *Client) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (string, error) {
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		// max_tokens is mandatory in the messages API.
		maxTokens = 1024
	}
	body, err := json.Marshal(messagesRequest{
		Model:       opts.Model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("anthropic: build request: %w", err)
	}
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", types.NewError(types.ErrCancelled, "anthropic: request cancelled").WithCause(ctx.Err())
		}
		return "", types.NewTransient(ProviderName, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, readErrMsg(resp.Body))
	}

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", types.NewTransient(ProviderName, "decode response").WithCause(err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", types.NewTransient(ProviderName, "no text content in response")
	}
	return sb.String(), nil
}

// Health probes the models endpoint.
func (c *Client) Health(ctx context.Context) backend.HealthStatus {
	start := time.Now()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/models"
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

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

func classifyStatus(code int, msg string) error {
	// 529 is Anthropic's overloaded status.
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 {
		return types.NewTransient(ProviderName, msg).WithHTTPStatus(code)
	}
	return types.NewFatal(ProviderName, msg).WithHTTPStatus(code)
}

func readErrMsg(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var e errorResponse
	if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(data))
}
