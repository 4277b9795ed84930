// Package tavily implements a search-capable adapter over the Tavily search
// API.
package tavily

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
	ProviderName = "tavily"

	defaultBaseURL = "https://api.tavily.com"
	defaultTimeout = 30 * time.Second
)

// Client is a search-capable Tavily adapter.
type Client struct {
	cfg    backend.ClientConfig
	client *http.Client
	logger *zap.Logger
}

// New creates a Tavily client. A nil logger falls back to a no-op logger.
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
			return nil, types.NewError(types.ErrInvalidConfig, "tavily: api key is required")
		}
		return New(cfg, logger), nil
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapabilitySearch}
}

type searchRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results,omitempty"`
	SearchDepth string `json:"search_depth,omitempty"`
	Topic       string `json:"topic,omitempty"`
}

type searchResult struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// Search calls the /search endpoint. Recognized params: "search_depth"
// (basic or advanced), "topic".
func (c *Client) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SourceDocument, error) {
	body, err := json.Marshal(searchRequest{
		APIKey:      c.cfg.APIKey,
		Query:       query,
		MaxResults:  opts.TopK,
		SearchDepth: opts.Params["search_depth"],
		Topic:       opts.Params["topic"],
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/search"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, types.NewError(types.ErrCancelled, "tavily: request cancelled").WithCause(ctx.Err())
		}
		return nil, types.NewTransient(ProviderName, "request failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, readErrMsg(resp.Body))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, types.NewTransient(ProviderName, "decode response").WithCause(err)
	}

	docs := make([]backend.SourceDocument, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		docs = append(docs, backend.SourceDocument{
			URL:     r.URL,
			Title:   r.Title,
			Snippet: r.Content,
			Score:   r.Score,
		})
	}
	return docs, nil
}

// Health issues a minimal search to verify credentials and reachability.
func (c *Client) Health(ctx context.Context) backend.HealthStatus {
	start := time.Now()
	status := backend.HealthStatus{Provider: ProviderName, CheckedAt: start}

	_, err := c.Search(ctx, "ping", backend.SearchOptions{TopK: 1})
	status.Latency = time.Since(start)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.Healthy = true
	return status
}

func classifyStatus(code int, msg string) error {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 {
		return types.NewTransient(ProviderName, msg).WithHTTPStatus(code)
	}
	return types.NewFatal(ProviderName, msg).WithHTTPStatus(code)
}

func readErrMsg(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(data))
}
