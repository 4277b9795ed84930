// Package mock implements a deterministic offline adapter supporting both
// generate and search. It inspects the prompt shape and returns canned output
// the pipeline parsers understand, so full runs work without credentials.
package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/odr-dev/deepresearch/backend"
)

// ProviderName is the registry id of this adapter.
const ProviderName = "mock"

// Client is the offline demo adapter.
type Client struct {
	// Latency is an artificial per-call delay, useful for timing demos.
	Latency time.Duration
}

// New creates a mock client.
func New() *Client { return &Client{} }

// Factory adapts New to the registry factory signature. No credentials are
// required.
func Factory() backend.Factory {
	return func(cfg backend.ClientConfig) (backend.Adapter, error) {
		return New(), nil
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) Capabilities() []backend.Capability {
	return []backend.Capability{backend.CapabilityGenerate, backend.CapabilitySearch}
}

func (c *Client) Health(ctx context.Context) backend.HealthStatus {
	return backend.HealthStatus{Provider: ProviderName, Healthy: true, CheckedAt: time.Now()}
}

// Generate returns deterministic output keyed on the prompt shape: a numbered
// plan for planning prompts, scored claim bullets for extraction prompts, and
// plain prose otherwise.
func (c *Client) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (string, error) {
	if err := c.sleep(ctx); err != nil {
		return "", err
	}

	switch {
	case strings.Contains(prompt, "research planner"):
		topic := lastLineAfter(prompt, "Research question:")
		return fmt.Sprintf(
			"1. background and definitions for %s\n2. current state of the art for %s\n3. open problems and outlook for %s\n",
			topic, topic, topic), nil

	case strings.Contains(prompt, "(relevance:"):
		// One claim per listed source, with a score derived from the
		// source index so output is stable across runs.
		n := strings.Count(prompt, "[source ")
		if n > 3 {
			n = 3
		}
		var sb strings.Builder
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&sb, "- [source %d] finding %d extracted from the source material (relevance: 0.%d)\n",
				i, i, 9-i)
		}
		return sb.String(), nil

	case strings.Contains(prompt, "Section heading:"):
		heading := lastLineAfter(prompt, "Section heading:")
		return fmt.Sprintf(
			"This section summarizes the evidence gathered on %s. The findings below were drawn from the cited sources and reflect the most relevant claims identified during research.\n\nTaken together, the evidence supports a consistent picture, though coverage remains partial and further sources could refine it.",
			heading), nil

	case strings.Contains(prompt, "report title"):
		return "Research Findings and Analysis", nil
	}

	return "Deterministic mock response.", nil
}

// Search returns TopK deterministic documents derived from a hash of the
// query, so the same query always yields the same sources.
func (c *Client) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SourceDocument, error) {
	if err := c.sleep(ctx); err != nil {
		return nil, err
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 3
	}
	sum := sha256.Sum256([]byte(query))
	seed := binary.BigEndian.Uint32(sum[:4])

	docs := make([]backend.SourceDocument, 0, topK)
	for i := 0; i < topK; i++ {
		id := (seed + uint32(i)) % 100000
		docs = append(docs, backend.SourceDocument{
			URL:     fmt.Sprintf("https://example.org/articles/%05d", id),
			Title:   fmt.Sprintf("Reference %05d on %s", id, truncate(query, 40)),
			Snippet: fmt.Sprintf("Summary material %d relevant to %q.", i+1, truncate(query, 60)),
			Score:   1.0 - float64(i)*0.1,
		})
	}
	return docs, nil
}

func (c *Client) sleep(ctx context.Context) error {
	if c.Latency <= 0 {
		return nil
	}
	timer := time.NewTimer(c.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lastLineAfter returns the trimmed remainder of the line containing marker.
func lastLineAfter(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "the topic"
	}
	rest := text[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "the topic"
	}
	return rest
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
