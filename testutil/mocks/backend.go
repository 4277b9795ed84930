// Package mocks provides builder-style scriptable backend fakes for tests.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/types"
)

// Backend is a scriptable Adapter implementing both Generator and Searcher.
// Responses are configured with the With* builders; calls are recorded for
// assertions. Safe for concurrent use.
type Backend struct {
	mu sync.Mutex

	name string
	caps []backend.Capability

	generateResponses []string
	generateErr       error
	generateFailAfter int // fail generate calls after this many successes; -1 disables
	searchDocs        []backend.SourceDocument
	searchErr         error

	generateCalls []string
	searchCalls   []string
}

// NewBackend creates a mock with both capabilities.
func NewBackend(name string) *Backend {
	return &Backend{
		name:              name,
		caps:              []backend.Capability{backend.CapabilityGenerate, backend.CapabilitySearch},
		generateFailAfter: -1,
	}
}

// WithCapabilities overrides the declared capabilities.
func (b *Backend) WithCapabilities(caps ...backend.Capability) *Backend {
	b.caps = caps
	return b
}

// WithResponse appends canned generate responses, consumed in order. The
// last response repeats once the script is exhausted.
func (b *Backend) WithResponse(responses ...string) *Backend {
	b.generateResponses = append(b.generateResponses, responses...)
	return b
}

// WithGenerateError makes every generate call fail with err.
func (b *Backend) WithGenerateError(err error) *Backend {
	b.generateErr = err
	return b
}

// WithFailAfter makes generate fail with a transient error after n
// successful calls.
func (b *Backend) WithFailAfter(n int) *Backend {
	b.generateFailAfter = n
	return b
}

// WithSearchDocs sets the canned search result.
func (b *Backend) WithSearchDocs(docs ...backend.SourceDocument) *Backend {
	b.searchDocs = docs
	return b
}

// WithSearchError makes every search call fail with err.
func (b *Backend) WithSearchError(err error) *Backend {
	b.searchErr = err
	return b
}

func (b *Backend) Name() string                       { return b.name }
func (b *Backend) Capabilities() []backend.Capability { return b.caps }

func (b *Backend) Health(ctx context.Context) backend.HealthStatus {
	return backend.HealthStatus{Provider: b.name, Healthy: true, CheckedAt: time.Now()}
}

func (b *Backend) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	calls := len(b.generateCalls)
	b.generateCalls = append(b.generateCalls, prompt)

	if b.generateErr != nil {
		return "", b.generateErr
	}
	if b.generateFailAfter >= 0 && calls >= b.generateFailAfter {
		return "", types.NewTransient(b.name, "scripted failure")
	}
	if len(b.generateResponses) == 0 {
		return "", nil
	}
	idx := calls
	if idx >= len(b.generateResponses) {
		idx = len(b.generateResponses) - 1
	}
	return b.generateResponses[idx], nil
}

func (b *Backend) Search(ctx context.Context, query string, opts backend.SearchOptions) ([]backend.SourceDocument, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.searchCalls = append(b.searchCalls, query)
	if b.searchErr != nil {
		return nil, b.searchErr
	}
	docs := b.searchDocs
	if opts.TopK > 0 && opts.TopK < len(docs) {
		docs = docs[:opts.TopK]
	}
	return docs, nil
}

// GenerateCalls returns the prompts passed to Generate so far.
func (b *Backend) GenerateCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.generateCalls))
	copy(out, b.generateCalls)
	return out
}

// SearchCalls returns the queries passed to Search so far.
func (b *Backend) SearchCalls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.searchCalls))
	copy(out, b.searchCalls)
	return out
}
