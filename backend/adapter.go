// Package backend defines the provider-agnostic adapter contract: generation
// and search capabilities, retry and rate-limit handling, and the provider
// registry used to build adapter pairs for a run.
package backend

import (
	"context"
	"time"

	"github.com/odr-dev/deepresearch/types"
)

// Capability identifies an operation a backend may support.
type Capability string

const (
	CapabilityGenerate Capability = "generate"
	CapabilitySearch   Capability = "search"
)

// GenerateOptions are per-call knobs for text generation.
type GenerateOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// SearchOptions are per-call knobs for source retrieval.
type SearchOptions struct {
	// TopK is the number of documents requested.
	TopK int
	// Params carries provider-specific options (e.g. search depth).
	Params map[string]string
}

// SourceDocument is one retrieved source.
type SourceDocument struct {
	URL     string  `json:"url"`
	Title   string  `json:"title"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Searcher retrieves source documents for a query.
type Searcher interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SourceDocument, error)
}

// HealthStatus reports adapter availability.
type HealthStatus struct {
	Provider  string        `json:"provider"`
	Healthy   bool          `json:"healthy"`
	Latency   time.Duration `json:"latency"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

// Adapter is a backend implementation. An adapter declares its capabilities;
// calling an undeclared capability is a programming error and adapters may
// panic, so callers must check Capabilities (or use NewPair) first.
type Adapter interface {
	// Name returns the provider id (e.g. "openai", "tavily").
	Name() string
	// Capabilities returns the operations this adapter supports.
	Capabilities() []Capability
	// Health probes the backend.
	Health(ctx context.Context) HealthStatus
}

// HasCapability reports whether the adapter declares the capability.
func HasCapability(a Adapter, c Capability) bool {
	for _, got := range a.Capabilities() {
		if got == c {
			return true
		}
	}
	return false
}

// Pair binds one generate-capable and one search-capable adapter for a run.
// Construction fails fast if either adapter lacks the required capability.
type Pair struct {
	Generator Generator
	Searcher  Searcher

	// ModelName is threaded into every generate call.
	ModelName string

	genAdapter    Adapter
	searchAdapter Adapter
}

// NewPair validates capabilities and binds the two adapters.
func NewPair(gen, search Adapter, modelName string) (*Pair, error) {
	g, ok := gen.(Generator)
	if !ok || !HasCapability(gen, CapabilityGenerate) {
		return nil, types.NewError(types.ErrUnsupportedCapability,
			"provider "+gen.Name()+" does not support generate").WithProvider(gen.Name())
	}
	s, ok := search.(Searcher)
	if !ok || !HasCapability(search, CapabilitySearch) {
		return nil, types.NewError(types.ErrUnsupportedCapability,
			"provider "+search.Name()+" does not support search").WithProvider(search.Name())
	}
	return &Pair{
		Generator:     g,
		Searcher:      s,
		ModelName:     modelName,
		genAdapter:    gen,
		searchAdapter: search,
	}, nil
}

// GeneratorName returns the provider id of the bound generator.
func (p *Pair) GeneratorName() string { return p.genAdapter.Name() }

// SearcherName returns the provider id of the bound searcher.
func (p *Pair) SearcherName() string { return p.searchAdapter.Name() }

// Health probes both bound adapters.
func (p *Pair) Health(ctx context.Context) []HealthStatus {
	statuses := []HealthStatus{p.genAdapter.Health(ctx)}
	if p.searchAdapter.Name() != p.genAdapter.Name() {
		statuses = append(statuses, p.searchAdapter.Health(ctx))
	}
	return statuses
}
