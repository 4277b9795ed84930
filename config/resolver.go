package config

import (
	"fmt"
	"time"

	"github.com/odr-dev/deepresearch/types"
)

// ProviderCatalog answers whether a provider id is known and what it can do.
// The backend registry implements it; tests may use a StaticCatalog.
type ProviderCatalog interface {
	HasModelProvider(id string) bool
	HasSearchProvider(id string) bool
}

// StaticCatalog is a fixed-set ProviderCatalog for tests and offline use.
type StaticCatalog struct {
	ModelProviders  []string
	SearchProviders []string
}

func (c StaticCatalog) HasModelProvider(id string) bool {
	for _, p := range c.ModelProviders {
		if p == id {
			return true
		}
	}
	return false
}

func (c StaticCatalog) HasSearchProvider(id string) bool {
	for _, p := range c.SearchProviders {
		if p == id {
			return true
		}
	}
	return false
}

// ExecutionPlan is a validated, fully-defaulted Configuration plus derived
// execution parameters. Owned exclusively by one executor run; never mutated
// after creation.
type ExecutionPlan struct {
	// Config is the normalized configuration snapshot.
	Config Configuration
	// StepBudget is the bounded number of research steps.
	StepBudget int
	// Timeout is the wall-clock budget for the session.
	Timeout time.Duration
}

// Resolve validates and normalizes a raw Configuration into an ExecutionPlan.
// It is a pure function of its input: documented defaults are applied for
// omitted optional fields; violations produce an INVALID_CONFIG error.
func Resolve(raw Configuration, catalog ProviderCatalog) (*ExecutionPlan, error) {
	if raw.ModelProvider == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "model_provider is required")
	}
	if raw.ModelName == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "model_name is required")
	}
	if raw.SearchProvider == "" {
		return nil, types.NewError(types.ErrInvalidConfig, "search_provider is required")
	}
	if catalog == nil {
		return nil, types.NewError(types.ErrInvalidConfig, "provider catalog is required")
	}
	if !catalog.HasModelProvider(raw.ModelProvider) {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown model provider %q", raw.ModelProvider))
	}
	if !catalog.HasSearchProvider(raw.SearchProvider) {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown search provider %q", raw.SearchProvider))
	}

	cfg := raw
	// max_steps: zero means "use default", negative is a bounds violation.
	// Explicit zero from the user is indistinguishable from omission in YAML,
	// so the documented contract is: omitted -> default, <= -1 -> rejected.
	switch {
	case cfg.MaxSteps < 0:
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("max_steps must be positive, got %d", cfg.MaxSteps))
	case cfg.MaxSteps == 0:
		cfg.MaxSteps = DefaultMaxSteps
	}

	switch cfg.ReportFormat {
	case "":
		cfg.ReportFormat = FormatMarkdown
	case FormatMarkdown, FormatJSON:
	default:
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("unknown report_format %q", cfg.ReportFormat))
	}

	if cfg.TimeoutSeconds < 0 {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("timeout_seconds must be positive, got %d", cfg.TimeoutSeconds))
	}
	if cfg.TimeoutSeconds == 0 {
		cfg.TimeoutSeconds = DefaultTimeoutSeconds
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("temperature must be in [0,2], got %g", cfg.Temperature))
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxTokens < 0 {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("max_tokens must be positive, got %d", cfg.MaxTokens))
	}
	if cfg.TopK == 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.TopK < 0 {
		return nil, types.NewError(types.ErrInvalidConfig,
			fmt.Sprintf("top_k must be positive, got %d", cfg.TopK))
	}
	if cfg.MaxSections == 0 {
		cfg.MaxSections = DefaultMaxSections
	}
	if cfg.Name == "" {
		cfg.Name = cfg.ModelProvider + ":" + cfg.ModelName
	}
	if cfg.SearchParams == nil {
		cfg.SearchParams = map[string]string{}
	}

	return &ExecutionPlan{
		Config:     cfg,
		StepBudget: cfg.MaxSteps,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}
