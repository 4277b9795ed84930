// Package deepresearch is the convenience entry point for the research
// engine. It re-exports the most common types and wires the built-in
// providers, so embedding applications can run a comparison in a few lines:
//
//	runner := compare.NewRunner(deepresearch.DefaultRegistry(logger), compare.RunnerOptions{
//		Credentials: deepresearch.CredentialsFromEnv(),
//	})
//	cmp, err := runner.Run(ctx, "my question", configs)
package deepresearch

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/backend/anthropic"
	"github.com/odr-dev/deepresearch/backend/mock"
	"github.com/odr-dev/deepresearch/backend/openai"
	"github.com/odr-dev/deepresearch/backend/tavily"
	"github.com/odr-dev/deepresearch/compare"
	"github.com/odr-dev/deepresearch/config"
	"github.com/odr-dev/deepresearch/eval"
)

// Commonly used types, re-exported for embedders.
type (
	Configuration = config.Configuration
	Rubric        = eval.Rubric
	Comparison    = compare.Comparison
	ConfigResult  = compare.ConfigResult
	Credentials   = compare.Credentials
)

// DefaultRegistry returns a registry with every built-in provider: openai
// and anthropic for generation, tavily for search, and the offline mock for
// both.
func DefaultRegistry(logger *zap.Logger) *backend.Registry {
	reg := backend.NewRegistry()
	gen := []backend.Capability{backend.CapabilityGenerate}
	search := []backend.Capability{backend.CapabilitySearch}
	both := []backend.Capability{backend.CapabilityGenerate, backend.CapabilitySearch}

	reg.Register(openai.ProviderName, gen, openai.Factory(logger))
	reg.Register(anthropic.ProviderName, gen, anthropic.Factory(logger))
	reg.Register(tavily.ProviderName, search, tavily.Factory(logger))
	reg.Register(mock.ProviderName, both, mock.Factory())
	return reg
}

// CredentialsFromEnv reads provider API keys from the conventional
// environment variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		openai.ProviderName:    {APIKey: os.Getenv("OPENAI_API_KEY")},
		anthropic.ProviderName: {APIKey: os.Getenv("ANTHROPIC_API_KEY")},
		tavily.ProviderName:    {APIKey: os.Getenv("TAVILY_API_KEY")},
	}
}

// Compare runs one comparison with the default registry and environment
// credentials.
func Compare(ctx context.Context, query string, configs []Configuration, logger *zap.Logger) (*Comparison, error) {
	runner := compare.NewRunner(DefaultRegistry(logger), compare.RunnerOptions{
		Credentials: CredentialsFromEnv(),
		Logger:      logger,
	})
	return runner.Run(ctx, query, configs)
}
