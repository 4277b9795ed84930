package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/types"
)

func testCatalog() StaticCatalog {
	return StaticCatalog{
		ModelProviders:  []string{"openai", "anthropic", "mock"},
		SearchProviders: []string{"tavily", "mock"},
	}
}

func TestResolve_AppliesDefaults(t *testing.T) {
	plan, err := Resolve(Configuration{
		ModelProvider:  "openai",
		ModelName:      "gpt-4o-mini",
		SearchProvider: "tavily",
	}, testCatalog())
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxSteps, plan.StepBudget)
	assert.Equal(t, DefaultMaxSteps, plan.Config.MaxSteps)
	assert.Equal(t, FormatMarkdown, plan.Config.ReportFormat)
	assert.Equal(t, DefaultTopK, plan.Config.TopK)
	assert.Equal(t, DefaultMaxTokens, plan.Config.MaxTokens)
	assert.Equal(t, DefaultMaxSections, plan.Config.MaxSections)
	assert.Equal(t, time.Duration(DefaultTimeoutSeconds)*time.Second, plan.Timeout)
	assert.Equal(t, "openai:gpt-4o-mini", plan.Config.Name)
	assert.NotNil(t, plan.Config.SearchParams)
}

func TestResolve_PreservesExplicitValues(t *testing.T) {
	plan, err := Resolve(Configuration{
		Name:           "fast",
		ModelProvider:  "anthropic",
		ModelName:      "claude-sonnet",
		SearchProvider: "tavily",
		MaxSteps:       5,
		ReportFormat:   FormatJSON,
		TimeoutSeconds: 60,
		TopK:           10,
	}, testCatalog())
	require.NoError(t, err)

	assert.Equal(t, 5, plan.StepBudget)
	assert.Equal(t, FormatJSON, plan.Config.ReportFormat)
	assert.Equal(t, 60*time.Second, plan.Timeout)
	assert.Equal(t, 10, plan.Config.TopK)
	assert.Equal(t, "fast", plan.Config.Name)
}

func TestResolve_RejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  Configuration
	}{
		{"missing model provider", Configuration{ModelName: "m", SearchProvider: "tavily"}},
		{"missing model name", Configuration{ModelProvider: "openai", SearchProvider: "tavily"}},
		{"missing search provider", Configuration{ModelProvider: "openai", ModelName: "m"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Resolve(tc.cfg, testCatalog())
			require.Error(t, err)
			assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
		})
	}
}

func TestResolve_RejectsUnknownProviders(t *testing.T) {
	_, err := Resolve(Configuration{
		ModelProvider:  "nosuch",
		ModelName:      "m",
		SearchProvider: "tavily",
	}, testCatalog())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	_, err = Resolve(Configuration{
		ModelProvider:  "openai",
		ModelName:      "m",
		SearchProvider: "nosuch",
	}, testCatalog())
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestResolve_RejectsNegativeBounds(t *testing.T) {
	base := Configuration{
		ModelProvider:  "openai",
		ModelName:      "m",
		SearchProvider: "tavily",
	}

	cfg := base
	cfg.MaxSteps = -1
	_, err := Resolve(cfg, testCatalog())
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	cfg = base
	cfg.TopK = -2
	_, err = Resolve(cfg, testCatalog())
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	cfg = base
	cfg.Temperature = 3.5
	_, err = Resolve(cfg, testCatalog())
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))

	cfg = base
	cfg.ReportFormat = "xml"
	_, err = Resolve(cfg, testCatalog())
	assert.True(t, types.IsCode(err, types.ErrInvalidConfig))
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	raw := Configuration{
		ModelProvider:  "openai",
		ModelName:      "m",
		SearchProvider: "tavily",
	}
	_, err := Resolve(raw, testCatalog())
	require.NoError(t, err)
	assert.Zero(t, raw.MaxSteps)
	assert.Empty(t, raw.Name)
}
