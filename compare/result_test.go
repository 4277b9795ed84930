package compare

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/eval"
)

func handcrafted() *Comparison {
	return &Comparison{
		Query: "q",
		Results: []ConfigResult{
			{Index: 0, Name: "low", Evaluation: &eval.Result{
				Aggregate: 0.4, Scores: map[string]float64{"completeness": 0.2}}},
			{Index: 1, Name: "high", Evaluation: &eval.Result{
				Aggregate: 0.8, Scores: map[string]float64{"completeness": 0.8}}},
			{Index: 2, Name: "failed", Err: errors.New("boom"), ErrorMessage: "boom"},
			{Index: 3, Name: "mid", Evaluation: &eval.Result{
				Aggregate: 0.6, Scores: map[string]float64{"completeness": 0.5}}},
		},
	}
}

func TestRanked_Order(t *testing.T) {
	ranked := handcrafted().Ranked()

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"high", "mid", "low", "failed"}, names)
}

func TestStats(t *testing.T) {
	s := handcrafted().Stats()

	assert.Equal(t, 3, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 0.6, s.Mean, 1e-9)
	// Population variance of {0.4, 0.8, 0.6}.
	assert.InDelta(t, 0.0266666, s.Variance, 1e-4)
	assert.InDelta(t, 0.4, s.Min, 1e-9)
	assert.InDelta(t, 0.8, s.Max, 1e-9)

	// Per-metric statistics over {0.2, 0.8, 0.5}.
	require.Contains(t, s.Metrics, "completeness")
	assert.InDelta(t, 0.5, s.Metrics["completeness"].Mean, 1e-9)
	assert.InDelta(t, 0.06, s.Metrics["completeness"].Variance, 1e-9)
}

func TestExitCodes_NumericMapping(t *testing.T) {
	// The process contract: 0 all succeeded, 1 all failed, 2 mixed.
	assert.Equal(t, 0, ExitOK)
	assert.Equal(t, 1, ExitFailed)
	assert.Equal(t, 2, ExitPartial)

	mixed := handcrafted()
	assert.Equal(t, 2, mixed.ExitCode())

	allFailed := &Comparison{Results: []ConfigResult{{Err: errors.New("x")}}}
	assert.Equal(t, 1, allFailed.ExitCode())
}

func TestStats_AllFailed(t *testing.T) {
	c := &Comparison{Results: []ConfigResult{{Err: errors.New("x")}}}
	s := c.Stats()
	assert.Equal(t, 0, s.Succeeded)
	assert.Zero(t, s.Mean)
	assert.Zero(t, s.Min)
	assert.Zero(t, s.Max)
	assert.Equal(t, ExitFailed, c.ExitCode())
}
