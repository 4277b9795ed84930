// Package eval scores finished reports against a weighted rubric of quality
// metrics. Scoring is deterministic: the same session and report always
// produce the same result.
package eval

import (
	"fmt"
	"math"

	"github.com/odr-dev/deepresearch/types"
)

// Metric names accepted in rubrics.
const (
	MetricCompleteness     = "completeness"
	MetricCoherence        = "coherence"
	MetricCitationDensity  = "citation_density"
	MetricFactualGrounding = "factual_grounding"
)

// weightTolerance absorbs float accumulation error when checking that
// weights sum to 1.
const weightTolerance = 1e-6

// Rubric maps metric names to weights. Weights must be non-negative and sum
// to 1.
type Rubric map[string]float64

// DefaultRubric returns the standard scoring rubric.
func DefaultRubric() Rubric {
	return Rubric{
		MetricCompleteness:     0.30,
		MetricCoherence:        0.25,
		MetricCitationDensity:  0.20,
		MetricFactualGrounding: 0.25,
	}
}

// Validate checks the rubric against the known metric set. Violations
// produce an INVALID_RUBRIC error.
func (r Rubric) Validate(known map[string]Metric) error {
	if len(r) == 0 {
		return types.NewError(types.ErrInvalidRubric, "rubric has no metrics")
	}
	sum := 0.0
	for name, w := range r {
		if _, ok := known[name]; !ok {
			return types.NewError(types.ErrInvalidRubric,
				fmt.Sprintf("unknown metric %q", name))
		}
		if w < 0 {
			return types.NewError(types.ErrInvalidRubric,
				fmt.Sprintf("metric %q has negative weight %g", name, w))
		}
		sum += w
	}
	if math.Abs(sum-1.0) > weightTolerance {
		return types.NewError(types.ErrInvalidRubric,
			fmt.Sprintf("weights sum to %g, want 1.0", sum))
	}
	return nil
}

// clampScore bounds a score to [0,1].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
