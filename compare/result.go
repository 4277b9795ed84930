package compare

import (
	"math"
	"sort"
)

// Ranked returns the results ordered for presentation: successful
// configurations by aggregate score descending, failures last. Declaration
// order breaks ties, so equal scores rank deterministically.
func (c *Comparison) Ranked() []ConfigResult {
	out := make([]ConfigResult, len(c.Results))
	copy(out, c.Results)
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := out[i].Succeeded(), out[j].Succeeded()
		if si != sj {
			return si
		}
		if !si {
			return out[i].Index < out[j].Index
		}
		if out[i].Evaluation.Aggregate != out[j].Evaluation.Aggregate {
			return out[i].Evaluation.Aggregate > out[j].Evaluation.Aggregate
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// Winner returns the top-ranked successful result, or nil when every
// configuration failed.
func (c *Comparison) Winner() *ConfigResult {
	ranked := c.Ranked()
	if len(ranked) == 0 || !ranked[0].Succeeded() {
		return nil
	}
	return &ranked[0]
}

// MetricStats summarizes one metric's scores across successful results.
type MetricStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
}

// Stats summarizes the scores of the successful results: aggregate mean,
// variance and range, plus per-metric mean and variance.
type Stats struct {
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Mean      float64                `json:"mean"`
	Variance  float64                `json:"variance"`
	Min       float64                `json:"min"`
	Max       float64                `json:"max"`
	Metrics   map[string]MetricStats `json:"metrics,omitempty"`
}

// Stats computes score statistics across the comparison. Mean and variance
// cover successful results only; variance is the population variance.
func (c *Comparison) Stats() Stats {
	var s Stats
	s.Min = math.Inf(1)
	s.Max = math.Inf(-1)

	var scores []float64
	perMetric := make(map[string][]float64)
	for _, r := range c.Results {
		if !r.Succeeded() {
			s.Failed++
			continue
		}
		s.Succeeded++
		score := r.Evaluation.Aggregate
		scores = append(scores, score)
		s.Min = math.Min(s.Min, score)
		s.Max = math.Max(s.Max, score)
		for name, v := range r.Evaluation.Scores {
			perMetric[name] = append(perMetric[name], v)
		}
	}
	if len(scores) == 0 {
		s.Min, s.Max = 0, 0
		return s
	}

	s.Mean, s.Variance = meanVariance(scores)
	if len(perMetric) > 0 {
		s.Metrics = make(map[string]MetricStats, len(perMetric))
		for name, vs := range perMetric {
			mean, variance := meanVariance(vs)
			s.Metrics[name] = MetricStats{Mean: mean, Variance: variance}
		}
	}
	return s
}

func meanVariance(vs []float64) (mean, variance float64) {
	for _, v := range vs {
		mean += v
	}
	mean /= float64(len(vs))
	for _, v := range vs {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(vs))
	return mean, variance
}

// Exit codes for the CLI: every configuration succeeded, every configuration
// failed, or a mixed outcome.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitPartial = 2
)

// ExitCode summarizes the comparison outcome as a process exit code.
func (c *Comparison) ExitCode() int {
	stats := c.Stats()
	switch {
	case stats.Failed == 0:
		return ExitOK
	case stats.Succeeded > 0:
		return ExitPartial
	default:
		return ExitFailed
	}
}
