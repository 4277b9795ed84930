package eval

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/report"
	"github.com/odr-dev/deepresearch/research"
)

// Result is the outcome of scoring one report.
type Result struct {
	// Scores holds the raw per-metric scores in [0,1].
	Scores map[string]float64 `json:"scores"`
	// Aggregate is the weighted sum over the rubric.
	Aggregate float64 `json:"aggregate"`
	// Rationale is a human-readable per-metric breakdown.
	Rationale string `json:"rationale"`
}

// Engine evaluates reports against rubrics.
type Engine struct {
	metrics map[string]Metric
	logger  *zap.Logger
}

// NewEngine creates an engine with the built-in metric set. A nil logger
// falls back to a no-op logger.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		metrics: make(map[string]Metric),
		logger:  logger,
	}
	e.RegisterMetric(completenessMetric{})
	e.RegisterMetric(coherenceMetric{})
	e.RegisterMetric(citationDensityMetric{})
	e.RegisterMetric(factualGroundingMetric{})
	return e
}

// RegisterMetric adds or replaces a metric by name.
func (e *Engine) RegisterMetric(m Metric) {
	e.metrics[m.Name()] = m
}

// Evaluate scores the report against the rubric. A nil or empty rubric uses
// DefaultRubric. Metrics are iterated in sorted name order so the rationale
// text is stable.
func (e *Engine) Evaluate(sess *research.Session, rep *report.Report, rubric Rubric) (*Result, error) {
	if len(rubric) == 0 {
		rubric = DefaultRubric()
	}
	if err := rubric.Validate(e.metrics); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rubric))
	for name := range rubric {
		names = append(names, name)
	}
	sort.Strings(names)

	res := &Result{Scores: make(map[string]float64, len(names))}
	var rationale strings.Builder
	for _, name := range names {
		m := e.metrics[name]
		score := clampScore(m.Score(sess, rep))
		res.Scores[name] = score
		res.Aggregate += rubric[name] * score
		fmt.Fprintf(&rationale, "%s: %.2f (weight %.2f)\n", name, score, rubric[name])
		if ex, ok := m.(Explainer); ok {
			if detail := ex.Explain(sess, rep); detail != "" {
				fmt.Fprintf(&rationale, "%s: %s\n", name, detail)
			}
		}
	}
	res.Rationale = strings.TrimSpace(rationale.String())

	e.logger.Debug("report evaluated",
		zap.String("session", sess.ID),
		zap.Float64("aggregate", res.Aggregate))
	return res, nil
}
