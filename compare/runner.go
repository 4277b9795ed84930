// Package compare runs the same query through multiple configurations in
// parallel, evaluates every successful report, and ranks the outcomes.
// Configurations are isolated: one failing pipeline never disturbs the
// others.
package compare

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/backend/cache"
	"github.com/odr-dev/deepresearch/config"
	"github.com/odr-dev/deepresearch/eval"
	"github.com/odr-dev/deepresearch/internal/metrics"
	"github.com/odr-dev/deepresearch/report"
	"github.com/odr-dev/deepresearch/research"
	"github.com/odr-dev/deepresearch/types"
	"github.com/odr-dev/deepresearch/workflow"
)

// Credentials maps provider ids to their client settings.
type Credentials map[string]backend.ClientConfig

// ConfigResult is the outcome of one configuration's pipeline.
type ConfigResult struct {
	// Index is the declaration position, the ranking tiebreaker.
	Index      int                  `json:"index"`
	Name       string               `json:"name"`
	Config     config.Configuration `json:"config"`
	Session    *research.Session    `json:"session,omitempty"`
	Report     *report.Report       `json:"report,omitempty"`
	Evaluation *eval.Result         `json:"evaluation,omitempty"`
	Duration   time.Duration        `json:"duration_ns"`
	// ErrorMessage carries the failure for serialization; Err holds the
	// typed error for callers.
	ErrorMessage string `json:"error,omitempty"`
	Err          error  `json:"-"`
}

// Succeeded reports whether this configuration produced an evaluated report.
func (r *ConfigResult) Succeeded() bool { return r.Err == nil && r.Evaluation != nil }

// Comparison is the outcome of one comparison run.
type Comparison struct {
	Query     string         `json:"query"`
	Results   []ConfigResult `json:"results"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration_ns"`
}

// Runner executes comparison runs.
type Runner struct {
	registry       *backend.Registry
	creds          Credentials
	engine         *eval.Engine
	searchCache    *cache.SearchCache
	metrics        *metrics.Collector
	tracker        *backend.RateTracker
	retryPolicy    backend.RetryPolicy
	maxConcurrency int
	logger         *zap.Logger
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Credentials    Credentials
	SearchCache    *cache.SearchCache
	Metrics        *metrics.Collector
	Tracker        *backend.RateTracker
	RetryPolicy    backend.RetryPolicy
	MaxConcurrency int
	Logger         *zap.Logger
}

// NewRunner creates a runner over the given provider registry.
func NewRunner(registry *backend.Registry, opts RunnerOptions) *Runner {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = config.DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RetryPolicy.MaxRetries == 0 && opts.RetryPolicy.InitialInterval == 0 {
		opts.RetryPolicy = backend.DefaultRetryPolicy()
	}
	if opts.Tracker == nil {
		// One rate gate shared by every configuration of the run.
		opts.Tracker = backend.NewRateTracker(0, 1)
	}
	return &Runner{
		registry:       registry,
		creds:          opts.Credentials,
		engine:         eval.NewEngine(opts.Logger),
		searchCache:    opts.SearchCache,
		metrics:        opts.Metrics,
		tracker:        opts.Tracker,
		retryPolicy:    opts.RetryPolicy,
		maxConcurrency: opts.MaxConcurrency,
		logger:         opts.Logger,
	}
}

// Run executes the query under every configuration. Failures are captured in
// the per-configuration results; the returned error is reserved for an empty
// configuration list.
func (r *Runner) Run(ctx context.Context, query string, configs []config.Configuration) (*Comparison, error) {
	if len(configs) == 0 {
		return nil, types.NewError(types.ErrInvalidConfig, "no configurations to compare")
	}

	cmp := &Comparison{
		Query:     query,
		Results:   make([]ConfigResult, len(configs)),
		StartedAt: time.Now(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxConcurrency)
	for i, cfg := range configs {
		g.Go(func() error {
			cmp.Results[i] = r.runOne(ctx, query, i, cfg)
			return nil
		})
	}
	// Goroutines never return errors; failures live in the results.
	_ = g.Wait()

	cmp.Duration = time.Since(cmp.StartedAt)
	return cmp, nil
}

func (r *Runner) runOne(ctx context.Context, query string, index int, cfg config.Configuration) ConfigResult {
	start := time.Now()
	res := ConfigResult{Index: index, Name: cfg.Name, Config: cfg}
	fail := func(err error) ConfigResult {
		res.Err = err
		res.ErrorMessage = err.Error()
		res.Duration = time.Since(start)
		r.logger.Warn("configuration failed",
			zap.String("configuration", res.Name), zap.Error(err))
		return res
	}

	plan, err := config.Resolve(cfg, r.registry)
	if err != nil {
		return fail(err)
	}
	res.Name = plan.Config.Name
	res.Config = plan.Config

	pair, err := r.buildPair(plan)
	if err != nil {
		return fail(err)
	}

	exec := workflow.NewExecutor(plan, pair, workflow.Options{
		RetryPolicy: r.retryPolicy,
		Tracker:     r.tracker,
		Metrics:     r.metrics,
		Logger:      r.logger,
	})
	execRes, err := exec.Execute(ctx, query)
	if execRes != nil {
		res.Session = execRes.Session
	}
	if err != nil {
		return fail(err)
	}
	res.Report = execRes.Report

	evalRes, err := r.engine.Evaluate(execRes.Session, execRes.Report, eval.Rubric(plan.Config.Rubric))
	if err != nil {
		return fail(err)
	}
	res.Evaluation = evalRes
	res.Duration = time.Since(start)

	r.logger.Info("configuration completed",
		zap.String("configuration", res.Name),
		zap.Float64("aggregate", evalRes.Aggregate),
		zap.Duration("duration", res.Duration))
	return res
}

// buildPair constructs and binds the configured adapters, wrapping the
// searcher with the shared cache when one is configured.
func (r *Runner) buildPair(plan *config.ExecutionPlan) (*backend.Pair, error) {
	gen, err := r.registry.New(plan.Config.ModelProvider, r.creds[plan.Config.ModelProvider])
	if err != nil {
		return nil, err
	}

	var search backend.Adapter
	if plan.Config.SearchProvider == plan.Config.ModelProvider {
		search = gen
	} else {
		search, err = r.registry.New(plan.Config.SearchProvider, r.creds[plan.Config.SearchProvider])
		if err != nil {
			return nil, err
		}
	}

	pair, err := backend.NewPair(gen, search, plan.Config.ModelName)
	if err != nil {
		return nil, err
	}
	if r.searchCache != nil {
		pair.Searcher = cache.NewCachingSearcher(pair.Searcher, plan.Config.SearchProvider, r.searchCache).
			WithMetrics(r.metrics)
	}
	return pair, nil
}
