// Package workflow drives one research session through its lifecycle:
// planning, gathering, synthesizing, reporting. The executor owns the
// session; fatal backend errors abort the run while exhausted transient
// errors degrade individual steps and the pipeline continues. A run with
// degraded steps ends in the partial terminal status instead of completed.
package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/backend"
	"github.com/odr-dev/deepresearch/config"
	"github.com/odr-dev/deepresearch/internal/metrics"
	"github.com/odr-dev/deepresearch/internal/tokencount"
	"github.com/odr-dev/deepresearch/report"
	"github.com/odr-dev/deepresearch/research"
	"github.com/odr-dev/deepresearch/types"
)

// earlyStopWindow is the number of trailing steps that must all yield no new
// distinct sources before gathering stops early.
const earlyStopWindow = 2

// snippetTokenBudget caps each source snippet fed into an extraction prompt.
const snippetTokenBudget = 256

// Result bundles the session and its report. On failure the report is nil
// and the session carries the partial state reached before the error.
type Result struct {
	Session *research.Session
	Report  *report.Report
}

// Executor runs research sessions against one resolved execution plan.
type Executor struct {
	plan    *config.ExecutionPlan
	pair    *backend.Pair
	retryer *backend.Retryer
	metrics *metrics.Collector
	counter *tokencount.Counter
	logger  *zap.Logger
	tracer  trace.Tracer
}

// Options configures an Executor beyond its plan and backend pair.
type Options struct {
	RetryPolicy backend.RetryPolicy
	Tracker     *backend.RateTracker
	Metrics     *metrics.Collector
	Logger      *zap.Logger
}

// NewExecutor creates an executor. Zero-value options get the default retry
// policy and a no-op logger.
func NewExecutor(plan *config.ExecutionPlan, pair *backend.Pair, opts Options) *Executor {
	if opts.RetryPolicy.MaxRetries == 0 && opts.RetryPolicy.InitialInterval == 0 {
		opts.RetryPolicy = backend.DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Executor{
		plan:    plan,
		pair:    pair,
		retryer: backend.NewRetryer(opts.RetryPolicy, opts.Tracker, opts.Logger).WithMetrics(opts.Metrics),
		metrics: opts.Metrics,
		counter: tokencount.ForModel(plan.Config.ModelName),
		logger:  opts.Logger.With(zap.String("configuration", plan.Config.Name)),
		tracer:  otel.Tracer("deepresearch/workflow"),
	}
}

// Execute runs the full pipeline for one query. The returned Result always
// carries the session, even when err is non-nil.
func (e *Executor) Execute(ctx context.Context, query string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.plan.Timeout)
	defer cancel()

	ctx, span := e.tracer.Start(ctx, "workflow.Execute",
		trace.WithAttributes(
			attribute.String("configuration", e.plan.Config.Name),
			attribute.String("model_provider", e.plan.Config.ModelProvider),
			attribute.String("search_provider", e.plan.Config.SearchProvider),
		))
	defer span.End()

	sess := research.NewSession(query)
	res := &Result{Session: sess}
	start := time.Now()

	rep, err := e.run(ctx, sess)
	if err != nil {
		e.transition(sess, failureStatus(sess, err))
		e.recordSession(sess, start)
		span.RecordError(err)
		return res, err
	}

	res.Report = rep
	e.transition(sess, successStatus(sess))
	e.recordSession(sess, start)
	e.logger.Info("session finished", zap.String("session", sess.ID),
		zap.String("status", string(sess.Status)),
		zap.Int("notes", len(sess.Notes)), zap.Int("sources", sess.DistinctSources()))
	return res, nil
}

// successStatus is the terminal status of a run that produced a report:
// partial when any gather step degraded, completed otherwise.
func successStatus(sess *research.Session) research.Status {
	for _, step := range sess.Steps {
		if step.Degraded {
			return research.StatusPartial
		}
	}
	return research.StatusCompleted
}

// failureStatus maps a pipeline error to the session's terminal status. A
// synthesis failure over non-empty evidence ends partial; everything else,
// including cancellation, ends failed.
func failureStatus(sess *research.Session, err error) research.Status {
	if sess.Status == research.StatusSynthesizing && len(sess.Notes) > 0 &&
		!types.IsCode(err, types.ErrCancelled) {
		return research.StatusPartial
	}
	return research.StatusFailed
}

func (e *Executor) run(ctx context.Context, sess *research.Session) (*report.Report, error) {
	sess.SubQueries = e.planSteps(ctx, sess.Query)
	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrCancelled, "session cancelled during planning").WithCause(err)
	}

	e.transition(sess, research.StatusGathering)
	if err := e.gather(ctx, sess); err != nil {
		return nil, err
	}

	sess.Freeze()
	e.transition(sess, research.StatusSynthesizing)

	gen := e.instrumentedGenerator()
	syn := report.NewSynthesizer(gen, e.generateOptions(), e.logger)
	rep, err := syn.Synthesize(ctx, sess, e.plan.Config.MaxSections)
	if err != nil {
		return nil, err
	}

	e.transition(sess, research.StatusReporting)
	return rep, nil
}

// planSteps decomposes the query into sub-queries. Planning failure is never
// fatal: the query itself becomes the single sub-query.
func (e *Executor) planSteps(ctx context.Context, query string) []string {
	gen := e.instrumentedGenerator()
	out, err := gen.Generate(ctx, research.PlanPrompt(query, e.plan.StepBudget), e.generateOptions())
	if err != nil {
		e.logger.Warn("planning failed, falling back to original query", zap.Error(err))
		return []string{query}
	}
	subs := research.ParsePlan(out, e.plan.StepBudget)
	if len(subs) == 0 {
		e.logger.Warn("plan output unparseable, falling back to original query")
		return []string{query}
	}
	return subs
}

// gather runs the research steps. A step whose backend calls exhaust retries
// is recorded as degraded with whatever partial notes it produced; fatal
// errors and cancellation abort gathering.
func (e *Executor) gather(ctx context.Context, sess *research.Session) error {
	gen := e.instrumentedGenerator()
	noNewSources := 0

	for i, sub := range sess.SubQueries {
		if i >= e.plan.StepBudget {
			break
		}
		if err := ctx.Err(); err != nil {
			return types.NewError(types.ErrCancelled, "session cancelled during gathering").WithCause(err)
		}

		step := research.Step{Index: i, SubQuery: sub}
		docs, err := e.search(ctx, sub)
		if err != nil {
			if abortErr := classifyStepError(err); abortErr != nil {
				return abortErr
			}
			step.Degraded = true
			step.DegradedReason = "search retries exhausted"
			sess.RecordStep(step, nil)
			e.logger.Warn("step degraded", zap.Int("step", i), zap.Error(err))
			continue
		}

		sources := make([]research.SourceRef, 0, len(docs))
		for _, d := range docs {
			sources = append(sources, research.SourceRef{URL: d.URL, Title: d.Title})
		}

		if len(docs) > 0 {
			out, err := gen.Generate(ctx, research.ExtractPrompt(sub, e.trimDocs(docs)), e.generateOptions())
			if err != nil {
				if abortErr := classifyStepError(err); abortErr != nil {
					return abortErr
				}
				step.Degraded = true
				step.DegradedReason = "claim extraction retries exhausted"
			} else {
				for _, claim := range research.ParseClaims(out) {
					src := research.SourceRef{}
					if claim.SourceIndex >= 1 && claim.SourceIndex <= len(docs) {
						d := docs[claim.SourceIndex-1]
						src = research.SourceRef{URL: d.URL, Title: d.Title}
					}
					note := sess.AddNote(i, src, claim.Claim, claim.Relevance)
					step.NoteIDs = append(step.NoteIDs, note.ID)
				}
			}
		}

		sess.RecordStep(step, sources)
		recorded := sess.Steps[len(sess.Steps)-1]

		if recorded.NewSources == 0 {
			noNewSources++
		} else {
			noNewSources = 0
		}
		if noNewSources >= earlyStopWindow && i < len(sess.SubQueries)-1 {
			e.logger.Info("early stop: no new sources",
				zap.Int("step", i), zap.Int("window", earlyStopWindow))
			break
		}
	}
	return nil
}

func (e *Executor) search(ctx context.Context, query string) ([]backend.SourceDocument, error) {
	var docs []backend.SourceDocument
	provider := e.pair.SearcherName()
	err := e.retryer.Do(ctx, provider, func(ctx context.Context) error {
		start := time.Now()
		var err error
		docs, err = e.pair.Searcher.Search(ctx, query, backend.SearchOptions{
			TopK:   e.plan.Config.TopK,
			Params: e.plan.Config.SearchParams,
		})
		e.recordBackend(provider, "search", err, time.Since(start))
		return err
	})
	return docs, err
}

// trimDocs bounds each snippet to the per-source token budget so extraction
// prompts stay affordable regardless of what the search backend returns.
func (e *Executor) trimDocs(docs []backend.SourceDocument) []backend.SourceDocument {
	out := make([]backend.SourceDocument, len(docs))
	copy(out, docs)
	for i := range out {
		if e.counter.Count(out[i].Snippet) <= snippetTokenBudget {
			continue
		}
		// Cut by characters and re-check; 4 chars/token is a safe
		// overestimate for prose.
		cut := snippetTokenBudget * 4
		if cut < len(out[i].Snippet) {
			out[i].Snippet = out[i].Snippet[:cut]
		}
		for e.counter.Count(out[i].Snippet) > snippetTokenBudget && len(out[i].Snippet) > 4 {
			out[i].Snippet = out[i].Snippet[:len(out[i].Snippet)*9/10]
		}
	}
	return out
}

func (e *Executor) generateOptions() backend.GenerateOptions {
	return backend.GenerateOptions{
		Model:       e.plan.Config.ModelName,
		Temperature: e.plan.Config.Temperature,
		MaxTokens:   e.plan.Config.MaxTokens,
	}
}

// instrumentedGenerator wraps the pair's generator with retries and metrics.
func (e *Executor) instrumentedGenerator() backend.Generator {
	return &retryingGenerator{exec: e, provider: e.pair.GeneratorName()}
}

type retryingGenerator struct {
	exec     *Executor
	provider string
}

func (g *retryingGenerator) Generate(ctx context.Context, prompt string, opts backend.GenerateOptions) (string, error) {
	var out string
	err := g.exec.retryer.Do(ctx, g.provider, func(ctx context.Context) error {
		start := time.Now()
		var err error
		out, err = g.exec.pair.Generator.Generate(ctx, prompt, opts)
		g.exec.recordBackend(g.provider, "generate", err, time.Since(start))
		return err
	})
	return out, err
}

// classifyStepError returns a non-nil error when the step failure must abort
// the session (fatal backend errors, cancellation); nil means the step may
// degrade instead.
func classifyStepError(err error) error {
	if types.IsCode(err, types.ErrCancelled) {
		return err
	}
	if types.IsCode(err, types.ErrFatalBackend) {
		return fmt.Errorf("backend failed fatally: %w", err)
	}
	return nil
}

func (e *Executor) transition(sess *research.Session, to research.Status) {
	from := sess.Status
	sess.SetStatus(to)
	if e.metrics != nil {
		e.metrics.RecordStateTransition(string(from), string(to))
	}
	e.logger.Debug("state transition",
		zap.String("session", sess.ID),
		zap.String("from", string(from)), zap.String("to", string(to)))
}

func (e *Executor) recordBackend(provider, operation string, err error, d time.Duration) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.RecordBackendRequest(provider, operation, status, d)
}

func (e *Executor) recordSession(sess *research.Session, start time.Time) {
	if e.metrics == nil {
		return
	}
	e.metrics.RecordSession(e.plan.Config.Name, string(sess.Status), time.Since(start), len(sess.Notes))
}
