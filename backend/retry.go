package backend

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/odr-dev/deepresearch/internal/metrics"
	"github.com/odr-dev/deepresearch/types"
)

// RetryPolicy controls bounded exponential backoff for transient backend
// errors. Fatal errors and context cancellation are never retried.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first call.
	MaxRetries int
	// InitialInterval is the delay before the first retry.
	InitialInterval time.Duration
	// MaxInterval caps the backoff delay.
	MaxInterval time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// Jitter adds up to this fraction of the delay as random noise.
	Jitter float64
}

// DefaultRetryPolicy returns the standard backend retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.2,
	}
}

// Delay computes the backoff delay for a zero-based attempt index.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(attempt))
	if d > float64(p.MaxInterval) {
		d = float64(p.MaxInterval)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// Retryer executes operations under a RetryPolicy. When a RateTracker is
// set, every attempt first passes the provider's rate gate.
type Retryer struct {
	policy  RetryPolicy
	tracker *RateTracker
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewRetryer creates a retryer. A nil logger falls back to a no-op logger.
func NewRetryer(policy RetryPolicy, tracker *RateTracker, logger *zap.Logger) *Retryer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retryer{policy: policy, tracker: tracker, logger: logger}
}

// WithMetrics attaches a collector so retries surface as counters.
func (r *Retryer) WithMetrics(c *metrics.Collector) *Retryer {
	r.metrics = c
	return r
}

// Do runs fn, retrying transient errors with exponential backoff until the
// policy is exhausted or the context is cancelled. The last error is returned.
func (r *Retryer) Do(ctx context.Context, provider string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return types.NewError(types.ErrCancelled, "operation cancelled").WithCause(err)
		}
		if r.tracker != nil {
			if err := r.tracker.Wait(ctx, provider); err != nil {
				return types.NewError(types.ErrCancelled, "operation cancelled awaiting rate limit").
					WithCause(err).WithProvider(provider)
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !types.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == r.policy.MaxRetries {
			break
		}

		delay := r.policy.Delay(attempt)
		if r.tracker != nil {
			r.tracker.RecordRetry(provider)
		}
		if r.metrics != nil {
			r.metrics.RecordBackendRetry(provider)
		}
		r.logger.Warn("transient backend error, retrying",
			zap.String("provider", provider),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(lastErr))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return types.NewError(types.ErrCancelled, "operation cancelled during backoff").
				WithCause(ctx.Err())
		case <-timer.C:
		}
	}

	return lastErr
}
