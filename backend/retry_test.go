package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odr-dev/deepresearch/internal/metrics"
	"github.com/odr-dev/deepresearch/types"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Multiplier:      2.0,
	}
}

func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	r := NewRetryer(fastPolicy(), nil, nil)

	calls := 0
	err := r.Do(context.Background(), "openai", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return types.NewTransient("openai", "rate limited")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryer_DoesNotRetryFatal(t *testing.T) {
	r := NewRetryer(fastPolicy(), nil, nil)

	calls := 0
	err := r.Do(context.Background(), "openai", func(ctx context.Context) error {
		calls++
		return types.NewFatal("openai", "invalid api key")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, types.IsCode(err, types.ErrFatalBackend))
}

func TestRetryer_DoesNotRetryPlainErrors(t *testing.T) {
	r := NewRetryer(fastPolicy(), nil, nil)

	calls := 0
	err := r.Do(context.Background(), "openai", func(ctx context.Context) error {
		calls++
		return errors.New("unclassified")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryer_ExhaustsPolicy(t *testing.T) {
	tracker := NewRateTracker(0, 1)
	r := NewRetryer(fastPolicy(), tracker, nil)

	calls := 0
	err := r.Do(context.Background(), "tavily", func(ctx context.Context) error {
		calls++
		return types.NewTransient("tavily", "timeout")
	})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.True(t, types.IsCode(err, types.ErrTransientBackend))
	assert.EqualValues(t, 3, tracker.Retries("tavily"))
}

func TestRetryer_RateGateAdmitsBeforeEachAttempt(t *testing.T) {
	tracker := NewRateTracker(0.001, 1)
	r := NewRetryer(fastPolicy(), tracker, nil)

	// First call consumes the burst.
	require.NoError(t, r.Do(context.Background(), "openai", func(ctx context.Context) error {
		return nil
	}))

	// The next admission is far in the future; a short deadline must abort
	// the wait instead of running the operation.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	err := r.Do(ctx, "openai", func(ctx context.Context) error {
		calls++
		return nil
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCancelled))
	assert.Equal(t, 0, calls, "gated operation must not run")
}

func TestRetryer_RecordsRetryMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	col := metrics.NewCollector("test", reg)
	r := NewRetryer(fastPolicy(), nil, nil).WithMetrics(col)

	_ = r.Do(context.Background(), "tavily", func(ctx context.Context) error {
		return types.NewTransient("tavily", "timeout")
	})

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, mf := range families {
		if mf.GetName() == "test_backend_retries_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			assert.EqualValues(t, 3, mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	assert.True(t, found, "retry counter must be registered and incremented")
}

func TestRetryer_CancelledContext(t *testing.T) {
	r := NewRetryer(fastPolicy(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Do(ctx, "openai", func(ctx context.Context) error {
		t.Fatal("operation must not run after cancellation")
		return nil
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrCancelled))
}

func TestRetryPolicy_DelayBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("delay never exceeds max plus jitter", prop.ForAll(
		func(attempt int, jitter float64) bool {
			p := RetryPolicy{
				InitialInterval: 100 * time.Millisecond,
				MaxInterval:     5 * time.Second,
				Multiplier:      2.0,
				Jitter:          jitter,
			}
			d := p.Delay(attempt)
			upper := time.Duration(float64(p.MaxInterval) * (1 + jitter))
			return d >= 0 && d <= upper
		},
		gen.IntRange(0, 30),
		gen.Float64Range(0, 1),
	))

	properties.Property("delay grows monotonically without jitter", prop.ForAll(
		func(attempt int) bool {
			p := RetryPolicy{
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     time.Minute,
				Multiplier:      2.0,
			}
			return p.Delay(attempt+1) >= p.Delay(attempt)
		},
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
