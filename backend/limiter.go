package backend

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateTracker enforces per-provider request rate limits and counts retries.
// One tracker is shared across all adapters of a comparison run.
type RateTracker struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	retries  map[string]int64

	defaultRate  rate.Limit
	defaultBurst int
}

// NewRateTracker creates a tracker. requestsPerSecond <= 0 disables limiting.
func NewRateTracker(requestsPerSecond float64, burst int) *RateTracker {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateTracker{
		limiters:     make(map[string]*rate.Limiter),
		retries:      make(map[string]int64),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

func (t *RateTracker) limiter(provider string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[provider]
	if !ok {
		l = rate.NewLimiter(t.defaultRate, t.defaultBurst)
		t.limiters[provider] = l
	}
	return l
}

// Wait blocks until the provider's limiter admits one request or the context
// is cancelled.
func (t *RateTracker) Wait(ctx context.Context, provider string) error {
	return t.limiter(provider).Wait(ctx)
}

// SetLimit overrides the rate for one provider.
func (t *RateTracker) SetLimit(provider string, requestsPerSecond float64, burst int) {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limiters[provider] = rate.NewLimiter(limit, burst)
}

// RecordRetry increments the retry counter for a provider.
func (t *RateTracker) RecordRetry(provider string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retries[provider]++
}

// Retries returns the retry count recorded for a provider.
func (t *RateTracker) Retries(provider string) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retries[provider]
}
