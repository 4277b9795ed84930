package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestCollector() *Collector {
	return NewCollector("test", prometheus.NewRegistry())
}

func TestNewCollector(t *testing.T) {
	c := newTestCollector()

	assert.NotNil(t, c)
	assert.NotNil(t, c.backendRequestsTotal)
	assert.NotNil(t, c.backendRequestDuration)
	assert.NotNil(t, c.sessionsTotal)
	assert.NotNil(t, c.stateTransitions)
}

func TestCollector_RecordBackendRequest(t *testing.T) {
	c := newTestCollector()

	c.RecordBackendRequest("openai", "generate", "ok", 100*time.Millisecond)
	c.RecordBackendRequest("openai", "generate", "ok", 50*time.Millisecond)
	c.RecordBackendRequest("tavily", "search", "error", 20*time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(
		c.backendRequestsTotal.WithLabelValues("openai", "generate", "ok")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(
		c.backendRequestsTotal.WithLabelValues("tavily", "search", "error")), 1e-9)
}

func TestCollector_RecordBackendRetry(t *testing.T) {
	c := newTestCollector()

	c.RecordBackendRetry("openai")
	c.RecordBackendRetry("openai")
	c.RecordBackendRetry("tavily")

	assert.InDelta(t, 2, testutil.ToFloat64(c.backendRetriesTotal.WithLabelValues("openai")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.backendRetriesTotal.WithLabelValues("tavily")), 1e-9)
}

func TestCollector_RecordSession(t *testing.T) {
	c := newTestCollector()

	c.RecordSession("baseline", "completed", 12*time.Second, 17)
	c.RecordSession("baseline", "failed", 3*time.Second, 0)

	assert.InDelta(t, 1, testutil.ToFloat64(c.sessionsTotal.WithLabelValues("completed")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.sessionsTotal.WithLabelValues("failed")), 1e-9)
	assert.Greater(t, testutil.CollectAndCount(c.sessionDuration), 0)
}

func TestCollector_RecordStateTransition(t *testing.T) {
	c := newTestCollector()

	c.RecordStateTransition("planning", "gathering")
	c.RecordStateTransition("planning", "gathering")

	assert.InDelta(t, 2, testutil.ToFloat64(
		c.stateTransitions.WithLabelValues("planning", "gathering")), 1e-9)
}

func TestCollector_Cache(t *testing.T) {
	c := newTestCollector()

	c.RecordCacheHit("search")
	c.RecordCacheMiss("search")
	c.RecordCacheMiss("search")

	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheHits.WithLabelValues("search")), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.cacheMisses.WithLabelValues("search")), 1e-9)
}
