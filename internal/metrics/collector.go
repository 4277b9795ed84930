// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the Prometheus collectors for the research engine.
type Collector struct {
	// Backend call metrics.
	backendRequestsTotal   *prometheus.CounterVec
	backendRequestDuration *prometheus.HistogramVec
	backendRetriesTotal    *prometheus.CounterVec

	// Session metrics.
	sessionsTotal    *prometheus.CounterVec
	sessionDuration  *prometheus.HistogramVec
	stateTransitions *prometheus.CounterVec
	notesCollected   prometheus.Histogram

	// Cache metrics.
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
}

// NewCollector creates a collector registered against reg. Passing a fresh
// registry in tests avoids duplicate registration across cases.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	c := &Collector{}

	c.backendRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Total number of backend requests",
		},
		[]string{"provider", "operation", "status"},
	)

	c.backendRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"provider", "operation"},
	)

	c.backendRetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_retries_total",
			Help:      "Total number of backend retries",
		},
		[]string{"provider"},
	)

	c.sessionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of research sessions by terminal status",
		},
		[]string{"status"},
	)

	c.sessionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Research session duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"configuration"},
	)

	c.stateTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_state_transitions_total",
			Help:      "Total number of session state transitions",
		},
		[]string{"from", "to"},
	)

	c.notesCollected = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_notes_collected",
			Help:      "Number of notes collected per session",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	c.cacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache"},
	)

	c.cacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache"},
	)

	return c
}

// RecordBackendRequest records one backend call.
func (c *Collector) RecordBackendRequest(provider, operation, status string, duration time.Duration) {
	c.backendRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.backendRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordBackendRetry records one retry attempt.
func (c *Collector) RecordBackendRetry(provider string) {
	c.backendRetriesTotal.WithLabelValues(provider).Inc()
}

// RecordSession records a finished session.
func (c *Collector) RecordSession(configuration, status string, duration time.Duration, notes int) {
	c.sessionsTotal.WithLabelValues(status).Inc()
	c.sessionDuration.WithLabelValues(configuration).Observe(duration.Seconds())
	c.notesCollected.Observe(float64(notes))
}

// RecordStateTransition records one lifecycle transition.
func (c *Collector) RecordStateTransition(from, to string) {
	c.stateTransitions.WithLabelValues(from, to).Inc()
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheMisses.WithLabelValues(cache).Inc()
}
