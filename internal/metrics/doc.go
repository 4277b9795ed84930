/*
Package metrics provides Prometheus-based metrics collection for the research
engine, covering backend calls, session lifecycle, and caching.

# Overview

The package registers metrics through a Collector, grouped by concern and
isolated by namespace. A Registerer is injected at construction so tests can
use a fresh registry per case.

# Metric groups

  - Backend metrics: request totals, durations, and retry counts, grouped by
    provider and operation.
  - Session metrics: terminal status counts, durations per configuration,
    state transition counts, and notes collected per session.
  - Cache metrics: hit and miss counts grouped by cache name.
*/
package metrics
