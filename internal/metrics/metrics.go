// Package metrics registers the Prometheus metrics used by the gateway.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup-level counters and histograms.
var (
	// LookupsTotal counts completed weather lookups labelled by fetcher,
	// source ("cache", "upstream") and outcome ("success", "error").
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_lookups_total",
			Help: "Total number of weather lookups served by the gateway.",
		},
		[]string{"fetcher", "source", "status"},
	)

	// LookupDuration observes end-to-end lookup latency in seconds.
	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weather_lookup_duration_seconds",
			Help:    "End-to-end lookup duration in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"fetcher", "source"},
	)

	// RefreshesTotal counts background refresh attempts per key, labelled by
	// fetcher and outcome ("success", "error").
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_refreshes_total",
			Help: "Total background cache refresh attempts.",
		},
		[]string{"fetcher", "status"},
	)

	// UpstreamErrors counts fetcher failures broken down by fetcher and
	// error type ("upstream_error", "circuit_open").
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_upstream_errors_total",
			Help: "Total upstream fetch errors by type.",
		},
		[]string{"fetcher", "error_type"},
	)

	// CacheEntries tracks the current number of cached observations per fetcher.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_cache_entries",
			Help: "Current number of cached weather observations.",
		},
		[]string{"fetcher"},
	)

	// CircuitBreakerState tracks the upstream circuit breaker state as a gauge:
	// 0 = closed, 1 = open, 2 = half_open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weather_circuit_breaker_state",
			Help: "Circuit breaker state per fetcher (0=closed 1=open 2=half_open).",
		},
		[]string{"fetcher"},
	)
)
