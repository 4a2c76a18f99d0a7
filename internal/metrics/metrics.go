// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package metrics provides Prometheus instrumentation for the feed
// pipeline, the query API, and the edge proxy.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgrid_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgrid_api_active_requests",
			Help: "Number of API requests currently in flight",
		},
	)

	// Feed pipeline metrics

	RefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_refresh_total",
			Help: "Total number of aggregation refresh cycles",
		},
		[]string{"result"}, // "success", "failure"
	)

	RefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camgrid_refresh_duration_seconds",
			Help:    "Duration of a full aggregation refresh cycle",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	SourceRefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "camgrid_source_refresh_duration_seconds",
			Help:    "Per-source fetch and normalize duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SourceCameras = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camgrid_source_cameras",
			Help: "Cameras contributed by each source in the last refresh",
		},
		[]string{"source"},
	)

	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_source_failures_total",
			Help: "Total per-source fetch or decode failures",
		},
		[]string{"source"},
	)

	CamerasTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgrid_cameras_total",
			Help: "Cameras in the current published snapshot",
		},
	)

	DedupRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camgrid_dedup_rejected_total",
			Help: "Records dropped because their coordinate cell was already claimed",
		},
	)

	// Circuit breaker metrics

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "camgrid_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers by outcome",
		},
		[]string{"name", "outcome"}, // "success", "failure", "rejected"
	)

	// Proxy metrics

	ProxyRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "camgrid_proxy_requests_total",
			Help: "Proxy requests by terminal state",
		},
		[]string{"state"},
	)

	ProxyUpstreamDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "camgrid_proxy_upstream_duration_seconds",
			Help:    "Upstream fetch latency through the proxy",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProxyCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camgrid_proxy_cache_hits_total",
			Help: "Edge cache hits",
		},
	)

	ProxyCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camgrid_proxy_cache_misses_total",
			Help: "Edge cache misses",
		},
	)

	ProxyCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgrid_proxy_cache_entries",
			Help: "Entries currently held by the edge cache",
		},
	)

	ProxyManifestRewrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "camgrid_proxy_manifest_rewrites_total",
			Help: "HLS manifests rewritten by the proxy",
		},
	)

	// WebSocket metrics

	WSConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "camgrid_ws_connections_active",
			Help: "Active websocket subscribers",
		},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSourceResult records the outcome of one source's contribution to a
// refresh cycle.
func RecordSourceResult(source string, cameras int, duration time.Duration, err error) {
	SourceRefreshDuration.WithLabelValues(source).Observe(duration.Seconds())
	SourceCameras.WithLabelValues(source).Set(float64(cameras))
	if err != nil {
		SourceFailures.WithLabelValues(source).Inc()
	}
}
