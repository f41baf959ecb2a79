// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package metrics holds the Prometheus collectors for CivicGuard. They are
// registered on the default registry and exposed at /metrics.
package metrics

import (
	"math"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight HTTP requests",
		},
	)

	// Upstream (backend) Metrics
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Requests forwarded to the CivicGuard backend",
		},
		[]string{"route", "outcome"}, // outcome: status code, "unavailable", "circuit_open"
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Backend round trip duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected", "excluded"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Geolocation Metrics
	GeolocationSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geolocation_sessions_total",
			Help: "Finished geolocation sessions by outcome",
		},
		[]string{"outcome"}, // "good_fix", "timeout", "error", "cancelled"
	)

	GeolocationFixes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geolocation_fixes_total",
			Help: "Position fixes received from clients",
		},
		[]string{"result"}, // "accepted", "rejected"
	)

	GeolocationFixAccuracy = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geolocation_fix_accuracy_meters",
			Help:    "Reported accuracy radius of position fixes",
			Buckets: []float64{5, 10, 20, 30, 50, 100, 250, 1000, 5000},
		},
	)

	// Reverse geocoding
	GeocodeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_requests_total",
			Help: "Reverse geocode lookups by result",
		},
		[]string{"outcome"}, // "ok", "error", "stale"
	)

	// Map Rendering
	MapRenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "map_render_duration_seconds",
			Help:    "Static map render duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	MapRendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_renders_total",
			Help: "Static map renders by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "map_render", "geocode"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry)",
		},
		[]string{"cache_type"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
		[]string{"channel"}, // "stats", "intake"
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
		[]string{"channel"},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
		[]string{"channel"},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Stats poller
	StatsPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stats_poll_errors_total",
			Help: "Dashboard stats polls that failed",
		},
	)

	StatsLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stats_last_success_timestamp",
			Help: "Unix time of the last successful stats poll",
		},
	)

	// Intake submissions
	IntakeSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intake_submissions_total",
			Help: "Report submissions by result",
		},
		[]string{"result"}, // "created", "rejected", "failed"
	)

	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordUpstream records one forwarded call. status is 0 when no response
// arrived; outcome then names why.
func RecordUpstream(route string, status int, outcome string, duration time.Duration) {
	if status > 0 {
		outcome = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(route, outcome).Inc()
	UpstreamRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordFix records one position fix and whether it replaced the best.
func RecordFix(accuracy float64, accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	GeolocationFixes.WithLabelValues(result).Inc()
	if !math.IsInf(accuracy, 0) && !math.IsNaN(accuracy) {
		GeolocationFixAccuracy.Observe(accuracy)
	}
}

// RecordMapRender records a static map render.
func RecordMapRender(duration time.Duration, err error) {
	MapRenderDuration.Observe(duration.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	MapRendersTotal.WithLabelValues(outcome).Inc()
}
