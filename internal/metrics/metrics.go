// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Duration of marker store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_query_errors_total",
			Help: "Total number of marker store query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Geocoder Metrics
	GeocoderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocoder_requests_total",
			Help: "Total number of search provider requests",
		},
		[]string{"result"}, // "ok", "empty", "error", "throttled"
	)

	GeocoderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geocoder_request_duration_seconds",
			Help:    "Duration of search provider requests, throttle wait included",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"}, // "memory", "redis"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	// Resolution Metrics
	ResolveOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolve_outcomes_total",
			Help: "Place resolution outcomes by mode",
		},
		[]string{"mode", "outcome"}, // mode: click, text, nearest; outcome: found, not_found, unreachable
	)

	// Marker Metrics
	MarkerOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marker_operations_total",
			Help: "Total number of marker mutations",
		},
		[]string{"operation", "result"}, // operation: create, pin, delete; result: success, error, noop
	)

	MarkerDedupRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marker_dedup_removed_total",
			Help: "Markers superseded by a nearby free-point pin",
		},
	)

	// Auth Metrics
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"operation", "result"}, // operation: login, register, token
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
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
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
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
)

// RecordDBQuery records a store query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		// Truncate long error messages
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordGeocoderRequest records one provider round trip.
func RecordGeocoderRequest(result string, duration time.Duration) {
	GeocoderRequests.WithLabelValues(result).Inc()
	GeocoderRequestDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records a cache hit or miss for the given backend.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
	} else {
		CacheMisses.WithLabelValues(cacheType).Inc()
	}
}

// RecordResolve records the outcome of a resolution request.
func RecordResolve(mode, outcome string) {
	ResolveOutcomes.WithLabelValues(mode, outcome).Inc()
}

// RecordMarkerOperation records a marker mutation.
func RecordMarkerOperation(operation, result string) {
	MarkerOperations.WithLabelValues(operation, result).Inc()
}

// RecordDedupRemoved adds n superseded markers.
func RecordDedupRemoved(n int) {
	if n > 0 {
		MarkerDedupRemoved.Add(float64(n))
	}
}

// RecordAuthAttempt records an authentication attempt.
func RecordAuthAttempt(operation string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	AuthAttempts.WithLabelValues(operation, result).Inc()
}
