// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package middleware provides HTTP middleware shared by every route.

All middleware has the chi signature func(http.Handler) http.Handler.

  - RequestID: honours or generates X-Request-ID and seeds the logging context
  - AccessLog: one zerolog line per request with status, size and duration
  - PrometheusMetrics: request counters and latency keyed by chi route pattern
  - Compression: gzip for clients that accept it; websocket upgrades pass through

Typical stack, outermost first:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

The response wrappers implement http.Hijacker and http.Flusher so the
websocket endpoint works behind them.
*/
package middleware
