// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - Store query performance
  - Geocoder calls, cache efficiency and circuit breaker state
  - Place resolution outcomes
  - Marker mutations and free-point deduplication
  - WebSocket connection counts

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:3000/metrics

All collectors are registered with the default registry through promauto.
*/
package metrics
