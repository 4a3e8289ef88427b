// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package cache stores geocoder responses so repeated lookups for the same
coordinates or place name skip the upstream Nominatim round trip.

# Backends

Two implementations satisfy Store:

  - MemoryStore: a generic LRUCache[[]byte] with per-entry TTL, local to
    one process. Used when REDIS_ADDR is unset or unreachable.
  - RedisStore: a go-redis client shared by every replica. Keys are
    prefixed with "travelmapster:" and expire server-side.

A miss is reported as (nil, false, nil). Errors are reserved for backend
failures, and callers treat them as misses after logging.

# Keys

GenerateKey hashes a method name and its JSON-encoded parameters:

	key := cache.GenerateKey("reverse", map[string]float64{"lat": 48.85, "lng": 2.35})

# Thread Safety

LRUCache guards its list and map with a single mutex; every method is
safe for concurrent use. RedisStore relies on the go-redis connection pool.
*/
package cache
