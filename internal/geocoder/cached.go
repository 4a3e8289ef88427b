// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geocoder

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/cache"
	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
)

// CachedProvider serves repeated queries from a cache.Store. Errors are
// never cached; empty results are.
type CachedProvider struct {
	next  Provider
	store cache.Store
	ttl   time.Duration
}

// NewCachedProvider wraps next with store.
func NewCachedProvider(next Provider, store cache.Store, ttl time.Duration) *CachedProvider {
	return &CachedProvider{next: next, store: store, ttl: ttl}
}

// Search implements Provider.
func (c *CachedProvider) Search(ctx context.Context, q Query) ([]Place, error) {
	key := cacheKey(q)

	if data, ok, err := c.store.Get(ctx, key); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("cache", c.store.Name()).Msg("Geocode cache read failed")
	} else if ok {
		var places []Place
		if err := json.Unmarshal(data, &places); err == nil {
			metrics.RecordCacheLookup(c.store.Name(), true)
			return places, nil
		}
	}
	metrics.RecordCacheLookup(c.store.Name(), false)

	places, err := c.next.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(places); err == nil {
		if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("cache", c.store.Name()).Msg("Geocode cache write failed")
		}
	}
	return places, nil
}

// cacheKey normalizes the query text so trivially different spellings
// share an entry.
func cacheKey(q Query) string {
	q.Text = strings.ToLower(strings.Join(strings.Fields(q.Text), " "))
	return cache.GenerateKey("geocode", q)
}

// New builds the production chain: cache, circuit breaker, throttled client.
func New(cfg config.GeocoderConfig, store cache.Store) Provider {
	client := NewClient(cfg)
	breaker := NewBreakerProvider(client, DefaultBreakerSettings())
	if store == nil {
		return breaker
	}
	return NewCachedProvider(breaker, store, cfg.CacheTTL)
}
