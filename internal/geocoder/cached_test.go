// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geocoder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chefzaid/travelmapster/internal/cache"
	"github.com/chefzaid/travelmapster/internal/config"
)

// failingStore is a cache backend that is always down.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func (failingStore) Name() string { return "failing" }

func TestCachedProviderServesRepeats(t *testing.T) {
	inner := &fakeProvider{places: []Place{{Name: "Lima", Lat: -12.05, Lon: -77.04}}}
	c := NewCachedProvider(inner, cache.NewMemoryStore(10, time.Minute), time.Minute)

	for i := 0; i < 3; i++ {
		places, err := c.Search(context.Background(), Query{Text: "Lima"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(places) != 1 || places[0].Lat != -12.05 {
			t.Fatalf("places = %+v", places)
		}
	}
	if got := inner.callCount(); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}
}

func TestCachedProviderNormalizesText(t *testing.T) {
	inner := &fakeProvider{places: []Place{{Name: "Lima"}}}
	c := NewCachedProvider(inner, cache.NewMemoryStore(10, time.Minute), time.Minute)

	for _, text := range []string{"Lima", "  lima ", "LIMA"} {
		if _, err := c.Search(context.Background(), Query{Text: text}); err != nil {
			t.Fatalf("Search(%q) error = %v", text, err)
		}
	}
	if got := inner.callCount(); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}
}

func TestCachedProviderCachesEmptyResults(t *testing.T) {
	inner := &fakeProvider{}
	c := NewCachedProvider(inner, cache.NewMemoryStore(10, time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		places, err := c.Search(context.Background(), Query{Text: "Atlantis"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(places) != 0 {
			t.Fatalf("places = %+v, want none", places)
		}
	}
	if got := inner.callCount(); got != 1 {
		t.Errorf("inner calls = %d, want 1", got)
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	inner := &fakeProvider{err: ErrUnreachable}
	c := NewCachedProvider(inner, cache.NewMemoryStore(10, time.Minute), time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := c.Search(context.Background(), Query{Text: "Lima"}); !errors.Is(err, ErrUnreachable) {
			t.Fatalf("error = %v, want ErrUnreachable", err)
		}
	}
	if got := inner.callCount(); got != 2 {
		t.Errorf("inner calls = %d, want 2", got)
	}
}

func TestCachedProviderSurvivesStoreFailure(t *testing.T) {
	inner := &fakeProvider{places: []Place{{Name: "Lima"}}}
	c := NewCachedProvider(inner, failingStore{}, time.Minute)

	places, err := c.Search(context.Background(), Query{Text: "Lima"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(places) != 1 {
		t.Errorf("places = %+v", places)
	}
}

func TestNewBuildsChain(t *testing.T) {
	cfg := config.GeocoderConfig{BaseURL: "http://127.0.0.1:1", UserAgent: "test", RequestsPerSecond: 1, CacheTTL: time.Minute}

	if _, ok := New(cfg, nil).(*BreakerProvider); !ok {
		t.Error("New(cfg, nil) should return the breaker without a cache")
	}
	if _, ok := New(cfg, cache.NewMemoryStore(1, time.Minute)).(*CachedProvider); !ok {
		t.Error("New(cfg, store) should return a cached provider")
	}
}
