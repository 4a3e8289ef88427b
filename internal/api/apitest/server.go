// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package apitest runs the complete HTTP API in-process for client tests:
// in-memory SQLite, the real resolver over a fixture country set, a
// scripted search provider and a running websocket hub.
package apitest

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chefzaid/travelmapster/internal/api"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/geocoder"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/resolver"
	"github.com/chefzaid/travelmapster/internal/store/gormstore"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

// Places known to the scripted provider.
var (
	Nairobi = geocoder.Place{
		DisplayName: "Nairobi, Kenya",
		Name:        "Nairobi",
		Lat:         -1.2864,
		Lon:         36.8172,
		Class:       "place",
		Type:        "city",
		Address:     geocoder.Address{City: "Nairobi", Country: "Kenya"},
	}
	Lima = geocoder.Place{
		DisplayName: "Lima, Peru",
		Name:        "Lima",
		Lat:         -12.0464,
		Lon:         -77.0428,
		Class:       "place",
		Type:        "city",
		Address:     geocoder.Address{City: "Lima", Country: "Peru"},
	}
	Peru = geocoder.Place{
		DisplayName: "Peru",
		Name:        "Peru",
		Lat:         -9.19,
		Lon:         -75.02,
		Class:       "boundary",
		Type:        "administrative",
		Address:     geocoder.Address{Country: "Peru"},
	}
	France = geocoder.Place{
		DisplayName: "France",
		Name:        "France",
		Lat:         46.6,
		Lon:         2.2,
		Class:       "boundary",
		Type:        "administrative",
		Address:     geocoder.Address{Country: "France"},
	}
)

// Provider is a scripted geocoder.Provider. Text queries match place names
// case-insensitively; bounded queries match by position.
type Provider struct {
	mu     sync.Mutex
	places []geocoder.Place
	down   bool
	delay  map[string]time.Duration
	calls  []string
}

// Search implements geocoder.Provider.
func (p *Provider) Search(ctx context.Context, q geocoder.Query) ([]geocoder.Place, error) {
	p.mu.Lock()
	p.calls = append(p.calls, q.Text)
	down := p.down
	delay := p.delay[strings.ToLower(q.Text)]
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if down {
		return nil, fmt.Errorf("%w: connection refused", geocoder.ErrUnreachable)
	}

	var out []geocoder.Place
	for _, place := range p.places {
		switch {
		case q.BBox != nil:
			if q.BBox.Contains(place.Coordinate()) {
				out = append(out, place)
			}
		case strings.EqualFold(q.Text, place.Name):
			out = append(out, place)
		}
	}
	return out, nil
}

// SetDown makes every search fail as unreachable.
func (p *Provider) SetDown(down bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.down = down
}

// SetDelay holds text queries matching text for d before answering.
func (p *Provider) SetDelay(text string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delay == nil {
		p.delay = make(map[string]time.Duration)
	}
	p.delay[strings.ToLower(text)] = d
}

// Calls returns the query texts searched so far.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

// Server is a running API.
type Server struct {
	*httptest.Server
	Provider *Provider
	Hub      *ws.Hub
	Store    *gormstore.Store
}

// NewServer starts the API with rate limiting disabled. Everything is
// torn down with t.Cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()

	st, err := gormstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	data, err := os.ReadFile(countriesFixture())
	if err != nil {
		t.Fatalf("read countries fixture: %v", err)
	}
	countries, err := geo.ParseCountries(data)
	if err != nil {
		t.Fatalf("ParseCountries() error = %v", err)
	}

	provider := &Provider{places: []geocoder.Place{Nairobi, Lima, Peru, France}}
	res := resolver.New(provider, countries, resolver.Options{})

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)

	tokens, err := auth.NewJWTManager("apitest-secret-that-is-long-enough-for-hs256", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	sessionCfg := auth.DefaultSessionMiddlewareConfig()
	sessionCfg.CookieSecure = false
	sessions := auth.NewSessionMiddleware(auth.NewMemorySessionStore(), tokens, sessionCfg)

	handler := api.NewHandler(api.Dependencies{
		Auth:     auth.NewService(st, auth.DefaultPasswordPolicy(), tokens),
		Sessions: sessions,
		Markers:  markers.New(st, res, markers.Options{Notifier: hub, Countries: countries}),
		Resolver: res,
		Store:    st,
		Hub:      hub,
	})

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true

	srv := httptest.NewServer(api.NewRouter(handler, sessions, api.NewChiMiddleware(mwCfg)).Setup())
	t.Cleanup(srv.Close)

	return &Server{Server: srv, Provider: provider, Hub: hub, Store: st}
}

// WaitForWatchers blocks until n websocket clients are registered.
func (s *Server) WaitForWatchers(t testing.TB, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.Hub.GetClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("%d websocket clients registered, want %d", s.Hub.GetClientCount(), n)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// countriesFixture locates the geo package's fixture relative to this file.
func countriesFixture() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "geo", "testdata", "countries.geo.json")
}
