// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/audit"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/geocoder"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/resolver"
	"github.com/chefzaid/travelmapster/internal/store/gormstore"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

const testPassword = "correct-horse-battery"

var (
	nairobi = geocoder.Place{
		DisplayName: "Nairobi, Kenya",
		Name:        "Nairobi",
		Lat:         -1.2864,
		Lon:         36.8172,
		Class:       "place",
		Type:        "city",
		Address:     geocoder.Address{City: "Nairobi", Country: "Kenya"},
	}
	peru = geocoder.Place{
		DisplayName: "Peru",
		Name:        "Peru",
		Lat:         -9.19,
		Lon:         -75.02,
		Class:       "boundary",
		Type:        "administrative",
		Address:     geocoder.Address{Country: "Peru"},
	}
)

// fakeProvider matches text queries by name and bounded queries by
// position. Setting down makes every search fail as unreachable.
type fakeProvider struct {
	mu     sync.Mutex
	places []geocoder.Place
	down   bool
	calls  int
}

func (f *fakeProvider) Search(_ context.Context, q geocoder.Query) ([]geocoder.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.down {
		return nil, fmt.Errorf("%w: connection refused", geocoder.ErrUnreachable)
	}
	var out []geocoder.Place
	for _, p := range f.places {
		switch {
		case q.BBox != nil:
			if q.BBox.Contains(p.Coordinate()) {
				out = append(out, p)
			}
		case strings.EqualFold(q.Text, p.Name):
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProvider) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

// testServer is a full API stack over in-memory SQLite.
type testServer struct {
	*httptest.Server
	provider *fakeProvider
	hub      *ws.Hub
	store    *gormstore.Store
	audit    *audit.MemoryStore
}

type serverOption func(*ChiMiddlewareConfig)

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()

	st, err := gormstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	data, err := os.ReadFile("../geo/testdata/countries.geo.json")
	if err != nil {
		t.Fatalf("read countries fixture: %v", err)
	}
	countries, err := geo.ParseCountries(data)
	if err != nil {
		t.Fatalf("ParseCountries() error = %v", err)
	}

	provider := &fakeProvider{places: []geocoder.Place{nairobi, peru}}
	res := resolver.New(provider, countries, resolver.Options{})

	hub := ws.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.RunWithContext(ctx) }()
	t.Cleanup(cancel)

	tokens, err := auth.NewJWTManager("test-secret-that-is-long-enough-for-hs256", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	sessionCfg := auth.DefaultSessionMiddlewareConfig()
	sessionCfg.CookieSecure = false
	sessions := auth.NewSessionMiddleware(auth.NewMemorySessionStore(), tokens, sessionCfg)

	auditStore := audit.NewMemoryStore(0)
	auditLog := audit.NewLogger(auditStore, nil)
	t.Cleanup(func() { _ = auditLog.Close() })

	handler := NewHandler(Dependencies{
		Auth:     auth.NewService(st, auth.DefaultPasswordPolicy(), tokens),
		Sessions: sessions,
		Markers:  markers.New(st, res, markers.Options{Notifier: markers.Notifiers{hub, auditLog}, Countries: countries}),
		Resolver: res,
		Store:    st,
		Hub:      hub,
		Audit:    auditLog,
	})

	mwCfg := DefaultChiMiddlewareConfig()
	mwCfg.RateLimitDisabled = true
	for _, opt := range opts {
		opt(mwCfg)
	}

	srv := httptest.NewServer(NewRouter(handler, sessions, NewChiMiddleware(mwCfg)).Setup())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, provider: provider, hub: hub, store: st, audit: auditStore}
}

// newClient returns an HTTP client with its own cookie jar.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New() error = %v", err)
	}
	return &http.Client{Jar: jar, Timeout: 5 * time.Second}
}

// do sends a JSON request and returns status and body.
func do(t *testing.T, c *http.Client, method, url string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func decode(t *testing.T, data []byte, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
}

// envelope decodes an /api/v1 response, keeping data raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func decodeEnvelope(t *testing.T, data []byte) envelope {
	t.Helper()
	var env envelope
	decode(t, data, &env)
	return env
}

// signIn registers username and logs in with a fresh client.
func (s *testServer) signIn(t *testing.T, username string) *http.Client {
	t.Helper()
	c := newClient(t)
	creds := map[string]string{"username": username, "password": testPassword}
	if status, body := do(t, c, http.MethodPost, s.URL+"/register", creds); status != http.StatusOK {
		t.Fatalf("register %s: %d %s", username, status, body)
	}
	if status, body := do(t, c, http.MethodPost, s.URL+"/login", creds); status != http.StatusOK {
		t.Fatalf("login %s: %d %s", username, status, body)
	}
	return c
}
