// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package mapsession

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chefzaid/travelmapster/internal/client"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/models"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

// fakeBackend is an in-memory Backend for one user.
type fakeBackend struct {
	mu        sync.Mutex
	user      *models.User
	loggedIn  bool
	markers   []models.Marker
	nextID    int64
	calls     []string
	searches  []string
	logoutErr error
	listErr   error
	textErr   error
	slow      map[string]time.Duration
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{user: &models.User{ID: 7, Username: "alice"}, nextID: 1}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeBackend) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func (f *fakeBackend) CurrentUser(context.Context) (*models.User, error) {
	f.record("current_user")
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loggedIn {
		return nil, nil
	}
	return f.user, nil
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*models.User, error) {
	f.record("login")
	f.mu.Lock()
	defer f.mu.Unlock()
	if username != f.user.Username || password != "pw" {
		return nil, &client.StatusError{StatusCode: http.StatusUnauthorized, Message: "invalid username or password"}
	}
	f.loggedIn = true
	return f.user, nil
}

func (f *fakeBackend) Register(context.Context, string, string) error {
	f.record("register")
	return nil
}

func (f *fakeBackend) Logout(context.Context) error {
	f.record("logout")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = false
	return f.logoutErr
}

func (f *fakeBackend) ListMarkers(context.Context) ([]models.Marker, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Marker(nil), f.markers...), nil
}

func (f *fakeBackend) AddMarker(_ context.Context, fields models.MarkerFields) (int64, error) {
	f.record("add")
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.markers = append(f.markers, models.Marker{
		ID: id, Lat: fields.Lat, Lng: fields.Lng, Kind: fields.Kind, Label: fields.Label, Category: fields.Category,
	})
	return id, nil
}

func (f *fakeBackend) DeleteMarker(_ context.Context, id int64) (bool, error) {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.markers {
		if f.markers[i].ID == id {
			f.markers = append(f.markers[:i], f.markers[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBackend) ResolveClick(_ context.Context, at models.Coordinate) (models.Candidate, error) {
	f.record("click")
	if at.Lat < 0 && at.Lng < 0 && at.Lat > -20 {
		return models.Candidate{Label: "Peru", Lat: at.Lat, Lng: at.Lng, Category: models.CategoryCountry}, nil
	}
	return models.Candidate{}, fmt.Errorf("%w", &client.StatusError{StatusCode: http.StatusNotFound, Message: "not found"})
}

func (f *fakeBackend) ResolveText(ctx context.Context, query string, category models.Category) (models.Candidate, error) {
	f.record("text")
	f.mu.Lock()
	f.searches = append(f.searches, query)
	delay := f.slow[query]
	textErr := f.textErr
	f.mu.Unlock()

	if delay > 0 {
		// Ignores ctx so the response arrives after being superseded.
		time.Sleep(delay)
	}
	if textErr != nil {
		return models.Candidate{}, textErr
	}
	if strings.EqualFold(query, "atlantis") {
		return models.Candidate{}, &client.StatusError{StatusCode: http.StatusNotFound, Message: "not found"}
	}
	label := query
	if category == models.CategoryCity {
		label = query + ", Somewhere"
	}
	return models.Candidate{Label: label, Lat: 1, Lng: 2, Category: category}, nil
}

func (f *fakeBackend) PinPoint(_ context.Context, at models.Coordinate, kind models.Kind, _ *geo.BBox) (*markers.Placement, error) {
	f.record("pin")
	id, _ := f.AddMarker(context.Background(), models.MarkerFields{
		Lat: at.Lat, Lng: at.Lng, Kind: kind, Label: "Lima, Peru", Category: models.CategoryCity,
	})
	return &markers.Placement{Marker: &models.Marker{ID: id, Label: "Lima, Peru"}}, nil
}

func (f *fakeBackend) Watch(ctx context.Context, _ func(ws.MarkersChangedData)) error {
	f.record("watch")
	<-ctx.Done()
	return nil
}

func loggedInSession(t *testing.T, backend *fakeBackend, opts Options) *Session {
	t.Helper()
	s := New(backend, opts)
	t.Cleanup(s.Close)
	if err := s.Login(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	return s
}

func TestMutationsRequireAuth(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := New(backend, Options{})
	defer s.Close()
	ctx := context.Background()

	ops := map[string]func() error{
		"PinCountryAt": func() error {
			_, err := s.PinCountryAt(ctx, models.Coordinate{Lat: -9, Lng: -75}, models.KindVisited)
			return err
		},
		"PinCountryByName": func() error {
			_, err := s.PinCountryByName(ctx, "Peru", models.KindVisited)
			return err
		},
		"PinCityByName": func() error {
			_, err := s.PinCityByName(ctx, "Lima", models.KindVisited)
			return err
		},
		"PinCandidate": func() error {
			_, err := s.PinCandidate(ctx, models.Candidate{Label: "Peru", Category: models.CategoryCountry}, models.KindVisited)
			return err
		},
		"PinPoint": func() error {
			_, err := s.PinPoint(ctx, models.Coordinate{Lat: -12, Lng: -77}, models.KindVisited, nil)
			return err
		},
		"Delete": func() error {
			_, err := s.Delete(ctx, 1)
			return err
		},
		"Reload": func() error { return s.Reload(ctx) },
		"Search": func() error { return s.Search("Peru", models.CategoryCountry) },
		"Watch":  func() error { return s.Watch(ctx) },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s() error = %v, want ErrUnauthorized", name, err)
		}
	}
	if n := backend.callCount(); n != 0 {
		t.Errorf("backend calls = %d, want 0", n)
	}
}

func TestLoginLoadsAndProjects(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	backend.markers = []models.Marker{
		{ID: 1, Label: "France", Kind: models.KindVisited, Category: models.CategoryCountry},
		{ID: 2, Label: "France", Kind: models.KindVisited, Category: models.CategoryCountry},
		{ID: 3, Label: "Japan", Kind: models.KindWishlist, Category: models.CategoryCountry},
		{ID: 4, Label: "Lyon, France", Kind: models.KindVisited, Category: models.CategoryCity},
	}
	backend.nextID = 5

	var renders []View
	var mu sync.Mutex
	s := loggedInSession(t, backend, Options{OnChange: func(v View) {
		mu.Lock()
		renders = append(renders, v)
		mu.Unlock()
	}})

	v := s.View()
	if v.State != Authenticated || v.User == nil || v.User.Username != "alice" {
		t.Fatalf("View() = %+v", v)
	}
	if len(v.Markers) != 4 {
		t.Errorf("markers = %d, want 4", len(v.Markers))
	}
	if len(v.Visited) != 1 || v.Visited[0] != "France" {
		t.Errorf("visited = %v, want [France]", v.Visited)
	}

	// Deleting one of two France markers keeps France visited.
	if ok, err := s.Delete(context.Background(), 1); err != nil || !ok {
		t.Fatalf("Delete() = %v, %v", ok, err)
	}
	if v = s.View(); len(v.Visited) != 1 || v.Visited[0] != "France" {
		t.Errorf("visited after deleting one France = %v", v.Visited)
	}
	if _, err := s.Delete(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if v = s.View(); len(v.Visited) != 0 {
		t.Errorf("visited after deleting both = %v, want []", v.Visited)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(renders) < 3 {
		t.Errorf("renders = %d, want at least 3", len(renders))
	}
}

func TestLoginFailure(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := New(backend, Options{})
	defer s.Close()

	err := s.Login(context.Background(), "alice", "nope")
	if !errors.Is(err, ErrUnauthorized) || !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("Login() error = %v, want ErrUnauthorized", err)
	}
	if s.State() != Unauthenticated {
		t.Error("failed login authenticated the session")
	}
	if s.LastError() == "" {
		t.Error("LastError() empty after failed login")
	}
}

func TestRegisterDoesNotAuthenticate(t *testing.T) {
	t.Parallel()
	s := New(newFakeBackend(), Options{})
	defer s.Close()

	if err := s.Register(context.Background(), "alice", "pw"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if s.State() != Unauthenticated {
		t.Errorf("State() = %v, want unauthenticated", s.State())
	}
}

func TestRestore(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := New(backend, Options{})
	defer s.Close()

	found, err := s.Restore(context.Background())
	if err != nil || found {
		t.Fatalf("Restore() without session = %v, %v", found, err)
	}

	backend.loggedIn = true
	backend.markers = []models.Marker{{ID: 1, Label: "Peru", Kind: models.KindVisited, Category: models.CategoryCountry}}
	found, err = s.Restore(context.Background())
	if err != nil || !found {
		t.Fatalf("Restore() = %v, %v", found, err)
	}
	if v := s.View(); v.State != Authenticated || len(v.Visited) != 1 {
		t.Errorf("View() after restore = %+v", v)
	}
}

func TestLogoutClearsEvenOnFailure(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	backend.markers = []models.Marker{{ID: 1, Label: "Peru", Kind: models.KindVisited, Category: models.CategoryCountry}}
	backend.nextID = 2
	s := loggedInSession(t, backend, Options{})

	backend.logoutErr = fmt.Errorf("%w: connection reset", client.ErrUnreachable)
	if err := s.Logout(context.Background()); !errors.Is(err, client.ErrUnreachable) {
		t.Errorf("Logout() error = %v, want ErrUnreachable", err)
	}

	v := s.View()
	if v.State != Unauthenticated || v.User != nil || len(v.Markers) != 0 || len(v.Visited) != 0 {
		t.Errorf("View() after logout = %+v", v)
	}
	if v.Visited == nil {
		t.Error("Visited is nil, want empty")
	}
}

func TestPinCountryAt(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := loggedInSession(t, backend, Options{})
	ctx := context.Background()

	m, err := s.PinCountryAt(ctx, models.Coordinate{Lat: -30, Lng: 10}, models.KindVisited)
	if err != nil || m != nil {
		t.Errorf("ocean PinCountryAt() = %v, %v; want nil, nil", m, err)
	}
	if s.LastError() != "" {
		t.Errorf("LastError() = %q after ocean click", s.LastError())
	}

	m, err = s.PinCountryAt(ctx, models.Coordinate{Lat: -9.5, Lng: -75.1}, models.KindVisited)
	if err != nil || m == nil {
		t.Fatalf("PinCountryAt() = %v, %v", m, err)
	}
	if m.Label != "Peru" || m.Lat != -9.5 || m.Lng != -75.1 {
		t.Errorf("marker = %+v, want Peru at the click point", m)
	}
	if v := s.View(); len(v.Markers) != 1 || len(v.Visited) != 1 || v.Visited[0] != "Peru" {
		t.Errorf("View() = %+v", v)
	}
}

func TestPinByName(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := loggedInSession(t, backend, Options{})
	ctx := context.Background()

	city, err := s.PinCityByName(ctx, "Lima", models.KindWishlist)
	if err != nil {
		t.Fatalf("PinCityByName() error = %v", err)
	}
	if city.Category != models.CategoryCity || city.Label != "Lima, Somewhere" {
		t.Errorf("city marker = %+v", city)
	}

	if _, err := s.PinCountryByName(ctx, "Atlantis", models.KindVisited); !errors.Is(err, client.ErrNotFound) {
		t.Errorf("PinCountryByName(Atlantis) error = %v, want ErrNotFound", err)
	}
	if s.LastError() != "not found" {
		t.Errorf("LastError() = %q, want not found", s.LastError())
	}

	backend.mu.Lock()
	backend.textErr = fmt.Errorf("%w: 502", client.ErrUnreachable)
	backend.mu.Unlock()
	_, err = s.PinCountryByName(ctx, "Peru", models.KindVisited)
	if !errors.Is(err, client.ErrUnreachable) || errors.Is(err, client.ErrNotFound) {
		t.Errorf("PinCountryByName() error = %v, want ErrUnreachable only", err)
	}
	if s.LastError() != "service unreachable, try again" {
		t.Errorf("LastError() = %q", s.LastError())
	}

	// Still usable after failures.
	if s.State() != Authenticated {
		t.Fatal("failure logged the session out")
	}
	backend.mu.Lock()
	backend.textErr = nil
	backend.mu.Unlock()
	if _, err := s.PinCountryByName(ctx, "Peru", models.KindVisited); err != nil {
		t.Fatalf("PinCountryByName() after recovery error = %v", err)
	}
	if s.LastError() != "" {
		t.Errorf("LastError() = %q after success", s.LastError())
	}
	if v := s.View(); len(v.Visited) != 1 || v.Visited[0] != "Peru" {
		t.Errorf("visited = %v", v.Visited)
	}
}

func TestPinPointReloads(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := loggedInSession(t, backend, Options{})

	placement, err := s.PinPoint(context.Background(), models.Coordinate{Lat: -12, Lng: -77}, models.KindVisited, nil)
	if err != nil || placement == nil {
		t.Fatalf("PinPoint() = %v, %v", placement, err)
	}
	if v := s.View(); len(v.Markers) != 1 || v.Markers[0].Label != "Lima, Peru" {
		t.Errorf("markers = %+v", v.Markers)
	}
}

func TestExpiredSessionClearsState(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	s := loggedInSession(t, backend, Options{})

	backend.mu.Lock()
	backend.listErr = &client.StatusError{StatusCode: http.StatusUnauthorized, Message: "not logged in"}
	backend.mu.Unlock()

	if err := s.Reload(context.Background()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Reload() error = %v, want ErrUnauthorized", err)
	}
	if s.State() != Unauthenticated {
		t.Error("expired session still authenticated")
	}
}

func TestViewIsSnapshot(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	backend.markers = []models.Marker{{ID: 1, Label: "Peru", Kind: models.KindVisited, Category: models.CategoryCountry}}
	backend.nextID = 2
	s := loggedInSession(t, backend, Options{})

	v := s.View()
	v.Markers[0].Label = "Mutated"
	v.Visited[0] = "Mutated"
	v.User.Username = "mallory"

	again := s.View()
	if again.Markers[0].Label != "Peru" || again.Visited[0] != "Peru" || again.User.Username != "alice" {
		t.Errorf("View() shares memory: %+v", again)
	}
}

func TestSearchDebounce(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	results := make(chan SearchResult, 8)
	s := loggedInSession(t, backend, Options{
		SearchDebounce: 50 * time.Millisecond,
		OnSearch:       func(r SearchResult) { results <- r },
	})

	for _, q := range []string{"P", "Pe", "Per", "Peru"} {
		if err := s.Search(q, models.CategoryCountry); err != nil {
			t.Fatalf("Search(%q) error = %v", q, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case r := <-results:
		if r.Query != "Peru" || r.Err != nil || r.Candidate.Label != "Peru" {
			t.Errorf("result = %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no search result")
	}

	select {
	case r := <-results:
		t.Errorf("unexpected extra result %+v", r)
	case <-time.After(150 * time.Millisecond):
	}

	if got := backend.searched(); len(got) != 1 || got[0] != "Peru" {
		t.Errorf("provider saw %v, want [Peru]", got)
	}
}

func TestSearchDiscardsSupersededResponse(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	backend.slow = map[string]time.Duration{"Peru": 200 * time.Millisecond}
	results := make(chan SearchResult, 8)
	s := loggedInSession(t, backend, Options{
		SearchDebounce: 10 * time.Millisecond,
		OnSearch:       func(r SearchResult) { results <- r },
	})

	if err := s.Search("Peru", models.CategoryCountry); err != nil {
		t.Fatal(err)
	}
	// Let the slow request start before superseding it.
	deadline := time.Now().Add(2 * time.Second)
	for len(backend.searched()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first search never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Search("France", models.CategoryCountry); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-results:
		if r.Query != "France" {
			t.Errorf("first delivered result = %q, want France", r.Query)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no search result")
	}

	// The slow Peru response lands after France and must be dropped.
	select {
	case r := <-results:
		t.Errorf("stale result delivered: %+v", r)
	case <-time.After(400 * time.Millisecond):
	}
}

func TestDebouncerNeverDeliversAfterNewerSchedule(t *testing.T) {
	var (
		mu        sync.Mutex
		scheduled int // highest query whose Schedule has returned
		stale     []string
	)
	deliver := func(r SearchResult) {
		var n int
		fmt.Sscanf(r.Query, "q%d", &n)
		mu.Lock()
		if n < scheduled {
			stale = append(stale, fmt.Sprintf("%s after q%d", r.Query, scheduled))
		}
		mu.Unlock()
	}
	run := func(_ context.Context, query string, _ models.Category) (models.Candidate, error) {
		return models.Candidate{Label: query}, nil
	}
	d := newDebouncer(context.Background(), 0, run, deliver)
	defer d.Cancel()

	for i := 1; i <= 500; i++ {
		d.Schedule(fmt.Sprintf("q%d", i), models.CategoryCity)
		mu.Lock()
		scheduled = i
		mu.Unlock()
		if i%7 == 0 {
			time.Sleep(50 * time.Microsecond)
		}
	}
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(stale) > 0 {
		t.Errorf("superseded results delivered: %v", stale)
	}
}

func TestDebouncerScheduleWaitsForDelivery(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var delivered []string
	var mu sync.Mutex
	deliver := func(r SearchResult) {
		mu.Lock()
		delivered = append(delivered, r.Query)
		mu.Unlock()
		if r.Query == "first" {
			close(entered)
			<-release
		}
	}
	run := func(_ context.Context, query string, _ models.Category) (models.Candidate, error) {
		return models.Candidate{Label: query}, nil
	}
	d := newDebouncer(context.Background(), time.Millisecond, run, deliver)
	defer d.Cancel()

	d.Schedule("first", models.CategoryCity)
	<-entered

	scheduled := make(chan struct{})
	go func() {
		d.Schedule("second", models.CategoryCity)
		close(scheduled)
	}()
	select {
	case <-scheduled:
		t.Fatal("Schedule returned while an older result was being delivered")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-scheduled

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		got := append([]string(nil), delivered...)
		mu.Unlock()
		if len(got) == 2 {
			if got[0] != "first" || got[1] != "second" {
				t.Errorf("delivered = %v, want [first second]", got)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("delivered = %v, want [first second]", got)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSearchEmptyQueryCancels(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	results := make(chan SearchResult, 8)
	s := loggedInSession(t, backend, Options{
		SearchDebounce: 30 * time.Millisecond,
		OnSearch:       func(r SearchResult) { results <- r },
	})

	_ = s.Search("Peru", models.CategoryCountry)
	_ = s.Search("   ", models.CategoryCountry)

	select {
	case r := <-results:
		t.Errorf("result after clearing the query: %+v", r)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestCloseCancelsPendingSearch(t *testing.T) {
	t.Parallel()
	backend := newFakeBackend()
	results := make(chan SearchResult, 8)
	s := loggedInSession(t, backend, Options{
		SearchDebounce: 30 * time.Millisecond,
		OnSearch:       func(r SearchResult) { results <- r },
	})

	_ = s.Search("Peru", models.CategoryCountry)
	s.Close()

	select {
	case r := <-results:
		t.Errorf("result after Close: %+v", r)
	case <-time.After(150 * time.Millisecond):
	}
	if err := s.Search("Peru", models.CategoryCountry); !errors.Is(err, ErrClosed) {
		t.Errorf("Search() after Close error = %v, want ErrClosed", err)
	}
	if err := s.Login(context.Background(), "alice", "pw"); !errors.Is(err, ErrClosed) {
		t.Errorf("Login() after Close error = %v, want ErrClosed", err)
	}
}

func TestCloseStopsWatch(t *testing.T) {
	t.Parallel()
	s := loggedInSession(t, newFakeBackend(), Options{})

	done := make(chan error, 1)
	go func() { done <- s.Watch(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	s.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch() still running after Close")
	}
}
