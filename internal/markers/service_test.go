// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package markers

import (
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"sync"
	"testing"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/resolver"
	"github.com/chefzaid/travelmapster/internal/store/gormstore"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

type notification struct {
	userID   int64
	reason   string
	markerID int64
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) MarkersChanged(userID int64, reason string, markerID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{userID, reason, markerID})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

type fakeCityResolver struct {
	candidate models.Candidate
	err       error
	calls     int
}

func (f *fakeCityResolver) NearestCity(_ context.Context, _ models.Coordinate, _ *geo.BBox) (models.Candidate, error) {
	f.calls++
	return f.candidate, f.err
}

type fixture struct {
	svc      *Service
	store    *gormstore.Store
	notifier *recordingNotifier
	resolver *fakeCityResolver
	alice    int64
	bob      int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	st, err := gormstore.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	alice, err := st.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("CreateUser(alice) error = %v", err)
	}
	bob, err := st.CreateUser(ctx, "bob", "hash")
	if err != nil {
		t.Fatalf("CreateUser(bob) error = %v", err)
	}

	f := &fixture{
		store:    st,
		notifier: &recordingNotifier{},
		resolver: &fakeCityResolver{},
		alice:    alice.ID,
		bob:      bob.ID,
	}
	f.svc = New(st, f.resolver, Options{Notifier: f.notifier, Countries: loadCountries(t)})
	return f
}

func loadCountries(t *testing.T) *geo.CountryIndex {
	t.Helper()
	data, err := os.ReadFile("../geo/testdata/countries.geo.json")
	if err != nil {
		t.Fatalf("read countries fixture: %v", err)
	}
	idx, err := geo.ParseCountries(data)
	if err != nil {
		t.Fatalf("ParseCountries() error = %v", err)
	}
	return idx
}

func point(label string, lat, lng float64) models.MarkerFields {
	return models.MarkerFields{Lat: lat, Lng: lng, Kind: models.KindVisited, Label: label, Category: models.CategoryCity}
}

func countryMarker(label string, lat, lng float64) models.MarkerFields {
	return models.MarkerFields{Lat: lat, Lng: lng, Kind: models.KindVisited, Label: label, Category: models.CategoryCountry}
}

func mustList(t *testing.T, f *fixture, owner int64) []models.Marker {
	t.Helper()
	ms, err := f.svc.List(context.Background(), owner)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	return ms
}

func TestPinPoint_DedupWithinRadius(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.PinPoint(ctx, f.alice, point("A", 10.0, 10.0))
	if err != nil {
		t.Fatalf("PinPoint(first) error = %v", err)
	}
	if first.Removed != 0 {
		t.Errorf("first Removed = %d, want 0", first.Removed)
	}

	second, err := f.svc.PinPoint(ctx, f.alice, point("B", 10.01, 10.01))
	if err != nil {
		t.Fatalf("PinPoint(second) error = %v", err)
	}
	if second.Removed != 1 {
		t.Errorf("second Removed = %d, want 1", second.Removed)
	}

	got := mustList(t, f, f.alice)
	if len(got) != 1 {
		t.Fatalf("markers = %d, want exactly 1", len(got))
	}
	if got[0].ID != second.Marker.ID || got[0].Label != "B" {
		t.Errorf("surviving marker = %+v, want the newer pin", got[0])
	}
}

func TestPinPoint_KeepsDistantAndForeignMarkers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.PinPoint(ctx, f.alice, point("Far", 10.0, 10.1)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.PinPoint(ctx, f.bob, point("Bob's", 10.0, 10.0)); err != nil {
		t.Fatal(err)
	}
	placed, err := f.svc.PinPoint(ctx, f.alice, point("Here", 10.0, 10.0))
	if err != nil {
		t.Fatal(err)
	}
	if placed.Removed != 0 {
		t.Errorf("Removed = %d, want 0 (11 km away and other owner)", placed.Removed)
	}
	if n := len(mustList(t, f, f.alice)); n != 2 {
		t.Errorf("alice markers = %d, want 2", n)
	}
	if n := len(mustList(t, f, f.bob)); n != 1 {
		t.Errorf("bob markers = %d, want 1", n)
	}
}

func TestCreate_NeverDeduplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.svc.Create(ctx, f.alice, countryMarker("France", 46.6, 2.2)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if n := len(mustList(t, f, f.alice)); n != 2 {
		t.Errorf("markers = %d, want 2", n)
	}

	visited, err := f.svc.Visited(ctx, f.alice)
	if err != nil {
		t.Fatalf("Visited() error = %v", err)
	}
	if visited.Len() != 1 || !visited.Contains("France") {
		t.Errorf("Visited() = %v, want [France]", visited.Names())
	}
}

func TestCreate_SnapsCountryLabels(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input models.MarkerFields
		want  string
	}{
		{"exact name", countryMarker("France", 46.6, 2.2), "France"},
		{"other casing", countryMarker("france", 46.6, 2.2), "France"},
		{"misspelt inside polygon", countryMarker("Frnace", 46.6, 2.2), "France"},
		{"name wins over position", countryMarker("peru", 46.6, 2.2), "Peru"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := f.svc.Create(ctx, f.alice, tt.input)
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}
			if m.Label != tt.want {
				t.Errorf("Label = %q, want %q", m.Label, tt.want)
			}
		})
	}

	visited, err := f.svc.Visited(ctx, f.alice)
	if err != nil {
		t.Fatalf("Visited() error = %v", err)
	}
	if got, want := visited.Names(), []string{"France", "Peru"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Visited() = %v, want %v", got, want)
	}
}

func TestCreate_RejectsUnknownCountry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, fields := range []models.MarkerFields{
		countryMarker("Atlantis", 30, -40),
		countryMarker("Null Island", 0.5, 0.5),
	} {
		if _, err := f.svc.Create(ctx, f.alice, fields); !errors.Is(err, models.ErrInvalidMarker) {
			t.Errorf("Create(%q) error = %v, want ErrInvalidMarker", fields.Label, err)
		}
		if _, err := f.svc.PinPoint(ctx, f.alice, fields); !errors.Is(err, models.ErrInvalidMarker) {
			t.Errorf("PinPoint(%q) error = %v, want ErrInvalidMarker", fields.Label, err)
		}
	}
	if got := mustList(t, f, f.alice); len(got) != 0 {
		t.Errorf("store holds %d markers, want 0", len(got))
	}

	// City labels are stored as given.
	m, err := f.svc.Create(ctx, f.alice, point("Atlantis", 30, -40))
	if err != nil || m.Label != "Atlantis" {
		t.Errorf("Create(city) = %+v, %v", m, err)
	}
}

func TestCreate_InvalidNeverReachesStore(t *testing.T) {
	f := setup(t)
	tests := []struct {
		name   string
		fields models.MarkerFields
	}{
		{"latitude", countryMarker("X", 91, 0)},
		{"blank label", countryMarker("   ", 0, 0)},
		{"kind", models.MarkerFields{Lat: 1, Lng: 1, Kind: "seen", Label: "X", Category: models.CategoryCity}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.Create(context.Background(), f.alice, tt.fields); !errors.Is(err, models.ErrInvalidMarker) {
				t.Errorf("Create() error = %v, want ErrInvalidMarker", err)
			}
			if _, err := f.svc.PinPoint(context.Background(), f.alice, tt.fields); !errors.Is(err, models.ErrInvalidMarker) {
				t.Errorf("PinPoint() error = %v, want ErrInvalidMarker", err)
			}
		})
	}
	if n := len(mustList(t, f, f.alice)); n != 0 {
		t.Errorf("markers = %d, want 0", n)
	}
	if n := len(f.notifier.all()); n != 0 {
		t.Errorf("notifications = %d, want 0", n)
	}
}

func TestDelete_Ownership(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.alice, countryMarker("Peru", -9.19, -75.02))
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := f.svc.Delete(ctx, f.bob, m.ID)
	if err != nil || deleted {
		t.Errorf("Delete(foreign) = %v, %v; want false, nil", deleted, err)
	}
	if n := len(mustList(t, f, f.alice)); n != 1 {
		t.Fatalf("alice markers after foreign delete = %d, want 1", n)
	}

	deleted, err = f.svc.Delete(ctx, f.alice, m.ID)
	if err != nil || !deleted {
		t.Errorf("Delete(own) = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = f.svc.Delete(ctx, f.alice, m.ID)
	if err != nil || deleted {
		t.Errorf("Delete(again) = %v, %v; want false, nil", deleted, err)
	}
}

func TestNotifications(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, _ := f.svc.Create(ctx, f.alice, countryMarker("Peru", -9.19, -75.02))
	first, _ := f.svc.PinPoint(ctx, f.alice, point("A", 10, 10))
	second, _ := f.svc.PinPoint(ctx, f.alice, point("B", 10.01, 10.01))
	_, _ = f.svc.Delete(ctx, f.bob, created.ID)
	_, _ = f.svc.Delete(ctx, f.alice, created.ID)

	want := []notification{
		{f.alice, ReasonCreated, created.ID},
		{f.alice, ReasonCreated, first.Marker.ID},
		{f.alice, ReasonReplaced, second.Marker.ID},
		{f.alice, ReasonDeleted, created.ID},
	}
	got := f.notifier.all()
	if len(got) != len(want) {
		t.Fatalf("notifications = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPlacePoint(t *testing.T) {
	t.Run("resolved city is pinned", func(t *testing.T) {
		f := setup(t)
		f.resolver.candidate = models.Candidate{Label: "Nairobi, Kenya", Lat: -1.2864, Lng: 36.8172, Category: models.CategoryCity}

		placed, err := f.svc.PlacePoint(context.Background(), f.alice, models.Coordinate{Lat: -1.3, Lng: 36.9}, models.KindWishlist, nil)
		if err != nil {
			t.Fatalf("PlacePoint() error = %v", err)
		}
		m := placed.Marker
		if m.Label != "Nairobi, Kenya" || m.Category != models.CategoryCity || m.Kind != models.KindWishlist {
			t.Errorf("marker = %+v", m)
		}
		if m.Lat != -1.2864 || m.Lng != 36.8172 {
			t.Errorf("marker at (%v,%v), want the city coordinate", m.Lat, m.Lng)
		}
	})

	t.Run("resolution failure leaves store untouched", func(t *testing.T) {
		for _, resolveErr := range []error{resolver.ErrNotFound, resolver.ErrUnreachable} {
			f := setup(t)
			f.resolver.err = resolveErr

			_, err := f.svc.PlacePoint(context.Background(), f.alice, models.Coordinate{Lat: 0, Lng: 0}, models.KindVisited, nil)
			if !errors.Is(err, resolveErr) {
				t.Errorf("PlacePoint() error = %v, want %v", err, resolveErr)
			}
			if n := len(mustList(t, f, f.alice)); n != 0 {
				t.Errorf("markers = %d, want 0", n)
			}
		}
	})

	t.Run("invalid kind skips resolution", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.PlacePoint(context.Background(), f.alice, models.Coordinate{}, "seen", nil)
		if !errors.Is(err, models.ErrInvalidMarker) {
			t.Errorf("PlacePoint() error = %v, want ErrInvalidMarker", err)
		}
		if f.resolver.calls != 0 {
			t.Errorf("resolver calls = %d, want 0", f.resolver.calls)
		}
	})

	t.Run("no resolver", func(t *testing.T) {
		f := setup(t)
		svc := New(f.store, nil, Options{})
		if _, err := svc.PlacePoint(context.Background(), f.alice, models.Coordinate{}, models.KindVisited, nil); err == nil {
			t.Error("PlacePoint() without resolver should fail")
		}
	})
}

func TestPinPoint_ConcurrentSameUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			off := float64(i) * 0.001
			if _, err := f.svc.PinPoint(ctx, f.alice, point("P", 10+off, 10+off)); err != nil {
				t.Errorf("PinPoint() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if n := len(mustList(t, f, f.alice)); n != 1 {
		t.Errorf("markers after concurrent nearby pins = %d, want 1", n)
	}
	if n := f.svc.locks.size(); n != 0 {
		t.Errorf("lock entries = %d, want 0", n)
	}
}

func TestNew_DefaultRadius(t *testing.T) {
	svc := New(nil, nil, Options{})
	if svc.dedupKm != DefaultDedupRadiusKm {
		t.Errorf("dedupKm = %v, want %v", svc.dedupKm, DefaultDedupRadiusKm)
	}
}
