// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
)

// Compile-time check that DB satisfies the store contract.
var _ store.Store = (*DB)(nil)

// testDBSemaphore serializes DuckDB tests; concurrent CGO connections can
// hang under CI resource pressure. It is held for the whole test.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates a new in-memory test database.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	db, err := New(&config.DatabaseConfig{
		Driver:    "duckdb",
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("close: %v", err)
		}
	})
	return db
}

func createTestUser(t *testing.T, db *DB, name string) *models.User {
	t.Helper()
	u, err := db.CreateUser(context.Background(), name, "hash-"+name)
	if err != nil {
		t.Fatalf("CreateUser(%q) error = %v", name, err)
	}
	return u
}

func visitedCountry(label string, lat, lng float64) models.MarkerFields {
	return models.MarkerFields{Lat: lat, Lng: lng, Kind: models.KindVisited, Label: label, Category: models.CategoryCountry}
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	version, err := db.GetCurrentSchemaVersion(ctx)
	if err != nil {
		t.Fatalf("GetCurrentSchemaVersion() error = %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestFileDatabaseReopens(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "markers.duckdb")
	cfg := &config.DatabaseConfig{Driver: "duckdb", Path: path, MaxMemory: "256MB", Threads: 1}

	db, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	u, err := db.CreateUser(context.Background(), "alice", "h")
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if _, err := db.CreateMarker(context.Background(), u.ID, visitedCountry("Peru", -9, -75)); err != nil {
		t.Fatalf("CreateMarker() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = New(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	markers, err := db.ListMarkers(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListMarkers() error = %v", err)
	}
	if len(markers) != 1 || markers[0].Label != "Peru" {
		t.Errorf("markers after reopen = %+v", markers)
	}
	if db.GetDatabasePath() != path {
		t.Errorf("GetDatabasePath() = %q", db.GetDatabasePath())
	}
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	if alice.ID == 0 || alice.CreatedAt.IsZero() {
		t.Errorf("CreateUser() = %+v, want assigned id and timestamp", alice)
	}

	if _, err := db.CreateUser(ctx, "alice", "other"); !errors.Is(err, store.ErrUserExists) {
		t.Errorf("duplicate CreateUser() error = %v, want ErrUserExists", err)
	}

	byName, err := db.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if byName.ID != alice.ID || byName.PasswordHash != "hash-alice" {
		t.Errorf("GetUserByUsername() = %+v", byName)
	}

	byID, err := db.GetUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("GetUserByID() = %+v", byID)
	}

	if _, err := db.GetUserByUsername(ctx, "bob"); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("missing user error = %v, want ErrUserNotFound", err)
	}
	if _, err := db.GetUserByID(ctx, 9999); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("missing id error = %v, want ErrUserNotFound", err)
	}
}

func TestCreateAndListMarkers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	inputs := []models.MarkerFields{
		visitedCountry("Peru", -9.19, -75.02),
		{Lat: 45.76, Lng: 4.83, Kind: models.KindWishlist, Label: "  Lyon, France  ", Category: models.CategoryCity},
		visitedCountry("Japan", 35.68, 139.76),
	}
	var ids []int64
	for _, in := range inputs {
		m, err := db.CreateMarker(ctx, alice.ID, in)
		if err != nil {
			t.Fatalf("CreateMarker(%+v) error = %v", in, err)
		}
		if m.OwnerID != alice.ID {
			t.Errorf("OwnerID = %d, want %d", m.OwnerID, alice.ID)
		}
		ids = append(ids, m.ID)
	}

	markers, err := db.ListMarkers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListMarkers() error = %v", err)
	}
	if len(markers) != 3 {
		t.Fatalf("got %d markers, want 3", len(markers))
	}
	for i, m := range markers {
		if m.ID != ids[i] {
			t.Errorf("markers[%d].ID = %d, want %d (insertion order)", i, m.ID, ids[i])
		}
	}
	if markers[1].Label != "Lyon, France" || markers[1].Category != models.CategoryCity || markers[1].Kind != models.KindWishlist {
		t.Errorf("markers[1] = %+v", markers[1])
	}
}

func TestCreateMarkerRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	tests := []struct {
		name   string
		fields models.MarkerFields
	}{
		{"latitude out of range", visitedCountry("Peru", 91, 0)},
		{"longitude out of range", visitedCountry("Peru", 0, 181)},
		{"empty label", visitedCountry("   ", 0, 0)},
		{"bad kind", models.MarkerFields{Lat: 1, Lng: 1, Kind: "seen", Label: "x", Category: models.CategoryCity}},
		{"bad category", models.MarkerFields{Lat: 1, Lng: 1, Kind: models.KindVisited, Label: "x", Category: "planet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := db.CreateMarker(ctx, alice.ID, tt.fields); !errors.Is(err, models.ErrInvalidMarker) {
				t.Errorf("error = %v, want ErrInvalidMarker", err)
			}
		})
	}

	markers, err := db.ListMarkers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListMarkers() error = %v", err)
	}
	if len(markers) != 0 {
		t.Errorf("rejected markers were stored: %+v", markers)
	}
}

func TestDeleteMarkerOwnership(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	bobs, err := db.CreateMarker(ctx, bob.ID, visitedCountry("Kenya", -1.29, 36.82))
	if err != nil {
		t.Fatalf("CreateMarker() error = %v", err)
	}

	deleted, err := db.DeleteMarker(ctx, alice.ID, bobs.ID)
	if err != nil {
		t.Fatalf("foreign DeleteMarker() error = %v", err)
	}
	if deleted {
		t.Error("DeleteMarker() of a foreign marker returned true")
	}
	remaining, _ := db.ListMarkers(ctx, bob.ID)
	if len(remaining) != 1 {
		t.Fatalf("bob has %d markers after foreign delete, want 1", len(remaining))
	}

	deleted, err = db.DeleteMarker(ctx, bob.ID, bobs.ID)
	if err != nil || !deleted {
		t.Fatalf("owner DeleteMarker() = %v, %v; want true, nil", deleted, err)
	}
	deleted, err = db.DeleteMarker(ctx, bob.ID, bobs.ID)
	if err != nil || deleted {
		t.Errorf("second DeleteMarker() = %v, %v; want false, nil", deleted, err)
	}
}

func TestListMarkersScopedByOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	if _, err := db.CreateMarker(ctx, alice.ID, visitedCountry("France", 46, 2)); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateMarker(ctx, bob.ID, visitedCountry("Peru", -9, -75)); err != nil {
		t.Fatal(err)
	}

	markers, err := db.ListMarkers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListMarkers() error = %v", err)
	}
	if len(markers) != 1 || markers[0].Label != "France" {
		t.Errorf("alice sees %+v", markers)
	}

	none, err := db.ListMarkers(ctx, 424242)
	if err != nil {
		t.Fatalf("ListMarkers() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("unknown owner markers = %#v, want empty slice", none)
	}
}

func TestReplaceMarkers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	old, err := db.CreateMarker(ctx, alice.ID, visitedCountry("Nigeria", 10, 10))
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := db.CreateMarker(ctx, bob.ID, visitedCountry("Nigeria", 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	created, removed, err := db.ReplaceMarkers(ctx, alice.ID, []int64{old.ID, foreign.ID},
		models.MarkerFields{Lat: 10.01, Lng: 10.01, Kind: models.KindVisited, Label: "Kafanchan, Nigeria", Category: models.CategoryCity})
	if err != nil {
		t.Fatalf("ReplaceMarkers() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1 (foreign id ignored)", removed)
	}

	markers, _ := db.ListMarkers(ctx, alice.ID)
	if len(markers) != 1 || markers[0].ID != created.ID {
		t.Errorf("alice markers = %+v, want only the new one", markers)
	}
	bobs, _ := db.ListMarkers(ctx, bob.ID)
	if len(bobs) != 1 {
		t.Errorf("bob lost a marker: %+v", bobs)
	}
}

func TestReplaceMarkersInvalidLeavesStoreUnchanged(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	old, err := db.CreateMarker(ctx, alice.ID, visitedCountry("Nigeria", 10, 10))
	if err != nil {
		t.Fatal(err)
	}

	_, _, err = db.ReplaceMarkers(ctx, alice.ID, []int64{old.ID}, visitedCountry("", 10, 10))
	if !errors.Is(err, models.ErrInvalidMarker) {
		t.Fatalf("error = %v, want ErrInvalidMarker", err)
	}

	markers, _ := db.ListMarkers(ctx, alice.ID)
	if len(markers) != 1 || markers[0].ID != old.ID {
		t.Errorf("markers = %+v, want the original untouched", markers)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		err        error
		unique     bool
		connection bool
		conflict   bool
	}{
		{nil, false, false, false},
		{errors.New("Constraint Error: Duplicate key \"username: alice\" violates unique constraint"), true, false, false},
		{errors.New("sql: database is closed"), false, true, false},
		{errors.New("TransactionContext Error: Transaction conflict on update"), false, false, true},
		{errors.New("syntax error"), false, false, false},
	}
	for _, tt := range tests {
		if got := isUniqueViolation(tt.err); got != tt.unique {
			t.Errorf("isUniqueViolation(%v) = %v", tt.err, got)
		}
		if got := isConnectionError(tt.err); got != tt.connection {
			t.Errorf("isConnectionError(%v) = %v", tt.err, got)
		}
		if got := isTransactionConflict(tt.err); got != tt.conflict {
			t.Errorf("isTransactionConflict(%v) = %v", tt.err, got)
		}
	}
}
