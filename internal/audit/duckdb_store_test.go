// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
)

func setupDuckDBStore(t *testing.T) *DuckDBStore {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory DuckDB: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := NewDuckDBStore(db)
	if err := store.CreateTable(context.Background()); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	return store
}

func TestDuckDBStore_SaveAndQuery(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []*Event{
		{ID: "e1", Timestamp: base, Type: EventTypeRegister, Severity: SeverityInfo, Outcome: OutcomeSuccess,
			ActorID: 1, ActorName: "alice", Source: Source{IPAddress: "192.0.2.1"}, Action: "register", Description: "Account created"},
		{ID: "e2", Timestamp: base.Add(time.Minute), Type: EventTypeAuthSuccess, Severity: SeverityInfo, Outcome: OutcomeSuccess,
			ActorID: 1, ActorName: "alice", Action: "authenticate", Description: "ok", Metadata: []byte(`{"method":"session"}`), RequestID: "req-1"},
		{ID: "e3", Timestamp: base.Add(2 * time.Minute), Type: EventTypeMarkerCreated, Severity: SeverityInfo, Outcome: OutcomeSuccess,
			ActorID: 2, Action: "created", Description: "Marker created", TargetID: "9"},
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save(%s) error = %v", e.ID, err)
		}
	}

	got, err := store.Query(ctx, QueryFilter{ActorID: 1})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "e2" || got[1].ID != "e1" {
		t.Fatalf("Query(actor 1) = %+v", got)
	}
	if string(got[0].Metadata) != `{"method":"session"}` || got[0].RequestID != "req-1" {
		t.Errorf("e2 round trip = %+v", got[0])
	}
	if got[1].Source.IPAddress != "192.0.2.1" || got[1].ActorName != "alice" {
		t.Errorf("e1 round trip = %+v", got[1])
	}
	if !got[1].Timestamp.Equal(base) {
		t.Errorf("e1 timestamp = %v, want %v", got[1].Timestamp, base)
	}

	typed, err := store.Query(ctx, QueryFilter{Types: []EventType{EventTypeMarkerCreated, EventTypeMarkerDeleted}})
	if err != nil {
		t.Fatalf("Query(types) error = %v", err)
	}
	if len(typed) != 1 || typed[0].TargetID != "9" {
		t.Errorf("Query(types) = %+v", typed)
	}

	recent, _ := store.Query(ctx, QueryFilter{Since: base.Add(30 * time.Second)})
	if len(recent) != 2 {
		t.Errorf("Query(since) returned %d events, want 2", len(recent))
	}

	limited, _ := store.Query(ctx, QueryFilter{Limit: 1})
	if len(limited) != 1 || limited[0].ID != "e3" {
		t.Errorf("Query(limit 1) = %+v", limited)
	}
}

func TestDuckDBStore_Delete(t *testing.T) {
	store := setupDuckDBStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, ts := range []time.Time{now.AddDate(0, 0, -100), now.AddDate(0, 0, -91), now} {
		e := &Event{ID: string(rune('a' + i)), Timestamp: ts, Type: EventTypeLogout, Severity: SeverityInfo,
			Outcome: OutcomeSuccess, ActorID: 1, Action: "logout", Description: "User logged out"}
		if err := store.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	n, err := store.Delete(ctx, now.AddDate(0, 0, -90))
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Delete() removed %d, want 2", n)
	}
	left, _ := store.Query(ctx, QueryFilter{})
	if len(left) != 1 || left[0].ID != "c" {
		t.Errorf("remaining = %+v", left)
	}
}

func TestDuckDBStore_SaveNil(t *testing.T) {
	store := setupDuckDBStore(t)
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}
