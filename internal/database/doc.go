// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package database is the DuckDB backend of the marker store.
//
// # Overview
//
// The package implements store.Store on top of an embedded DuckDB file (or
// ":memory:" in tests). Users and markers live in two tables with
// sequence-assigned ids, so insertion order equals id order.
//
// # Files
//
//   - database.go: lifecycle (open, initialize, close, ping)
//   - database_schema.go: table and index creation
//   - migrations.go: versioned schema migrations
//   - database_connection.go: connection pool settings and error classification
//   - database_utils.go: context timeouts and WAL checkpoints
//   - crud_users.go: account persistence
//   - crud_markers.go: owner-scoped marker persistence
//
// # Ownership
//
// Every marker statement carries an owner_id predicate. DeleteMarker with
// a foreign id affects zero rows and returns false.
//
// # Transactions
//
// ReplaceMarkers runs its deletes and the insert in one transaction so a
// failed insert leaves the superseded markers in place.
package database
