// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext bounds DDL statements run during startup.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// tableCreationQueries returns the table creation SQL statements
func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS users_id_seq START 1`,
		`CREATE SEQUENCE IF NOT EXISTS markers_id_seq START 1`,

		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY DEFAULT nextval('users_id_seq'),
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// No in-place updates: markers are only inserted and deleted.
		`CREATE TABLE IF NOT EXISTS markers (
			id BIGINT PRIMARY KEY DEFAULT nextval('markers_id_seq'),
			owner_id BIGINT NOT NULL,
			lat DOUBLE NOT NULL CHECK (lat BETWEEN -90 AND 90),
			lng DOUBLE NOT NULL CHECK (lng BETWEEN -180 AND 180),
			kind TEXT NOT NULL CHECK (kind IN ('visited', 'wishlist')),
			label TEXT NOT NULL CHECK (length(label) > 0),
			category TEXT NOT NULL CHECK (category IN ('country', 'city')),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// createIndexes creates indexes used by owner-scoped queries
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_markers_owner ON markers(owner_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.conn.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", idx, err)
		}
	}
	return nil
}
