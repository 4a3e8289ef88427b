// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
)

const markerColumns = `id, owner_id, lat, lng, kind, label, category, created_at`

// maxConflictRetries bounds retries of a transaction that lost a write conflict.
const maxConflictRetries = 3

// CreateMarker validates fields and inserts a marker for ownerID.
func (db *DB) CreateMarker(ctx context.Context, ownerID int64, fields models.MarkerFields) (*models.Marker, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	m, err := insertMarker(ctx, db.conn, ownerID, fields)
	metrics.RecordDBQuery("insert", "markers", time.Since(start), err)
	if err != nil {
		db.logQueryError(err, "insert marker")
		return nil, fmt.Errorf("failed to create marker: %w", err)
	}
	return m, nil
}

// DeleteMarker removes marker id if, and only if, ownerID owns it.
func (db *DB) DeleteMarker(ctx context.Context, ownerID, id int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM markers WHERE id = ? AND owner_id = ?`, id, ownerID)
	metrics.RecordDBQuery("delete", "markers", time.Since(start), err)
	if err != nil {
		db.logQueryError(err, "delete marker")
		return false, fmt.Errorf("failed to delete marker: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}

// ListMarkers returns ownerID's markers ordered by id.
func (db *DB) ListMarkers(ctx context.Context, ownerID int64) ([]models.Marker, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+markerColumns+` FROM markers WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		metrics.RecordDBQuery("select", "markers", time.Since(start), err)
		db.logQueryError(err, "list markers")
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer closeWithLog(rows, "marker rows")

	markers := make([]models.Marker, 0)
	for rows.Next() {
		var m models.Marker
		if err := rows.Scan(&m.ID, &m.OwnerID, &m.Lat, &m.Lng, &m.Kind, &m.Label, &m.Category, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		markers = append(markers, m)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "markers", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate markers: %w", err)
	}
	return markers, nil
}

// ReplaceMarkers deletes the owner's markers in removeIDs and inserts fields
// atomically. Ids owned by someone else are ignored.
func (db *DB) ReplaceMarkers(ctx context.Context, ownerID int64, removeIDs []int64, fields models.MarkerFields) (*models.Marker, int, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, 0, err
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		start := time.Now()
		m, removed, err := db.replaceOnce(ctx, ownerID, removeIDs, fields)
		metrics.RecordDBQuery("replace", "markers", time.Since(start), err)
		if err == nil {
			return m, removed, nil
		}
		lastErr = err
		if !isTransactionConflict(err) {
			break
		}
		logging.Debug().Int("attempt", attempt+1).Err(err).Msg("Marker replace conflicted, retrying")
	}

	db.logQueryError(lastErr, "replace markers")
	return nil, 0, fmt.Errorf("failed to replace markers: %w", lastErr)
}

func (db *DB) replaceOnce(ctx context.Context, ownerID int64, removeIDs []int64, fields models.MarkerFields) (*models.Marker, int, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	removed := 0
	for _, id := range removeIDs {
		res, err := tx.ExecContext(ctx, `DELETE FROM markers WHERE id = ? AND owner_id = ?`, id, ownerID)
		if err != nil {
			return nil, 0, fmt.Errorf("delete marker %d: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, 0, fmt.Errorf("read affected rows: %w", err)
		}
		removed += int(n)
	}

	m, err := insertMarker(ctx, tx, ownerID, fields)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return m, removed, nil
}

// queryRower is satisfied by *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func insertMarker(ctx context.Context, q queryRower, ownerID int64, f models.MarkerFields) (*models.Marker, error) {
	m := &models.Marker{
		OwnerID:  ownerID,
		Lat:      f.Lat,
		Lng:      f.Lng,
		Kind:     f.Kind,
		Label:    f.Label,
		Category: f.Category,
	}
	err := q.QueryRowContext(ctx,
		`INSERT INTO markers (owner_id, lat, lng, kind, label, category) VALUES (?, ?, ?, ?, ?, ?) RETURNING id, created_at`,
		ownerID, f.Lat, f.Lng, string(f.Kind), f.Label, string(f.Category),
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// logQueryError escalates connection loss above ordinary query failures.
func (db *DB) logQueryError(err error, op string) {
	if isConnectionError(err) {
		logging.Error().Err(err).Str("op", op).Msg("Database connection lost")
		return
	}
	logging.Warn().Err(err).Str("op", op).Msg("Database query failed")
}
