// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// DuckDBStore persists audit events next to the marker tables.
type DuckDBStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewDuckDBStore creates a store on an open DuckDB connection. Call
// CreateTable before use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_events (
			id TEXT PRIMARY KEY,
			timestamp TIMESTAMP NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			actor_id BIGINT NOT NULL,
			actor_name TEXT,
			source_ip TEXT,
			source_user_agent TEXT,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			target_id TEXT,
			metadata TEXT,
			request_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_actor_ts ON audit_events(actor_id, timestamp)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("Audit events table created/verified")
	return nil
}

// Save persists an audit event.
func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	// DuckDB serializes writers; the mutex keeps concurrent saves from
	// surfacing as transaction conflicts.
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, type, severity, outcome, actor_id, actor_name,
			source_ip, source_user_agent, action, description, target_id,
			metadata, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp.UTC(), string(event.Type), string(event.Severity),
		string(event.Outcome), event.ActorID, nullString(event.ActorName),
		nullString(event.Source.IPAddress), nullString(event.Source.UserAgent),
		event.Action, event.Description, nullString(event.TargetID),
		nullString(string(event.Metadata)), nullString(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// Query returns matching events, newest first.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.ActorID != 0 {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC())
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ",")+")")
	}

	query := `SELECT id, timestamp, type, severity, outcome, actor_id, actor_name,
		source_ip, source_user_agent, action, description, target_id, metadata, request_id
		FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0)
	for rows.Next() {
		var (
			e                                      Event
			actorName, ip, ua, target, meta, reqID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Type, &e.Severity, &e.Outcome, &e.ActorID,
			&actorName, &ip, &ua, &e.Action, &e.Description, &target, &meta, &reqID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.ActorName = actorName.String
		e.Source = Source{IPAddress: ip.String, UserAgent: ua.String}
		e.TargetID = target.String
		if meta.Valid && meta.String != "" {
			e.Metadata = []byte(meta.String)
		}
		e.RequestID = reqID.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit events: %w", err)
	}
	return events, nil
}

// Delete removes events older than olderThan.
func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	return res.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
