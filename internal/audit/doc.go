// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package audit records account activity: registrations, logins (good and
// bad), logouts, token grants and marker changes.
//
// # Event Types
//
//   - auth.register, auth.success, auth.failure, auth.logout, auth.token_issued
//   - marker.created, marker.deleted, marker.replaced
//
// # Architecture
//
// Logger.Log never blocks the request path. Events go through a buffered
// channel to a single writer goroutine, which persists them to a Store:
//
//   - DuckDBStore: the audit_events table beside the marker tables
//   - MemoryStore: a bounded in-process list, used with the SQLite and
//     Postgres backends and in tests
//
// Logger also implements suture.Service: Serve deletes events older than
// Config.RetentionDays once per CleanupInterval.
//
// # Usage
//
//	logger := audit.NewLogger(audit.NewMemoryStore(0), audit.DefaultConfig())
//	defer logger.Close()
//	logger.LogAuthSuccess(ctx, user.ID, user.Username, audit.SourceFromRequest(r), "session")
//
// Users read their own trail through GET /api/v1/account/activity.
package audit
