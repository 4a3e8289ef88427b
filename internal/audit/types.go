// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

// Account events.
const (
	EventTypeRegister    EventType = "auth.register"
	EventTypeAuthSuccess EventType = "auth.success"
	EventTypeAuthFailure EventType = "auth.failure"
	EventTypeLogout      EventType = "auth.logout"
	EventTypeTokenIssued EventType = "auth.token_issued"
)

// Marker events.
const (
	EventTypeMarkerCreated  EventType = "marker.created"
	EventTypeMarkerDeleted  EventType = "marker.deleted"
	EventTypeMarkerReplaced EventType = "marker.replaced"
)

// Severity indicates the importance of an event.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Outcome is the result of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Severity  Severity  `json:"severity"`
	Outcome   Outcome   `json:"outcome"`

	// ActorID is 0 when the actor is unknown, e.g. a failed login for a
	// username that does not exist.
	ActorID   int64  `json:"actor_id"`
	ActorName string `json:"actor_name,omitempty"`

	Source Source `json:"source"`

	Action      string `json:"action"`
	Description string `json:"description"`

	// TargetID names the affected marker or session, if any.
	TargetID string `json:"target_id,omitempty"`

	Metadata  json.RawMessage `json:"metadata,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// Source describes where the request came from.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// Store persists audit events.
type Store interface {
	// Save persists an event.
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, newest first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Delete removes events older than the given time and reports how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter narrows a Query. Zero fields match everything.
type QueryFilter struct {
	ActorID int64
	Types   []EventType
	Since   time.Time
	Limit   int
}

// DefaultQueryLimit bounds a Query with no Limit.
const DefaultQueryLimit = 100

func (f QueryFilter) limit() int {
	if f.Limit <= 0 || f.Limit > DefaultQueryLimit {
		return DefaultQueryLimit
	}
	return f.Limit
}

func (f QueryFilter) matches(e *Event) bool {
	if f.ActorID != 0 && e.ActorID != f.ActorID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}
