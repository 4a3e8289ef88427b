// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package store defines the persistence contract for users and markers.
//
// Every marker operation takes the owner's id and is scoped to it: no
// operation reads or mutates another user's markers. A delete naming a
// foreign marker id reports false, never an error, so existence does not
// leak across accounts.
//
// Backends:
//   - internal/database: DuckDB (default)
//   - internal/store/gormstore: SQLite or PostgreSQL through GORM
package store

import (
	"context"
	"errors"

	"github.com/chefzaid/travelmapster/internal/models"
)

var (
	// ErrUserExists is returned when registering a taken username.
	ErrUserExists = errors.New("username already exists")

	// ErrUserNotFound is returned by user lookups that match nothing.
	ErrUserNotFound = errors.New("user not found")
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// MarkerStore persists markers, always scoped by owner.
type MarkerStore interface {
	// CreateMarker validates fields and inserts a marker, assigning its id.
	CreateMarker(ctx context.Context, ownerID int64, fields models.MarkerFields) (*models.Marker, error)

	// DeleteMarker removes the marker only if it belongs to ownerID.
	DeleteMarker(ctx context.Context, ownerID, id int64) (bool, error)

	// ListMarkers returns the owner's markers in insertion order.
	ListMarkers(ctx context.Context, ownerID int64) ([]models.Marker, error)

	// ReplaceMarkers deletes the owner's markers named in removeIDs and
	// inserts fields in one transaction. It returns the new marker and the
	// number of rows actually removed.
	ReplaceMarkers(ctx context.Context, ownerID int64, removeIDs []int64, fields models.MarkerFields) (*models.Marker, int, error)
}

// Store is the full backend contract.
type Store interface {
	UserStore
	MarkerStore
	Ping(ctx context.Context) error
	Close() error
}
