// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
)

// CreateUser inserts an account. A taken username returns store.ErrUserExists.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	user := &models.User{Username: username, PasswordHash: passwordHash}
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?) RETURNING id, created_at`,
		username, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	metrics.RecordDBQuery("insert", "users", time.Since(start), err)

	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByUsername returns store.ErrUserNotFound when no account matches.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username)
}

// GetUserByID returns store.ErrUserNotFound when no account matches.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.getUser(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id)
}

func (db *DB) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var u models.User
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "users", time.Since(start), nil)
		return nil, store.ErrUserNotFound
	}
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
