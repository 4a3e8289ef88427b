// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"fmt"
	"io"

	"github.com/chefzaid/travelmapster/internal/config"
)

// SessionStoreType defines the type of session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory uses in-memory storage (default, not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger uses BadgerDB for persistent session storage.
	SessionStoreBadger SessionStoreType = "badger"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewSessionStore builds the configured store. The returned closer releases
// the backend and must be called on shutdown.
func NewSessionStore(cfg *config.SecurityConfig) (SessionStore, io.Closer, error) {
	switch SessionStoreType(cfg.SessionStore) {
	case SessionStoreBadger:
		st, err := OpenBadgerSessionStore(cfg.SessionStorePath)
		if err != nil {
			return nil, nil, err
		}
		return st, st, nil
	case SessionStoreMemory, "":
		return NewMemorySessionStore(), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.SessionStore)
	}
}
