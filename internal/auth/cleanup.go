// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// DefaultCleanupInterval is how often expired sessions are purged.
const DefaultCleanupInterval = 10 * time.Minute

// SessionCleaner periodically purges expired sessions. It implements
// suture.Service.
type SessionCleaner struct {
	store    SessionStore
	interval time.Duration
}

// NewSessionCleaner creates a cleaner; a non-positive interval uses the default.
func NewSessionCleaner(store SessionStore, interval time.Duration) *SessionCleaner {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &SessionCleaner{store: store, interval: interval}
}

// Serve runs until ctx is canceled.
func (c *SessionCleaner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.runOnce(ctx)
		}
	}
}

func (c *SessionCleaner) runOnce(ctx context.Context) {
	n, err := c.store.CleanupExpired(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Session cleanup failed")
		return
	}
	if n > 0 {
		logging.Debug().Int("removed", n).Msg("Expired sessions removed")
	}
}

// String names the service in supervisor logs.
func (c *SessionCleaner) String() string {
	return "session-cleaner"
}
