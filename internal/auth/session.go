// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Session-related errors
var (
	// ErrSessionNotFound is returned when a session is not found in the store.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when trying to access an expired session.
	ErrSessionExpired = errors.New("session expired")
)

// Session is a server-side login. Its ID is the opaque cookie value.
type Session struct {
	ID             string    `json:"id"`
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// NewSession creates a session for the user that lives for ttl.
func NewSession(userID int64, username string, ttl time.Duration) (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &Session{
		ID:             id,
		UserID:         userID,
		Username:       username,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
	}, nil
}

// generateSessionID returns 32 random bytes, hex encoded.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// SessionStore defines the interface for session storage backends.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, session *Session) error

	// Get retrieves a session by ID.
	// Returns ErrSessionNotFound if not found.
	// Returns ErrSessionExpired if the session exists but is expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session by ID.
	// Does not return error if session doesn't exist.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes all sessions for a user and returns the count.
	DeleteByUserID(ctx context.Context, userID int64) (int, error)

	// Touch updates the last accessed time and moves the expiry.
	Touch(ctx context.Context, id string, newExpiry time.Time) error

	// CleanupExpired removes all expired sessions and returns the count.
	CleanupExpired(ctx context.Context) (int, error)
}

// MemorySessionStore keeps sessions in process memory. Sessions are lost on
// restart; use the Badger store to keep users logged in across restarts.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
	}
}

// Create stores a copy of the session.
func (s *MemorySessionStore) Create(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// Get retrieves a copy of the session.
func (s *MemorySessionStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete removes a session by ID.
func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// DeleteByUserID removes all sessions for a user.
func (s *MemorySessionStore) DeleteByUserID(_ context.Context, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.UserID == userID {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Touch updates the session's last accessed time and extends expiry.
func (s *MemorySessionStore) Touch(_ context.Context, id string, newExpiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastAccessedAt = time.Now()
	session.ExpiresAt = newExpiry
	s.sessions[id] = session
	return nil
}

// CleanupExpired removes all expired sessions.
func (s *MemorySessionStore) CleanupExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, session := range s.sessions {
		if session.IsExpired() {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
