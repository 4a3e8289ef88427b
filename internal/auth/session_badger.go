// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	sessionKeyPrefix     = "session:"
	sessionUserKeyPrefix = "session_user:"
)

// BadgerSessionStore implements SessionStore on BadgerDB so sessions
// survive restarts. Entries carry a Badger TTL matching the session expiry;
// CleanupExpired also removes sessions whose TTL has not fired yet.
type BadgerSessionStore struct {
	db     *badger.DB
	ownsDB bool
}

// NewBadgerSessionStore wraps an open BadgerDB. The caller keeps ownership.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

// OpenBadgerSessionStore opens (or creates) a BadgerDB at path. An empty
// path opens an in-memory database.
func OpenBadgerSessionStore(path string) (*BadgerSessionStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for sessions: %w", err)
	}
	return &BadgerSessionStore{db: db, ownsDB: true}, nil
}

// Close closes the database if this store opened it.
func (s *BadgerSessionStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

func sessionKey(id string) []byte {
	return []byte(sessionKeyPrefix + id)
}

func userPrefix(userID int64) []byte {
	return []byte(sessionUserKeyPrefix + strconv.FormatInt(userID, 10) + ":")
}

func userKey(userID int64, id string) []byte {
	return append(userPrefix(userID), id...)
}

// writeSession stores the session and its user index entry with a TTL.
func writeSession(txn *badger.Txn, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := txn.SetEntry(badger.NewEntry(sessionKey(session.ID), data).WithTTL(ttl)); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	if err := txn.SetEntry(badger.NewEntry(userKey(session.UserID, session.ID), []byte(session.ID)).WithTTL(ttl)); err != nil {
		return fmt.Errorf("set user mapping: %w", err)
	}
	return nil
}

func readSession(txn *badger.Txn, id string) (*Session, error) {
	item, err := txn.Get(sessionKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &session)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

// Create stores a new session.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return writeSession(txn, session)
	})
}

// Get retrieves a session by ID.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session *Session
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		session, err = readSession(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Delete removes a session by ID.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		session, err := readSession(txn, id)
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(sessionKey(id)); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := txn.Delete(userKey(session.UserID, id)); err != nil {
			return fmt.Errorf("delete user mapping: %w", err)
		}
		return nil
	})
}

// DeleteByUserID removes all sessions for a user.
func (s *BadgerSessionStore) DeleteByUserID(ctx context.Context, userID int64) (int, error) {
	var sessionIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := userPrefix(userID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				sessionIDs = append(sessionIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list user sessions: %w", err)
	}

	count := 0
	for _, id := range sessionIDs {
		if err := s.Delete(ctx, id); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Touch updates the session's last accessed time and extends expiry.
func (s *BadgerSessionStore) Touch(_ context.Context, id string, newExpiry time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		session, err := readSession(txn, id)
		if err != nil {
			return err
		}
		session.LastAccessedAt = time.Now()
		session.ExpiresAt = newExpiry
		return writeSession(txn, session)
	})
}

// CleanupExpired removes all expired sessions.
func (s *BadgerSessionStore) CleanupExpired(ctx context.Context) (int, error) {
	var expiredIDs []string

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				continue
			}
			if session.IsExpired() {
				expiredIDs = append(expiredIDs, session.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan sessions: %w", err)
	}

	count := 0
	for _, id := range expiredIDs {
		if err := s.Delete(ctx, id); err != nil {
			continue
		}
		count++
	}
	return count, nil
}

// Count returns the number of live session keys.
func (s *BadgerSessionStore) Count() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(sessionKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
