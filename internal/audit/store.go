// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package audit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the most recent events in process. When full it
// drops the oldest tenth.
type MemoryStore struct {
	events []Event
	mu     sync.RWMutex
	maxLen int
}

// NewMemoryStore creates a MemoryStore; maxLen <= 0 means 10000.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, min(maxLen, 1024)),
		maxLen: maxLen,
	}
}

// Save appends an event.
func (s *MemoryStore) Save(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		removeCount := max(s.maxLen/10, 1)
		s.events = append(s.events[:0], s.events[removeCount:]...)
	}
	s.events = append(s.events, *event)
	return nil
}

// Query returns matching events, newest first.
func (s *MemoryStore) Query(_ context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.limit()
	results := make([]Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if !filter.matches(&s.events[i]) {
			continue
		}
		results = append(results, s.events[i])
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Delete removes events older than olderThan.
func (s *MemoryStore) Delete(_ context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for i := range s.events {
		if !s.events[i].Timestamp.Before(olderThan) {
			kept = append(kept, s.events[i])
		}
	}
	removed := int64(len(s.events) - len(kept))
	s.events = kept
	return removed, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
