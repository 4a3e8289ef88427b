// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package cache

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Store is a byte-oriented cache shared by the geocoder. A miss is
// (nil, false, nil); errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Name() string
}

// MemoryStore adapts an LRUCache to Store.
type MemoryStore struct {
	lru *LRUCache[[]byte]
}

// NewMemoryStore creates an in-process Store holding at most capacity entries.
func NewMemoryStore(capacity int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: NewLRUCache[[]byte](capacity, ttl)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	return v, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.lru.AddWithTTL(key, value, ttl)
	return nil
}

// Name implements Store.
func (s *MemoryStore) Name() string { return "memory" }

// Stats exposes the underlying LRU statistics.
func (s *MemoryStore) Stats() (hits, misses int64, size int) {
	return s.lru.Stats()
}

// GenerateKey creates a compact cache key from a method name and parameters.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, hash[:16])
}
