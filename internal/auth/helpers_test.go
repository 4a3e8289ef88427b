// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

// memoryUsers is a store.UserStore backed by a map.
type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byName: make(map[string]*models.User)}
}

func (m *memoryUsers) CreateUser(_ context.Context, username, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byName[username]; ok {
		return nil, store.ErrUserExists
	}
	m.nextID++
	u := &models.User{ID: m.nextID, Username: username, PasswordHash: hash, CreatedAt: time.Now()}
	m.byName[username] = u
	return u, nil
}

func (m *memoryUsers) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byName[username]; ok {
		return u, nil
	}
	return nil, store.ErrUserNotFound
}

func (m *memoryUsers) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

const testSecret = "0123456789abcdef0123456789abcdef"
