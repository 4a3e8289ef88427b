// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
)

var (
	// ErrNoCredentials is returned when a request carries no valid session
	// or token.
	ErrNoCredentials = errors.New("authentication required")

	// ErrInvalidCredentials is returned for an unknown user or wrong password.
	// The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidUsername is returned when a username fails the length rule.
	ErrInvalidUsername = errors.New("invalid username")
)

// Username length bounds.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
)

// Service registers users and checks their credentials.
type Service struct {
	users  store.UserStore
	policy PasswordPolicy
	tokens *JWTManager

	dummyOnce sync.Once
	dummyHash string
}

// NewService creates a Service. tokens may be nil to disable IssueToken.
func NewService(users store.UserStore, policy PasswordPolicy, tokens *JWTManager) *Service {
	return &Service{users: users, policy: policy, tokens: tokens}
}

// Register creates an account. It does not log the user in.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if n := len(username); n < MinUsernameLength || n > MaxUsernameLength {
		metrics.RecordAuthAttempt("register", false)
		return nil, fmt.Errorf("%w: must be %d to %d characters", ErrInvalidUsername, MinUsernameLength, MaxUsernameLength)
	}
	if err := s.policy.Validate(username, password); err != nil {
		metrics.RecordAuthAttempt("register", false)
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, username, hash)
	if err != nil {
		metrics.RecordAuthAttempt("register", false)
		if errors.Is(err, store.ErrUserExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordAuthAttempt("register", true)
	logging.Ctx(ctx).Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("User registered")
	return user, nil
}

// Login verifies credentials and returns the user.
func (s *Service) Login(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		// Burn a comparison so unknown users take as long as wrong passwords.
		CheckPassword(s.timingHash(), password)
		metrics.RecordAuthAttempt("login", false)
		return nil, ErrInvalidCredentials
	}

	if !CheckPassword(user.PasswordHash, password) {
		metrics.RecordAuthAttempt("login", false)
		logging.Ctx(ctx).Debug().Str("username", username).Msg("Login rejected")
		return nil, ErrInvalidCredentials
	}

	metrics.RecordAuthAttempt("login", true)
	return user, nil
}

// Token is a signed bearer token and the user it was issued to.
type Token struct {
	Value     string
	ExpiresAt time.Time
	User      *models.User
}

// IssueToken verifies credentials and signs a bearer token.
func (s *Service) IssueToken(ctx context.Context, username, password string) (*Token, error) {
	if s.tokens == nil {
		return nil, ErrTokensDisabled
	}
	user, err := s.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	value, expiresAt, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, err
	}
	return &Token{Value: value, ExpiresAt: expiresAt, User: user}, nil
}

// CurrentUser returns the user for an authenticated id.
func (s *Service) CurrentUser(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		hash, err := HashPassword("travelmapster-timing-equaliser")
		if err == nil {
			s.dummyHash = hash
		}
	})
	return s.dummyHash
}
