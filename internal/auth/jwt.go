// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokensDisabled is returned when no JWT secret is configured.
var ErrTokensDisabled = errors.New("bearer tokens are disabled")

// tokenIssuer is the iss claim of every token.
const tokenIssuer = "travelmapster"

// Claims represents JWT claims. The subject is the decimal user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return id, nil
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager creates an HS256 token manager. An empty secret returns
// ErrTokensDisabled; callers then run with session cookies only.
func NewJWTManager(secret string, timeout time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrTokensDisabled
	}
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &JWTManager{
		secret:  []byte(secret),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// GenerateToken signs a token for the user and returns it with its expiry.
func (m *JWTManager) GenerateToken(userID int64, username string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.timeout)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signedToken, expiresAt, nil
}

// ValidateToken checks signature, algorithm, issuer and time claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}
	return claims, nil
}
