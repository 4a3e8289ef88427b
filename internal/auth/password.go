// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for stored password hashes.
const BcryptCost = 10

// maxPasswordBytes is the bcrypt input limit.
const maxPasswordBytes = 72

// ErrWeakPassword is returned when a password fails the policy.
var ErrWeakPassword = errors.New("password does not meet policy")

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// PasswordPolicy is the registration password rule set.
type PasswordPolicy struct {
	MinLength int

	// ForbidCommonPasswords blocks a short list of well-known passwords.
	ForbidCommonPasswords bool

	// ForbidUsername rejects passwords containing the username.
	ForbidUsername bool
}

// DefaultPasswordPolicy returns the policy used when none is configured.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:             8,
		ForbidCommonPasswords: true,
		ForbidUsername:        true,
	}
}

var commonPasswords = map[string]bool{
	"password":   true,
	"password1":  true,
	"12345678":   true,
	"123456789":  true,
	"qwertyuiop": true,
	"iloveyou":   true,
	"sunshine":   true,
	"letmein":    true,
	"welcome1":   true,
	"travelmap":  true,
}

// Validate returns an error wrapping ErrWeakPassword when password breaks
// the policy.
func (p PasswordPolicy) Validate(username, password string) error {
	if len(password) < p.MinLength {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, p.MinLength)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: must be at most %d bytes", ErrWeakPassword, maxPasswordBytes)
	}
	lower := strings.ToLower(password)
	if p.ForbidCommonPasswords && commonPasswords[lower] {
		return fmt.Errorf("%w: too common", ErrWeakPassword)
	}
	if p.ForbidUsername && username != "" && strings.Contains(lower, strings.ToLower(username)) {
		return fmt.Errorf("%w: must not contain the username", ErrWeakPassword)
	}
	return nil
}
