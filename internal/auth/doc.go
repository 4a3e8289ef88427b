// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package auth handles accounts, sessions and bearer tokens.
//
// Passwords are stored as bcrypt hashes (cost 10). A successful login
// creates a server-side Session whose random id is sent as an HttpOnly
// cookie; sessions live in memory or in BadgerDB (SESSION_STORE=badger)
// and slide forward on every authenticated request. SessionCleaner purges
// expired sessions under the supervisor.
//
// Scripts and the map session client may instead request an HS256 JWT
// from /api/v1/auth/token and send it as "Authorization: Bearer <token>".
// Tokens are disabled when JWT_SECRET is empty.
//
// Handlers read the caller with PrincipalFromContext. Authorization is
// ownership only: every marker query is scoped to Principal.UserID.
package auth
