// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package client is the Go client of the travelmapster HTTP API.

A Client keeps the session cookie in its own cookie jar, so each Client
behaves like one browser tab:

	c, err := client.New("http://localhost:8080")
	if err != nil {
		return err
	}
	if _, err := c.Login(ctx, "alice", password); err != nil {
		return err
	}
	markers, err := c.ListMarkers(ctx)

Unversioned routes (/login, /addMarker, ...) and /api/v1 routes are both
covered; envelope responses are unwrapped transparently.

# Errors

Non-2xx responses are returned as *StatusError and match one of the
package sentinels with errors.Is:

	ErrUnauthorized  401
	ErrInvalid       400
	ErrNotFound      404 (a resolve found nothing)
	ErrConflict      409
	ErrUnreachable   502/503/504 and transport failures

ErrNotFound is an empty result. ErrUnreachable is a failure worth retrying.

# Change feed

Watch holds the /api/v1/ws connection open and invokes a callback for each
markers_changed notification addressed to the logged-in user.
*/
package client
