// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package websocket pushes per-user change notifications to browsers and
// map sessions.
//
// A Hub owns the set of connected clients. Each Client belongs to exactly
// one user; NotifyUser delivers only to that user's clients, so two tabs of
// the same account stay consistent and other accounts see nothing.
//
// # Messages
//
//	{"type": "markers_changed", "data": {"reason": "created", "marker_id": 7, "timestamp": "..."}}
//	{"type": "pong", "data": null}
//
// A client sending {"type": "ping"} receives a pong. Server pings keep idle
// connections alive; a client that stops answering is closed after 60s.
//
// # Supervision
//
// RunWithContext is the hub's event loop and runs under the supervisor tree.
// On shutdown every client channel is closed, which makes each write pump
// send a close frame.
package websocket
