// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"

	"github.com/chefzaid/travelmapster/internal/logging"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

// WebSocket upgrades the connection and subscribes it to the caller's
// markers_changed notifications.
//
// GET /api/v1/ws
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if h.hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.CtxWarn(r.Context()).Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := ws.NewClient(h.hub, conn, p.UserID)
	select {
	case h.hub.Register <- client:
		client.Start()
	case <-h.hub.Done():
		_ = conn.Close()
	}
}
