// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// readinessTimeout bounds the store ping of the readiness probe.
const readinessTimeout = 2 * time.Second

// HealthLive handles liveness probe requests.
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests.
// Returns 200 OK only when the marker store answers a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	storeOK := h.store != nil && h.store.Ping(ctx) == nil
	data := map[string]interface{}{
		"store_connected": storeOK,
		"ws_clients":      h.wsClients(),
	}

	rw := NewResponseWriter(w, r)
	if !storeOK {
		logging.CtxWarn(r.Context()).Msg("Readiness check failed: store unavailable")
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "not ready", data)
		return
	}
	data["status"] = "ready"
	rw.Success(data)
}

func (h *Handler) wsClients() int {
	if h.hub == nil {
		return 0
	}
	return h.hub.GetClientCount()
}
