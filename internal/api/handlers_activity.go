// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/chefzaid/travelmapster/internal/audit"
)

// Activity lists the caller's own audit events, newest first.
//
// GET /api/v1/account/activity?limit=N&since=RFC3339 -> [event...]
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	filter := audit.QueryFilter{ActorID: p.UserID}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > audit.DefaultQueryLimit {
			NewResponseWriter(w, r).BadRequest("limit must be between 1 and " + strconv.Itoa(audit.DefaultQueryLimit))
			return
		}
		filter.Limit = n
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			NewResponseWriter(w, r).BadRequest("since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}

	events, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).SuccessWithCount(events, len(events))
}
