// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// AccessLog writes one structured line per request. Server errors log at
// error level, client errors at warn, everything else at debug.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := newStatusWriter(w)
		next.ServeHTTP(wrapper, r)

		var event *zerolog.Event
		switch {
		case wrapper.statusCode >= http.StatusInternalServerError:
			event = logging.Ctx(r.Context()).Error()
		case wrapper.statusCode >= http.StatusBadRequest:
			event = logging.Ctx(r.Context()).Warn()
		default:
			event = logging.Ctx(r.Context()).Debug()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Int("status", wrapper.statusCode).
			Int("bytes", wrapper.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("HTTP request")
	})
}
