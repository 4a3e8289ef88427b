// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chefzaid/travelmapster/internal/audit"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/models"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

// Resolver turns clicks and typed names into candidates.
// Satisfied by *resolver.Resolver.
type Resolver interface {
	ResolveClick(ctx context.Context, at models.Coordinate) (models.Candidate, error)
	ResolveText(ctx context.Context, query string, category models.Category) (models.Candidate, error)
	NearestCity(ctx context.Context, at models.Coordinate, viewport *geo.BBox) (models.Candidate, error)
}

// Pinger reports store health for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators of Handler. Hub may be nil, which
// disables /api/v1/ws.
type Dependencies struct {
	Auth     *auth.Service
	Sessions *auth.SessionMiddleware
	Markers  *markers.Service
	Resolver Resolver
	Store    Pinger
	Hub      *ws.Hub

	// Audit records account activity. nil disables recording and
	// /api/v1/account/activity returns an empty list.
	Audit *audit.Logger

	// AllowedOrigins gates websocket upgrades. "*" allows any origin.
	AllowedOrigins []string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_auth.go: register, login, logout, current user, tokens
//   - handlers_markers.go: marker CRUD, free-point pinning, visited set
//   - handlers_resolve.go: click, search and nearest-city resolution
//   - handlers_activity.go: the caller's audit trail
//   - handlers_health.go: liveness and readiness probes
//   - handlers_websocket.go: per-user change notifications
type Handler struct {
	auth           *auth.Service
	sessions       *auth.SessionMiddleware
	markers        *markers.Service
	resolver       Resolver
	store          Pinger
	hub            *ws.Hub
	audit          *audit.Logger
	allowedOrigins []string
	startTime      time.Time
}

// NewHandler creates a Handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{
		auth:           deps.Auth,
		sessions:       deps.Sessions,
		markers:        deps.Markers,
		resolver:       deps.Resolver,
		store:          deps.Store,
		hub:            deps.Hub,
		audit:          deps.Audit,
		allowedOrigins: deps.AllowedOrigins,
		startTime:      time.Now(),
	}
}

// caller returns the authenticated principal, writing an enveloped 401
// when there is none.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, r, auth.ErrNoCredentials)
	}
	return p, ok
}

// legacyCaller is caller for the unversioned routes.
func legacyCaller(w http.ResponseWriter, r *http.Request) (*auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondLegacyError(w, r, auth.ErrNoCredentials)
	}
	return p, ok
}

// upgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout.
func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin accepts same-origin upgrades and configured origins.
// Requests without an Origin header come from non-browser clients, which
// authenticate with a cookie or bearer token like any other request.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters from user input before it is
// logged.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	out := make([]rune, 0, len(s))
	for _, c := range s {
		if c < 0x20 || c == 0x7f {
			continue
		}
		out = append(out, c)
		if len(out) == maxLen {
			break
		}
	}
	return string(out)
}
