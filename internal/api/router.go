// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	sessions      *auth.SessionMiddleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. chiMW may be nil for defaults. The session
// middleware's 401 response is switched to the API envelope.
func NewRouter(handler *Handler, sessions *auth.SessionMiddleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	sessions.Unauthorized = func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Unauthorized("authentication required")
	}
	return &Router{
		handler:       handler,
		sessions:      sessions,
		chiMiddleware: chiMW,
	}
}

// Setup builds the HTTP handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := router.handler
	mw := router.chiMiddleware

	// Applied to ALL routes in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})

	// promhttp negotiates its own gzip, so /metrics stays outside this group.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Compression)
		r.Use(router.sessions.Authenticate)

		// Unversioned routes keep their original request and response shapes.
		r.With(mw.RateLimitCustom(RateLimitRegister)).Post("/register", h.Register)
		r.With(mw.RateLimitCustom(RateLimitLogin)).Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Get("/current_user", h.CurrentUser)
		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())
			r.Use(requireLegacyAuth)
			r.Post("/addMarker", h.AddMarker)
			r.Delete("/deleteMarker/{id}", h.DeleteMarker)
			r.Get("/getMarkers", h.GetMarkers)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Use(APISecurityHeaders())

			r.Route("/health", func(r chi.Router) {
				r.Use(mw.RateLimitCustom(RateLimitHealth))
				r.Get("/live", h.HealthLive)
				r.Get("/ready", h.HealthReady)
			})

			r.With(mw.RateLimitCustom(RateLimitLogin)).Post("/auth/token", h.IssueToken)

			r.Group(func(r chi.Router) {
				r.Use(router.sessions.RequireAuth)

				r.Route("/resolve", func(r chi.Router) {
					r.Use(mw.RateLimitCustom(RateLimitResolve))
					r.Get("/click", h.ResolveClick)
					r.Get("/search", h.ResolveSearch)
					r.Get("/nearest", h.ResolveNearest)
				})

				r.Group(func(r chi.Router) {
					r.Use(mw.RateLimit())
					r.Post("/markers/pin", h.PinPoint)
					r.Get("/visited", h.Visited)
					r.Get("/account/activity", h.Activity)
				})

				r.With(mw.RateLimitCustom(RateLimitWebSocket)).Get("/ws", h.WebSocket)
			})
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// requireLegacyAuth rejects unauthenticated calls to the unversioned
// marker routes with {"error": ...}.
func requireLegacyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.PrincipalFromContext(r.Context()); !ok {
			writeLegacyError(w, http.StatusUnauthorized, "not logged in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
