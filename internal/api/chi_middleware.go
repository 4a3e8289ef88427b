// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORS configuration
	CORSAllowedOrigins   []string
	CORSAllowedMethods   []string
	CORSAllowedHeaders   []string
	CORSExposedHeaders   []string
	CORSAllowCredentials bool
	CORSMaxAge           int // seconds

	// Rate limiting configuration
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
	RateLimitKeyFunc  httprate.KeyFunc
}

// DefaultChiMiddlewareConfig returns a secure default configuration.
// CORS origins default to empty, requiring explicit configuration.
func DefaultChiMiddlewareConfig() *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins:   []string{},
		CORSAllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		CORSAllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSExposedHeaders:   []string{"X-Request-ID"},
		CORSAllowCredentials: true,
		CORSMaxAge:           86400,

		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(config *ChiMiddlewareConfig) *ChiMiddleware {
	if config == nil {
		config = DefaultChiMiddlewareConfig()
	}

	// Credentialed CORS cannot answer with a literal "*"; AllowOriginFunc
	// echoes the request origin instead.
	opts := cors.Options{
		AllowedOrigins:   config.CORSAllowedOrigins,
		AllowedMethods:   config.CORSAllowedMethods,
		AllowedHeaders:   config.CORSAllowedHeaders,
		ExposedHeaders:   config.CORSExposedHeaders,
		AllowCredentials: config.CORSAllowCredentials,
		MaxAge:           config.CORSMaxAge,
	}
	// go-chi/cors treats an empty list as "allow all".
	switch {
	case len(config.CORSAllowedOrigins) == 0:
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	case config.CORSAllowCredentials && containsWildcard(config.CORSAllowedOrigins):
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	}

	return &ChiMiddleware{
		config: config,
		cors:   cors.Handler(opts),
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// CORS returns the go-chi/cors middleware. It must be global so OPTIONS
// preflights reach it.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimitConfig defines rate limit parameters for specific endpoints.
type RateLimitConfig struct {
	// Name labels rejections in api_rate_limit_hits_total.
	Name string
	// Requests is the number of requests allowed in the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
}

// Endpoint-specific rate limit configurations
var (
	// RateLimitLogin is strict for credential checks (login and token).
	RateLimitLogin = RateLimitConfig{Name: "login", Requests: 10, Window: 5 * time.Minute}

	// RateLimitRegister slows account creation floods.
	RateLimitRegister = RateLimitConfig{Name: "register", Requests: 5, Window: time.Minute}

	// RateLimitResolve protects the shared geocoder budget. Debounced
	// clients send at most a few searches per second.
	RateLimitResolve = RateLimitConfig{Name: "resolve", Requests: 120, Window: time.Minute}

	// RateLimitWebSocket is permissive for WebSocket connections (upgrade rate)
	RateLimitWebSocket = RateLimitConfig{Name: "websocket", Requests: 30, Window: time.Minute}

	// RateLimitHealth allows frequent probes from monitoring.
	RateLimitHealth = RateLimitConfig{Name: "health", Requests: 1000, Window: time.Minute}
)

// RateLimit returns the default limiter sized by configuration.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.RateLimitCustom(RateLimitConfig{
		Name:     "api",
		Requests: m.config.RateLimitRequests,
		Window:   m.config.RateLimitWindow,
	})
}

// RateLimitCustom returns a per-client limiter for config. Disabled rate
// limiting yields a no-op.
func (m *ChiMiddleware) RateLimitCustom(config RateLimitConfig) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	keyFunc := m.config.RateLimitKeyFunc
	if keyFunc == nil {
		keyFunc = httprate.KeyByIP
	}

	return httprate.Limit(
		config.Requests,
		config.Window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(limitHandler(config.Name)),
	)
}

// limitHandler answers rejected requests with the envelope.
func limitHandler(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		metrics.APIRateLimitHits.WithLabelValues(name).Inc()
		logging.CtxDebug(r.Context()).Str("limiter", name).Str("path", r.URL.Path).Msg("Rate limit exceeded")
		NewResponseWriter(w, r).TooManyRequests("rate limit exceeded, retry later")
	}
}

// APISecurityHeaders adds security headers to API responses.
//
// Headers added:
//   - X-Content-Type-Options: nosniff (prevents MIME type sniffing)
//   - X-Frame-Options: DENY (prevents clickjacking)
//   - Cache-Control: no-store (responses are per-user)
//   - Referrer-Policy: strict-origin-when-cross-origin (limits referrer information)
//
// HSTS is added when the request is over HTTPS.
func APISecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Cache-Control", "no-store")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// X-Forwarded-Proto covers TLS-terminating proxies.
			if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
