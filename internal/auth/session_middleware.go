// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chefzaid/travelmapster/internal/logging"
)

// contextKey is the type for auth context keys.
type contextKey string

const principalContextKey contextKey = "auth_principal"

// Authentication methods recorded on a Principal.
const (
	MethodSession = "session"
	MethodBearer  = "bearer"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID    int64
	Username  string
	SessionID string
	Method    string
}

// ContextWithPrincipal stores p in ctx.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	ctx = context.WithValue(ctx, principalContextKey, p)
	return logging.ContextWithUserID(ctx, p.UserID)
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// SessionMiddlewareConfig holds configuration for the session middleware.
type SessionMiddlewareConfig struct {
	CookieName string

	// SessionTTL is the session lifetime. With SlidingSession each
	// authenticated request moves the expiry to now+SessionTTL.
	SessionTTL     time.Duration
	SlidingSession bool

	CookiePath     string
	CookieSecure   bool
	CookieSameSite http.SameSite
}

// DefaultSessionMiddlewareConfig returns sensible defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:     "travelmapster_session",
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddleware authenticates requests by session cookie or, when a
// JWTManager is set, by bearer token.
type SessionMiddleware struct {
	store  SessionStore
	tokens *JWTManager
	config *SessionMiddlewareConfig

	// Unauthorized writes the 401 response for RequireAuth.
	Unauthorized func(w http.ResponseWriter, r *http.Request)
}

// NewSessionMiddleware creates a new session middleware. tokens may be nil.
func NewSessionMiddleware(store SessionStore, tokens *JWTManager, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	return &SessionMiddleware{
		store:  store,
		tokens: tokens,
		config: config,
		Unauthorized: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Unauthorized: authentication required", http.StatusUnauthorized)
		},
	}
}

// Authenticate attaches a Principal when the request carries a valid
// session or token. Requests without one continue unauthenticated.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := m.principal(r); p != nil {
			r = r.WithContext(ContextWithPrincipal(r.Context(), p))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects requests without a Principal. A Principal attached
// by an outer Authenticate is reused.
func (m *SessionMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			if p := m.principal(r); p != nil {
				r = r.WithContext(ContextWithPrincipal(r.Context(), p))
			} else {
				m.Unauthorized(w, r)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionMiddleware) principal(r *http.Request) *Principal {
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		if p := m.sessionPrincipal(r.Context(), cookie.Value); p != nil {
			return p
		}
	}
	if m.tokens != nil {
		if token := bearerToken(r); token != "" {
			claims, err := m.tokens.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("Bearer token rejected")
				return nil
			}
			id, _ := claims.UserID()
			return &Principal{UserID: id, Username: claims.Username, Method: MethodBearer}
		}
	}
	return nil
}

func (m *SessionMiddleware) sessionPrincipal(ctx context.Context, id string) *Principal {
	session, err := m.store.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			logging.Error().Err(err).Msg("Session lookup error")
		}
		return nil
	}

	if m.config.SlidingSession {
		if err := m.store.Touch(ctx, id, time.Now().Add(m.config.SessionTTL)); err != nil {
			logging.Error().Err(err).Msg("Failed to touch session")
		}
	}
	return &Principal{
		UserID:    session.UserID,
		Username:  session.Username,
		SessionID: session.ID,
		Method:    MethodSession,
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// SetSessionCookie sets the session cookie on the response.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    sessionID,
		Path:     m.config.CookiePath,
		MaxAge:   int(m.config.SessionTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}

// ClearSessionCookie clears the session cookie.
func (m *SessionMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: true,
		SameSite: m.config.CookieSameSite,
	})
}

// CreateSession starts a session for the user and sets the cookie. Any
// session already named by the request cookie is deleted first so a
// pre-login id is never promoted.
func (m *SessionMiddleware) CreateSession(w http.ResponseWriter, r *http.Request, user Principal) (*Session, error) {
	ctx := r.Context()
	if cookie, err := r.Cookie(m.config.CookieName); err == nil && cookie.Value != "" {
		if err := m.store.Delete(ctx, cookie.Value); err != nil {
			logging.Warn().Err(err).Msg("Failed to delete previous session")
		}
	}

	session, err := NewSession(user.UserID, user.Username, m.config.SessionTTL)
	if err != nil {
		return nil, err
	}
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	m.SetSessionCookie(w, session.ID)
	return session, nil
}

// DestroySession deletes the request's session, if any, and always clears
// the cookie.
func (m *SessionMiddleware) DestroySession(w http.ResponseWriter, r *http.Request) error {
	defer m.ClearSessionCookie(w)
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return m.store.Delete(r.Context(), cookie.Value)
}

// CookieName returns the configured session cookie name.
func (m *SessionMiddleware) CookieName() string {
	return m.config.CookieName
}
