// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/chefzaid/travelmapster/internal/audit"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/models"
)

// messageResponse is the body of the unversioned routes that only
// acknowledge.
type messageResponse struct {
	Message string `json:"message"`
}

// userResponse identifies the logged-in user.
type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// tokenResponse is the data of POST /api/v1/auth/token.
type tokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Register creates an account. It does not start a session.
//
// POST /register {"username","password"} -> 200 {"message":"registered"}
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondLegacyError(w, r, err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}
	h.audit.LogRegister(r.Context(), user.ID, user.Username, audit.SourceFromRequest(r))
	writeJSON(w, http.StatusOK, messageResponse{Message: "registered"})
}

// Login verifies credentials and starts a cookie session.
//
// POST /login {"username","password"} -> 200 {"id","username"}
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		respondLegacyError(w, r, err)
		return
	}

	user, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.auditLoginFailure(r, req.Username, err)
		respondLegacyError(w, r, err)
		return
	}

	session, err := h.sessions.CreateSession(w, r, auth.Principal{
		UserID:   user.ID,
		Username: user.Username,
		Method:   auth.MethodSession,
	})
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}

	logging.CtxInfo(r.Context()).
		Int64("user_id", user.ID).
		Str("session_id", session.ID[:8]).
		Msg("User logged in")
	h.audit.LogAuthSuccess(r.Context(), user.ID, user.Username, audit.SourceFromRequest(r), auth.MethodSession)
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// Logout ends the cookie session. The cookie is cleared even when the
// session store fails.
//
// POST /logout -> 200 {"message":"logged out"}
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.PrincipalFromContext(r.Context()); ok {
		h.audit.LogLogout(r.Context(), p.UserID, p.Username, audit.SourceFromRequest(r))
	}
	if err := h.sessions.DestroySession(w, r); err != nil {
		logging.CtxWarn(r.Context()).Err(err).Msg("Failed to delete session on logout")
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// CurrentUser reports the session's user, or 401 with an empty object.
//
// GET /current_user -> 200 {"id","username"} | 401 {}
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, struct{}{})
		return
	}

	user, err := h.auth.CurrentUser(r.Context(), p.UserID)
	if err != nil {
		if classify(err).status == http.StatusUnauthorized {
			writeJSON(w, http.StatusUnauthorized, struct{}{})
			return
		}
		respondLegacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
}

// IssueToken exchanges credentials for a bearer token.
//
// POST /api/v1/auth/token {"username","password"} -> {"token","token_type","expires_at"}
func (h *Handler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	token, err := h.auth.IssueToken(r.Context(), req.Username, req.Password)
	if err != nil {
		h.auditLoginFailure(r, req.Username, err)
		respondError(w, r, err)
		return
	}
	h.audit.LogTokenIssued(r.Context(), token.User.ID, token.User.Username, audit.SourceFromRequest(r), token.ExpiresAt)
	NewResponseWriter(w, r).Success(tokenResponse{Token: token.Value, TokenType: "Bearer", ExpiresAt: token.ExpiresAt})
}

// auditLoginFailure records rejected credentials. Other failures are
// operational and only logged.
func (h *Handler) auditLoginFailure(r *http.Request, username string, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.audit.LogAuthFailure(r.Context(), 0, username, audit.SourceFromRequest(r), "invalid credentials")
	}
}
