// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func whoami(t *testing.T) (http.Handler, *Principal) {
	t.Helper()
	var seen Principal
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			seen = *p
		}
		w.WriteHeader(http.StatusNoContent)
	}), &seen
}

func testMiddleware(t *testing.T) (*SessionMiddleware, *MemorySessionStore, *JWTManager) {
	t.Helper()
	st := NewMemorySessionStore()
	tokens, err := NewJWTManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultSessionMiddlewareConfig()
	cfg.CookieSecure = false
	return NewSessionMiddleware(st, tokens, cfg), st, tokens
}

func TestSessionMiddleware_CreateAndAuthenticate(t *testing.T) {
	mw, st, _ := testMiddleware(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	session, err := mw.CreateSession(rec, req, Principal{UserID: 3, Username: "alice"})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != session.ID || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	if st.Len() != 1 {
		t.Errorf("stored sessions = %d, want 1", st.Len())
	}

	handler, seen := whoami(t)
	req = httptest.NewRequest(http.MethodGet, "/current_user", nil)
	req.AddCookie(cookies[0])
	mw.RequireAuth(handler).ServeHTTP(httptest.NewRecorder(), req)

	if seen.UserID != 3 || seen.Username != "alice" || seen.Method != MethodSession || seen.SessionID != session.ID {
		t.Errorf("principal = %+v", *seen)
	}
}

func TestSessionMiddleware_CreateReplacesPreviousSession(t *testing.T) {
	mw, st, _ := testMiddleware(t)

	first, _ := mw.CreateSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/login", nil), Principal{UserID: 1, Username: "a"})
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.AddCookie(&http.Cookie{Name: mw.CookieName(), Value: first.ID})
	second, err := mw.CreateSession(httptest.NewRecorder(), req, Principal{UserID: 1, Username: "a"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.Get(context.Background(), first.ID); err == nil {
		t.Error("previous session should be deleted")
	}
	if first.ID == second.ID {
		t.Error("a new session id must be issued")
	}
}

func TestSessionMiddleware_RequireAuthRejects(t *testing.T) {
	mw, st, _ := testMiddleware(t)
	expired, _ := NewSession(1, "alice", time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Second)
	_ = st.Create(context.Background(), expired)

	tests := []struct {
		name   string
		header string
		cookie string
	}{
		{"no credentials", "", ""},
		{"unknown cookie", "", "nope"},
		{"expired cookie", "", expired.ID},
		{"bad bearer", "Bearer not-a-token", ""},
		{"basic scheme", "Basic YWxpY2U6eA==", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _ := whoami(t)
			req := httptest.NewRequest(http.MethodGet, "/getMarkers", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: mw.CookieName(), Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			mw.RequireAuth(handler).ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestSessionMiddleware_Bearer(t *testing.T) {
	mw, _, tokens := testMiddleware(t)
	token, _, _ := tokens.GenerateToken(9, "bob")

	handler, seen := whoami(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/visited", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	mw.RequireAuth(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if seen.UserID != 9 || seen.Method != MethodBearer {
		t.Errorf("principal = %+v", *seen)
	}
}

func TestSessionMiddleware_SlidingExpiry(t *testing.T) {
	mw, st, _ := testMiddleware(t)
	s, _ := NewSession(1, "alice", time.Minute)
	_ = st.Create(context.Background(), s)

	handler, _ := whoami(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: mw.CookieName(), Value: s.ID})
	mw.Authenticate(handler).ServeHTTP(httptest.NewRecorder(), req)

	got, err := st.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if time.Until(got.ExpiresAt) < 23*time.Hour {
		t.Errorf("expiry not extended: %v", got.ExpiresAt)
	}
}

func TestSessionMiddleware_DestroySession(t *testing.T) {
	mw, st, _ := testMiddleware(t)
	s, _ := NewSession(1, "alice", time.Hour)
	_ = st.Create(context.Background(), s)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: mw.CookieName(), Value: s.ID})
	rec := httptest.NewRecorder()
	if err := mw.DestroySession(rec, req); err != nil {
		t.Fatalf("DestroySession() error = %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("sessions = %d, want 0", st.Len())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", cookies)
	}

	rec = httptest.NewRecorder()
	if err := mw.DestroySession(rec, httptest.NewRequest(http.MethodPost, "/logout", nil)); err != nil {
		t.Errorf("DestroySession() without cookie error = %v", err)
	}
	if len(rec.Result().Cookies()) != 1 {
		t.Error("cookie should be cleared even without a session")
	}
}
