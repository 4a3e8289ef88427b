// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"generated", "", false},
		{"upstream", "req-abc-123", true},
		{"oversized upstream", strings.Repeat("x", 200), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ctxID, logID string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctxID = GetRequestID(r.Context())
				logID = logging.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			header := rec.Header().Get(RequestIDHeader)
			if header == "" || header != ctxID || header != logID {
				t.Errorf("header %q, context %q, logging %q must match", header, ctxID, logID)
			}
			if (header == tt.incoming) != tt.wantSame {
				t.Errorf("header = %q, incoming %q, wantSame %v", header, tt.incoming, tt.wantSame)
			}
		})
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}

func TestPrometheusMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Delete("/deleteMarker/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodDelete, "/deleteMarker/{id}", "200")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/deleteMarker/"+id, nil))
	}

	if got := testutil.ToFloat64(counter) - before; got != 3 {
		t.Errorf("api_requests_total delta = %v, want 3", got)
	}
	if got := testutil.ToFloat64(metrics.APIActiveRequests); got != 0 {
		t.Errorf("active requests = %v after completion, want 0", got)
	}
}

func TestPrometheusMetrics_Unmatched(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, unmatchedRoute, "418")
	before := testutil.ToFloat64(counter)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere/42", nil))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("unmatched delta = %v, want 1", got)
	}
}

func TestStatusWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := newStatusWriter(rec)

	sw.WriteHeader(http.StatusCreated)
	sw.WriteHeader(http.StatusInternalServerError)
	n, _ := sw.Write([]byte("hello"))

	if sw.statusCode != http.StatusCreated {
		t.Errorf("statusCode = %d, want first written 201", sw.statusCode)
	}
	if n != 5 || sw.bytes != 5 {
		t.Errorf("bytes = %d, want 5", sw.bytes)
	}
	if sw.Unwrap() != rec {
		t.Error("Unwrap() should return the wrapped writer")
	}
	if _, _, err := sw.Hijack(); err == nil {
		t.Error("Hijack() on a recorder should fail")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() {
		logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
	})

	handler := RequestID(AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/getMarkers", nil))

	line := buf.String()
	for _, want := range []string{`"level":"warn"`, `"status":404`, `"path":"/getMarkers"`, `"request_id"`, `"message":"HTTP request"`} {
		if !strings.Contains(line, want) {
			t.Errorf("access log %s missing %s", line, want)
		}
	}
}

func TestCompression(t *testing.T) {
	body := strings.Repeat("travel ", 500)
	handler := Compression(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, body)
	}))

	t.Run("gzip accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatalf("Content-Encoding = %q", rec.Header().Get("Content-Encoding"))
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("gzip.NewReader() error = %v", err)
		}
		got, _ := io.ReadAll(zr)
		if string(got) != body {
			t.Error("decompressed body mismatch")
		}
	})

	for name, setup := range map[string]func(*http.Request){
		"no accept-encoding": func(*http.Request) {},
		"websocket upgrade": func(r *http.Request) {
			r.Header.Set("Accept-Encoding", "gzip")
			r.Header.Set("Upgrade", "websocket")
		},
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Header().Get("Content-Encoding") != "" {
				t.Error("response should not be compressed")
			}
			if rec.Body.String() != body {
				t.Error("body altered")
			}
		})
	}
}
