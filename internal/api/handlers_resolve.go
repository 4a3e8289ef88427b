// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"

	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/validation"
)

// ResolveClick names the country under a map click.
//
// GET /api/v1/resolve/click?lat=&lng= -> Candidate | 404
func (h *Handler) ResolveClick(w http.ResponseWriter, r *http.Request) {
	at, err := parseCoordinate(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	candidate, err := h.resolver.ResolveClick(r.Context(), at)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(candidate)
}

// ResolveSearch resolves a typed country or city name. kind defaults to
// country.
//
// GET /api/v1/resolve/search?q=&kind=country|city -> Candidate | 404 | 502
func (h *Handler) ResolveSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := searchRequest{Query: query.Get("q"), Kind: query.Get("kind")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondError(w, r, verr)
		return
	}

	category := models.CategoryCountry
	if req.Kind != "" {
		parsed, err := models.ParseCategory(req.Kind)
		if err != nil {
			respondError(w, r, err)
			return
		}
		category = parsed
	}

	candidate, err := h.resolver.ResolveText(r.Context(), req.Query, category)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(candidate)
}

// ResolveNearest finds the city closest to a click, widening to the
// viewport when nothing is near.
//
// GET /api/v1/resolve/nearest?lat=&lng=&viewport=s,w,n,e -> Candidate | 404 | 502
func (h *Handler) ResolveNearest(w http.ResponseWriter, r *http.Request) {
	at, err := parseCoordinate(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	viewport, err := parseViewport(r.URL.Query().Get("viewport"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	candidate, err := h.resolver.NearestCity(r.Context(), at, viewport)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Success(candidate)
}
