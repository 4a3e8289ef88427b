// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chefzaid/travelmapster/internal/models"
)

// idResponse is the body of POST /addMarker.
type idResponse struct {
	ID int64 `json:"id"`
}

// deletedResponse is the body of DELETE /deleteMarker/{id}.
type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// visitedResponse is the data of GET /api/v1/visited.
type visitedResponse struct {
	Countries []string `json:"countries"`
}

// AddMarker stores a marker for the caller without deduplication.
//
// POST /addMarker {"lat","lng","type","name","category"} -> 200 {"id"}
func (h *Handler) AddMarker(w http.ResponseWriter, r *http.Request) {
	p, ok := legacyCaller(w, r)
	if !ok {
		return
	}

	var fields models.MarkerFields
	if err := decodeJSON(w, r, &fields); err != nil {
		respondLegacyError(w, r, err)
		return
	}

	marker, err := h.markers.Create(r.Context(), p.UserID, fields)
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: marker.ID})
}

// DeleteMarker removes one of the caller's markers. Another user's id is
// reported as {"deleted": false}.
//
// DELETE /deleteMarker/{id} -> 200 {"deleted"}
func (h *Handler) DeleteMarker(w http.ResponseWriter, r *http.Request) {
	p, ok := legacyCaller(w, r)
	if !ok {
		return
	}

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}

	deleted, err := h.markers.Delete(r.Context(), p.UserID, id)
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{Deleted: deleted})
}

// GetMarkers lists the caller's markers in insertion order.
//
// GET /getMarkers -> 200 [marker...]
func (h *Handler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	p, ok := legacyCaller(w, r)
	if !ok {
		return
	}

	list, err := h.markers.List(r.Context(), p.UserID)
	if err != nil {
		respondLegacyError(w, r, err)
		return
	}
	if list == nil {
		list = []models.Marker{}
	}
	writeJSON(w, http.StatusOK, list)
}

// PinPoint resolves the city nearest a free click and stores it, replacing
// the caller's markers within the dedup radius.
//
// POST /api/v1/markers/pin {"lat","lng","type","viewport"?} -> 201 {"marker","removed"}
func (h *Handler) PinPoint(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	viewport, err := parseViewport(req.Viewport)
	if err != nil {
		respondError(w, r, err)
		return
	}

	at := models.Coordinate{Lat: req.Lat, Lng: req.Lng}
	placement, err := h.markers.PlacePoint(r.Context(), p.UserID, at, req.Kind, viewport)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(placement)
}

// Visited returns the caller's visited country names, sorted.
//
// GET /api/v1/visited -> {"countries": [...]}
func (h *Handler) Visited(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}

	set, err := h.markers.Visited(r.Context(), p.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	names := set.Names()
	NewResponseWriter(w, r).SuccessWithCount(visitedResponse{Countries: names}, len(names))
}
