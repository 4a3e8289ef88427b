// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/validation"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// errMalformedBody is returned for bodies that are not the expected JSON.
var errMalformedBody = errors.New("malformed JSON body")

// pinRequest is the body of POST /api/v1/markers/pin.
type pinRequest struct {
	Lat      float64     `json:"lat" validate:"latitude"`
	Lng      float64     `json:"lng" validate:"longitude"`
	Kind     models.Kind `json:"type" validate:"required,oneof=visited wishlist"`
	Viewport string      `json:"viewport,omitempty" validate:"omitempty,bbox"`
}

// searchRequest holds the query of GET /api/v1/resolve/search.
type searchRequest struct {
	Query string `query:"q" validate:"max=200"`
	Kind  string `query:"kind" validate:"omitempty,oneof=country city Country City"`
}

// decodeJSON reads a bounded JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, models.ErrInvalidMarker) {
			return err
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return nil
}

// decodeAndValidate decodes the body then runs struct validation.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if err := decodeJSON(w, r, dst); err != nil {
		return err
	}
	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// parseCoordinate reads the lat and lng query parameters.
func parseCoordinate(r *http.Request) (models.Coordinate, error) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		return models.Coordinate{}, err
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		return models.Coordinate{}, err
	}
	at := models.Coordinate{Lat: lat, Lng: lng}
	if err := at.Validate(); err != nil {
		return models.Coordinate{}, err
	}
	return at, nil
}

func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", models.ErrInvalidMarker, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", models.ErrInvalidMarker, name)
	}
	return v, nil
}

// parseViewport reads an optional south,west,north,east box.
func parseViewport(raw string) (*geo.BBox, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	box, err := geo.ParseBBox(raw)
	if err != nil {
		return nil, err
	}
	return &box, nil
}

// parseID reads a positive int64 path parameter value.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", models.ErrInvalidMarker)
	}
	return id, nil
}
