// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package geocoder queries an OpenStreetMap Nominatim search endpoint.
//
// The provider chain used by the server is
//
//	CachedProvider -> BreakerProvider -> Client
//
// Client throttles requests to the configured rate and retries HTTP 429
// responses; BreakerProvider stops calling a failing provider; CachedProvider
// keeps results in the in-process LRU or Redis.
package geocoder

import (
	"context"
	"errors"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/models"
)

// ErrUnreachable reports a network failure, a non-2xx response or an open
// circuit. It never means "no match"; an empty result is a nil error.
var ErrUnreachable = errors.New("search provider unreachable")

// Provider is the search contract consumed by the resolver.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Place, error)
}

// Query is one search request.
type Query struct {
	Text string `json:"q"`

	// BBox restricts results to the box when set.
	BBox *geo.BBox `json:"bbox,omitempty"`

	// FeatureType narrows results: country, state, city or settlement.
	FeatureType string `json:"feature_type,omitempty"`

	Limit int `json:"limit,omitempty"`
}

// Address is the structured address breakdown of a result.
type Address struct {
	City        string `json:"city,omitempty"`
	Town        string `json:"town,omitempty"`
	Village     string `json:"village,omitempty"`
	Hamlet      string `json:"hamlet,omitempty"`
	State       string `json:"state,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Place is one search result, ordered by provider relevance.
type Place struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	AddressType string  `json:"addresstype,omitempty"`
	Importance  float64 `json:"importance,omitempty"`
	Address     Address `json:"address"`
}

// Coordinate returns the result position.
func (p *Place) Coordinate() models.Coordinate {
	return models.Coordinate{Lat: p.Lat, Lng: p.Lon}
}

// Settlement returns the most specific settlement name:
// city, then town, then village, then the result name.
func (p *Place) Settlement() string {
	for _, s := range []string{p.Address.City, p.Address.Town, p.Address.Village, p.Name} {
		if s != "" {
			return s
		}
	}
	return ""
}
