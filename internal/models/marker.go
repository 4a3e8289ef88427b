// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// ErrInvalidMarker is returned when marker fields fail validation. A marker
// that fails validation never reaches the store.
var ErrInvalidMarker = errors.New("invalid marker")

// Kind distinguishes places already visited from places on the wishlist.
type Kind string

const (
	KindVisited  Kind = "visited"
	KindWishlist Kind = "wishlist"
)

// Valid reports whether k is a known marker kind.
func (k Kind) Valid() bool {
	return k == KindVisited || k == KindWishlist
}

// Category is the administrative level of a marked place.
//
// Stored lower-case; the wire format capitalises it ("Country", "City").
type Category string

const (
	CategoryCountry Category = "country"
	CategoryCity    Category = "city"
)

// Valid reports whether c is a known place category.
func (c Category) Valid() bool {
	return c == CategoryCountry || c == CategoryCity
}

// ParseCategory accepts any casing of "country" or "city".
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidMarker, s)
	}
	return c, nil
}

// WireName returns the capitalised form used in JSON.
func (c Category) WireName() string {
	switch c {
	case CategoryCountry:
		return "Country"
	case CategoryCity:
		return "City"
	default:
		return string(c)
	}
}

// MarshalJSON implements json.Marshaler.
func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.WireName())
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Validate checks that both components are finite and in range.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90,90]", ErrInvalidMarker, c.Lat)
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180,180]", ErrInvalidMarker, c.Lng)
	}
	return nil
}

// Marker is a persisted visitation record. Markers are never updated in
// place; a change is a delete followed by a create.
type Marker struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"-"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Kind      Kind      `json:"type"`
	Label     string    `json:"name"`
	Category  Category  `json:"category"`
	CreatedAt time.Time `json:"-"`
}

// Coordinate returns the marker position.
func (m *Marker) Coordinate() Coordinate {
	return Coordinate{Lat: m.Lat, Lng: m.Lng}
}

// Fields returns the user-supplied part of the marker.
func (m *Marker) Fields() MarkerFields {
	return MarkerFields{Lat: m.Lat, Lng: m.Lng, Kind: m.Kind, Label: m.Label, Category: m.Category}
}

// MarkerFields are the caller-supplied fields of a new marker.
type MarkerFields struct {
	Lat      float64  `json:"lat" validate:"latitude"`
	Lng      float64  `json:"lng" validate:"longitude"`
	Kind     Kind     `json:"type" validate:"required,oneof=visited wishlist"`
	Label    string   `json:"name" validate:"required,max=200"`
	Category Category `json:"category" validate:"required,oneof=country city"`
}

// maxLabelLength bounds stored display names.
const maxLabelLength = 200

// Normalize trims the label. It is applied before validation and storage.
func (f MarkerFields) Normalize() MarkerFields {
	f.Label = strings.TrimSpace(f.Label)
	return f
}

// Validate checks every field. Errors wrap ErrInvalidMarker.
func (f MarkerFields) Validate() error {
	if err := (Coordinate{Lat: f.Lat, Lng: f.Lng}).Validate(); err != nil {
		return err
	}
	if !f.Kind.Valid() {
		return fmt.Errorf("%w: type must be visited or wishlist, got %q", ErrInvalidMarker, f.Kind)
	}
	if !f.Category.Valid() {
		return fmt.Errorf("%w: category must be Country or City, got %q", ErrInvalidMarker, f.Category)
	}
	label := strings.TrimSpace(f.Label)
	if label == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMarker)
	}
	if utf8.RuneCountInString(label) > maxLabelLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidMarker, maxLabelLength)
	}
	return nil
}

// Candidate is a resolved but not yet persisted location.
type Candidate struct {
	Label    string   `json:"name"`
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Category Category `json:"category"`
}

// Coordinate returns the candidate position.
func (c Candidate) Coordinate() Coordinate {
	return Coordinate{Lat: c.Lat, Lng: c.Lng}
}

// Fields turns the candidate into marker fields of the given kind.
func (c Candidate) Fields(kind Kind) MarkerFields {
	return MarkerFields{Lat: c.Lat, Lng: c.Lng, Kind: kind, Label: c.Label, Category: c.Category}
}
