// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geo

import (
	"errors"
	"os"
	"testing"

	"github.com/chefzaid/travelmapster/internal/models"
)

func loadTestIndex(t *testing.T) *CountryIndex {
	t.Helper()
	data, err := os.ReadFile("testdata/countries.geo.json")
	if err != nil {
		t.Fatalf("read testdata: %v", err)
	}
	idx, err := ParseCountries(data)
	if err != nil {
		t.Fatalf("ParseCountries: %v", err)
	}
	return idx
}

func TestParseCountries(t *testing.T) {
	idx := loadTestIndex(t)

	// The unnamed feature is skipped.
	if idx.Len() != 6 {
		t.Errorf("Len() = %d, want 6", idx.Len())
	}
	names := idx.Names()
	if names[0] != "France" || names[len(names)-1] != "United Kingdom" {
		t.Errorf("Names() = %v, want sorted", names)
	}
}

func TestParseCountriesErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"wrong type", `{"type":"Feature"}`},
		{"empty collection", `{"type":"FeatureCollection","features":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseCountries([]byte(tt.data)); err == nil {
				t.Error("ParseCountries() error = nil, want error")
			}
		})
	}

	_, err := ParseCountries([]byte(`{"type":"FeatureCollection","features":[]}`))
	if !errors.Is(err, ErrNoCountries) {
		t.Errorf("empty collection error = %v, want ErrNoCountries", err)
	}
}

func TestLocate(t *testing.T) {
	idx := loadTestIndex(t)

	tests := []struct {
		name string
		at   models.Coordinate
		want string
		ok   bool
	}{
		{"nairobi", models.Coordinate{Lat: -1.29, Lng: 36.82}, "Kenya", true},
		{"lima", models.Coordinate{Lat: -12.05, Lng: -77.04}, "Peru", true},
		{"sapporo in second polygon", models.Coordinate{Lat: 43.06, Lng: 141.35}, "Japan", true},
		{"tokyo", models.Coordinate{Lat: 35.68, Lng: 139.69}, "Japan", true},
		{"mid atlantic", models.Coordinate{Lat: 0, Lng: -30}, "", false},
		{"pacific", models.Coordinate{Lat: -20, Lng: -140}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := idx.Locate(tt.at)
			if ok != tt.ok {
				t.Fatalf("Locate(%v) ok = %v, want %v", tt.at, ok, tt.ok)
			}
			if ok && c.Name != tt.want {
				t.Errorf("Locate(%v) = %q, want %q", tt.at, c.Name, tt.want)
			}
		})
	}
}

func TestLookupAndSnap(t *testing.T) {
	idx := loadTestIndex(t)

	tests := []struct {
		name  string
		label string
		at    models.Coordinate
		want  string
		ok    bool
	}{
		{"exact name", "France", models.Coordinate{}, "France", true},
		{"case insensitive", "  united kingdom ", models.Coordinate{}, "United Kingdom", true},
		{"iso3 code", "jpn", models.Coordinate{}, "Japan", true},
		{"unknown label falls back to position", "Republic of Kenya", models.Coordinate{Lat: 0.5, Lng: 37.9}, "Kenya", true},
		{"unknown label at sea", "Atlantis", models.Coordinate{Lat: 0, Lng: -30}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := idx.Snap(tt.label, tt.at)
			if ok != tt.ok {
				t.Fatalf("Snap(%q) ok = %v, want %v", tt.label, ok, tt.ok)
			}
			if ok && c.Name != tt.want {
				t.Errorf("Snap(%q) = %q, want %q", tt.label, c.Name, tt.want)
			}
		})
	}

	if _, ok := idx.Lookup(""); ok {
		t.Error("Lookup(\"\") ok = true, want false")
	}
}
