// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/peterstace/simplefeatures/geom"

	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/models"
)

// ErrNoCountries is returned when a dataset yields no usable polygons.
var ErrNoCountries = errors.New("no country polygons loaded")

// Country is one reference polygon.
type Country struct {
	Name     string
	ISO3     string
	Geometry geom.Geometry
}

// CountryIndex answers point-in-polygon and name lookups against an
// immutable set of country polygons.
type CountryIndex struct {
	countries []Country
	byName    map[string]int
	byISO3    map[string]int
}

// featureCollection mirrors the johan/world.geo.json layout: the feature id
// is the ISO3 code and properties.name is the display name.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	ID         string          `json:"id"`
	Properties featureProps    `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

type featureProps struct {
	Name string `json:"name"`
	ISO3 string `json:"iso_a3"`
}

// ParseCountries builds an index from a GeoJSON FeatureCollection.
// Features without a name or with an unreadable geometry are skipped.
func ParseCountries(data []byte) (*CountryIndex, error) {
	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("decode country dataset: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode country dataset: want FeatureCollection, got %q", fc.Type)
	}

	countries := make([]Country, 0, len(fc.Features))
	for i := range fc.Features {
		f := &fc.Features[i]
		name := strings.TrimSpace(f.Properties.Name)
		if name == "" || len(f.Geometry) == 0 {
			continue
		}
		g, err := geom.UnmarshalGeoJSON(f.Geometry)
		if err != nil {
			logging.Warn().Err(err).Str("country", name).Msg("Skipping unreadable country geometry")
			continue
		}
		if t := g.Type(); t != geom.TypePolygon && t != geom.TypeMultiPolygon {
			logging.Warn().Str("country", name).Str("type", t.String()).Msg("Skipping non-areal country geometry")
			continue
		}
		iso := f.ID
		if iso == "" {
			iso = f.Properties.ISO3
		}
		countries = append(countries, Country{Name: name, ISO3: strings.ToUpper(iso), Geometry: g})
	}

	return NewCountryIndex(countries)
}

// NewCountryIndex indexes the given countries by name and ISO3 code.
func NewCountryIndex(countries []Country) (*CountryIndex, error) {
	if len(countries) == 0 {
		return nil, ErrNoCountries
	}
	idx := &CountryIndex{
		countries: countries,
		byName:    make(map[string]int, len(countries)),
		byISO3:    make(map[string]int, len(countries)),
	}
	for i, c := range countries {
		idx.byName[strings.ToLower(c.Name)] = i
		if c.ISO3 != "" {
			idx.byISO3[c.ISO3] = i
		}
	}
	return idx, nil
}

// Locate returns the country whose polygon contains c.
func (idx *CountryIndex) Locate(c models.Coordinate) (Country, bool) {
	p, err := geom.XY{X: c.Lng, Y: c.Lat}.AsPoint()
	if err != nil {
		return Country{}, false
	}
	pt := p.AsGeometry()
	for i := range idx.countries {
		if geom.Intersects(idx.countries[i].Geometry, pt) {
			return idx.countries[i], true
		}
	}
	return Country{}, false
}

// Lookup matches label against polygon names (case-insensitive) or ISO3 codes.
func (idx *CountryIndex) Lookup(label string) (Country, bool) {
	key := strings.TrimSpace(label)
	if key == "" {
		return Country{}, false
	}
	if i, ok := idx.byName[strings.ToLower(key)]; ok {
		return idx.countries[i], true
	}
	if i, ok := idx.byISO3[strings.ToUpper(key)]; ok {
		return idx.countries[i], true
	}
	return Country{}, false
}

// Snap returns the polygon name a country label should be stored under:
// a name or ISO3 match first, otherwise the polygon containing at.
func (idx *CountryIndex) Snap(label string, at models.Coordinate) (Country, bool) {
	if c, ok := idx.Lookup(label); ok {
		return c, true
	}
	return idx.Locate(at)
}

// Len returns the number of indexed polygons.
func (idx *CountryIndex) Len() int {
	return len(idx.countries)
}

// Names returns all polygon names, sorted.
func (idx *CountryIndex) Names() []string {
	names := make([]string, len(idx.countries))
	for i := range idx.countries {
		names[i] = idx.countries[i].Name
	}
	sort.Strings(names)
	return names
}
