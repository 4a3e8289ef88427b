// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package resolver turns map clicks and typed place names into marker
// candidates.
//
// Three entry points exist:
//   - ResolveClick: point-in-polygon against the country dataset
//   - ResolveText: first search provider result for a country or city name
//   - NearestCity: two-tier radius search around a free click
//
// Country labels are always snapped to a polygon name so a visited country
// marker can tint the map. A query that resolves to nothing is ErrNotFound;
// a provider outage is ErrUnreachable. Callers must keep the two apart.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/geocoder"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
)

// ErrNotFound means the input legitimately resolves to no place.
var ErrNotFound = errors.New("place not found")

// ErrUnreachable is the provider failure sentinel, shared with the geocoder
// so errors.Is matches at either layer.
var ErrUnreachable = geocoder.ErrUnreachable

const (
	DefaultNearRadiusKm = 50.0
	DefaultWideRadiusKm = 100.0

	// nearestLimit bounds the results inspected per tier.
	nearestLimit = 20
)

// Countries is the polygon lookup the resolver needs.
type Countries interface {
	Locate(c models.Coordinate) (geo.Country, bool)
	Snap(label string, at models.Coordinate) (geo.Country, bool)
}

// Options configures the nearest-city radii.
type Options struct {
	NearRadiusKm float64
	WideRadiusKm float64
}

// Resolver resolves user input into candidates.
type Resolver struct {
	provider  geocoder.Provider
	countries Countries
	nearKm    float64
	wideKm    float64
}

// New creates a Resolver. Zero radii take the defaults.
func New(provider geocoder.Provider, countries Countries, opts Options) *Resolver {
	if opts.NearRadiusKm <= 0 {
		opts.NearRadiusKm = DefaultNearRadiusKm
	}
	if opts.WideRadiusKm <= 0 {
		opts.WideRadiusKm = DefaultWideRadiusKm
	}
	return &Resolver{
		provider:  provider,
		countries: countries,
		nearKm:    opts.NearRadiusKm,
		wideKm:    opts.WideRadiusKm,
	}
}

// ResolveClick maps a click to the country containing it. The candidate
// keeps the click point, not the polygon centroid.
func (r *Resolver) ResolveClick(ctx context.Context, at models.Coordinate) (models.Candidate, error) {
	if err := at.Validate(); err != nil {
		return models.Candidate{}, err
	}
	country, ok := r.countries.Locate(at)
	if !ok {
		metrics.RecordResolve("click", "not_found")
		return models.Candidate{}, ErrNotFound
	}
	metrics.RecordResolve("click", "resolved")
	logging.Ctx(ctx).Debug().Str("country", country.Name).Float64("lat", at.Lat).Float64("lng", at.Lng).Msg("Click resolved")
	return models.Candidate{
		Label:    country.Name,
		Lat:      at.Lat,
		Lng:      at.Lng,
		Category: models.CategoryCountry,
	}, nil
}

// ResolveText resolves a typed name using the first provider result.
func (r *Resolver) ResolveText(ctx context.Context, query string, category models.Category) (models.Candidate, error) {
	if !category.Valid() {
		return models.Candidate{}, fmt.Errorf("%w: unknown category %q", models.ErrInvalidMarker, category)
	}
	mode := "text_" + string(category)
	query = strings.TrimSpace(query)
	if query == "" {
		metrics.RecordResolve(mode, "not_found")
		return models.Candidate{}, ErrNotFound
	}

	places, err := r.provider.Search(ctx, geocoder.Query{Text: query, Limit: 1})
	if err != nil {
		metrics.RecordResolve(mode, "unreachable")
		return models.Candidate{}, providerError(err)
	}
	if len(places) == 0 {
		metrics.RecordResolve(mode, "not_found")
		return models.Candidate{}, ErrNotFound
	}
	first := places[0]

	var candidate models.Candidate
	var ok bool
	if category == models.CategoryCountry {
		candidate, ok = r.countryCandidate(query, &first)
	} else {
		candidate, ok = cityCandidate(query, &first), true
	}
	if !ok {
		metrics.RecordResolve(mode, "unmatched")
		logging.Ctx(ctx).Info().Str("query", query).Str("result", first.DisplayName).Msg("Country result matches no polygon")
		return models.Candidate{}, ErrNotFound
	}

	metrics.RecordResolve(mode, "resolved")
	return candidate, nil
}

// countryCandidate labels a country result and snaps it to a polygon name.
// A clearly classified result contributes the first display-name segment;
// otherwise the user's own text is kept.
func (r *Resolver) countryCandidate(query string, p *geocoder.Place) (models.Candidate, bool) {
	label := query
	if isCountryLike(p) {
		if seg := firstSegment(p.DisplayName); seg != "" {
			label = seg
		}
	}

	country, ok := r.countries.Snap(label, p.Coordinate())
	if !ok {
		return models.Candidate{}, false
	}
	return models.Candidate{
		Label:    country.Name,
		Lat:      p.Lat,
		Lng:      p.Lon,
		Category: models.CategoryCountry,
	}, true
}

func isCountryLike(p *geocoder.Place) bool {
	return p.Type == "administrative" || p.Type == "country" || p.Class == "place"
}

// cityCandidate formats "{city}, {country}".
func cityCandidate(query string, p *geocoder.Place) models.Candidate {
	return models.Candidate{
		Label:    cityLabel(query, p),
		Lat:      p.Lat,
		Lng:      p.Lon,
		Category: models.CategoryCity,
	}
}

func cityLabel(fallback string, p *geocoder.Place) string {
	city := p.Settlement()
	if city == "" {
		city = firstSegment(p.DisplayName)
	}
	if city == "" {
		city = fallback
	}
	if p.Address.Country == "" {
		return city
	}
	return city + ", " + p.Address.Country
}

// NearestCity finds the settlement closest to a free click. The first tier
// searches a small box around the click and accepts a result within the
// near radius. The second tier searches the viewport and accepts the
// closest result within the wide radius. A nil viewport skips tier two.
func (r *Resolver) NearestCity(ctx context.Context, at models.Coordinate, viewport *geo.BBox) (models.Candidate, error) {
	if err := at.Validate(); err != nil {
		return models.Candidate{}, err
	}

	candidate, err := r.closestWithin(ctx, at, geo.AroundKm(at, r.nearKm), r.nearKm)
	if err == nil {
		metrics.RecordResolve("nearest", "near")
		return candidate, nil
	}
	if !errors.Is(err, ErrNotFound) {
		metrics.RecordResolve("nearest", "unreachable")
		return models.Candidate{}, err
	}

	if viewport != nil && viewport.Valid() {
		candidate, err = r.closestWithin(ctx, at, []geo.BBox{*viewport}, r.wideKm)
		if err == nil {
			metrics.RecordResolve("nearest", "wide")
			return candidate, nil
		}
		if !errors.Is(err, ErrNotFound) {
			metrics.RecordResolve("nearest", "unreachable")
			return models.Candidate{}, err
		}
	}

	metrics.RecordResolve("nearest", "not_found")
	return models.Candidate{}, ErrNotFound
}

// closestWithin searches boxes for settlements and returns the one closest
// to at, provided it lies within maxKm.
func (r *Resolver) closestWithin(ctx context.Context, at models.Coordinate, boxes []geo.BBox, maxKm float64) (models.Candidate, error) {
	var places []geocoder.Place
	for i := range boxes {
		found, err := r.provider.Search(ctx, geocoder.Query{
			Text:        "city",
			BBox:        &boxes[i],
			FeatureType: "city",
			Limit:       nearestLimit,
		})
		if err != nil {
			return models.Candidate{}, providerError(err)
		}
		places = append(places, found...)
	}

	best := -1
	bestKm := math.Inf(1)
	for i := range places {
		d := geo.HaversineKm(at, places[i].Coordinate())
		if d < bestKm {
			best, bestKm = i, d
		}
	}
	if best < 0 || bestKm > maxKm {
		return models.Candidate{}, ErrNotFound
	}

	logging.Ctx(ctx).Debug().Str("city", places[best].Settlement()).Float64("distance_km", bestKm).Msg("Nearest city found")
	return cityCandidate(places[best].Name, &places[best]), nil
}

// providerError keeps cancellation distinct and maps everything else to
// ErrUnreachable.
func providerError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, ErrUnreachable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}

func firstSegment(displayName string) string {
	seg, _, _ := strings.Cut(displayName, ",")
	return strings.TrimSpace(seg)
}
