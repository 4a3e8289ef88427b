// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package mapsession

import (
	"context"
	"errors"

	"github.com/chefzaid/travelmapster/internal/client"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/models"
)

// Every mutation requires Authenticated (ErrUnauthorized otherwise, with no
// backend call) and is followed by a full reload and re-projection.

// PinCountryAt pins the country under a click. A click outside every
// country returns nil, nil.
func (s *Session) PinCountryAt(ctx context.Context, at models.Coordinate, kind models.Kind) (*models.Marker, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	candidate, err := s.backend.ResolveClick(ctx, at)
	if errors.Is(err, client.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(err)
	}
	return s.add(ctx, candidate, kind)
}

// PinCountryByName resolves a typed country name and pins it.
func (s *Session) PinCountryByName(ctx context.Context, name string, kind models.Kind) (*models.Marker, error) {
	return s.pinByName(ctx, name, models.CategoryCountry, kind)
}

// PinCityByName resolves a typed city name and pins it as "City, Country".
func (s *Session) PinCityByName(ctx context.Context, name string, kind models.Kind) (*models.Marker, error) {
	return s.pinByName(ctx, name, models.CategoryCity, kind)
}

// PinCandidate pins a candidate already resolved, typically a search
// result.
func (s *Session) PinCandidate(ctx context.Context, candidate models.Candidate, kind models.Kind) (*models.Marker, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	return s.add(ctx, candidate, kind)
}

func (s *Session) pinByName(ctx context.Context, name string, category models.Category, kind models.Kind) (*models.Marker, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	candidate, err := s.backend.ResolveText(ctx, name, category)
	if err != nil {
		return nil, s.fail(err)
	}
	return s.add(ctx, candidate, kind)
}

func (s *Session) add(ctx context.Context, candidate models.Candidate, kind models.Kind) (*models.Marker, error) {
	fields := candidate.Fields(kind)
	id, err := s.backend.AddMarker(ctx, fields)
	if err != nil {
		return nil, s.fail(err)
	}
	marker := &models.Marker{
		ID:       id,
		Lat:      fields.Lat,
		Lng:      fields.Lng,
		Kind:     fields.Kind,
		Label:    fields.Label,
		Category: fields.Category,
	}
	return marker, s.Reload(ctx)
}

// PinPoint pins the city nearest a free click. The server replaces the
// user's markers within the dedup radius. Nothing near the click returns
// nil, nil.
func (s *Session) PinPoint(ctx context.Context, at models.Coordinate, kind models.Kind, viewport *geo.BBox) (*markers.Placement, error) {
	if _, err := s.requireAuth(); err != nil {
		return nil, err
	}
	placement, err := s.backend.PinPoint(ctx, at, kind, viewport)
	if errors.Is(err, client.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(err)
	}
	return placement, s.Reload(ctx)
}

// Delete removes one of the user's markers. A foreign or unknown id
// reports false.
func (s *Session) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := s.requireAuth(); err != nil {
		return false, err
	}
	deleted, err := s.backend.DeleteMarker(ctx, id)
	if err != nil {
		return false, s.fail(err)
	}
	return deleted, s.Reload(ctx)
}
