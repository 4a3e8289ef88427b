// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package markers

import (
	"context"
	"fmt"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/store"
	"github.com/chefzaid/travelmapster/internal/visitation"
)

// DefaultDedupRadiusKm is the radius within which a new free point
// supersedes existing markers.
const DefaultDedupRadiusKm = 5.0

// Change reasons carried by notifications.
const (
	ReasonCreated  = "created"
	ReasonDeleted  = "deleted"
	ReasonReplaced = "replaced"
)

// CityResolver finds the settlement nearest to a free click.
type CityResolver interface {
	NearestCity(ctx context.Context, at models.Coordinate, viewport *geo.BBox) (models.Candidate, error)
}

// CountryMatcher maps a country label to the polygon it names or, failing
// that, the polygon containing the marker.
type CountryMatcher interface {
	Snap(label string, at models.Coordinate) (geo.Country, bool)
}

// Notifier is told about every successful mutation.
type Notifier interface {
	MarkersChanged(userID int64, reason string, markerID int64)
}

// Notifiers fans every change out to each notifier in order.
type Notifiers []Notifier

// MarkersChanged implements Notifier.
func (ns Notifiers) MarkersChanged(userID int64, reason string, markerID int64) {
	for _, n := range ns {
		n.MarkersChanged(userID, reason, markerID)
	}
}

// Options configures a Service.
type Options struct {
	DedupRadiusKm float64
	Notifier      Notifier
	// Countries snaps country labels to polygon names. Nil stores labels
	// as given.
	Countries CountryMatcher
}

// Service coordinates marker mutations for all users.
type Service struct {
	store    store.MarkerStore
	resolver  CityResolver
	countries CountryMatcher
	notifier  Notifier
	dedupKm   float64
	locks     *userLocks
}

// New creates a Service. resolver may be nil when PlacePoint is unused.
func New(st store.MarkerStore, resolver CityResolver, opts Options) *Service {
	if opts.DedupRadiusKm <= 0 {
		opts.DedupRadiusKm = DefaultDedupRadiusKm
	}
	return &Service{
		store:     st,
		resolver:  resolver,
		countries: opts.Countries,
		notifier:  opts.Notifier,
		dedupKm:   opts.DedupRadiusKm,
		locks:     newUserLocks(),
	}
}

// prepare normalizes and validates fields, then rewrites a country label
// to its polygon name. A country label matching no polygon is invalid.
func (s *Service) prepare(fields models.MarkerFields) (models.MarkerFields, error) {
	fields = fields.Normalize()
	if err := fields.Validate(); err != nil {
		return fields, err
	}
	if fields.Category != models.CategoryCountry || s.countries == nil {
		return fields, nil
	}
	country, ok := s.countries.Snap(fields.Label, models.Coordinate{Lat: fields.Lat, Lng: fields.Lng})
	if !ok || country.Name == "" {
		return fields, fmt.Errorf("%w: unknown country %q", models.ErrInvalidMarker, fields.Label)
	}
	fields.Label = country.Name
	return fields, nil
}

// Placement is the result of a free-point pin.
type Placement struct {
	Marker  *models.Marker `json:"marker"`
	Removed int            `json:"removed"`
}

// Create validates fields and stores a new marker without deduplication.
func (s *Service) Create(ctx context.Context, ownerID int64, fields models.MarkerFields) (*models.Marker, error) {
	fields, err := s.prepare(fields)
	if err != nil {
		metrics.RecordMarkerOperation("create", "invalid")
		return nil, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	m, err := s.store.CreateMarker(ctx, ownerID, fields)
	if err != nil {
		metrics.RecordMarkerOperation("create", "error")
		return nil, fmt.Errorf("create marker: %w", err)
	}

	metrics.RecordMarkerOperation("create", "success")
	s.notify(ownerID, ReasonCreated, m.ID)
	return m, nil
}

// PinPoint stores a free-point marker, first removing every marker of the
// owner within the dedup radius of the new coordinate. Removal and insert
// are one transaction.
func (s *Service) PinPoint(ctx context.Context, ownerID int64, fields models.MarkerFields) (*Placement, error) {
	fields, err := s.prepare(fields)
	if err != nil {
		metrics.RecordMarkerOperation("pin", "invalid")
		return nil, err
	}

	unlock := s.locks.lock(ownerID)
	defer unlock()

	existing, err := s.store.ListMarkers(ctx, ownerID)
	if err != nil {
		metrics.RecordMarkerOperation("pin", "error")
		return nil, fmt.Errorf("list markers: %w", err)
	}

	at := models.Coordinate{Lat: fields.Lat, Lng: fields.Lng}
	nearby := geo.Within(existing, at, s.dedupKm)
	removeIDs := make([]int64, len(nearby))
	for i := range nearby {
		removeIDs[i] = nearby[i].ID
	}

	m, removed, err := s.store.ReplaceMarkers(ctx, ownerID, removeIDs, fields)
	if err != nil {
		metrics.RecordMarkerOperation("pin", "error")
		return nil, fmt.Errorf("replace markers: %w", err)
	}

	metrics.RecordMarkerOperation("pin", "success")
	metrics.RecordDedupRemoved(removed)
	if removed > 0 {
		logging.Ctx(ctx).Debug().
			Int64("user_id", ownerID).
			Int("removed", removed).
			Float64("radius_km", s.dedupKm).
			Msg("Superseded nearby markers")
		s.notify(ownerID, ReasonReplaced, m.ID)
	} else {
		s.notify(ownerID, ReasonCreated, m.ID)
	}
	return &Placement{Marker: m, Removed: removed}, nil
}

// PlacePoint resolves the city nearest to a free click and pins it.
// Resolution errors (resolver.ErrNotFound, resolver.ErrUnreachable) are
// returned unwrapped by the resolver and leave the store untouched.
func (s *Service) PlacePoint(ctx context.Context, ownerID int64, at models.Coordinate, kind models.Kind, viewport *geo.BBox) (*Placement, error) {
	if s.resolver == nil {
		return nil, fmt.Errorf("place point: no city resolver configured")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: type must be visited or wishlist, got %q", models.ErrInvalidMarker, kind)
	}

	candidate, err := s.resolver.NearestCity(ctx, at, viewport)
	if err != nil {
		metrics.RecordMarkerOperation("pin", "unresolved")
		return nil, err
	}
	return s.PinPoint(ctx, ownerID, candidate.Fields(kind))
}

// Delete removes the marker if it belongs to ownerID. A foreign or
// unknown id reports false.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) (bool, error) {
	unlock := s.locks.lock(ownerID)
	defer unlock()

	deleted, err := s.store.DeleteMarker(ctx, ownerID, id)
	if err != nil {
		metrics.RecordMarkerOperation("delete", "error")
		return false, fmt.Errorf("delete marker: %w", err)
	}
	if !deleted {
		metrics.RecordMarkerOperation("delete", "not_owned")
		return false, nil
	}

	metrics.RecordMarkerOperation("delete", "success")
	s.notify(ownerID, ReasonDeleted, id)
	return true, nil
}

// List returns the owner's markers in insertion order.
func (s *Service) List(ctx context.Context, ownerID int64) ([]models.Marker, error) {
	markers, err := s.store.ListMarkers(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	return markers, nil
}

// Visited projects the owner's current markers to visited country names.
func (s *Service) Visited(ctx context.Context, ownerID int64) (visitation.VisitedSet, error) {
	markers, err := s.List(ctx, ownerID)
	if err != nil {
		return visitation.VisitedSet{}, err
	}
	return visitation.Project(markers), nil
}

func (s *Service) notify(ownerID int64, reason string, markerID int64) {
	if s.notifier != nil {
		s.notifier.MarkersChanged(ownerID, reason, markerID)
	}
}
