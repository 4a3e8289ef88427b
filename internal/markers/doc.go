// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package markers is the marker service used by the HTTP handlers.
//
// It wraps a store.MarkerStore with validation, free-point deduplication,
// metrics and change notifications. Every mutation for a user runs under
// that user's lock, so two concurrent pins for the same account cannot both
// survive the dedup check.
//
// Free-point pinning (PlacePoint, PinPoint) removes every marker of the
// owner within the dedup radius of the new coordinate and inserts the new
// marker in one store transaction. Create, used by the by-name and
// click-to-country flows, never removes anything.
package markers
