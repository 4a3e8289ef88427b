// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package models defines the data shared by the store, the services and the
HTTP API.

# Markers

A Marker is a labeled point owned by one user. Kind separates places
already visited from wishlist entries; Category separates countries from
cities. On the wire the category is capitalised ("Country", "City") and
parsing accepts any casing:

	var m models.Marker
	_ = json.Unmarshal([]byte(`{"lat":-9.19,"lng":-75.02,"type":"visited","name":"Peru","category":"country"}`), &m)
	// m.Category == models.CategoryCountry

MarkerFields carries the user-editable part of a marker. Normalize trims the
label and Validate rejects out-of-range coordinates, unknown kinds or
categories, and empty or oversized labels. Every failure wraps
ErrInvalidMarker.

# Candidates

A Candidate is what the resolver proposes for a click: a coordinate, a label
and a category, not yet persisted. Candidate.Fields turns it into
MarkerFields for a chosen Kind.

# Users

User carries the bcrypt hash but never serializes it. Credentials is the
request body of the register, login and token endpoints and is checked
with go-playground/validator tags.
*/
package models
