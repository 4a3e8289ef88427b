// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package validation validates request structs with go-playground/validator.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Field names in errors are the
// JSON names, so messages read "lat must be a valid latitude" rather than
// using the Go field name.
//
// Custom tags:
//
//	notblank  string is non-empty after trimming whitespace
//	bbox      "south,west,north,east" viewport accepted by geo.ParseBBox
//
// Usage:
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, verr)
//	    return
//	}
package validation
