// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package visitation derives the set of visited countries from a marker list.
//
// The set is always rebuilt from the full list. Deleting one of two visited
// markers for the same country must keep that country, which a rebuild gets
// right without reference counting.
package visitation

import (
	"sort"

	"github.com/chefzaid/travelmapster/internal/models"
)

// VisitedSet is an immutable set of country names.
type VisitedSet struct {
	names map[string]struct{}
}

// Project returns the names of countries with at least one visited
// country-category marker. The result depends only on set membership.
func Project(markers []models.Marker) VisitedSet {
	names := make(map[string]struct{})
	for i := range markers {
		m := &markers[i]
		if m.Kind == models.KindVisited && m.Category == models.CategoryCountry && m.Label != "" {
			names[m.Label] = struct{}{}
		}
	}
	return VisitedSet{names: names}
}

// Contains reports whether name is visited.
func (s VisitedSet) Contains(name string) bool {
	_, ok := s.names[name]
	return ok
}

// Len returns the number of visited countries.
func (s VisitedSet) Len() int {
	return len(s.names)
}

// Names returns the visited country names sorted alphabetically.
func (s VisitedSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Equal reports whether both sets hold the same names.
func (s VisitedSet) Equal(other VisitedSet) bool {
	if len(s.names) != len(other.names) {
		return false
	}
	for name := range s.names {
		if _, ok := other.names[name]; !ok {
			return false
		}
	}
	return true
}
