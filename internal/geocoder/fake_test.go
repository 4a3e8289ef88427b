// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geocoder

import (
	"context"
	"sync"
)

// fakeProvider returns canned results and counts calls.
type fakeProvider struct {
	mu      sync.Mutex
	places  []Place
	err     error
	calls   int
	queries []Query
}

func (f *fakeProvider) Search(_ context.Context, q Query) ([]Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.places, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
