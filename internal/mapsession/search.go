// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package mapsession

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chefzaid/travelmapster/internal/models"
)

// SearchResult is the outcome of the latest search. Err wraps
// client.ErrNotFound when nothing matched.
type SearchResult struct {
	Query     string
	Category  models.Category
	Candidate models.Candidate
	Err       error
}

type resolveFunc func(ctx context.Context, query string, category models.Category) (models.Candidate, error)

// debouncer fires run after wait of quiet and delivers only the result of
// the newest query. Each Schedule cancels the previous timer and any
// in-flight request.
type debouncer struct {
	base    context.Context
	wait    time.Duration
	run     resolveFunc
	deliver func(SearchResult)

	mu       sync.Mutex
	seq      uint64
	timer    *time.Timer
	inflight context.CancelFunc
}

func newDebouncer(base context.Context, wait time.Duration, run resolveFunc, deliver func(SearchResult)) *debouncer {
	return &debouncer{base: base, wait: wait, run: run, deliver: deliver}
}

// Schedule supersedes everything pending with query.
func (d *debouncer) Schedule(query string, category models.Category) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	seq := d.seq
	d.stopLocked()
	d.timer = time.AfterFunc(d.wait, func() { d.fire(seq, query, category) })
}

// Cancel drops the pending query and any in-flight request.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	d.stopLocked()
}

func (d *debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.inflight != nil {
		d.inflight()
		d.inflight = nil
	}
}

func (d *debouncer) fire(seq uint64, query string, category models.Category) {
	d.mu.Lock()
	if seq != d.seq || d.base.Err() != nil {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(d.base)
	d.inflight = cancel
	d.mu.Unlock()
	defer cancel()

	candidate, err := d.run(ctx, query, category)

	// deliver runs under mu so a Schedule cannot slip in between the
	// sequence check and the callback.
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq || errors.Is(err, context.Canceled) {
		return
	}
	d.inflight = nil
	d.deliver(SearchResult{Query: query, Category: category, Candidate: candidate, Err: err})
}

// Search resolves query after the debounce window. Typing again within
// the window restarts it; results of superseded queries are never
// delivered. An empty query cancels pending work.
func (s *Session) Search(query string, category models.Category) error {
	if _, err := s.requireAuth(); err != nil {
		return err
	}
	if !category.Valid() {
		category = models.CategoryCountry
	}
	query = strings.TrimSpace(query)
	if query == "" {
		s.search.Cancel()
		return nil
	}
	s.search.Schedule(query, category)
	return nil
}

func (s *Session) searchDone(result SearchResult) {
	if result.Err != nil {
		result.Err = s.fail(result.Err)
	} else {
		s.succeed()
	}
	if s.onSearch != nil {
		s.onSearch(result)
	}
}
