// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package storefactory opens the store backend selected by configuration.
package storefactory

import (
	"fmt"

	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/database"
	"github.com/chefzaid/travelmapster/internal/store"
	"github.com/chefzaid/travelmapster/internal/store/gormstore"
)

// New opens the backend named by cfg.Database.Driver.
func New(cfg *config.Config) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Database.Driver {
	case "", "duckdb":
		var db *database.DB
		db, err = database.New(&cfg.Database)
		s = db
	case "sqlite":
		var gs *gormstore.Store
		gs, err = gormstore.OpenSQLite(cfg.Database.Path)
		s = gs
	case "postgres":
		var gs *gormstore.Store
		gs, err = gormstore.OpenPostgres(cfg.Database.DSN)
		s = gs
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Database.Driver)
	}
	if err != nil {
		// A typed nil must not escape as a non-nil interface.
		return nil, err
	}
	return s, nil
}
