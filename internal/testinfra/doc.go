// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package testinfra starts throwaway service containers for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # PostgreSQL
//
//	pg, err := testinfra.NewPostgresContainer(ctx)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer testinfra.CleanupContainer(t, ctx, pg)
//	s, err := gormstore.OpenPostgres(pg.DSN)
//
// # Redis
//
//	rc, err := testinfra.NewRedisContainer(ctx)
//	store, err := cache.NewRedisStore(ctx, cache.RedisConfig{Addr: rc.Addr})
//
// Tests skip when Docker is unavailable.
package testinfra
