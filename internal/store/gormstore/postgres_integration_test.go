// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

//go:build integration

package gormstore

import (
	"context"
	"testing"

	"github.com/chefzaid/travelmapster/internal/testinfra"
)

func TestPostgresStoreContract(t *testing.T) {
	testinfra.SkipIfNoDocker(t)

	ctx := context.Background()
	pg, err := testinfra.NewPostgresContainer(ctx)
	if err != nil {
		t.Fatalf("NewPostgresContainer() error = %v", err)
	}
	defer testinfra.CleanupContainer(t, ctx, pg)

	s, err := OpenPostgres(pg.DSN)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer s.Close()

	if s.Driver() != "postgres" {
		t.Errorf("Driver() = %q", s.Driver())
	}
	runStoreContract(t, s)
}
