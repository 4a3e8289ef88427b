// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresImage is the PostgreSQL image used by store tests.
	DefaultPostgresImage = "postgres:16-alpine"

	postgresPort     = "5432/tcp"
	postgresUser     = "travel"
	postgresPassword = "travel"
	postgresDB       = "travelmapster"
)

// PostgresContainer wraps a running PostgreSQL container.
type PostgresContainer struct {
	testcontainers.Container
	DSN string
}

// NewPostgresContainer starts PostgreSQL and waits until it accepts connections.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        DefaultPostgresImage,
		ExposedPorts: []string{postgresPort},
		Env: map[string]string{
			"POSTGRES_USER":     postgresUser,
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDB,
		},
		// The server restarts once after initdb; wait for the second banner.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create postgres container: %w", err)
	}

	host, port, err := hostPort(ctx, container, postgresPort)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("get postgres address: %w", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN: fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, postgresUser, postgresPassword, postgresDB),
	}, nil
}
