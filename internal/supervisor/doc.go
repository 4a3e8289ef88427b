// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package supervisor runs Travelmapster's long-lived services under a suture v4
supervisor tree with restart, backoff and graceful shutdown.

# Layout

	RootSupervisor ("travelmapster")
	├── "maintenance-layer"
	│   └── session-cleaner (auth.SessionCleaner)
	├── "messaging-layer"
	│   └── websocket-hub (services.RunnerService)
	└── "api-layer"
	    └── http-server (services.HTTPServerService)

Supervisor events (start, failure, backoff) are logged through sutureslog
into the zerolog-backed slog handler from internal/logging.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddMaintenanceService(auth.NewSessionCleaner(sessions, 10*time.Minute))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    logging.Error().Err(err).Msg("Supervisor stopped")
	}

# Failure handling

Each failure increments a per-supervisor counter that decays over
FailureDecay seconds. Past FailureThreshold the supervisor waits
FailureBackoff before restarting. A service that returns nil is not
restarted.

The marker store is not supervised: it is an embedded database or a
connection pool, and a broken one needs a process restart anyway.
*/
package supervisor
