// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package services

import (
	"context"
)

// ContextRunner is anything with a blocking, context-scoped run loop.
// *websocket.Hub satisfies it through RunWithContext.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService supervises a ContextRunner under a fixed name.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner as a suture.Service called name.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewWebSocketHubService supervises the marker notification hub.
//
//	hub := websocket.NewHub()
//	tree.AddMessagingService(services.NewWebSocketHubService(hub))
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return NewRunnerService("websocket-hub", hub)
}

// Serve delegates to the runner. Its error, including ctx.Err() on
// shutdown, is returned unchanged so the supervisor can tell a crash from
// a stop.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.RunWithContext(ctx)
}

// String names the service in supervisor events.
func (r *RunnerService) String() string {
	return r.name
}
