// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package services adapts Travelmapster's long-running components to the
suture.Service interface so the supervisor tree can start, restart and stop
them.

  - HTTPServerService runs an *http.Server and shuts it down gracefully.
  - RunnerService runs any RunWithContext loop, such as the websocket hub.

auth.SessionCleaner already implements suture.Service and is added to the
tree directly.
*/
package services
