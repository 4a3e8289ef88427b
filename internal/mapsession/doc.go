// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package mapsession holds the client-side state of one map view.

A Session owns the logged-in user, the loaded marker list and the
visited-country set projected from it. Nothing is global: every tab,
test or tool creates its own Session over its own Backend (normally a
*client.Client).

# States

	Unauthenticated --Login/Restore--> Authenticated --Logout--> Unauthenticated

Register never changes state. Logout clears local state even when the
server call fails. A 401 from the server at any point means the session
expired and also returns the Session to Unauthenticated.

# Mutations

PinCountryAt, PinCountryByName, PinCityByName, PinCandidate, PinPoint and
Delete return ErrUnauthorized without touching the backend unless the
session is Authenticated. After a successful mutation the full marker
list is fetched again and the visited set recomputed from scratch;
nothing is patched incrementally. A click that resolves to nothing is
ignored (nil, nil); a failed lookup is an error and sets LastError.

# Search

Search is debounced: the query fires after 300ms without another call.
Only the newest query's result reaches Options.OnSearch, even when an
older request finishes later. Close cancels anything pending.

# Rendering

Options.OnChange receives a View after each reload or state change. View
values are snapshots and never change after they are returned.
*/
package mapsession
