// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

/*
Package api exposes Travelmapster over HTTP with a chi router.

Two route families share one middleware stack (request id, access log,
panic recovery, CORS, Prometheus, gzip, session authentication):

Unversioned routes keep the request and response shapes browser clients
already use. Errors are {"error": message}.

	POST   /register            {"username","password"} -> {"message":"registered"}
	POST   /login               {"username","password"} -> {"id","username"} + cookie
	POST   /logout              -> {"message":"logged out"}
	GET    /current_user        -> {"id","username"} | 401 {}
	POST   /addMarker           marker fields -> {"id"}
	DELETE /deleteMarker/{id}   -> {"deleted": bool}
	GET    /getMarkers          -> [marker...]

/api/v1 routes answer with the envelope
{success, data, error{code, message, request_id}, meta}:

	GET  /api/v1/resolve/click?lat&lng
	GET  /api/v1/resolve/search?q&kind
	GET  /api/v1/resolve/nearest?lat&lng&viewport
	POST /api/v1/markers/pin
	GET  /api/v1/visited
	POST /api/v1/auth/token
	GET  /api/v1/ws
	GET  /api/v1/health/live, /api/v1/health/ready

Domain errors map to status codes in errors.go: resolver.ErrNotFound is 404,
an unreachable geocoder is 502 with retryable set, invalid input is 400
VALIDATION_FAILED, a taken username is 409 and missing or bad credentials
are 401. A marker id owned by someone else is never an error; deletion just
reports false.

/metrics serves Prometheus metrics.
*/
package api
