// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package api

import (
	"errors"
	"net/http"

	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/models"
	"github.com/chefzaid/travelmapster/internal/resolver"
	"github.com/chefzaid/travelmapster/internal/store"
	"github.com/chefzaid/travelmapster/internal/validation"
)

// errorClass is the HTTP rendering of a domain error.
type errorClass struct {
	status  int
	code    string
	message string
	details interface{}
}

// classify maps domain sentinels to status codes. Unknown errors are 500s
// whose message never leaks the cause.
func classify(err error) errorClass {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		apiErr := verr.ToAPIError()
		return errorClass{http.StatusBadRequest, ErrCodeValidationFailed, apiErr.Message, apiErr.Details}
	case errors.Is(err, errMalformedBody):
		return errorClass{http.StatusBadRequest, ErrCodeBadRequest, "malformed JSON body", nil}
	case errors.Is(err, models.ErrInvalidMarker),
		errors.Is(err, geo.ErrInvalidBBox),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrInvalidUsername):
		return errorClass{http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil}
	case errors.Is(err, resolver.ErrNotFound):
		return errorClass{http.StatusNotFound, ErrCodeNotFound, "not found", nil}
	case errors.Is(err, resolver.ErrUnreachable):
		return errorClass{http.StatusBadGateway, ErrCodeExternalServiceFail, "search provider unreachable, try again", nil}
	case errors.Is(err, auth.ErrNoCredentials):
		return errorClass{http.StatusUnauthorized, ErrCodeUnauthorized, "authentication required", nil}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errorClass{http.StatusUnauthorized, ErrCodeUnauthorized, "invalid username or password", nil}
	case errors.Is(err, store.ErrUserExists):
		return errorClass{http.StatusConflict, ErrCodeConflict, "username already taken", nil}
	case errors.Is(err, auth.ErrTokensDisabled):
		return errorClass{http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "bearer tokens are disabled", nil}
	default:
		return errorClass{http.StatusInternalServerError, ErrCodeInternalError, "internal error", nil}
	}
}

// respondError writes err in the /api/v1 envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	logFailure(r, c, err)
	NewResponseWriter(w, r).ErrorWithDetails(c.status, c.code, c.message, c.details)
}

// respondLegacyError writes err as {"error": message} for the unversioned
// routes.
func respondLegacyError(w http.ResponseWriter, r *http.Request, err error) {
	c := classify(err)
	logFailure(r, c, err)
	writeLegacyError(w, c.status, c.message)
}

func logFailure(r *http.Request, c errorClass, err error) {
	switch {
	case c.status == http.StatusBadGateway:
		logging.CtxWarn(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Upstream failure")
	case c.status >= http.StatusInternalServerError:
		logging.CtxErr(r.Context(), err).Str("path", r.URL.Path).Int("status", c.status).Msg("Request failed")
	default:
		logging.CtxDebug(r.Context()).Err(err).Str("path", r.URL.Path).Int("status", c.status).Msg("Request rejected")
	}
}
