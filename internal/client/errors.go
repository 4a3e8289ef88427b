// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
)

// Sentinels matched with errors.Is against *StatusError and transport
// failures.
var (
	// ErrUnauthorized means no session or bad credentials (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means a resolve found nothing (HTTP 404). It is a
	// legitimate empty result, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrUnreachable covers transport failures and HTTP 502 from the
	// search provider. Retrying later may succeed.
	ErrUnreachable = errors.New("service unreachable")

	// ErrConflict means the username is taken (HTTP 409).
	ErrConflict = errors.New("conflict")

	// ErrInvalid means the server rejected the input (HTTP 400).
	ErrInvalid = errors.New("invalid request")
)

// StatusError is a non-2xx response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status to a sentinel.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ErrUnreachable
	case http.StatusConflict:
		return ErrConflict
	case http.StatusBadRequest:
		return ErrInvalid
	default:
		return nil
	}
}

// errorBody accepts both {"error": "msg"} and the /api/v1 envelope
// {"error": {"code", "message"}}.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// parseStatusError builds a StatusError from a failed response body.
func parseStatusError(status int, body []byte) *StatusError {
	se := &StatusError{StatusCode: status, Message: http.StatusText(status)}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Error) == 0 {
		return se
	}

	var msg string
	if err := json.Unmarshal(eb.Error, &msg); err == nil {
		if msg != "" {
			se.Message = msg
		}
		return se
	}

	var env envelopeError
	if err := json.Unmarshal(eb.Error, &env); err == nil {
		se.Code = env.Code
		if env.Message != "" {
			se.Message = env.Message
		}
	}
	return se
}
