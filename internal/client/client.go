// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/models"
)

// maxBodySize caps how much of a response is read (1MB).
const maxBodySize = 1 << 20

// DefaultTimeout bounds each HTTP call.
const DefaultTimeout = 15 * time.Second

// Client talks to a travelmapster server. The session cookie set by Login
// lives in the client's cookie jar, so one Client is one browser tab.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A nil jar is
// replaced with a fresh one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client for baseURL (e.g. http://localhost:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL must be http or https, got %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.httpClient.Jar = jar
	}
	return c, nil
}

// credentials is the register and login body.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/register", nil, credentials{username, password}, nil)
}

// Login starts a cookie session.
func (c *Client) Login(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodPost, "/login", nil, credentials{username, password}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session and drops the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
}

// CurrentUser returns the session's user, or nil without error when no
// session is active.
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user models.User
	err := c.do(ctx, http.MethodGet, "/current_user", nil, nil, &user)
	if isStatus(err, http.StatusUnauthorized) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListMarkers returns the caller's markers in insertion order.
func (c *Client) ListMarkers(ctx context.Context) ([]models.Marker, error) {
	var list []models.Marker
	if err := c.do(ctx, http.MethodGet, "/getMarkers", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddMarker stores a marker and returns its id.
func (c *Client) AddMarker(ctx context.Context, fields models.MarkerFields) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/addMarker", nil, fields, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// DeleteMarker removes one of the caller's markers. A foreign or unknown
// id reports false.
func (c *Client) DeleteMarker(ctx context.Context, id int64) (bool, error) {
	var out struct {
		Deleted bool `json:"deleted"`
	}
	path := "/deleteMarker/" + strconv.FormatInt(id, 10)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, &out); err != nil {
		return false, err
	}
	return out.Deleted, nil
}

// ResolveClick names the country under a click.
func (c *Client) ResolveClick(ctx context.Context, at models.Coordinate) (models.Candidate, error) {
	var cand models.Candidate
	err := c.doEnvelope(ctx, http.MethodGet, "/api/v1/resolve/click", coordinateQuery(at), nil, &cand)
	return cand, err
}

// ResolveText resolves a typed country or city name.
func (c *Client) ResolveText(ctx context.Context, query string, category models.Category) (models.Candidate, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("kind", string(category))
	var cand models.Candidate
	err := c.doEnvelope(ctx, http.MethodGet, "/api/v1/resolve/search", q, nil, &cand)
	return cand, err
}

// NearestCity finds the city closest to a click. viewport may be nil.
func (c *Client) NearestCity(ctx context.Context, at models.Coordinate, viewport *geo.BBox) (models.Candidate, error) {
	q := coordinateQuery(at)
	if viewport != nil {
		q.Set("viewport", viewport.String())
	}
	var cand models.Candidate
	err := c.doEnvelope(ctx, http.MethodGet, "/api/v1/resolve/nearest", q, nil, &cand)
	return cand, err
}

// pinBody is the body of POST /api/v1/markers/pin.
type pinBody struct {
	Lat      float64     `json:"lat"`
	Lng      float64     `json:"lng"`
	Kind     models.Kind `json:"type"`
	Viewport string      `json:"viewport,omitempty"`
}

// PinPoint pins the city nearest a free click, replacing nearby markers.
func (c *Client) PinPoint(ctx context.Context, at models.Coordinate, kind models.Kind, viewport *geo.BBox) (*markers.Placement, error) {
	body := pinBody{Lat: at.Lat, Lng: at.Lng, Kind: kind}
	if viewport != nil {
		body.Viewport = viewport.String()
	}
	var placement markers.Placement
	if err := c.doEnvelope(ctx, http.MethodPost, "/api/v1/markers/pin", nil, body, &placement); err != nil {
		return nil, err
	}
	return &placement, nil
}

// Visited returns the server-side projection of visited country names.
func (c *Client) Visited(ctx context.Context) ([]string, error) {
	var out struct {
		Countries []string `json:"countries"`
	}
	if err := c.doEnvelope(ctx, http.MethodGet, "/api/v1/visited", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Countries, nil
}

func coordinateQuery(at models.Coordinate) url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(at.Lng, 'f', -1, 64))
	return q
}

// envelope is the /api/v1 success shape; errors go through parseStatusError.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// doEnvelope is do for /api/v1 routes, unwrapping data into out.
func (c *Client) doEnvelope(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var env envelope
	if err := c.do(ctx, method, path, query, body, &env); err != nil {
		return err
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", path, err)
	}
	return nil
}

// do sends one JSON request. Non-2xx responses become *StatusError;
// transport failures wrap ErrUnreachable.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := *c.baseURL
	u.Path += path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrUnreachable, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseStatusError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func isStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == status
}
