// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package geocoder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/metrics"
)

// maxErrorBodySize is the maximum size of error response body to read (64KB)
const maxErrorBodySize = 64 * 1024

// defaultLimit is the number of results requested when Query.Limit is zero.
const defaultLimit = 10

// readBodyForError reads a bounded prefix of an error response body.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// Client talks to a Nominatim /search endpoint.
type Client struct {
	baseURL   string
	userAgent string
	language  string
	client    *http.Client
	limiter   *rate.Limiter

	maxRetries     int
	retryBaseDelay time.Duration
}

// NewClient creates a Nominatim client throttled to cfg.RequestsPerSecond.
func NewClient(cfg config.GeocoderConfig) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		client: &http.Client{
			Timeout: timeout,
		},
		limiter:        rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries:     3,
		retryBaseDelay: time.Second,
	}
}

// nominatimResult is the raw wire shape; Nominatim encodes coordinates as strings.
type nominatimResult struct {
	PlaceID     int64   `json:"place_id"`
	DisplayName string  `json:"display_name"`
	Name        string  `json:"name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	AddressType string  `json:"addresstype"`
	Importance  float64 `json:"importance"`
	Address     Address `json:"address"`
}

// Search implements Provider.
func (c *Client) Search(ctx context.Context, q Query) ([]Place, error) {
	start := time.Now()

	resp, err := c.doRequestWithRateLimit(ctx, c.searchURL(q))
	if err != nil {
		metrics.RecordGeocoderRequest("error", time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordGeocoderRequest("error", time.Since(start))
		body := readBodyForError(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnreachable, resp.StatusCode, string(body))
	}

	var raw []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		metrics.RecordGeocoderRequest("error", time.Since(start))
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnreachable, err)
	}

	places := make([]Place, 0, len(raw))
	for i := range raw {
		p, ok := raw[i].toPlace()
		if !ok {
			logging.Debug().Int64("place_id", raw[i].PlaceID).Msg("Skipping result with unparsable coordinates")
			continue
		}
		places = append(places, p)
	}

	result := "ok"
	if len(places) == 0 {
		result = "empty"
	}
	metrics.RecordGeocoderRequest(result, time.Since(start))
	return places, nil
}

func (r *nominatimResult) toPlace() (Place, bool) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Place{}, false
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Place{}, false
	}
	return Place{
		PlaceID:     r.PlaceID,
		DisplayName: r.DisplayName,
		Name:        r.Name,
		Lat:         lat,
		Lon:         lon,
		Class:       r.Class,
		Type:        r.Type,
		AddressType: r.AddressType,
		Importance:  r.Importance,
		Address:     r.Address,
	}, true
}

// searchURL builds /search?format=json&addressdetails=1&q=...
func (c *Client) searchURL(q Query) string {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("addressdetails", "1")
	params.Set("q", q.Text)

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))

	if q.FeatureType != "" {
		params.Set("featureType", q.FeatureType)
	}
	if q.BBox != nil {
		// viewbox is lon/lat: west,south,east,north
		params.Set("viewbox", strings.Join([]string{
			strconv.FormatFloat(q.BBox.West, 'f', 6, 64),
			strconv.FormatFloat(q.BBox.South, 'f', 6, 64),
			strconv.FormatFloat(q.BBox.East, 'f', 6, 64),
			strconv.FormatFloat(q.BBox.North, 'f', 6, 64),
		}, ","))
		params.Set("bounded", "1")
	}

	return c.baseURL + "/search?" + params.Encode()
}

// doRequestWithRateLimit performs a throttled GET with exponential backoff
// for HTTP 429 responses. Retry-After (seconds) overrides the backoff.
func (c *Client) doRequestWithRateLimit(ctx context.Context, reqURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if c.language != "" {
			req.Header.Set("Accept-Language", c.language)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		_ = resp.Body.Close()
		metrics.GeocoderRequests.WithLabelValues("throttled").Inc()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}
		logging.Warn().Int("attempt", attempt+1).Dur("delay", delay).Msg("Search provider rate limited, backing off")

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}
