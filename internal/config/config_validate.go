// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateGeocoder,
		c.validateGeo,
		c.validateAudit,
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validDrivers defines the supported store backends
var validDrivers = map[string]bool{
	"duckdb":   true,
	"sqlite":   true,
	"postgres": true,
}

func (c *Config) validateDatabase() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("DB_DRIVER must be one of: duckdb, sqlite, postgres")
	}
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
		}
	default:
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH is required when DB_DRIVER=%s", c.Database.Driver)
		}
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validSessionStores defines the supported session backends
var validSessionStores = map[string]bool{
	"memory": true,
	"badger": true,
}

// minJWTSecretLength is the minimum HS256 secret length accepted in production.
const minJWTSecretLength = 32

func (c *Config) validateSecurity() error {
	if !validSessionStores[c.Security.SessionStore] {
		return fmt.Errorf("SESSION_STORE must be one of: memory, badger")
	}
	if c.Security.SessionStore == "badger" && c.Security.SessionStorePath == "" {
		return fmt.Errorf("SESSION_STORE_PATH is required when SESSION_STORE=badger")
	}
	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.Security.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be at least 1")
	}
	if err := c.validateJWTSecret(); err != nil {
		return err
	}
	if err := c.validateCORS(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validateJWTSecret requires a real secret in production. Outside production
// an empty secret disables bearer tokens.
func (c *Config) validateJWTSecret() error {
	if !c.IsProduction() {
		return nil
	}
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters when ENVIRONMENT=production", minJWTSecretLength)
	}
	if containsPlaceholder(c.Security.JWTSecret) {
		return fmt.Errorf("JWT_SECRET contains a placeholder value; set a real secret")
	}
	return nil
}

// validateCORS rejects wildcard origins in production: session cookies would
// otherwise be usable from any site.
func (c *Config) validateCORS() error {
	if c.hasWildcardCORS() && c.IsProduction() {
		return fmt.Errorf("CORS_ORIGINS=* (wildcard) is not allowed in production. " +
			"Set specific origins: CORS_ORIGINS=https://maps.example.com")
	}
	return nil
}

// hasWildcardCORS checks if CORS is configured with wildcard origins
func (c *Config) hasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// ShouldWarnAboutCORS returns true if CORS configuration should be logged
// as a concern at startup.
func (c *Config) ShouldWarnAboutCORS() bool {
	return c.hasWildcardCORS()
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

func (c *Config) validateGeocoder() error {
	if err := validateHTTPURL(c.Geocoder.BaseURL, "NOMINATIM_URL"); err != nil {
		return err
	}
	if c.Geocoder.UserAgent == "" {
		return fmt.Errorf("NOMINATIM_USER_AGENT is required by the Nominatim usage policy")
	}
	if c.Geocoder.RequestsPerSecond <= 0 {
		return fmt.Errorf("NOMINATIM_RPS must be positive")
	}
	if c.Geocoder.Timeout <= 0 {
		return fmt.Errorf("NOMINATIM_TIMEOUT must be positive")
	}
	if c.Geocoder.CacheSize < 0 {
		return fmt.Errorf("GEOCODE_CACHE_SIZE must not be negative")
	}
	return nil
}

func (c *Config) validateGeo() error {
	if c.Geo.CountriesPath == "" {
		return fmt.Errorf("COUNTRIES_PATH is required")
	}
	if c.Geo.CountriesURL != "" {
		if _, err := url.ParseRequestURI(c.Geo.CountriesURL); err != nil {
			return fmt.Errorf("COUNTRIES_URL is invalid: %w", err)
		}
	}
	radii := []struct {
		name  string
		value float64
	}{
		{"NEAR_RADIUS_KM", c.Geo.NearRadiusKm},
		{"WIDE_RADIUS_KM", c.Geo.WideRadiusKm},
		{"DEDUP_RADIUS_KM", c.Geo.DedupRadiusKm},
	}
	for _, r := range radii {
		if r.value <= 0 {
			return fmt.Errorf("%s must be positive", r.name)
		}
	}
	if c.Geo.WideRadiusKm < c.Geo.NearRadiusKm {
		return fmt.Errorf("WIDE_RADIUS_KM must be at least NEAR_RADIUS_KM")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must not be negative")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be positive")
	}
	return nil
}

// validateHTTPURL validates that a base URL is http(s) with a host and
// no query string.
func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsedURL.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters, remove: ?%s", fieldName, parsedURL.RawQuery)
	}
	return nil
}

// placeholderPatterns defines common placeholder patterns that indicate
// the user forgot to set a real value.
var placeholderPatterns = []string{
	"REPLACE",
	"CHANGEME",
	"CHANGE_ME",
	"YOUR_SECRET",
	"PLACEHOLDER",
	"EXAMPLE",
}

func containsPlaceholder(value string) bool {
	upperValue := strings.ToUpper(value)
	for _, pattern := range placeholderPatterns {
		if strings.Contains(upperValue, pattern) {
			return true
		}
	}
	return false
}
