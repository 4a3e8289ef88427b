// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

// Package config loads Travelmapster configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every optional setting
//  2. Config File: optional YAML file (config.yaml) for persistent settings
//  3. Environment Variables: override any setting
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load config")
//	}
//	store, err := storefactory.New(cfg)
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Server   ServerConfig   `koanf:"server"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
	Geocoder GeocoderConfig `koanf:"geocoder"`
	Geo      GeoConfig      `koanf:"geo"`
	Cache    CacheConfig    `koanf:"cache"`
	Audit    AuditConfig    `koanf:"audit"`
}

// DatabaseConfig selects and configures the marker store backend.
type DatabaseConfig struct {
	// Driver is one of duckdb, sqlite, postgres. Default: duckdb
	Driver string `koanf:"driver"`

	// Path is the DuckDB or SQLite file path. ":memory:" is accepted.
	Path string `koanf:"path"`

	// DSN is the Postgres connection string (driver=postgres only).
	DSN string `koanf:"dsn"`

	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // Number of DuckDB threads (0 = use NumCPU)
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// SecurityConfig holds authentication, session and rate limit settings.
type SecurityConfig struct {
	// SessionStore is "memory" (default) or "badger".
	SessionStore string `koanf:"session_store"`
	// SessionStorePath is the BadgerDB directory (required when session_store=badger).
	SessionStorePath string        `koanf:"session_store_path"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	CookieSecure     bool          `koanf:"cookie_secure"`

	// JWTSecret signs bearer tokens issued by /api/v1/auth/token.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	PasswordMinLength int `koanf:"password_min_length"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level"`

	// Format is the output format: json or console.
	// Default: json
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// GeocoderConfig configures the Nominatim search provider.
type GeocoderConfig struct {
	BaseURL   string        `koanf:"base_url"`
	UserAgent string        `koanf:"user_agent"`
	Language  string        `koanf:"language"`
	Timeout   time.Duration `koanf:"timeout"`

	// RequestsPerSecond throttles outgoing requests. The public Nominatim
	// usage policy allows at most one per second.
	RequestsPerSecond float64 `koanf:"requests_per_second"`

	CacheSize int           `koanf:"cache_size"`
	CacheTTL  time.Duration `koanf:"cache_ttl"`
}

// GeoConfig locates the country polygon dataset and the resolution radii.
type GeoConfig struct {
	CountriesPath string `koanf:"countries_path"`
	CountriesURL  string `koanf:"countries_url"`

	NearRadiusKm  float64 `koanf:"near_radius_km"`
	WideRadiusKm  float64 `koanf:"wide_radius_km"`
	DedupRadiusKm float64 `koanf:"dedup_radius_km"`
}

// CacheConfig configures the optional shared geocode cache.
type CacheConfig struct {
	// RedisAddr enables the Redis cache when non-empty (host:port).
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
}

// AuditConfig controls the account activity trail.
type AuditConfig struct {
	Enabled bool `koanf:"enabled"`

	// RetentionDays is how long events are kept. 0 keeps them forever.
	RetentionDays int  `koanf:"retention_days"`
	BufferSize    int  `koanf:"buffer_size"`
	LogToStdout   bool `koanf:"log_to_stdout"`
}

// Load reads configuration from defaults, an optional config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
