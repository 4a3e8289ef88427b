// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/travelmapster/config.yaml",
	"/etc/travelmapster/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultCountriesURL is the public world polygon dataset.
const DefaultCountriesURL = "https://raw.githubusercontent.com/johan/world.geo.json/master/countries.geo.json"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:    "duckdb",
			Path:      "/data/travelmapster.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			SessionStore:      "memory",
			SessionStorePath:  "/data/sessions",
			SessionTTL:        24 * time.Hour,
			TokenTTL:          24 * time.Hour,
			PasswordMinLength: 8,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Geocoder: GeocoderConfig{
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "travelmapster/1.0 (+https://github.com/chefzaid/travelmapster)",
			Language:          "en",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 1,
			CacheSize:         1000,
			CacheTTL:          24 * time.Hour,
		},
		Geo: GeoConfig{
			CountriesPath: "/data/countries.geo.json",
			CountriesURL:  DefaultCountriesURL,
			NearRadiusKm:  50,
			WideRadiusKm:  100,
			DedupRadiusKm: 5,
		},
		Cache: CacheConfig{
			RedisDB: 0,
		},
		Audit: AuditConfig{
			Enabled:       true,
			RetentionDays: 90,
			BufferSize:    1000,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources.
// Priority order (later overrides earlier): defaults, config file, env vars.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// HTTP_PORT -> server.port, NOMINATIM_URL -> geocoder.base_url
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the config file path, or "" when none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated env strings into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (defaults or YAML)
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Database mappings
	"db_driver":         "database.driver",
	"db_path":           "database.path",
	"duckdb_path":       "database.path",
	"database_url":      "database.dsn",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// Server mappings
	"http_port":    "server.port",
	"port":         "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security mappings
	"session_store":       "security.session_store",
	"session_store_path":  "security.session_store_path",
	"session_ttl":         "security.session_ttl",
	"cookie_secure":       "security.cookie_secure",
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"password_min_length": "security.password_min_length",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging mappings
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Geocoder mappings
	"nominatim_url":        "geocoder.base_url",
	"nominatim_user_agent": "geocoder.user_agent",
	"nominatim_language":   "geocoder.language",
	"nominatim_timeout":    "geocoder.timeout",
	"nominatim_rps":        "geocoder.requests_per_second",
	"geocode_cache_size":   "geocoder.cache_size",
	"geocode_cache_ttl":    "geocoder.cache_ttl",

	// Geometry mappings
	"countries_path":  "geo.countries_path",
	"countries_url":   "geo.countries_url",
	"near_radius_km":  "geo.near_radius_km",
	"wide_radius_km":  "geo.wide_radius_km",
	"dedup_radius_km": "geo.dedup_radius_km",

	// Shared cache mappings
	"redis_addr":     "cache.redis_addr",
	"redis_password": "cache.redis_password",
	"redis_db":       "cache.redis_db",

	// Audit mappings
	"audit_enabled":        "audit.enabled",
	"audit_retention_days": "audit.retention_days",
	"audit_buffer_size":    "audit.buffer_size",
	"audit_log_stdout":     "audit.log_to_stdout",
}

// envTransformFunc maps an environment variable name to its koanf path.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}

	// Unmapped keys are skipped so unrelated environment variables never
	// pollute the config tree.
	return ""
}
