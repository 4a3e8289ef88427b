// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/chefzaid/travelmapster/internal/api"
	"github.com/chefzaid/travelmapster/internal/audit"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/cache"
	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/database"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/store"
)

// initTokens returns the bearer token manager, or nil when no JWT secret
// is configured. Production deployments must configure one.
func initTokens(cfg *config.Config) (*auth.JWTManager, error) {
	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if errors.Is(err, auth.ErrTokensDisabled) {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("JWT_SECRET is required in production: %w", err)
		}
		logging.Warn().Msg("JWT_SECRET not set, bearer tokens disabled (session cookies only)")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("initialize JWT manager: %w", err)
	}
	logging.Info().Dur("ttl", cfg.Security.TokenTTL).Msg("Bearer tokens enabled")
	return tokens, nil
}

func passwordPolicy(cfg *config.Config) auth.PasswordPolicy {
	policy := auth.DefaultPasswordPolicy()
	if cfg.Security.PasswordMinLength > 0 {
		policy.MinLength = cfg.Security.PasswordMinLength
	}
	return policy
}

func sessionConfig(cfg *config.Config) *auth.SessionMiddlewareConfig {
	sc := auth.DefaultSessionMiddlewareConfig()
	if cfg.Security.SessionTTL > 0 {
		sc.SessionTTL = cfg.Security.SessionTTL
	}
	sc.CookieSecure = cfg.Security.CookieSecure
	return sc
}

func middlewareConfig(cfg *config.Config) *api.ChiMiddlewareConfig {
	mc := api.DefaultChiMiddlewareConfig()
	mc.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mc.RateLimitRequests = cfg.Security.RateLimitReqs
	mc.RateLimitWindow = cfg.Security.RateLimitWindow
	mc.RateLimitDisabled = cfg.Security.RateLimitDisabled
	return mc
}

// initAudit returns the activity logger, or nil when auditing is
// disabled. Events live in DuckDB when that is the store, in memory
// otherwise.
func initAudit(ctx context.Context, cfg *config.Config, st store.Store) (*audit.Logger, error) {
	if !cfg.Audit.Enabled {
		logging.Info().Msg("Audit logging disabled (AUDIT_ENABLED=false)")
		return nil, nil
	}

	var auditStore audit.Store = audit.NewMemoryStore(0)
	backend := "memory"
	if db, ok := st.(*database.DB); ok {
		ds := audit.NewDuckDBStore(db.Conn())
		if err := ds.CreateTable(ctx); err != nil {
			return nil, fmt.Errorf("create audit table: %w", err)
		}
		auditStore, backend = ds, "duckdb"
	}

	logger := audit.NewLogger(auditStore, &audit.Config{
		RetentionDays:   cfg.Audit.RetentionDays,
		CleanupInterval: audit.DefaultConfig().CleanupInterval,
		BufferSize:      cfg.Audit.BufferSize,
		LogToStdout:     cfg.Audit.LogToStdout,
	})
	logging.Info().
		Str("backend", backend).
		Int("retention_days", cfg.Audit.RetentionDays).
		Msg("Audit logging initialized")
	return logger, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// initGeocodeCache returns the shared Redis cache when REDIS_ADDR is set
// and reachable, the in-process LRU otherwise.
func initGeocodeCache(ctx context.Context, cfg *config.Config) (cache.Store, io.Closer) {
	if cfg.Cache.RedisAddr != "" {
		rs, err := cache.NewRedisStore(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err == nil {
			logging.Info().Str("addr", cfg.Cache.RedisAddr).Msg("Geocode cache: redis")
			return rs, rs
		}
		logging.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory geocode cache")
	}
	logging.Info().Int("capacity", cfg.Geocoder.CacheSize).Msg("Geocode cache: memory")
	return cache.NewMemoryStore(cfg.Geocoder.CacheSize, cfg.Geocoder.CacheTTL), nopCloser{}
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		logging.Error().Err(err).Str("component", name).Msg("Error during close")
	}
}
