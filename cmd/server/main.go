// Travelmapster - Travel Markers and Visited-Country Maps
// Copyright 2026 chefzaid
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/chefzaid/travelmapster

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chefzaid/travelmapster/internal/api"
	"github.com/chefzaid/travelmapster/internal/auth"
	"github.com/chefzaid/travelmapster/internal/config"
	"github.com/chefzaid/travelmapster/internal/geo"
	"github.com/chefzaid/travelmapster/internal/geocoder"
	"github.com/chefzaid/travelmapster/internal/logging"
	"github.com/chefzaid/travelmapster/internal/markers"
	"github.com/chefzaid/travelmapster/internal/resolver"
	"github.com/chefzaid/travelmapster/internal/store/storefactory"
	"github.com/chefzaid/travelmapster/internal/supervisor"
	"github.com/chefzaid/travelmapster/internal/supervisor/services"
	ws "github.com/chefzaid/travelmapster/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Travelmapster failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // Sequential setup steps
func run() error {
	// A missing .env file is the normal case outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_driver", cfg.Database.Driver).
		Str("session_store", cfg.Security.SessionStore).
		Msg("Starting Travelmapster with supervisor tree")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := storefactory.New(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeLogged("store", st)
	logging.Info().Str("driver", cfg.Database.Driver).Msg("Store initialized")

	sessionStore, sessionCloser, err := auth.NewSessionStore(&cfg.Security)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer closeLogged("session store", sessionCloser)

	if cfg.Security.SessionStore == "memory" && !cfg.IsDevelopment() {
		logging.Warn().Msg("Session store is 'memory': sessions are lost on restart. Consider SESSION_STORE=badger")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("CORS_ORIGINS=* allows any website to call the API. Set explicit origins in production")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	tokens, err := initTokens(cfg)
	if err != nil {
		return err
	}
	sessions := auth.NewSessionMiddleware(sessionStore, tokens, sessionConfig(cfg))
	authService := auth.NewService(st, passwordPolicy(cfg), tokens)

	loader := &geo.Loader{Path: cfg.Geo.CountriesPath, URL: cfg.Geo.CountriesURL}
	countries, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load country polygons: %w", err)
	}

	geocodeCache, cacheCloser := initGeocodeCache(ctx, cfg)
	defer closeLogged("geocode cache", cacheCloser)
	provider := geocoder.New(cfg.Geocoder, geocodeCache)

	res := resolver.New(provider, countries, resolver.Options{
		NearRadiusKm: cfg.Geo.NearRadiusKm,
		WideRadiusKm: cfg.Geo.WideRadiusKm,
	})

	auditLogger, err := initAudit(ctx, cfg, st)
	if err != nil {
		return err
	}
	defer closeLogged("audit logger", auditLogger)

	hub := ws.NewHub()
	notifiers := markers.Notifiers{hub}
	if auditLogger != nil {
		notifiers = append(notifiers, auditLogger)
	}
	markerService := markers.New(st, res, markers.Options{
		DedupRadiusKm: cfg.Geo.DedupRadiusKm,
		Notifier:      notifiers,
		Countries:     countries,
	})

	handler := api.NewHandler(api.Dependencies{
		Auth:           authService,
		Sessions:       sessions,
		Markers:        markerService,
		Resolver:       res,
		Store:          st,
		Hub:            hub,
		Audit:          auditLogger,
		AllowedOrigins: cfg.Security.CORSOrigins,
	})
	router := api.NewRouter(handler, sessions, api.NewChiMiddleware(middlewareConfig(cfg)))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddMaintenanceService(auth.NewSessionCleaner(sessionStore, 0))
	if auditLogger != nil {
		tree.AddMaintenanceService(auditLogger)
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// errCh yields exactly one value once the tree stops.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		stop()
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}
