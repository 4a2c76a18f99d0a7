// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package main is the entry point for the CamGrid aggregation server.
//
// CamGrid polls dozens of public DOT and vendor traffic-camera feeds,
// merges them into a deduplicated nationwide snapshot, and serves the
// result over a versioned JSON API with WebSocket push on refresh.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Snapshot store: BadgerDB persistence for warm restarts (optional)
//  3. Event bus: Watermill in-process pub/sub for refresh fan-out
//  4. Feed manager: periodic concurrent refresh across all sources
//  5. WebSocket hub: pushes refresh summaries to connected clients
//  6. HTTP server: REST API under /api/v1 plus /ws, /health, /metrics
//
// All long-running components run under a suture supervisor tree and
// restart independently on failure.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables from a fixed mapping table (e.g. HTTP_PORT,
//     PROXY_ALLOWED_HOSTS, FEEDS_REFRESH_INTERVAL)
//   - Config file (config.yaml, or the CONFIG_PATH path)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Persists the current snapshot and closes the store
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

	"github.com/tomtom215/camgrid/internal/api"
	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/events"
	"github.com/tomtom215/camgrid/internal/feeds"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/store"
	"github.com/tomtom215/camgrid/internal/supervisor"
	"github.com/tomtom215/camgrid/internal/supervisor/services"
	ws "github.com/tomtom215/camgrid/internal/websocket"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting CamGrid aggregation server")
	logging.Info().
		Dur("refresh_interval", cfg.Feeds.RefreshInterval).
		Bool("store_enabled", cfg.Store.Enabled).
		Bool("alerts_enabled", cfg.Alerts.Enabled).
		Msg("Configuration loaded")

	// Snapshot store is optional; without it the server starts cold and
	// serves an empty snapshot until the first refresh completes.
	var snapStore *store.SnapshotStore
	if cfg.Store.Enabled {
		snapStore, err = store.Open(cfg.Store)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open snapshot store")
		}
		defer func() {
			if err := snapStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing snapshot store")
			}
		}()
		logging.Info().Str("path", cfg.Store.Path).Msg("Snapshot store opened")
	} else {
		logging.Info().Msg("Snapshot persistence disabled - starting cold")
	}

	bus := events.NewBus()
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	engine := feeds.NewEngine(cfg.Feeds)
	sources := feeds.Registry()
	logging.Info().Int("sources", len(sources)).Msg("Feed registry loaded")

	var persister feeds.SnapshotPersister
	if snapStore != nil {
		persister = snapStore
	}
	manager := feeds.NewManager(cfg.Feeds, engine, sources, persister, bus)

	var alertSvc *feeds.AlertService
	if cfg.Alerts.Enabled {
		alertSvc = feeds.NewAlertService(cfg.Alerts)
		logging.Info().Str("url", cfg.Alerts.URL).Msg("Weather alert feed enabled")
	}

	hub := ws.NewHub(bus)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var alerts api.AlertSource
	if alertSvc != nil {
		alerts = alertSvc
	}
	handler := api.NewHandler(manager, alerts, hub)
	router := api.NewRouter(cfg.API, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridge zerolog to slog for sutureslog compatibility
	tree := supervisor.NewTree("camgrid", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddFeedsService(manager)
	if alertSvc != nil {
		tree.AddFeedsService(alertSvc)
	}
	tree.AddMessagingService(hub)
	tree.AddAPIService(services.NewHTTPServerService("api-server", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
