// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package main is the entry point for the CamGrid streaming edge proxy.
//
// The proxy fronts allow-listed camera and HLS upstreams for browser
// clients: it attaches CORS headers, synthesizes the request headers
// picky vendors expect, rewrites HLS manifests so segment fetches stay
// on the proxy, and absorbs repeated requests with a short-TTL cache.
//
// It shares the configuration loader with the aggregation server; only
// the proxy section applies here. Run it as a separate process so a
// misbehaving upstream cannot stall the API.
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

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/logging"
	"github.com/tomtom215/camgrid/internal/proxy"
	"github.com/tomtom215/camgrid/internal/supervisor"
	"github.com/tomtom215/camgrid/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Int("allowed_hosts", len(cfg.Proxy.AllowedHosts)).
		Bool("allow_any_origin", cfg.Proxy.AllowAnyOrigin).
		Dur("cache_ttl", cfg.Proxy.CacheTTL).
		Msg("Starting CamGrid streaming proxy")

	handler := proxy.NewHandler(cfg.Proxy)

	// Streaming bodies can legitimately take the full upstream timeout
	// to relay, plus slack for slow clients.
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Proxy.Host, cfg.Proxy.Port),
		Handler:      handler.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Proxy.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree("camgrid-proxy", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService("proxy-server", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Proxy server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Proxy stopped gracefully")
}
