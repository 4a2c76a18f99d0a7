// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package api provides the HTTP query surface over the aggregated camera
// snapshot: camera listing with filters, per-source refresh status, weather
// alerts, and the websocket push endpoint.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/camgrid/internal/config"
	"github.com/tomtom215/camgrid/internal/middleware"
)

// refreshRateLimit caps manual refresh triggers per client IP per minute.
const refreshRateLimit = 5

// Router wires the API handlers into a Chi route tree.
type Router struct {
	cfg     config.APIConfig
	handler *Handler
}

// NewRouter creates a router around the given handler set.
func NewRouter(cfg config.APIConfig, handler *Handler) *Router {
	return &Router{cfg: cfg, handler: handler}
}

// Setup configures all HTTP routes.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics)

		r.Get("/cameras", rt.handler.Cameras)
		r.Get("/cameras/{id}", rt.handler.CameraByID)
		r.Get("/sources", rt.handler.Sources)
		r.Get("/counts", rt.handler.Counts)
		r.Get("/alerts", rt.handler.Alerts)

		// A manual refresh fans out to every upstream source, so it gets
		// a much tighter limit than read endpoints.
		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(refreshRateLimit, time.Minute))
			r.Post("/refresh", rt.handler.Refresh)
		})
	})

	// Websocket upgrade bypasses the rate limiter; a single long-lived
	// connection replaces polling.
	r.Get("/ws", rt.handler.WebSocket)

	// Health stays outside the rate-limited group so monitors are never
	// throttled into false alarms.
	r.Get("/health", rt.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}
