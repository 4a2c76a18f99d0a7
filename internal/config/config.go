// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

// Package config loads and validates CamGrid configuration from layered
// sources: struct defaults, an optional YAML file, and environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration for both the aggregation server and the
// edge proxy.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Proxy   ProxyConfig   `koanf:"proxy"`
	Feeds   FeedsConfig   `koanf:"feeds"`
	Store   StoreConfig   `koanf:"store"`
	API     APIConfig     `koanf:"api"`
	Alerts  AlertsConfig  `koanf:"alerts"`
	Logging LoggingConfig `koanf:"logging"`
}

// ServerConfig configures the aggregation API HTTP server.
type ServerConfig struct {
	Host        string        `koanf:"host" validate:"required"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=1s"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// ProxyConfig configures the streaming edge proxy.
type ProxyConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	UpstreamTimeout time.Duration `koanf:"upstream_timeout" validate:"min=1s"`

	// AllowedHosts is the upstream allow-list. A target is permitted when
	// its host equals an entry or is a subdomain of one.
	AllowedHosts []string `koanf:"allowed_hosts" validate:"min=1"`

	// AllowAnyOrigin echoes any caller origin in CORS headers. When false,
	// only AllowedOrigins are echoed; other origins get "null".
	AllowAnyOrigin bool     `koanf:"allow_any_origin"`
	AllowedOrigins []string `koanf:"allowed_origins"`

	// CacheTTL bounds how long a successful GET body is served from cache.
	CacheTTL        time.Duration `koanf:"cache_ttl" validate:"min=1s"`
	CacheMaxEntries int           `koanf:"cache_max_entries" validate:"min=1"`
	// CacheMaxBody is the largest response body the cache will hold, in
	// bytes. Larger bodies are streamed through uncached.
	CacheMaxBody int64 `koanf:"cache_max_body" validate:"min=1024"`
}

// FeedsConfig configures the upstream feed refresh pipeline.
type FeedsConfig struct {
	RefreshInterval time.Duration `koanf:"refresh_interval" validate:"min=30s"`
	FetchTimeout    time.Duration `koanf:"fetch_timeout" validate:"min=1s"`

	// RateLimit caps outbound requests per second across all sources
	// during a refresh burst; Burst allows short spikes.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0.1"`
	Burst     int     `koanf:"burst" validate:"min=1"`

	// Disabled lists source names to skip without removing their
	// descriptors.
	Disabled []string `koanf:"disabled"`

	// Vendor API keys. Sources requiring a key are skipped when the key
	// is empty.
	UtahKey   string `koanf:"utah_key"`
	NevadaKey string `koanf:"nevada_key"`
}

// StoreConfig configures the badger-backed snapshot store used for warm
// restarts.
type StoreConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path" validate:"required_if=Enabled true"`
	// MaxAge is how stale a persisted snapshot may be and still be loaded
	// at startup.
	MaxAge time.Duration `koanf:"max_age" validate:"min=1m"`
}

// APIConfig configures the public query API surface.
type APIConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins" validate:"min=1"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
}

// AlertsConfig configures the NWS weather-alert feed.
type AlertsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url" validate:"required_if=Enabled true,omitempty,url"`
}

// LoggingConfig configures the zerolog output.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. Defaults are
// layered first, then overridden by file and environment.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Proxy: ProxyConfig{
			Host:            "0.0.0.0",
			Port:            8081,
			UpstreamTimeout: 20 * time.Second,
			AllowedHosts:    defaultAllowedHosts(),
			AllowAnyOrigin:  true,
			CacheTTL:        10 * time.Second,
			CacheMaxEntries: 512,
			CacheMaxBody:    4 << 20, // 4MB
		},
		Feeds: FeedsConfig{
			RefreshInterval: 5 * time.Minute,
			FetchTimeout:    15 * time.Second,
			RateLimit:       20,
			Burst:           10,
		},
		Store: StoreConfig{
			Enabled: true,
			Path:    "/data/camgrid/snapshots",
			MaxAge:  24 * time.Hour,
		},
		API: APIConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Alerts: AlertsConfig{
			Enabled: true,
			URL:     "https://api.weather.gov/alerts/active",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration with struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Server.Port == c.Proxy.Port && c.Server.Host == c.Proxy.Host {
		return fmt.Errorf("server and proxy cannot share %s:%d", c.Server.Host, c.Server.Port)
	}
	return nil
}
