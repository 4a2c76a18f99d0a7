// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/camgrid/config.yaml",
	"/etc/camgrid/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultAllowedHosts is the upstream allow-list shipped out of the box:
// the stream and feed hosts the bundled sources reference. Operators extend
// it via config when adding providers.
func defaultAllowedHosts() []string {
	return []string{
		"oktraffic.org",
		"stream.oktraffic.org",
		"traveler.modot.org",
		"sd.cdn.iteris-atis.com",
		"www.nvroads.com",
		"www.udottraffic.utah.gov",
		"api.algotraffic.com",
		"ctroads.org",
		"cttravelsmart.org",
		"trafficland.com",
		"images.trafficland.com",
		"511dfw.org",
	}
}

// Load builds configuration with layered sources:
//  1. Struct defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment variable names map to koanf paths through an explicit
	// table; unmapped variables are ignored so ambient environment noise
	// cannot pollute the config.
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
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

// findConfigFile returns the first existing config file path, or "".
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

// sliceConfigPaths are the paths parsed as comma-separated lists when they
// arrive as strings from the environment.
var sliceConfigPaths = []string{
	"proxy.allowed_hosts",
	"proxy.allowed_origins",
	"api.cors_origins",
	"feeds.disabled",
}

// processSliceFields converts comma-separated env strings into slices for
// the known slice paths. YAML-sourced slices pass through untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
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
			if p = strings.TrimSpace(p); p != "" {
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

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped keys return "" and are skipped.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - PROXY_ALLOWED_HOSTS -> proxy.allowed_hosts
//   - FEEDS_REFRESH_INTERVAL -> feeds.refresh_interval
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Proxy mappings
		"proxy_host":             "proxy.host",
		"proxy_port":             "proxy.port",
		"proxy_upstream_timeout": "proxy.upstream_timeout",
		"proxy_allowed_hosts":    "proxy.allowed_hosts",
		"proxy_allow_any_origin": "proxy.allow_any_origin",
		"proxy_allowed_origins":  "proxy.allowed_origins",
		"proxy_cache_ttl":        "proxy.cache_ttl",
		"proxy_cache_entries":    "proxy.cache_max_entries",
		"proxy_cache_max_body":   "proxy.cache_max_body",

		// Feeds mappings
		"feeds_refresh_interval": "feeds.refresh_interval",
		"feeds_fetch_timeout":    "feeds.fetch_timeout",
		"feeds_rate_limit":       "feeds.rate_limit",
		"feeds_burst":            "feeds.burst",
		"feeds_disabled":         "feeds.disabled",
		"udot_api_key":           "feeds.utah_key",
		"nvroads_api_key":        "feeds.nevada_key",

		// Store mappings
		"store_enabled": "store.enabled",
		"store_path":    "store.path",
		"store_max_age": "store.max_age",

		// API mappings
		"cors_origins":        "api.cors_origins",
		"rate_limit_requests": "api.rate_limit_reqs",
		"rate_limit_window":   "api.rate_limit_window",

		// Alerts mappings
		"alerts_enabled": "alerts.enabled",
		"alerts_url":     "alerts.url",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
