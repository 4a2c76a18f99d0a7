// CamGrid - Traffic Camera Aggregation and Streaming Proxy
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/camgrid

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsSharedListenAddr(t *testing.T) {
	cfg := defaultConfig()
	cfg.Proxy.Port = cfg.Server.Port
	cfg.Proxy.Host = cfg.Server.Host
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when server and proxy share host:port")
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}
}

func TestValidateRejectsEmptyAllowList(t *testing.T) {
	cfg := defaultConfig()
	cfg.Proxy.AllowedHosts = nil
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty proxy allow-list")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"PROXY_ALLOWED_HOSTS", "proxy.allowed_hosts"},
		{"FEEDS_REFRESH_INTERVAL", "feeds.refresh_interval"},
		{"LOG_LEVEL", "logging.level"},
		{"UDOT_API_KEY", "feeds.utah_key"},
		{"PATH", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
server:
  port: 9090
feeds:
  refresh_interval: 10m
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_TIMEOUT", "45s")
	t.Setenv("PROXY_ALLOWED_HOSTS", "a.example.org, b.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// File overrides defaults.
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Feeds.RefreshInterval != 10*time.Minute {
		t.Errorf("Feeds.RefreshInterval = %v, want 10m from file", cfg.Feeds.RefreshInterval)
	}
	// Env overrides file and defaults.
	if cfg.Server.Timeout != 45*time.Second {
		t.Errorf("Server.Timeout = %v, want 45s from env", cfg.Server.Timeout)
	}
	// Comma-separated env slice parsed and trimmed.
	if len(cfg.Proxy.AllowedHosts) != 2 || cfg.Proxy.AllowedHosts[1] != "b.example.org" {
		t.Errorf("Proxy.AllowedHosts = %v, want two trimmed entries", cfg.Proxy.AllowedHosts)
	}
	// Untouched sections keep defaults.
	if cfg.Proxy.CacheTTL != 10*time.Second {
		t.Errorf("Proxy.CacheTTL = %v, want default 10s", cfg.Proxy.CacheTTL)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("LOG_LEVEL", "shouting")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for bad log level")
	}
}
