// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points config discovery at an empty directory so that a stray
// config.yaml in the package directory cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("Backend.BaseURL = %q, want http://127.0.0.1:8000", cfg.Backend.BaseURL)
	}
	if cfg.Backend.MaxBodyBytes != 32<<20 {
		t.Errorf("Backend.MaxBodyBytes = %d, want 32MiB", cfg.Backend.MaxBodyBytes)
	}
	if cfg.Backend.Breaker.MinRequests != 10 || cfg.Backend.Breaker.FailureRatio != 0.6 {
		t.Errorf("Backend.Breaker = %+v, want 10 requests at 0.6", cfg.Backend.Breaker)
	}
	if cfg.Map.DefaultLat != 13.0827 || cfg.Map.DefaultLng != 80.2707 || cfg.Map.DefaultZoom != 12 {
		t.Errorf("Map default view = (%v, %v, %d)", cfg.Map.DefaultLat, cfg.Map.DefaultLng, cfg.Map.DefaultZoom)
	}
	if cfg.Geolocation.AcceptMargin != 5 {
		t.Errorf("Geolocation.AcceptMargin = %v, want 5", cfg.Geolocation.AcceptMargin)
	}
	if cfg.Geolocation.GoodAccuracy != 30 {
		t.Errorf("Geolocation.GoodAccuracy = %v, want 30", cfg.Geolocation.GoodAccuracy)
	}
	if cfg.Geolocation.WatchTimeout != 6*time.Second {
		t.Errorf("Geolocation.WatchTimeout = %v, want 6s", cfg.Geolocation.WatchTimeout)
	}
	if cfg.Geolocation.MinZoom != 16 {
		t.Errorf("Geolocation.MinZoom = %d, want 16", cfg.Geolocation.MinZoom)
	}
	if cfg.Stats.PollInterval != 5*time.Second {
		t.Errorf("Stats.PollInterval = %v, want 5s", cfg.Stats.PollInterval)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"HTTP_PORT", "server.port"},
		{"ENVIRONMENT", "server.environment"},
		{"BACKEND_API_BASE", "backend.base_url"},
		{"BACKEND_BREAKER_FAILURE_RATIO", "backend.breaker.failure_ratio"},
		{"MAPBOX_TOKEN", "map.mapbox_token"},
		{"GEO_WATCH_TIMEOUT", "geolocation.watch_timeout"},
		{"STATS_POLL_INTERVAL", "stats.poll_interval"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"DISABLE_RATE_LIMIT", "security.rate_limit_disabled"},
		{"LOG_FORMAT", "logging.format"},

		// Fallback names are resolved separately.
		{"NEXT_PUBLIC_API_BASE", ""},
		{"PATH", ""},
		{"HOME", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadWithKoanf_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadWithKoanf(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("Backend.Timeout = %v, want 30s", cfg.Backend.Timeout)
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("BACKEND_API_BASE", "https://api.example.org")
	t.Setenv("BACKEND_TIMEOUT", "12s")
	t.Setenv("GEO_WATCH_TIMEOUT", "9s")
	t.Setenv("CORS_ORIGINS", "https://a.example.org, https://b.example.org")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadWithKoanf(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "https://api.example.org" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 12*time.Second {
		t.Errorf("Backend.Timeout = %v, want 12s", cfg.Backend.Timeout)
	}
	if cfg.Geolocation.WatchTimeout != 9*time.Second {
		t.Errorf("Geolocation.WatchTimeout = %v, want 9s", cfg.Geolocation.WatchTimeout)
	}
	want := []string{"https://a.example.org", "https://b.example.org"}
	if strings.Join(cfg.Security.CORSOrigins, "|") != strings.Join(want, "|") {
		t.Errorf("Security.CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_PublicFallbacks(t *testing.T) {
	t.Run("fallback used when primary unset", func(t *testing.T) {
		isolate(t)
		t.Setenv("BACKEND_API_BASE", "")
		t.Setenv("NEXT_PUBLIC_API_BASE", "http://backend:8000")
		t.Setenv("MAPBOX_TOKEN", "")
		t.Setenv("NEXT_PUBLIC_MAPBOX_TOKEN", "pk.public")

		cfg, err := LoadWithKoanf(LoadOptions{})
		if err != nil {
			t.Fatalf("LoadWithKoanf() error = %v", err)
		}
		if cfg.Backend.BaseURL != "http://backend:8000" {
			t.Errorf("Backend.BaseURL = %q, want fallback value", cfg.Backend.BaseURL)
		}
		if cfg.Map.MapboxToken != "pk.public" {
			t.Errorf("Map.MapboxToken = %q, want fallback value", cfg.Map.MapboxToken)
		}
	})

	t.Run("primary wins over fallback", func(t *testing.T) {
		isolate(t)
		t.Setenv("BACKEND_API_BASE", "http://primary:8000")
		t.Setenv("NEXT_PUBLIC_API_BASE", "http://fallback:8000")

		cfg, err := LoadWithKoanf(LoadOptions{})
		if err != nil {
			t.Fatalf("LoadWithKoanf() error = %v", err)
		}
		if cfg.Backend.BaseURL != "http://primary:8000" {
			t.Errorf("Backend.BaseURL = %q, want primary value", cfg.Backend.BaseURL)
		}
	})
}

func TestLoadWithKoanf_ConfigFile(t *testing.T) {
	dir := isolate(t)

	configContent := `
server:
  port: 9000
backend:
  base_url: "http://civic-api:8000"
  breaker:
    failure_ratio: 0.5
map:
  default_zoom: 14
geolocation:
  good_accuracy: 20
logging:
  format: console
`
	configPath := filepath.Join(dir, "civicguard.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Env vars win over the file.
	t.Setenv("HTTP_PORT", "9100")

	cfg, err := LoadWithKoanf(LoadOptions{ConfigPath: configPath})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want 9100 (env override)", cfg.Server.Port)
	}
	if cfg.Backend.BaseURL != "http://civic-api:8000" {
		t.Errorf("Backend.BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Breaker.FailureRatio != 0.5 {
		t.Errorf("Backend.Breaker.FailureRatio = %v, want 0.5", cfg.Backend.Breaker.FailureRatio)
	}
	if cfg.Backend.Breaker.MinRequests != 10 {
		t.Errorf("Backend.Breaker.MinRequests = %d, want default 10", cfg.Backend.Breaker.MinRequests)
	}
	if cfg.Map.DefaultZoom != 14 {
		t.Errorf("Map.DefaultZoom = %d, want 14", cfg.Map.DefaultZoom)
	}
	if cfg.Geolocation.GoodAccuracy != 20 {
		t.Errorf("Geolocation.GoodAccuracy = %v, want 20", cfg.Geolocation.GoodAccuracy)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %q, want console", cfg.Logging.Format)
	}
}

func TestLoadWithKoanf_ConfigPathEnv(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte("stats:\n  poll_interval: 2s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Stats.PollInterval != 2*time.Second {
		t.Errorf("Stats.PollInterval = %v, want 2s", cfg.Stats.PollInterval)
	}
}

func TestLoadWithKoanf_LogLevelOverride(t *testing.T) {
	isolate(t)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadWithKoanf(LoadOptions{LogLevel: "trace"})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %q, want trace", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_InvalidFile(t *testing.T) {
	dir := isolate(t)
	configPath := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(configPath, []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadWithKoanf(LoadOptions{ConfigPath: configPath}); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadWithKoanf_ValidationFailure(t *testing.T) {
	isolate(t)
	t.Setenv("BACKEND_API_BASE", "ftp://files.example.org")

	_, err := LoadWithKoanf(LoadOptions{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "BACKEND_API_BASE") {
		t.Errorf("error %q should name BACKEND_API_BASE", err)
	}
}

func TestProcessSliceFields_IgnoresEmptyEntries(t *testing.T) {
	isolate(t)
	t.Setenv("CORS_ORIGINS", " , https://only.example.org ,")

	cfg, err := LoadWithKoanf(LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "https://only.example.org" {
		t.Errorf("Security.CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}
