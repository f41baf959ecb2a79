// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

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
	"/etc/civicguard/config.yaml",
	"/etc/civicguard/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        3000,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Backend: BackendConfig{
			BaseURL:           "http://127.0.0.1:8000",
			Timeout:           30 * time.Second,
			MaxBodyBytes:      32 << 20,
			RequestsPerSecond: 0,
			Breaker: BreakerConfig{
				MinRequests:  10,
				FailureRatio: 0.6,
				Interval:     time.Minute,
				OpenTimeout:  30 * time.Second,
			},
		},
		Map: MapConfig{
			MapboxToken:    "",
			DefaultLat:     13.0827,
			DefaultLng:     80.2707,
			DefaultZoom:    12,
			RenderWidth:    640,
			RenderHeight:   360,
			RenderCacheTTL: 5 * time.Minute,
		},
		Geolocation: GeolocationConfig{
			AcceptMargin: 5,
			GoodAccuracy: 30,
			WatchTimeout: 6 * time.Second,
			MinZoom:      16,
		},
		Stats: StatsConfig{
			PollInterval: 5 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadOptions carries command-line overrides. Zero values are ignored.
type LoadOptions struct {
	// ConfigPath takes precedence over CONFIG_PATH and the default paths.
	ConfigPath string

	// LogLevel overrides logging.level after environment variables.
	LogLevel string
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional YAML)
//  3. Environment variables
//  4. Command-line overrides from opts
func LoadWithKoanf(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = findConfigFile()
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// BACKEND_API_BASE -> backend.base_url, HTTP_PORT -> server.port, ...
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := applyEnvFallbacks(k); err != nil {
		return nil, err
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	if opts.LogLevel != "" {
		if err := k.Set("logging.level", opts.LogLevel); err != nil {
			return nil, fmt.Errorf("failed to apply log level override: %w", err)
		}
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

// findConfigFile returns the first existing config file, or "" if none.
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

// envFallback names a legacy variable consulted only when the primary
// variable is unset.
type envFallback struct {
	primary  string
	fallback string
	path     string
}

// The web client historically read NEXT_PUBLIC_* names; they remain
// accepted so existing deployments keep working.
var envFallbacks = []envFallback{
	{primary: "BACKEND_API_BASE", fallback: "NEXT_PUBLIC_API_BASE", path: "backend.base_url"},
	{primary: "MAPBOX_TOKEN", fallback: "NEXT_PUBLIC_MAPBOX_TOKEN", path: "map.mapbox_token"},
}

func applyEnvFallbacks(k *koanf.Koanf) error {
	for _, fb := range envFallbacks {
		if v, ok := os.LookupEnv(fb.primary); ok && v != "" {
			continue
		}
		v, ok := os.LookupEnv(fb.fallback)
		if !ok || v == "" {
			continue
		}
		if err := k.Set(fb.path, v); err != nil {
			return fmt.Errorf("failed to set %s from %s: %w", fb.path, fb.fallback, err)
		}
	}
	return nil
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Backend
	"backend_api_base":              "backend.base_url",
	"backend_timeout":               "backend.timeout",
	"backend_max_body_bytes":        "backend.max_body_bytes",
	"backend_rps":                   "backend.requests_per_second",
	"backend_breaker_min_requests":  "backend.breaker.min_requests",
	"backend_breaker_failure_ratio": "backend.breaker.failure_ratio",
	"backend_breaker_interval":      "backend.breaker.interval",
	"backend_breaker_open_timeout":  "backend.breaker.open_timeout",

	// Map
	"mapbox_token":         "map.mapbox_token",
	"map_default_lat":      "map.default_lat",
	"map_default_lng":      "map.default_lng",
	"map_default_zoom":     "map.default_zoom",
	"map_render_width":     "map.render_width",
	"map_render_height":    "map.render_height",
	"map_render_cache_ttl": "map.render_cache_ttl",

	// Geolocation
	"geo_accept_margin": "geolocation.accept_margin",
	"geo_good_accuracy": "geolocation.good_accuracy",
	"geo_watch_timeout": "geolocation.watch_timeout",
	"geo_min_zoom":      "geolocation.min_zoom",

	// Stats
	"stats_poll_interval": "stats.poll_interval",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// Unmapped variables return "" and are skipped so that unrelated
// environment does not pollute the config.
//
// Examples:
//   - BACKEND_API_BASE -> backend.base_url
//   - HTTP_PORT -> server.port
//   - GEO_WATCH_TIMEOUT -> geolocation.watch_timeout
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
