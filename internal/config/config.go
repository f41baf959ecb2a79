// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Backend     BackendConfig     `koanf:"backend"`
	Map         MapConfig         `koanf:"map"`
	Geolocation GeolocationConfig `koanf:"geolocation"`
	Stats       StatsConfig       `koanf:"stats"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BackendConfig describes the external CivicGuard backend every proxy
// route and page view talks to.
type BackendConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
	RequestsPerSecond float64       `koanf:"requests_per_second"` // 0 = unlimited
	Breaker           BreakerConfig `koanf:"breaker"`
}

// BreakerConfig tunes the upstream circuit breaker.
type BreakerConfig struct {
	// MinRequests is the number of requests in an interval before the
	// failure ratio is considered.
	MinRequests uint32 `koanf:"min_requests"`

	// FailureRatio trips the breaker when reached.
	FailureRatio float64 `koanf:"failure_ratio"`

	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `koanf:"interval"`

	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration `koanf:"open_timeout"`
}

// MapConfig holds map display settings.
type MapConfig struct {
	// MapboxToken selects Mapbox street tiles when set.
	MapboxToken string `koanf:"mapbox_token"`

	DefaultLat  float64 `koanf:"default_lat"`
	DefaultLng  float64 `koanf:"default_lng"`
	DefaultZoom int     `koanf:"default_zoom"`

	RenderWidth    int           `koanf:"render_width"`
	RenderHeight   int           `koanf:"render_height"`
	RenderCacheTTL time.Duration `koanf:"render_cache_ttl"`
}

// GeolocationConfig holds the acquisition session constants.
type GeolocationConfig struct {
	AcceptMargin float64       `koanf:"accept_margin"`
	GoodAccuracy float64       `koanf:"good_accuracy"`
	WatchTimeout time.Duration `koanf:"watch_timeout"`
	MinZoom      int           `koanf:"min_zoom"`
}

// StatsConfig controls the live statistics push.
type StatsConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ShouldWarnAboutCORS reports whether a wildcard origin is configured
// outside development.
func (c *Config) ShouldWarnAboutCORS() bool {
	if c.Server.Environment == "development" {
		return false
	}
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
