// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateBackend(); err != nil {
		return err
	}

	if err := c.validateMap(); err != nil {
		return err
	}

	if err := c.validateGeolocation(); err != nil {
		return err
	}

	if c.Stats.PollInterval <= 0 {
		return fmt.Errorf("STATS_POLL_INTERVAL must be positive")
	}

	if err := c.validateRateLimits(); err != nil {
		return err
	}

	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// validateBackend validates the upstream API settings
func (c *Config) validateBackend() error {
	if err := validateHTTPURL(c.Backend.BaseURL, "BACKEND_API_BASE"); err != nil {
		return err
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be positive")
	}
	if c.Backend.MaxBodyBytes <= 0 {
		return fmt.Errorf("BACKEND_MAX_BODY_BYTES must be positive")
	}
	if c.Backend.RequestsPerSecond < 0 {
		return fmt.Errorf("BACKEND_RPS must not be negative")
	}

	b := c.Backend.Breaker
	if b.MinRequests == 0 {
		return fmt.Errorf("BACKEND_BREAKER_MIN_REQUESTS must be at least 1")
	}
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		return fmt.Errorf("BACKEND_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}
	if b.OpenTimeout <= 0 {
		return fmt.Errorf("BACKEND_BREAKER_OPEN_TIMEOUT must be positive")
	}
	return nil
}

// Web Mercator zoom range served by the supported tile providers.
const (
	minZoom = 0
	maxZoom = 19
)

func (c *Config) validateMap() error {
	m := c.Map
	if m.DefaultLat < -90 || m.DefaultLat > 90 {
		return fmt.Errorf("MAP_DEFAULT_LAT must be between -90 and 90")
	}
	if m.DefaultLng < -180 || m.DefaultLng > 180 {
		return fmt.Errorf("MAP_DEFAULT_LNG must be between -180 and 180")
	}
	if m.DefaultZoom < minZoom || m.DefaultZoom > maxZoom {
		return fmt.Errorf("MAP_DEFAULT_ZOOM must be between %d and %d", minZoom, maxZoom)
	}
	if m.RenderWidth < 1 || m.RenderHeight < 1 || m.RenderWidth > 2048 || m.RenderHeight > 2048 {
		return fmt.Errorf("MAP_RENDER_WIDTH and MAP_RENDER_HEIGHT must be between 1 and 2048")
	}
	if m.RenderCacheTTL < 0 {
		return fmt.Errorf("MAP_RENDER_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateGeolocation() error {
	g := c.Geolocation
	if g.AcceptMargin < 0 {
		return fmt.Errorf("GEO_ACCEPT_MARGIN must not be negative")
	}
	if g.GoodAccuracy <= 0 {
		return fmt.Errorf("GEO_GOOD_ACCURACY must be positive")
	}
	if g.WatchTimeout <= 0 {
		return fmt.Errorf("GEO_WATCH_TIMEOUT must be positive")
	}
	if g.MinZoom < minZoom || g.MinZoom > maxZoom {
		return fmt.Errorf("GEO_MIN_ZOOM must be between %d and %d", minZoom, maxZoom)
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateRateLimits validates rate limiting configuration bounds.
func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
