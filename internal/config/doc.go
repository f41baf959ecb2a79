// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package config provides centralized configuration management for CivicGuard.

Configuration is resolved exactly once at startup and handed to components
explicitly; nothing else in the module reads the environment.

# Configuration Sources

Sources are layered with Koanf v2, later layers overriding earlier ones:
 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/civicguard/config.yaml)
 3. Environment variables

# Environment Variables

HTTP Server:
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_PORT: Listen port (default: 3000)
  - HTTP_TIMEOUT: Read/write timeout (default: 30s)
  - ENVIRONMENT: development, staging or production (default: development)

Backend:
  - BACKEND_API_BASE: Base URL of the CivicGuard backend (default: http://127.0.0.1:8000)
  - NEXT_PUBLIC_API_BASE: Accepted as a fallback for BACKEND_API_BASE
  - BACKEND_TIMEOUT: Upstream request timeout (default: 30s)
  - BACKEND_MAX_BODY_BYTES: Largest upstream response relayed (default: 32MiB)
  - BACKEND_RPS: Outbound request rate limit, 0 disables (default: 0)
  - BACKEND_BREAKER_MIN_REQUESTS, BACKEND_BREAKER_FAILURE_RATIO,
    BACKEND_BREAKER_INTERVAL, BACKEND_BREAKER_OPEN_TIMEOUT: circuit breaker tuning

Map:
  - MAPBOX_TOKEN (or NEXT_PUBLIC_MAPBOX_TOKEN): selects Mapbox tiles; OpenStreetMap otherwise
  - MAP_DEFAULT_LAT, MAP_DEFAULT_LNG, MAP_DEFAULT_ZOOM: initial viewport
  - MAP_RENDER_WIDTH, MAP_RENDER_HEIGHT, MAP_RENDER_CACHE_TTL: static map images

Geolocation:
  - GEO_ACCEPT_MARGIN: Accuracy improvement required to replace a fix (default: 5)
  - GEO_GOOD_ACCURACY: Accuracy that ends a session early (default: 30)
  - GEO_WATCH_TIMEOUT: Session time budget (default: 6s)
  - GEO_MIN_ZOOM: Zoom applied after an accepted fix (default: 16)

Stats:
  - STATS_POLL_INTERVAL: Live statistics refresh period (default: 5s)

Security:
  - CORS_ORIGINS: Comma-separated allowed origins (default: *)
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Thread Safety

Config is immutable after LoadWithKoanf returns and is safe for concurrent
reads.
*/
package config
