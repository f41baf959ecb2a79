// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package main is the entry point for the CivicGuard web client.

CivicGuard lets citizens photograph a civic issue (a pothole, overflowing
garbage, a broken streetlight), pin it on a map and send it to the
reporting backend, then follow the ticket as it is filed with the local
authority. This binary serves the pages, forwards the browser's API calls
to the backend, and runs the realtime channels.

# Application Architecture

Services run under a Suture v4 supervisor tree:

	RootSupervisor ("civicguard")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── Map render cache janitor
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub (dashboard counters)
	│   └── Stats poller
	└── APISupervisor ("api-layer")
	    └── HTTP server

Routes:

	/                     dashboard
	/intake               report form (GET, POST)
	/track, /track/{id}   ticket lookup
	/complaints           ticket list with filters
	/map                  all tickets on a map
	/static/map.png       server-rendered map image
	/api/*, /test-geocode backend forwarders
	/ws/stats, /ws/intake realtime channels
	/health*, /metrics    health checks and Prometheus

# Configuration

Configuration is loaded via Koanf v2, highest priority last:
  - Built-in defaults
  - Config file (--config, CONFIG_PATH, or ./config.yaml)
  - Environment variables (BACKEND_API_BASE, MAPBOX_TOKEN, HTTP_PORT, ...)
  - Command-line flags (--log-level)

# Signal Handling

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server stops
accepting connections, drains in-flight requests for up to 10s and closes
open report-form sockets.

# Example Usage

	export BACKEND_API_BASE=http://127.0.0.1:8000
	export MAPBOX_TOKEN=pk.your-token   # optional, OpenStreetMap otherwise
	./civicguard --log-level debug
*/
package main
