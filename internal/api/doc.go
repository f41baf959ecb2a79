// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package api provides the HTTP surface of the CivicGuard web client.

# Proxy

Five routes forward browser requests to the backend unchanged:

	POST /api/intake        multipart report upload
	GET  /api/stats         dashboard counters
	GET  /api/tickets       ticket list, query forwarded verbatim
	GET  /api/tickets/{id}  one ticket, id re-escaped as a path segment
	GET  /test-geocode      reverse geocoding, query forwarded verbatim

Upstream status, body and Content-Type are copied back as they are,
including 4xx and 5xx answers. Only a failure to get any answer produces
a response of our own: 502 with the error envelope, or 503 while the
backend circuit breaker is open.

	{"success":false,"error":{"code":"UPSTREAM_UNAVAILABLE","message":"Backend unavailable","request_id":"..."}}

All proxy responses carry Cache-Control: no-store.

# Realtime

/ws/stats subscribes to the stats hub. /ws/intake runs one report form
per connection (see package websocket).

# Middleware

Request IDs, RealIP, panic recovery and CORS apply globally. Proxy, page
and socket routes are rate limited per client IP with go-chi/httprate and
instrumented with Prometheus; health checks get a looser limit.
*/
package api
