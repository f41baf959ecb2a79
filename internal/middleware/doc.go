// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package middleware holds the net/http middleware shared by every route:
// request id propagation, Prometheus instrumentation and cache control for
// proxied API responses. All of them have the func(http.Handler) http.Handler
// shape expected by chi.Router.Use.
package middleware
