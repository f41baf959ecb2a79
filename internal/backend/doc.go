// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package backend talks to the external CivicGuard API.
//
// Forward is the transparent pass-through used by the /api proxy routes:
// the upstream status, body and content type come back untouched, and only
// a transport failure or an open circuit is reported as an error.
//
// The typed helpers (Stats, Ticket, ListTickets, ReverseGeocode,
// SubmitIntake) are built on Forward for the server-rendered pages and the
// intake controller. They turn non-2xx responses into *StatusError.
//
// All calls share one sony/gobreaker circuit breaker. Upstream 5xx
// responses and transport errors count as failures; 4xx responses and
// caller cancellations do not.
package backend
