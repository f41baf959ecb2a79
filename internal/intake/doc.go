// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package intake holds the state of one report form: the chosen image,
// free-text fields, the location picked on the map and the outcome of the
// last submission. A Form composes a geolocation Acquirer and a MapView and
// is the single source of truth for both; the view only mirrors it.
//
// Reverse geocoding is best-effort. Each lookup is tagged with a
// monotonically increasing token and only the newest response may set the
// address; failures leave the previous address in place.
//
// Close tears the form down: geolocation is cancelled, in-flight lookups
// and uploads have their context cancelled, and no callback touches the
// form afterwards.
package intake
