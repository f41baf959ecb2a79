// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

// Package models defines the wire types exchanged with the CivicGuard
// backend. The client never creates or mutates tickets; these types exist
// so that page views can read fields without re-parsing JSON by hand.
//
// JSON field names match the backend exactly. Optional numeric fields are
// pointers because the backend emits null for unknown coordinates.
package models
