// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable means no response arrived: connection refused,
	// DNS failure, timeout, or a body larger than the configured cap.
	ErrUpstreamUnavailable = errors.New("backend unavailable")

	// ErrRequestBody means the caller's body failed while it was being sent:
	// an upload over its size cap or a browser that hung up mid-upload.
	// These never count against the breaker.
	ErrRequestBody = errors.New("request body read failed")

	// ErrCircuitOpen means the breaker rejected the call without trying.
	ErrCircuitOpen = errors.New("backend circuit open")

	// ErrNotFound is returned by Ticket for unknown ids.
	ErrNotFound = errors.New("ticket not found")

	// ErrNoAddress is returned by ReverseGeocode when the backend answered
	// but had no address for the coordinate.
	ErrNoAddress = errors.New("no address for coordinate")
)

// StatusError is a non-2xx upstream response seen by a typed helper.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Body)
}

// errServerStatus marks a 5xx inside the breaker so it counts as a
// failure. Forward strips it before returning.
var errServerStatus = errors.New("upstream server error")
