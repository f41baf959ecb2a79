// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package geolocate

import (
	"errors"
	"math"

	"github.com/tomtom215/civicguard/internal/models"
)

// Fix is one position report. Accuracy is the 95% radius in metres.
type Fix struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// Position returns the coordinate of the fix.
func (f Fix) Position() models.LatLng {
	return models.LatLng{Lat: f.Lat, Lng: f.Lng}
}

// accuracy treats a missing or nonsensical radius as infinitely poor.
func (f Fix) accuracy() float64 {
	if math.IsNaN(f.Accuracy) || f.Accuracy < 0 {
		return math.Inf(1)
	}
	return f.Accuracy
}

// Position error codes, as numbered by the browser Geolocation API.
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// PositionError is an acquisition failure reported by the platform.
type PositionError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Code {
	case CodePermissionDenied:
		return "User denied Geolocation"
	case CodePositionUnavailable:
		return "Position unavailable"
	case CodeTimeout:
		return "Timeout expired"
	default:
		return "Unknown geolocation error"
	}
}

// ErrUnsupported is reported when no position source is available.
var ErrUnsupported = errors.New("Geolocation not supported")

// WatchHandle cancels a watch. Clear must be safe to call more than once.
type WatchHandle interface {
	Clear()
}

// PositionSource delivers continuous position updates. Callbacks may run
// on any goroutine, including synchronously from within Watch.
type PositionSource interface {
	Watch(onFix func(Fix), onError func(error)) (WatchHandle, error)
}

// WatchHandleFunc adapts a function to WatchHandle.
type WatchHandleFunc func()

// Clear calls f.
func (f WatchHandleFunc) Clear() { f() }
