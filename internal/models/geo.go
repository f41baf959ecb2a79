// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package models

import (
	"math"
	"strconv"
)

// LatLng is a WGS84 coordinate in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is finite and within range.
func (p LatLng) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// FormatCoord renders a coordinate component the way form fields carry it:
// shortest round-trip representation, no exponent.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseLatLng parses form-field strings. Both must be present and valid.
func ParseLatLng(lat, lng string) (LatLng, bool) {
	if lat == "" || lng == "" {
		return LatLng{}, false
	}
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return LatLng{}, false
	}
	lo, err := strconv.ParseFloat(lng, 64)
	if err != nil {
		return LatLng{}, false
	}
	p := LatLng{Lat: la, Lng: lo}
	return p, p.Valid()
}
