// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package mapview

import (
	"github.com/tomtom215/civicguard/internal/models"
)

// LatLng is re-exported so callers of this package need not import models.
type LatLng = models.LatLng

// MapView is the declarative surface of a map.
type MapView interface {
	SetViewport(center LatLng, zoom int, version uint64)
	SetMarkers(markers []Marker)
	SetDraggableMarker(pos *LatLng)
	Dispose()
}

// MoveHandler receives the draggable marker's position after a drag.
type MoveHandler func(lat, lng float64)

// Marker is a read-only ticket marker.
type Marker struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status,omitempty"`
	ID     string  `json:"id,omitempty"`
}

// Position returns the marker coordinate.
func (m Marker) Position() LatLng {
	return LatLng{Lat: m.Lat, Lng: m.Lng}
}

// Ring colours by ticket status.
const (
	ColorFiled   = "#b4ea98"
	ColorCreated = "#F44336"
	ColorNeutral = "#d3e1fa"
)

// StatusColor maps a ticket status to its ring colour.
func StatusColor(status string) string {
	switch status {
	case models.StatusFiled:
		return ColorFiled
	case models.StatusCreated:
		return ColorCreated
	default:
		return ColorNeutral
	}
}

// Ring styling shared by the browser and static renderers.
const (
	RingRadiusPx    = 8
	RingWeight      = 2
	RingFillOpacity = 0.15

	// ringFillAlpha is RingFillOpacity as an 8-bit alpha.
	ringFillAlpha uint8 = 38
)

// MarkersFromTickets builds markers for the tickets that have a position.
func MarkersFromTickets(tickets []models.Ticket) []Marker {
	out := make([]Marker, 0, len(tickets))
	for i := range tickets {
		p, ok := tickets[i].Position()
		if !ok {
			continue
		}
		out = append(out, Marker{Lat: p.Lat, Lng: p.Lng, Status: tickets[i].Status, ID: tickets[i].ID})
	}
	return out
}

// Draggable is implemented by views that report drag-end events.
type Draggable interface {
	OnMarkerMove(h MoveHandler)
}
