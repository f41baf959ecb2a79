// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package mapview

import "sync"

// DragAction is what SetDraggableMarker did to the draggable marker.
type DragAction string

const (
	DragNone   DragAction = ""
	DragCreate DragAction = "create"
	DragMove   DragAction = "move"
	DragRemove DragAction = "remove"
)

// Snapshot is an immutable copy of a scene's view state.
type Snapshot struct {
	Tiles   Tiles    `json:"tiles"`
	Center  LatLng   `json:"center"`
	Zoom    int      `json:"zoom"`
	Version uint64   `json:"version"`
	Markers []Marker `json:"markers"`
	Drag    *LatLng  `json:"drag,omitempty"`
}

// Layers counts what a scene currently holds.
type Layers struct {
	Maps      int
	Tiles     int
	Overlays  int
	Markers   int
	Rings     int
	Draggable int
}

// Total is the number of live layers plus map instances.
func (l Layers) Total() int {
	return l.Maps + l.Tiles + l.Overlays + l.Markers + l.Rings + l.Draggable
}

// Scene is the in-memory state of one map instance. State set before Init
// is kept and shown once the map is initialized. After Dispose every call
// is a no-op.
type Scene struct {
	mu sync.Mutex

	tiles   Tiles
	center  LatLng
	zoom    int
	version uint64
	markers []Marker
	drag    *LatLng
	onMove  MoveHandler

	initialized bool
	disposed    bool
}

var _ MapView = (*Scene)(nil)

// NewScene returns an uninitialized scene.
func NewScene(tiles Tiles, center LatLng, zoom int) *Scene {
	return &Scene{tiles: tiles, center: center, zoom: ClampZoom(zoom)}
}

// Init creates the map, its tile layer and the marker overlay. It reports
// whether this call did the work; repeated calls and calls after Dispose
// return false.
func (s *Scene) Init() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized || s.disposed {
		return false
	}
	s.initialized = true
	return true
}

// Live reports whether the map exists.
func (s *Scene) Live() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized && !s.disposed
}

// OnMarkerMove registers the drag-end callback.
func (s *Scene) OnMarkerMove(h MoveHandler) {
	s.mu.Lock()
	s.onMove = h
	s.mu.Unlock()
}

func (s *Scene) SetViewport(center LatLng, zoom int, version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.center = center
	s.zoom = ClampZoom(zoom)
	s.version = version
}

// SetMarkers replaces the overlay contents.
func (s *Scene) SetMarkers(markers []Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.markers = append([]Marker(nil), markers...)
}

func (s *Scene) SetDraggableMarker(pos *LatLng) {
	s.ApplyDraggable(pos)
}

// ApplyDraggable is SetDraggableMarker reporting what changed.
func (s *Scene) ApplyDraggable(pos *LatLng) DragAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return DragNone
	}

	switch {
	case pos == nil && s.drag == nil:
		return DragNone
	case pos == nil:
		s.drag = nil
		return DragRemove
	case s.drag == nil:
		p := *pos
		s.drag = &p
		return DragCreate
	case *s.drag == *pos:
		return DragNone
	default:
		*s.drag = *pos
		return DragMove
	}
}

// DragEnd records the marker's new position and invokes the callback. It
// returns false when there is no draggable marker to move or the position
// is not a valid coordinate; the marker then stays where it was.
func (s *Scene) DragEnd(lat, lng float64) bool {
	if !(LatLng{Lat: lat, Lng: lng}).Valid() {
		return false
	}
	s.mu.Lock()
	if s.disposed || !s.initialized || s.drag == nil {
		s.mu.Unlock()
		return false
	}
	s.drag.Lat, s.drag.Lng = lat, lng
	h := s.onMove
	s.mu.Unlock()

	if h != nil {
		h(lat, lng)
	}
	return true
}

// Dispose releases the draggable marker, the overlay and the map together.
func (s *Scene) Dispose() {
	s.dispose()
}

// dispose reports whether this call tore down a live map.
func (s *Scene) dispose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return false
	}
	s.disposed = true
	wasLive := s.initialized
	s.drag = nil
	s.markers = nil
	s.onMove = nil
	return wasLive
}

// Snapshot copies the current view state.
func (s *Scene) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Tiles:   s.tiles,
		Center:  s.center,
		Zoom:    s.zoom,
		Version: s.version,
		Markers: append([]Marker(nil), s.markers...),
	}
	if s.drag != nil {
		p := *s.drag
		snap.Drag = &p
	}
	return snap
}

// Layers counts live layers: one map, one tile layer and one overlay once
// initialized, a marker and a ring per read-only marker, and the
// draggable marker if present.
func (s *Scene) Layers() Layers {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized || s.disposed {
		return Layers{}
	}
	l := Layers{
		Maps:     1,
		Tiles:    1,
		Overlays: 1,
		Markers:  len(s.markers),
		Rings:    len(s.markers),
	}
	if s.drag != nil {
		l.Draggable = 1
	}
	return l
}
