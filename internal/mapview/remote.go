// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package mapview

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/civicguard/internal/logging"
)

// Command types understood by the browser map script.
const (
	CmdInit    = "map_init"
	CmdView    = "map_view"
	CmdMarkers = "map_markers"
	CmdDrag    = "map_drag_marker"
	CmdDispose = "map_dispose"
)

// Command is one instruction for the browser map.
type Command struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// CommandSink delivers commands to a browser.
type CommandSink interface {
	SendCommand(cmd Command) error
}

// DrawnMarker is a marker with its ring style resolved.
type DrawnMarker struct {
	Marker
	Color       string  `json:"color"`
	RingRadius  int     `json:"ring_radius"`
	RingWeight  int     `json:"ring_weight"`
	FillOpacity float64 `json:"fill_opacity"`
}

// InitData is the payload of map_init.
type InitData struct {
	Tiles   Tiles         `json:"tiles"`
	Center  LatLng        `json:"center"`
	Zoom    int           `json:"zoom"`
	Version uint64        `json:"version"`
	Markers []DrawnMarker `json:"markers"`
	Drag    *LatLng       `json:"drag,omitempty"`
}

// ViewData is the payload of map_view.
type ViewData struct {
	Center  LatLng `json:"center"`
	Zoom    int    `json:"zoom"`
	Version uint64 `json:"version"`
}

// MarkersData is the payload of map_markers.
type MarkersData struct {
	Markers []DrawnMarker `json:"markers"`
}

// DragData is the payload of map_drag_marker.
type DragData struct {
	Action   DragAction `json:"action"`
	Position *LatLng    `json:"position,omitempty"`
}

// Draw resolves ring styles for markers.
func Draw(markers []Marker) []DrawnMarker {
	out := make([]DrawnMarker, len(markers))
	for i, m := range markers {
		out[i] = DrawnMarker{
			Marker:      m,
			Color:       StatusColor(m.Status),
			RingRadius:  RingRadiusPx,
			RingWeight:  RingWeight,
			FillOpacity: RingFillOpacity,
		}
	}
	return out
}

// RemoteView drives a Leaflet map in the browser. Commands are only sent
// while the scene is live.
type RemoteView struct {
	scene  *Scene
	sink   CommandSink
	logger zerolog.Logger
}

var _ MapView = (*RemoteView)(nil)

// NewRemoteView wraps scene. Call Init to create the browser map.
func NewRemoteView(scene *Scene, sink CommandSink) *RemoteView {
	return &RemoteView{
		scene:  scene,
		sink:   sink,
		logger: logging.WithComponent("mapview"),
	}
}

// Scene returns the backing scene.
func (v *RemoteView) Scene() *Scene {
	return v.scene
}

// Init sends map_init once. Later calls do nothing.
func (v *RemoteView) Init() {
	if !v.scene.Init() {
		return
	}
	snap := v.scene.Snapshot()
	v.send(CmdInit, InitData{
		Tiles:   snap.Tiles,
		Center:  snap.Center,
		Zoom:    snap.Zoom,
		Version: snap.Version,
		Markers: Draw(snap.Markers),
		Drag:    snap.Drag,
	})
}

func (v *RemoteView) SetViewport(center LatLng, zoom int, version uint64) {
	v.scene.SetViewport(center, zoom, version)
	if !v.scene.Live() {
		return
	}
	snap := v.scene.Snapshot()
	v.send(CmdView, ViewData{Center: snap.Center, Zoom: snap.Zoom, Version: snap.Version})
}

func (v *RemoteView) SetMarkers(markers []Marker) {
	v.scene.SetMarkers(markers)
	if !v.scene.Live() {
		return
	}
	v.send(CmdMarkers, MarkersData{Markers: Draw(markers)})
}

func (v *RemoteView) SetDraggableMarker(pos *LatLng) {
	action := v.scene.ApplyDraggable(pos)
	if action == DragNone || !v.scene.Live() {
		return
	}
	data := DragData{Action: action}
	if action != DragRemove {
		p := *pos
		data.Position = &p
	}
	v.send(CmdDrag, data)
}

// HandleDragEnd feeds a browser dragend event back into the scene.
func (v *RemoteView) HandleDragEnd(lat, lng float64) {
	if !v.scene.DragEnd(lat, lng) {
		v.logger.Debug().Float64("lat", lat).Float64("lng", lng).Msg("Ignoring drag end")
	}
}

// OnMarkerMove registers the drag-end callback.
func (v *RemoteView) OnMarkerMove(h MoveHandler) {
	v.scene.OnMarkerMove(h)
}

func (v *RemoteView) Dispose() {
	if v.scene.dispose() {
		v.send(CmdDispose, nil)
	}
}

func (v *RemoteView) send(typ string, data interface{}) {
	if err := v.sink.SendCommand(Command{Type: typ, Data: data}); err != nil {
		v.logger.Debug().Err(err).Str("command", typ).Msg("Map command not delivered")
	}
}
