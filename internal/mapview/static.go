// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package mapview

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"image/png"
	"math"
	"time"

	sm "github.com/flopp/go-staticmaps"
	"github.com/golang/geo/s2"

	"github.com/tomtom215/civicguard/internal/cache"
	"github.com/tomtom215/civicguard/internal/metrics"
)

const (
	mapboxURLPattern = "https://api.mapbox.com/styles/v1/mapbox/streets-v11/tiles/%[2]d/%[3]d/%[4]d?access_token=%[5]s"
	markerSize       = 16.0
	staticUserAgent  = "civicguard-staticmap/1.0"

	// Web Mercator ground resolution at zoom 0 for 256px tiles, in m/px.
	equatorMetersPerPixel = 156543.03392
)

// MaxRenderSize bounds either image dimension.
const MaxRenderSize = 2048

// StaticRenderer draws scene snapshots to PNG.
type StaticRenderer struct {
	tiles  Tiles
	online bool
	images *cache.Cache
}

// RendererOption configures a StaticRenderer.
type RendererOption func(*StaticRenderer)

// WithOffline renders without fetching tiles: markers on a blank
// background. Used by tests and air-gapped deployments.
func WithOffline() RendererOption {
	return func(r *StaticRenderer) {
		r.online = false
	}
}

// WithImageCache caches encoded images keyed on snapshot and size.
func WithImageCache(c *cache.Cache) RendererOption {
	return func(r *StaticRenderer) {
		r.images = c
	}
}

// NewStaticRenderer creates a renderer for the given tile layer.
func NewStaticRenderer(tiles Tiles, opts ...RendererOption) *StaticRenderer {
	r := &StaticRenderer{tiles: tiles, online: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type renderKey struct {
	Snapshot Snapshot
	Width    int
	Height   int
}

// Render draws snap at width x height and returns PNG bytes.
func (r *StaticRenderer) Render(ctx context.Context, snap Snapshot, width, height int) ([]byte, error) {
	if width < 1 || height < 1 || width > MaxRenderSize || height > MaxRenderSize {
		return nil, fmt.Errorf("map size %dx%d outside 1..%d", width, height, MaxRenderSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var key string
	if r.images != nil {
		key = cache.GenerateKey("map", renderKey{Snapshot: snap, Width: width, Height: height})
		if v, ok := r.images.Get(key); ok {
			return v.([]byte), nil
		}
	}

	start := time.Now()
	data, err := r.render(snap, width, height)
	metrics.RecordMapRender(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if r.images != nil {
		r.images.Set(key, data)
	}
	return data, nil
}

func (r *StaticRenderer) render(snap Snapshot, width, height int) ([]byte, error) {
	mc := sm.NewContext()
	mc.SetSize(width, height)
	mc.SetUserAgent(staticUserAgent)
	mc.SetCache(nil)

	zoom := ClampZoom(snap.Zoom)
	if r.online {
		mc.SetTileProvider(r.tileProvider())
		mc.SetOnline(true)
		// Mapbox serves 512px tiles, one zoom level below the nominal view.
		zoom = ClampZoom(zoom + snap.Tiles.ZoomOffset)
	} else {
		mc.SetTileProvider(sm.NewTileProviderNone())
		mc.SetOnline(false)
		mc.SetBackground(color.RGBA{0xee, 0xee, 0xee, 0xff})
	}
	mc.SetZoom(zoom)
	mc.SetCenter(s2.LatLngFromDegrees(snap.Center.Lat, snap.Center.Lng))
	mc.OverrideAttribution(snap.Tiles.Attribution)

	ringMeters := RingRadiusPx * metersPerPixel(snap.Center.Lat, ClampZoom(snap.Zoom))
	for _, m := range snap.Markers {
		col, err := sm.ParseColorString(StatusColor(m.Status))
		if err != nil {
			return nil, fmt.Errorf("parse marker colour: %w", err)
		}
		r8, g8, b8, _ := col.RGBA()
		fill := color.NRGBA{uint8(r8 >> 8), uint8(g8 >> 8), uint8(b8 >> 8), ringFillAlpha}

		pos := s2.LatLngFromDegrees(m.Lat, m.Lng)
		mc.AddObject(sm.NewMarker(pos, col, markerSize))
		mc.AddObject(sm.NewCircle(pos, col, fill, ringMeters, RingWeight))
	}
	if snap.Drag != nil {
		mc.AddObject(sm.NewMarker(
			s2.LatLngFromDegrees(snap.Drag.Lat, snap.Drag.Lng),
			color.RGBA{0x25, 0x63, 0xeb, 0xff},
			markerSize,
		))
	}

	img, err := mc.Render()
	if err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode map png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *StaticRenderer) tileProvider() *sm.TileProvider {
	if r.tiles.Provider == "mapbox" {
		return &sm.TileProvider{
			Name:        "mapbox-streets",
			Attribution: r.tiles.Attribution,
			TileSize:    512,
			URLPattern:  mapboxURLPattern,
			Shards:      []string{},
			APIKey:      r.tiles.token,
		}
	}
	return sm.NewTileProviderOpenStreetMaps()
}

// metersPerPixel is the Web Mercator ground resolution at lat and zoom.
func metersPerPixel(lat float64, zoom int) float64 {
	return equatorMetersPerPixel * math.Cos(lat*math.Pi/180) / math.Pow(2, float64(zoom))
}
