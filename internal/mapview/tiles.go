// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package mapview

import (
	"net/url"
	"strings"
)

// MaxZoom is the highest zoom either tile provider serves.
const MaxZoom = 19

// Tiles describes the single tile layer of a map, in Leaflet terms.
type Tiles struct {
	Provider    string `json:"provider"`
	URLTemplate string `json:"url"`
	Attribution string `json:"attribution"`
	TileSize    int    `json:"tile_size"`
	ZoomOffset  int    `json:"zoom_offset"`
	MaxZoom     int    `json:"max_zoom"`

	token string
}

const (
	mapboxTemplate = "https://api.mapbox.com/styles/v1/mapbox/streets-v11/tiles/{z}/{x}/{y}?access_token="
	osmTemplate    = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
)

// ChooseTiles returns Mapbox streets when token is set, else OpenStreetMap.
func ChooseTiles(mapboxToken string) Tiles {
	token := strings.TrimSpace(mapboxToken)
	if token != "" {
		return Tiles{
			Provider:    "mapbox",
			URLTemplate: mapboxTemplate + url.QueryEscape(token),
			Attribution: "© Mapbox © OpenStreetMap contributors",
			TileSize:    512,
			ZoomOffset:  -1,
			MaxZoom:     MaxZoom,
			token:       token,
		}
	}
	return Tiles{
		Provider:    "osm",
		URLTemplate: osmTemplate,
		Attribution: "© OpenStreetMap contributors",
		TileSize:    256,
		ZoomOffset:  0,
		MaxZoom:     MaxZoom,
	}
}

// ClampZoom limits z to [0, MaxZoom].
func ClampZoom(z int) int {
	if z < 0 {
		return 0
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
