// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package mapview is the map display primitive: a tile map with a marker
overlay and an optional draggable marker, kept in sync with view state
owned by the caller.

# MapView

All views implement MapView:

	SetViewport(center, zoom, version)  re-center; version forces a re-center
	                                    even when the coordinate is unchanged
	SetMarkers(markers)                 clear the overlay, then draw one marker
	                                    and one status-coloured ring per entry
	SetDraggableMarker(pos)             create, move, or (nil) remove
	Dispose()                           release everything; idempotent

Views hold no business state and make no network calls. The only event
flowing back is the drag-end callback registered with OnMarkerMove.

# Implementations

Scene is the in-memory layer bookkeeping that every view is built on and
the source of layer counts in tests.

RemoteView mirrors a Scene onto a Leaflet map in the browser by sending
JSON commands through a CommandSink (the intake WebSocket).

StaticRenderer draws a Scene snapshot to PNG with go-staticmaps, for the
track and map pages and for clients without JavaScript.

# Tiles

ChooseTiles picks Mapbox streets (512px tiles, zoom offset -1) when an
access token is configured and OpenStreetMap otherwise.
*/
package mapview
