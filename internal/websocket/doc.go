// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package websocket provides the two realtime channels of the web client.

Stats channel (/ws/stats):

A Hub broadcasts the dashboard counters to every connected Client. The
stats poller calls BroadcastStatsUpdate after each successful backend
read; a newly registered client is sent the last update immediately.

	┌──────────┐
	│   Hub    │ ← stats poller
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│ Client1  │ Client2 │ Client3 │
	└──────────┴─────────┴─────────┘

Intake channel (/ws/intake):

Each connection owns one report form (package intake). The server keeps
the form state and the map scene; the browser is a position sensor and a
Leaflet renderer.

Server to browser:

  - state: the full form state after every change
  - map_init, map_view, map_markers, map_drag_marker, map_dispose: map commands
  - watch_start, watch_stop: begin or end a geolocation watch
  - error: a rejected message

Browser to server:

  - locate, stop_locating, center: button presses
  - position, position_error: watch results, tagged with the watch id
  - drag_end: the draggable marker was moved
  - field: a text field edit (note, contact, lat, lng)

Messages for a watch that is no longer current are dropped, so a late fix
from a cancelled watch cannot move the marker.

Connection settings:

  - writeWait: 10 seconds
  - pongWait: 60 seconds, pings at 9/10 of that
  - maxMessageSize: 64 KB
  - sendBuffer: 256 messages; a browser that stops reading is disconnected

Usage:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)
	hub.BroadcastStatsUpdate(stats, time.Now())

	conn := websocket.NewIntakeConn(ctx, wsConn, deps)
	conn.Serve(ctx)
*/
package websocket
