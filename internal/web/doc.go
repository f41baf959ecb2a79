// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package web serves the server-rendered pages of the client.

Pages are html/template views embedded in the binary (templates/), each
rendered inside layout.html. Browser assets (static/) are served under
/assets/ and add the interactive parts: Leaflet maps from a data-map
attribute, live counters over /ws/stats and the report form over
/ws/intake. Every page works without scripts; maps then fall back to
/static/map.png, drawn by mapview.StaticRenderer.

Routes:

	GET  /                 dashboard counters
	GET  /intake           report form
	POST /intake           plain multipart submit through intake.Form
	GET  /track?id=        ticket lookup
	GET  /track/{id}       ticket detail
	GET  /complaints       list with status and iclass filters
	GET  /map              every ticket on one map
	GET  /static/map.png   map image
	GET  /assets/*         embedded CSS and JS
*/
package web
