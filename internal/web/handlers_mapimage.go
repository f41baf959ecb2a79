// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
	"github.com/tomtom215/civicguard/internal/validation"
)

// mapImageQuery is the parsed query of /static/map.png.
//
//	ticket=<id>                       center on one ticket at zoom 15
//	tickets=1[&status=..&iclass=..]   draw the ticket list (first 100)
//	lat=..&lng=..&zoom=..             viewport, default center and zoom otherwise
//	pin=1                             draggable-style pin at the center
//	w=..&h=..                         size in pixels
type mapImageQuery struct {
	Ticket  string
	Tickets bool
	Filter  models.TicketFilter
	Center  models.LatLng
	Zoom    int
	Pin     bool
	Width   int
	Height  int
}

func intParam(q url.Values, name string, def int) (int, error) {
	s := q.Get(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}

func (p *Pages) parseMapImageQuery(q url.Values) (mapImageQuery, error) {
	m := mapImageQuery{
		Ticket:  q.Get("ticket"),
		Tickets: q.Get("tickets") == "1",
		Center:  p.defaultCenter(),
		Pin:     q.Get("pin") == "1",
	}

	var err error
	if m.Zoom, err = intParam(q, "zoom", p.mapCfg.DefaultZoom); err != nil {
		return m, err
	}
	m.Zoom = mapview.ClampZoom(m.Zoom)
	if m.Width, err = intParam(q, "w", p.mapCfg.RenderWidth); err != nil {
		return m, err
	}
	if m.Height, err = intParam(q, "h", p.mapCfg.RenderHeight); err != nil {
		return m, err
	}
	if m.Width < 1 || m.Height < 1 || m.Width > mapview.MaxRenderSize || m.Height > mapview.MaxRenderSize {
		return m, fmt.Errorf("size must be between 1 and %d pixels", mapview.MaxRenderSize)
	}

	if q.Has("lat") || q.Has("lng") {
		pos, ok := models.ParseLatLng(q.Get("lat"), q.Get("lng"))
		if !ok {
			return m, fmt.Errorf("lat and lng must be a valid coordinate")
		}
		m.Center = pos
	}

	if m.Tickets {
		m.Filter = models.TicketFilter{Status: q.Get("status"), Class: q.Get("iclass"), Limit: complaintsLimit}
		if verr := validation.ValidateStruct(&m.Filter); verr != nil {
			return m, verr
		}
	}
	return m, nil
}

// MapImage renders a static PNG map. It is the no-script fallback for
// every map on the site.
func (p *Pages) MapImage(w http.ResponseWriter, r *http.Request) {
	q, err := p.parseMapImageQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap := mapview.Snapshot{Tiles: p.tiles, Center: q.Center, Zoom: q.Zoom}

	ctx, cancel := backendContext(r)
	defer cancel()

	switch {
	case q.Ticket != "":
		t, err := p.tickets.Ticket(ctx, q.Ticket)
		if err != nil {
			http.Error(w, ticketError(err), ticketErrorStatus(err))
			return
		}
		pos, ok := t.Position()
		if !ok {
			http.Error(w, "Ticket has no location", http.StatusNotFound)
			return
		}
		snap.Center = pos
		snap.Zoom = ticketZoom
		snap.Markers = mapview.MarkersFromTickets([]models.Ticket{*t})

	case q.Tickets:
		tickets, err := p.tickets.ListTickets(ctx, q.Filter)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("Ticket list failed, rendering map without markers")
		}
		snap.Markers = mapview.MarkersFromTickets(tickets)
	}

	if q.Pin {
		c := snap.Center
		snap.Drag = &c
	}

	img, err := p.renderMap(r, snap, q.Width, q.Height)
	if err != nil {
		http.Error(w, "Map unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=60")
	_, _ = w.Write(img)
}

func (p *Pages) renderMap(r *http.Request, snap mapview.Snapshot, width, height int) ([]byte, error) {
	if p.renderer == nil {
		return nil, fmt.Errorf("no map renderer")
	}
	img, err := p.renderer.Render(r.Context(), snap, width, height)
	if err == nil || p.fallback == nil {
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Map render failed")
		}
		return img, err
	}

	logging.Ctx(r.Context()).Warn().Err(err).Msg("Map render failed, using fallback")
	return p.fallback.Render(r.Context(), snap, width, height)
}
