// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
	"github.com/tomtom215/civicguard/internal/validation"
)

const (
	// complaintsLimit is the page size of the complaints list.
	complaintsLimit = 100

	// ticketZoom is the zoom of a single-ticket map.
	ticketZoom = 15

	ticketMapHeight     = 260
	complaintsMapHeight = 420
	overviewMapHeight   = 540
)

// MapSpec describes a read-only map for map.js. Image is the static PNG
// shown when scripts are disabled.
type MapSpec struct {
	Tiles   mapview.Tiles         `json:"tiles"`
	Center  models.LatLng         `json:"center"`
	Zoom    int                   `json:"zoom"`
	Markers []mapview.DrawnMarker `json:"markers"`
	Height  int                   `json:"-"`
	Image   string                `json:"-"`
}

func (p *Pages) defaultCenter() models.LatLng {
	return models.LatLng{Lat: p.mapCfg.DefaultLat, Lng: p.mapCfg.DefaultLng}
}

// ticketError renders a lookup failure the way the browser would have
// seen it through the proxy.
func ticketError(err error) string {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("Error %d", se.Status)
	case errors.Is(err, backend.ErrNotFound):
		return "Ticket not found"
	case errors.Is(err, backend.ErrCircuitOpen):
		return fmt.Sprintf("Error %d", http.StatusServiceUnavailable)
	case errors.Is(err, backend.ErrUpstreamUnavailable):
		return fmt.Sprintf("Error %d", http.StatusBadGateway)
	default:
		return "Failed"
	}
}

func ticketErrorStatus(err error) int {
	var se *backend.StatusError
	switch {
	case errors.As(err, &se):
		return se.Status
	case errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, backend.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

type trackData struct {
	Layout
	Query    string
	Ticket   *models.Ticket
	Map      *MapSpec
	Error    string
	ShowForm bool
}

func (p *Pages) ticketMap(t *models.Ticket) *MapSpec {
	pos, ok := t.Position()
	if !ok {
		return nil
	}
	markers := mapview.MarkersFromTickets([]models.Ticket{*t})
	return &MapSpec{
		Tiles:   p.tiles,
		Center:  pos,
		Zoom:    ticketZoom,
		Markers: mapview.Draw(markers),
		Height:  ticketMapHeight,
		Image:   "/static/map.png?ticket=" + url.QueryEscape(t.ID),
	}
}

// Track is the ticket lookup form. Submitting it with an empty id asks
// for one; any backend failure is shown as "Error <status>".
func (p *Pages) Track(w http.ResponseWriter, r *http.Request) {
	data := trackData{Layout: Layout{Title: "Track ticket", Active: "track"}, ShowForm: true}

	q := r.URL.Query()
	if !q.Has("id") {
		p.render(w, r, "track", http.StatusOK, data)
		return
	}

	data.Query = strings.TrimSpace(q.Get("id"))
	if data.Query == "" {
		data.Error = "Enter a ticket ID"
		p.render(w, r, "track", http.StatusOK, data)
		return
	}

	ctx, cancel := backendContext(r)
	defer cancel()
	t, err := p.tickets.Ticket(ctx, data.Query)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Ticket lookup failed")
		data.Error = ticketError(err)
		p.render(w, r, "track", http.StatusOK, data)
		return
	}
	data.Ticket = t
	data.Map = p.ticketMap(t)
	p.render(w, r, "track", http.StatusOK, data)
}

// TrackByID is the ticket detail page linked from the complaints list.
func (p *Pages) TrackByID(w http.ResponseWriter, r *http.Request) {
	data := trackData{Layout: Layout{Title: "Track ticket", Active: "track"}}
	data.Query = chi.URLParam(r, "id")
	if r.URL.RawPath != "" {
		if id, err := url.PathUnescape(data.Query); err == nil {
			data.Query = id
		}
	}

	ctx, cancel := backendContext(r)
	defer cancel()
	t, err := p.tickets.Ticket(ctx, data.Query)
	if err != nil {
		data.Error = ticketError(err)
		p.render(w, r, "track", ticketErrorStatus(err), data)
		return
	}
	data.Ticket = t
	data.Map = p.ticketMap(t)
	p.render(w, r, "track", http.StatusOK, data)
}

type complaintsData struct {
	Layout
	Status        string
	Class         string
	StatusOptions []string
	ClassOptions  []string
	Tickets       []models.Ticket
	Error         string
	Map           MapSpec
}

// Complaints lists recent tickets with optional status and class filters.
func (p *Pages) Complaints(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.TicketFilter{
		Status: q.Get("status"),
		Class:  q.Get("iclass"),
		Limit:  complaintsLimit,
	}

	data := complaintsData{
		Layout:        Layout{Title: "Complaints", Active: "complaints"},
		Status:        filter.Status,
		Class:         filter.Class,
		StatusOptions: append([]string{""}, models.TicketStatuses...),
		ClassOptions:  append([]string{""}, models.IssueClasses...),
		Tickets:       []models.Ticket{},
	}
	status := http.StatusOK

	if verr := validation.ValidateStruct(&filter); verr != nil {
		data.Error = verr.Error()
		status = http.StatusBadRequest
	} else {
		ctx, cancel := backendContext(r)
		tickets, err := p.tickets.ListTickets(ctx, filter)
		cancel()
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("Ticket list failed")
			data.Error = "Unable to load tickets"
		} else {
			data.Tickets = tickets
		}
	}

	img := url.Values{}
	img.Set("tickets", "1")
	if filter.Status != "" {
		img.Set("status", filter.Status)
	}
	if filter.Class != "" {
		img.Set("iclass", filter.Class)
	}
	data.Map = MapSpec{
		Tiles:   p.tiles,
		Center:  p.defaultCenter(),
		Zoom:    p.mapCfg.DefaultZoom,
		Markers: mapview.Draw(mapview.MarkersFromTickets(data.Tickets)),
		Height:  complaintsMapHeight,
		Image:   "/static/map.png?" + img.Encode(),
	}
	p.render(w, r, "complaints", status, data)
}

type mapData struct {
	Layout
	Map MapSpec
}

// Map shows every ticket. A backend failure renders an empty map.
func (p *Pages) Map(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := backendContext(r)
	tickets, err := p.tickets.ListTickets(ctx, models.TicketFilter{})
	cancel()
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Ticket list failed, rendering empty map")
		tickets = nil
	}

	p.render(w, r, "map", http.StatusOK, mapData{
		Layout: Layout{Title: "Nearby reports", Active: "map"},
		Map: MapSpec{
			Tiles:   p.tiles,
			Center:  p.defaultCenter(),
			Zoom:    p.mapCfg.DefaultZoom,
			Markers: mapview.Draw(mapview.MarkersFromTickets(tickets)),
			Height:  overviewMapHeight,
			Image:   "/static/map.png?tickets=1",
		},
	})
}
