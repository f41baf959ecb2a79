// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/civicguard/internal/config"
	"github.com/tomtom215/civicguard/internal/intake"
	"github.com/tomtom215/civicguard/internal/mapview"
	"github.com/tomtom215/civicguard/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// backendTimeout bounds each backend call a page makes while rendering.
const backendTimeout = 10 * time.Second

// TicketSource reads tickets and counters from the backend.
type TicketSource interface {
	Stats(ctx context.Context) (models.Stats, error)
	Ticket(ctx context.Context, id string) (*models.Ticket, error)
	ListTickets(ctx context.Context, f models.TicketFilter) ([]models.Ticket, error)
}

// MapRenderer draws a map scene to PNG.
type MapRenderer interface {
	Render(ctx context.Context, snap mapview.Snapshot, width, height int) ([]byte, error)
}

// Deps are the collaborators of Pages. Fallback, when set, renders maps
// after Renderer fails (for example without tile server access).
type Deps struct {
	Tickets  TicketSource
	Intake   intake.Backend
	Renderer MapRenderer
	Fallback MapRenderer
	Config   *config.Config
}

// Pages serves the server-rendered views.
type Pages struct {
	tickets  TicketSource
	intake   intake.Backend
	renderer MapRenderer
	fallback MapRenderer
	settings intake.Settings
	tiles    mapview.Tiles
	mapCfg   config.MapConfig
	maxBody  int64
	views    *views
}

// New parses the embedded templates and returns Pages.
func New(deps Deps) (*Pages, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("web: config is required")
	}
	v, err := parseViews(templateFS)
	if err != nil {
		return nil, err
	}
	return &Pages{
		tickets:  deps.Tickets,
		intake:   deps.Intake,
		renderer: deps.Renderer,
		fallback: deps.Fallback,
		settings: intake.SettingsFromConfig(deps.Config),
		tiles:    mapview.ChooseTiles(deps.Config.Map.MapboxToken),
		mapCfg:   deps.Config.Map,
		maxBody:  deps.Config.Backend.MaxBodyBytes,
		views:    v,
	}, nil
}

// Routes registers the page routes on r.
func (p *Pages) Routes(r chi.Router) {
	r.Get("/", p.Home)
	r.Get("/intake", p.IntakeForm)
	r.Post("/intake", p.IntakeSubmit)
	r.Get("/track", p.Track)
	r.Get("/track/{id}", p.TrackByID)
	r.Get("/complaints", p.Complaints)
	r.Get("/map", p.Map)
	r.Get("/static/map.png", p.MapImage)

	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The directory is embedded at build time.
		panic(err)
	}
	r.Handle("/assets/*", http.StripPrefix("/assets/", assetCache(http.FileServer(http.FS(assets)))))
}

func assetCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

func backendContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), backendTimeout)
}
