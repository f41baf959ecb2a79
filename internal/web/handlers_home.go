// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package web

import (
	"net/http"

	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/models"
)

type homeData struct {
	Layout
	Stats models.Stats
}

// Home renders the dashboard. Counters start from one backend read and
// are then kept current over /ws/stats; a failed read shows the defaults.
func (p *Pages) Home(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := backendContext(r)
	defer cancel()

	stats, err := p.tickets.Stats(ctx)
	if err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Stats unavailable, showing defaults")
		stats = models.DefaultStats()
	}

	p.render(w, r, "home", http.StatusOK, homeData{
		Layout: Layout{Title: "CivicGuard", Active: "home"},
		Stats:  stats,
	})
}
