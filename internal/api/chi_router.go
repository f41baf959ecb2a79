// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/civicguard/internal/middleware"
)

// Pages registers the server-rendered page routes.
type Pages interface {
	Routes(r chi.Router)
}

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	pages         Pages
}

// NewRouter creates a Router. pages may be nil.
func NewRouter(handler *Handler, mw *ChiMiddleware, pages Pages) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, chiMiddleware: mw, pages: pages}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global middleware, in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(SecurityHeaders())

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	// Health and metrics
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(middleware.NoStore)
		r.Get("/health", router.handler.Health)
		r.Get("/health/live", router.handler.HealthLive)
		r.Get("/health/ready", router.handler.HealthReady)
		r.Handle("/metrics", promhttp.Handler())
	})

	// Backend proxy. Paths mirror the backend's so browser code can call
	// either interchangeably.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.NoStore)

		r.Post("/api/intake", router.handler.ProxyIntake)
		r.Get("/api/stats", router.handler.ProxyStats)
		r.Get("/api/tickets", router.handler.ProxyTickets)
		r.Get("/api/tickets/{id}", router.handler.ProxyTicket)
		r.Get("/test-geocode", router.handler.ProxyTestGeocode)
	})

	// Realtime
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Get("/ws/stats", router.handler.StatsSocket)
		r.Get("/ws/intake", router.handler.IntakeSocket)
	})

	if router.pages != nil {
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(middleware.PrometheusMetrics)
			router.pages.Routes(r)
		})
	}

	return r
}
