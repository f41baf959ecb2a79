// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status         string  `json:"status"`
	Version        string  `json:"version,omitempty"`
	BackendCircuit string  `json:"backend_circuit"`
	StatsClients   int     `json:"stats_clients"`
	Uptime         float64 `json:"uptime"`
}

// Health reports overall status. The server is degraded, not down, while
// the backend circuit is open: pages still render with fallbacks.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	circuit := h.upstream.BreakerState()
	status := "healthy"
	if circuit != "closed" {
		status = "degraded"
	}

	clients := 0
	if h.hub != nil {
		clients = h.hub.GetClientCount()
	}

	respondSuccess(w, r, http.StatusOK, HealthStatus{
		Status:         status,
		Version:        h.version,
		BackendCircuit: circuit,
		StatsClients:   clients,
		Uptime:         time.Since(h.startTime).Seconds(),
	})
}

// HealthLive returns 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 503 while the backend circuit is open.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	circuit := h.upstream.BreakerState()
	if circuit == "open" {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable,
			"Backend circuit open", map[string]string{"backend_circuit": circuit})
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"ready":           true,
		"backend_circuit": circuit,
	})
}
