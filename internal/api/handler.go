// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package api

import (
	"context"
	"time"

	"github.com/tomtom215/civicguard/internal/backend"
	"github.com/tomtom215/civicguard/internal/config"
	ws "github.com/tomtom215/civicguard/internal/websocket"
)

// Upstream is what the proxy and health handlers need from the backend
// client.
type Upstream interface {
	Forward(ctx context.Context, req backend.ForwardRequest) (*backend.ForwardResponse, error)
	BreakerState() string
}

// Handler serves the JSON proxy, health, metrics and realtime endpoints.
type Handler struct {
	upstream  Upstream
	hub       *ws.Hub
	intake    ws.IntakeDeps
	security  config.SecurityConfig
	maxUpload int64
	version   string
	startTime time.Time
}

// HandlerDeps are the collaborators of a Handler. Hub may be nil when the
// stats channel is not served.
type HandlerDeps struct {
	Upstream Upstream
	Hub      *ws.Hub
	Intake   ws.IntakeDeps
	Config   *config.Config
	Version  string
}

// NewHandler creates a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	h := &Handler{
		upstream:  deps.Upstream,
		hub:       deps.Hub,
		intake:    deps.Intake,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if deps.Config != nil {
		h.security = deps.Config.Security
		h.maxUpload = deps.Config.Backend.MaxBodyBytes
	}
	if h.maxUpload <= 0 {
		h.maxUpload = 32 << 20
	}
	return h
}
