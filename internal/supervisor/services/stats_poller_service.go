// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package services

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/civicguard/internal/logging"
	"github.com/tomtom215/civicguard/internal/metrics"
	"github.com/tomtom215/civicguard/internal/models"
)

// StatsSource is satisfied by *backend.Client.
type StatsSource interface {
	Stats(ctx context.Context) (models.Stats, error)
}

// StatsBroadcaster is satisfied by *websocket.Hub.
type StatsBroadcaster interface {
	BroadcastStatsUpdate(stats models.Stats, at time.Time)
}

// StatsPollerService fetches the dashboard counters once at start and then
// every interval, broadcasting each successful result. A failed poll is
// skipped and the browsers keep the previous numbers.
type StatsPollerService struct {
	source   StatsSource
	hub      StatsBroadcaster
	interval time.Duration
	clock    clockwork.Clock
	name     string
}

// NewStatsPollerService creates the poller. A nil clock means real time.
func NewStatsPollerService(source StatsSource, hub StatsBroadcaster, interval time.Duration, clk clockwork.Clock) *StatsPollerService {
	if clk == nil {
		clk = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &StatsPollerService{
		source:   source,
		hub:      hub,
		interval: interval,
		clock:    clk,
		name:     "stats-poller",
	}
}

// Serve implements suture.Service.
func (s *StatsPollerService) Serve(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			s.poll(ctx)
		}
	}
}

func (s *StatsPollerService) poll(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	stats, err := s.source.Stats(pctx)
	if err != nil {
		if ctx.Err() == nil {
			metrics.StatsPollErrors.Inc()
			logging.Debug().Err(err).Msg("Stats poll failed")
		}
		return
	}

	now := s.clock.Now()
	metrics.StatsLastSuccess.Set(float64(now.Unix()))
	s.hub.BroadcastStatsUpdate(stats, now)
}

// String names the service in supervisor logs.
func (s *StatsPollerService) String() string {
	return s.name
}
