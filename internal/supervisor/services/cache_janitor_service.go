// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package services

import (
	"context"
	"time"
)

// Janitor is satisfied by *cache.Cache.
type Janitor interface {
	Name() string
	Run(ctx context.Context, interval time.Duration) error
}

// CacheJanitorService sweeps expired entries out of a cache.
type CacheJanitorService struct {
	cache    Janitor
	interval time.Duration
}

// NewCacheJanitorService sweeps c every interval (one minute if unset).
func NewCacheJanitorService(c Janitor, interval time.Duration) *CacheJanitorService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitorService{cache: c, interval: interval}
}

// Serve implements suture.Service.
func (j *CacheJanitorService) Serve(ctx context.Context) error {
	return j.cache.Run(ctx, j.interval)
}

// String names the service in supervisor logs.
func (j *CacheJanitorService) String() string {
	return "cache-janitor-" + j.cache.Name()
}
