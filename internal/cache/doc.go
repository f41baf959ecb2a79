// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

/*
Package cache provides a thread-safe in-memory cache with TTL expiration and
an optional LRU capacity bound.

The web client uses it for rendered static map images, keyed on the scene
(viewport, size and markers), so that repeated page loads do not re-fetch
tiles.

# Expiration

Entries expire lazily on Get. Run performs periodic cleanup until its
context is cancelled; the server runs it under the supervisor so no
goroutine outlives shutdown.

# Capacity

With WithCapacity(n) the least recently used entry is evicted when an
insert would exceed n entries.

# Metrics

Hits, misses and evictions are exported per cache name as
cache_hits_total, cache_misses_total and cache_evictions_total.

# Usage

	images := cache.New("map_render", 5*time.Minute, cache.WithCapacity(256))
	key := cache.GenerateKey("map", scene)
	if v, ok := images.Get(key); ok {
	    return v.([]byte), nil
	}
*/
package cache
