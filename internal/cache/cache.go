// CivicGuard - Citizen Issue Reporting Client
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civicguard

package cache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"

	"github.com/tomtom215/civicguard/internal/metrics"
)

type entry struct {
	key       string
	value     interface{}
	expiresAt time.Time
}

// Stats tracks cache performance.
type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	TotalKeys   int64
	LastCleanup time.Time
}

// Cache is a TTL cache with optional LRU eviction.
type Cache struct {
	name     string
	ttl      time.Duration
	capacity int
	clock    clockwork.Clock

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front is most recently used
	stats   Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity bounds the number of entries. Zero means unbounded.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.capacity = n
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(clk clockwork.Clock) Option {
	return func(c *Cache) {
		c.clock = clk
	}
}

// New creates a cache. name is the cache_type metrics label. A ttl of zero
// or less disables caching: Set becomes a no-op.
func New(name string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		name:    name,
		ttl:     ttl,
		clock:   clockwork.NewRealClock(),
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.LastCleanup = c.clock.Now()
	return c
}

// Name returns the metrics label of the cache.
func (c *Cache) Name() string {
	return c.name
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.miss()
		return nil, false
	}

	e := el.Value.(*entry)
	if c.clock.Now().After(e.expiresAt) {
		c.removeElement(el)
		c.miss()
		return nil, false
	}

	c.order.MoveToFront(el)
	c.stats.Hits++
	metrics.CacheHits.WithLabelValues(c.name).Inc()
	return e.value, true
}

// Set stores value with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(ttl)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	if c.capacity > 0 && c.order.Len() > c.capacity {
		c.removeElement(c.order.Back())
	}
	c.stats.TotalKeys = int64(len(c.entries))
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.stats.Evictions += int64(n)
	c.stats.TotalKeys = 0
	metrics.CacheEvictions.WithLabelValues(c.name).Add(float64(n))
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the counters.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// HitRate returns the hit rate as a percentage.
func (c *Cache) HitRate() float64 {
	stats := c.GetStats()
	total := stats.Hits + stats.Misses
	if total == 0 {
		return 0.0
	}
	return float64(stats.Hits) / float64(total) * 100.0
}

// Cleanup removes expired entries and returns how many were removed.
func (c *Cache) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if now.After(el.Value.(*entry).expiresAt) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	c.stats.LastCleanup = now
	return removed
}

// Run calls Cleanup every interval until ctx is done. It returns ctx.Err().
func (c *Cache) Run(ctx context.Context, interval time.Duration) error {
	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.Chan():
			c.Cleanup()
		}
	}
}

// removeElement must be called with mu held.
func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.order.Remove(el)
	delete(c.entries, e.key)
	c.stats.Evictions++
	c.stats.TotalKeys = int64(len(c.entries))
	metrics.CacheEvictions.WithLabelValues(c.name).Inc()
}

func (c *Cache) miss() {
	c.stats.Misses++
	metrics.CacheMisses.WithLabelValues(c.name).Inc()
}

// GenerateKey creates a cache key from a prefix and any JSON-encodable
// parameters.
func GenerateKey(prefix string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", prefix, params)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", prefix, hash[:16])
}
