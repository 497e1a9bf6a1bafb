// Package gridcache caches provider results on a lat/lng grid so nearby points
// share one upstream call.
package gridcache

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// Config holds cache settings.
type Config struct {
	// TTL is how long an entry is served as fresh.
	TTL time.Duration

	// StaleIfErrorTTL is how long after fetching an entry may still be served
	// when the provider fails. Default: 1 hour
	StaleIfErrorTTL time.Duration

	// GridSize is the cell size in degrees. Default: 0.01 (~1.1 km)
	GridSize float64

	// CleanupInterval is the minimum time between sweeps of dead entries.
	// Default: 5 minutes
	CleanupInterval time.Duration
}

// Cache is a grid-keyed TTL cache safe for concurrent use.
type Cache[T any] struct {
	ttl             time.Duration
	staleIfErrorTTL time.Duration
	gridSize        float64
	cleanupInterval time.Duration
	now             func() time.Time

	mu          sync.RWMutex
	entries     map[string]entry[T]
	lastCleanup time.Time
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
	expiresAt time.Time
}

// New creates a cache. A zero TTL defaults to 5 minutes.
func New[T any](cfg Config) *Cache[T] {
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.StaleIfErrorTTL == 0 {
		cfg.StaleIfErrorTTL = time.Hour
	}
	if cfg.StaleIfErrorTTL < cfg.TTL {
		cfg.StaleIfErrorTTL = cfg.TTL
	}
	if cfg.GridSize == 0 {
		cfg.GridSize = 0.01
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}

	return &Cache[T]{
		ttl:             cfg.TTL,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		gridSize:        cfg.GridSize,
		cleanupInterval: cfg.CleanupInterval,
		now:             time.Now,
		entries:         make(map[string]entry[T]),
	}
}

// Key returns the grid cell key for a point.
func (c *Cache[T]) Key(p geo.Point) string {
	lat := math.Floor(p.Lat/c.gridSize) * c.gridSize
	lng := math.Floor(geo.NormalizeLng(p.Lng)/c.gridSize) * c.gridSize
	return fmt.Sprintf("%.4f:%.4f", lat, lng)
}

// Get returns a fresh entry for the point's cell.
func (c *Cache[T]) Get(p geo.Point) (T, bool) { return c.Lookup(c.Key(p)) }

// GetStale returns an entry that is still within the stale-if-error window,
// along with the time it was fetched.
func (c *Cache[T]) GetStale(p geo.Point) (T, time.Time, bool) { return c.LookupStale(c.Key(p)) }

// Set stores a value for the point's cell.
func (c *Cache[T]) Set(p geo.Point, v T) { c.Put(c.Key(p), v) }

// Lookup returns a fresh entry stored under key. Keys built from several
// cells, such as an origin and destination pair, use this form.
func (c *Cache[T]) Lookup(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// LookupStale is GetStale for a raw key.
func (c *Cache[T]) LookupStale(key string) (T, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.fetchedAt.Add(c.staleIfErrorTTL)) {
		var zero T
		return zero, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

// Put stores v under key.
func (c *Cache[T]) Put(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[T]{
		value:     v,
		fetchedAt: now,
		expiresAt: now.Add(c.ttl),
	}
	c.cleanupIfNeeded(now)
}

// cleanupIfNeeded drops entries past the stale window. Callers hold mu.
func (c *Cache[T]) cleanupIfNeeded(now time.Time) {
	if now.Sub(c.lastCleanup) < c.cleanupInterval {
		return
	}
	c.lastCleanup = now

	for key, e := range c.entries {
		if now.After(e.fetchedAt.Add(c.staleIfErrorTTL)) {
			delete(c.entries, key)
		}
	}
}

// Invalidate clears all entries.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Stats contains cache statistics.
type Stats struct {
	Entries      int
	FreshEntries int
}

// Stats returns cache statistics.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	fresh := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			fresh++
		}
	}
	return Stats{Entries: len(c.entries), FreshEntries: fresh}
}
