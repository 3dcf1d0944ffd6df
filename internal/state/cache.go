package state

import (
	"sync"
	"time"
)

// ActiveSessionCache memoizes ListActiveSessions results for a bounded
// time-to-live, so collaborators polling for peers do not rescan the scratch
// directory on every call. The clock is injected so tests can simulate
// expiry deterministically instead of sleeping.
type ActiveSessionCache struct {
	coord *Coordinator
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	ids       []string
	fetchedAt time.Time
}

// CacheOption configures an ActiveSessionCache.
type CacheOption func(*ActiveSessionCache)

// WithCacheClock injects a clock for expiry decisions.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *ActiveSessionCache) {
		c.now = now
	}
}

// NewActiveSessionCache creates a cache over coord's active-session
// listings, holding each entry for cacheTTL.
func NewActiveSessionCache(coord *Coordinator, cacheTTL time.Duration, opts ...CacheOption) *ActiveSessionCache {
	c := &ActiveSessionCache{
		coord:   coord,
		ttl:     cacheTTL,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions returns the active session identifiers for baseName, serving a
// cached listing when one is younger than the cache TTL. activeTTL is the
// modification window passed through to the underlying listing. The
// returned slice is the caller's own copy; mutating it does not affect
// later calls.
func (c *ActiveSessionCache) Sessions(baseName string, activeTTL time.Duration) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[baseName]; ok {
		if c.now().Sub(entry.fetchedAt) <= c.ttl {
			return append([]string(nil), entry.ids...)
		}
	}

	ids := c.coord.ListActiveSessions(baseName, activeTTL)
	c.entries[baseName] = cacheEntry{ids: ids, fetchedAt: c.now()}
	return append([]string(nil), ids...)
}

// Invalidate drops the cached listing for baseName, forcing the next
// Sessions call to rescan.
func (c *ActiveSessionCache) Invalidate(baseName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, baseName)
}
