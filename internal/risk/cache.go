package risk

import (
	"sync"
	"time"
)

// Cache holds completed route assessments keyed by route and departure time.
// Entries are replaced whole; readers never observe a partial assessment.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[cacheKey]*cacheEntry
}

type cacheKey struct {
	routeID   string
	departure int64
}

type cacheEntry struct {
	assessment *RouteAssessment
	expiresAt  time.Time
}

// NewCache creates an assessment cache. A zero TTL defaults to 5 minutes.
func NewCache(ttl time.Duration) *Cache {
	if ttl == 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Get returns the cached assessment for the route and departure, or nil when
// absent or expired.
func (c *Cache) Get(routeID string, departure time.Time) *RouteAssessment {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key(routeID, departure)]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}
	return entry.assessment
}

// Put stores an assessment, replacing any previous entry for the same key.
func (c *Cache) Put(routeID string, departure time.Time, assessment *RouteAssessment) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key(routeID, departure)] = &cacheEntry{
		assessment: assessment,
		expiresAt:  time.Now().Add(c.ttl),
	}
}

// Invalidate drops the entry for the route and departure, if present.
func (c *Cache) Invalidate(routeID string, departure time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key(routeID, departure))
}

// Purge removes all expired entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func key(routeID string, departure time.Time) cacheKey {
	return cacheKey{
		routeID:   routeID,
		departure: departure.Truncate(time.Minute).Unix(),
	}
}
