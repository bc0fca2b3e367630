/* status_cache.go
 * Contains a short lived cache of survivor statuses for display. Entries expire after a TTL and are dropped as soon as
 * a member's stored status changes
 * Authors: Zachary Bower
 */

package web

import (
	"sync"
	"time"

	"survivor-pool/api/shared"
)

type cachedStatus struct {
	status    shared.SurvivorStatus
	expiresAt time.Time
}

// StatusCache holds display statuses by user id. It is safe for concurrent use
type StatusCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cachedStatus
}

// NewStatusCache creates a cache whose entries live for ttl. A ttl of zero or less disables caching
func NewStatusCache(ttl time.Duration, now func() time.Time) *StatusCache {
	if now == nil {
		now = time.Now
	}
	return &StatusCache{ttl: ttl, now: now, entries: make(map[string]cachedStatus)}
}

// Get returns the cached status for a member if it has not expired
func (c *StatusCache) Get(userID string) (shared.SurvivorStatus, bool) {
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expiresAt) {
		return shared.SurvivorStatus{}, false
	}
	return entry.status, true
}

// Put caches a status for a member
func (c *StatusCache) Put(userID string, status shared.SurvivorStatus) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = cachedStatus{status: status, expiresAt: c.now().Add(c.ttl)}

	// Sweep expired entries
	now := c.now()
	for id, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, id)
		}
	}
}

// Invalidate drops a member's cached status. It satisfies api.StatusInvalidator
func (c *StatusCache) Invalidate(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
}

// Len returns the number of cached entries, expired or not
func (c *StatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
