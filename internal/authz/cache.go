package authz

import (
	"fmt"
	"sync"
	"time"

	"github.com/tbjornsen/grantor/internal/models"
)

// Invalidator is implemented by the resolver and consumed by every service
// that mutates grants, memberships or the permission catalog. Any such write
// must drop memoised decisions for correctness.
type Invalidator interface {
	InvalidateDecisions()
}

// decisionCache memoises boolean access decisions for a short window. All
// entries are dropped on any grant mutation; the TTL only bounds staleness
// for writes that bypass this process.
type decisionCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]decisionEntry
}

type decisionEntry struct {
	allowed   bool
	expiresAt time.Time
}

func newDecisionCache(ttl time.Duration) *decisionCache {
	return &decisionCache{
		ttl:     ttl,
		entries: make(map[string]decisionEntry),
	}
}

func decisionKey(userID uint, set models.EntitySet, typ models.PermissionType, scope Scope) string {
	return fmt.Sprintf("%d|%s|%s|%s", userID, set, typ, scope)
}

func (c *decisionCache) get(key string) (bool, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return false, false
	}
	return entry.allowed, true
}

func (c *decisionCache) put(key string, allowed bool) {
	c.mu.Lock()
	c.entries[key] = decisionEntry{allowed: allowed, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *decisionCache) clear() {
	c.mu.Lock()
	c.entries = make(map[string]decisionEntry)
	c.mu.Unlock()
}
