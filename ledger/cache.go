/*
cache.go - Short-lived memoization of read-only decisions

PURPOSE:
  Memoizes pure read-only verification outcomes for a bounded time so
  repeated identical queries (license checks poll) do not rescan the
  store. Used only on the read path; any query that proceeds to a
  binding mutation bypasses the cache on both read and write.

KEY COMPOSITION:
  (email, access_code, candidate-or-sentinel, filter-or-sentinel).
  The sentinels keep distinct query shapes from colliding: "no
  candidate supplied" and "candidate u1" are different cache rows.

STALENESS CAVEAT:
  Entries expire purely by elapsed time; writes do not invalidate.
  Because mutations always bypass the cache, claim correctness is
  never affected - only the non-mutating bound/unbound reporting can
  lag by up to the TTL.

SEE ALSO:
  - engine.go: The only consumer; decides cacheability per decision
*/
package ledger

import (
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds entry lifetime when none is configured.
const DefaultCacheTTL = 5 * time.Minute

const (
	sentinelNoCandidate = "\x00none"
	sentinelAnyPlugin   = "\x00any"
)

// CacheKey identifies one memoized query shape.
type CacheKey struct {
	Email      string
	AccessCode string
	Candidate  string
	Plugin     string
}

// NewCacheKey normalizes a query into its cache identity.
func NewCacheKey(q Query) CacheKey {
	k := CacheKey{
		Email:      NormalizeEmail(q.Email),
		AccessCode: strings.TrimSpace(q.AccessCode),
		Candidate:  sentinelNoCandidate,
		Plugin:     sentinelAnyPlugin,
	}
	if q.Candidate != "" {
		k.Candidate = q.Candidate
	}
	if q.PluginFilter != "" {
		k.Plugin = NormalizePlugin(q.PluginFilter)
	}
	return k
}

type cacheEntry struct {
	decision  Decision
	expiresAt time.Time
}

// =============================================================================
// DECISION CACHE
// =============================================================================

// DecisionCache is a TTL-scoped map of read-only decisions. Safe for
// concurrent use. Expired entries are dropped lazily on Get and swept
// opportunistically on Put.
type DecisionCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]cacheEntry
	ttl     time.Duration
	now     func() time.Time // test seam
}

// NewDecisionCache creates a cache with the given TTL.
// A non-positive TTL falls back to DefaultCacheTTL.
func NewDecisionCache(ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &DecisionCache{
		entries: make(map[CacheKey]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the memoized decision for key, if present and unexpired.
func (c *DecisionCache) Get(key CacheKey) (Decision, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return Decision{}, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a Put may have refreshed it.
		if e2, ok2 := c.entries[key]; ok2 && c.now().After(e2.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Decision{}, false
	}
	return e.decision, true
}

// Put memoizes a decision until the TTL elapses.
func (c *DecisionCache) Put(key CacheKey, d Decision) {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{decision: d, expiresAt: now.Add(c.ttl)}
}

// Len reports live entries. Intended for tests and diagnostics.
func (c *DecisionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
