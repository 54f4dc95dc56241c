package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Internal package tests: the clock seam (now) is unexported.

func TestCache_HitWithinTTL(t *testing.T) {
	cache := NewDecisionCache(time.Minute)
	key := NewCacheKey(Query{Email: "a@x.com", AccessCode: "INV-9"})

	cache.Put(key, Decision{Valid: true})

	d, ok := cache.Get(key)
	assert.True(t, ok)
	assert.True(t, d.Valid)
}

func TestCache_ExpiresByElapsedTimeOnly(t *testing.T) {
	// GIVEN: A memoized decision and a clock we control
	// WHEN: The TTL elapses
	// THEN: The entry is gone, with no explicit invalidation involved

	cache := NewDecisionCache(time.Minute)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	key := NewCacheKey(Query{Email: "a@x.com", AccessCode: "INV-9"})
	cache.Put(key, Decision{Valid: true})

	base = base.Add(59 * time.Second)
	_, ok := cache.Get(key)
	assert.True(t, ok, "still live just inside the TTL")

	base = base.Add(2 * time.Second)
	_, ok = cache.Get(key)
	assert.False(t, ok, "expired past the TTL")
	assert.Equal(t, 0, cache.Len(), "expired entry dropped")
}

func TestCache_KeyComposition_NoCollisions(t *testing.T) {
	// Distinct query shapes over the same email+code must not collide:
	// candidate and plugin filter are part of the key, with sentinels
	// for "none"/"any".
	queries := []Query{
		{Email: "a@x.com", AccessCode: "INV-9"},
		{Email: "a@x.com", AccessCode: "INV-9", Candidate: "u1"},
		{Email: "a@x.com", AccessCode: "INV-9", Candidate: "u2"},
		{Email: "a@x.com", AccessCode: "INV-9", PluginFilter: "Grid"},
		{Email: "a@x.com", AccessCode: "INV-9", Candidate: "u1", PluginFilter: "Grid"},
	}

	seen := make(map[CacheKey]bool)
	for _, q := range queries {
		seen[NewCacheKey(q)] = true
	}
	assert.Len(t, seen, len(queries))
}

func TestCache_KeyNormalization(t *testing.T) {
	a := NewCacheKey(Query{Email: "  A@X.com ", AccessCode: " INV-9 ", PluginFilter: "Grid Pro"})
	b := NewCacheKey(Query{Email: "a@x.com", AccessCode: "INV-9", PluginFilter: "grid-pro"})
	assert.Equal(t, a, b, "email, access code and plugin filter normalize into the key")
}

func TestCache_PutSweepsExpired(t *testing.T) {
	cache := NewDecisionCache(time.Minute)
	base := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	for _, code := range []string{"A", "B", "C"} {
		cache.Put(NewCacheKey(Query{Email: "a@x.com", AccessCode: code}), Decision{})
	}
	assert.Equal(t, 3, cache.Len())

	base = base.Add(2 * time.Minute)
	cache.Put(NewCacheKey(Query{Email: "a@x.com", AccessCode: "D"}), Decision{})
	assert.Equal(t, 1, cache.Len(), "stale entries swept on put")
}
