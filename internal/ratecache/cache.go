// Package ratecache caches resolved lender APRs so repeated review
// recomputations (slider drags, field edits) do not re-scan rate tables.
//
// Entries expire after a short TTL because rate sheets are reference data
// refreshed out of band; the cache is an optimization, never a source of
// truth.
package ratecache

import (
	"context"
	"sync"
	"time"

	"github.com/dealcraft/dealcalc/pkg/constants"
)

// DefaultTTL is how long a resolved rate stays cached.
const DefaultTTL = constants.DefaultRateCacheTTLSeconds * time.Second

// Cache stores resolved APR decimals keyed by lender/condition/term.
type Cache interface {
	Get(ctx context.Context, key string) (float64, bool)
	Set(ctx context.Context, key string, apr float64) error
}

type memoryEntry struct {
	apr       float64
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with per-entry TTL.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get returns the cached APR for key if present and unexpired. Expired
// entries are dropped on read.
func (c *MemoryCache) Get(_ context.Context, key string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return 0, false
	}
	return entry.apr, true
}

// Set stores the APR for key with the cache's TTL.
func (c *MemoryCache) Set(_ context.Context, key string, apr float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{apr: apr, expiresAt: c.now().Add(c.ttl)}
	return nil
}
