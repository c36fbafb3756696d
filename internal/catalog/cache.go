package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache keeps one snapshot per company for a TTL. Concurrent misses for the
// same company share a single load.
type Cache struct {
	loader *Loader
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*Snapshot
	gens    map[string]uint64
	group   singleflight.Group
}

// NewCache returns a Cache over loader. A non-positive ttl disables caching.
func NewCache(loader *Loader, ttl time.Duration) *Cache {
	return &Cache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*Snapshot),
		gens:    make(map[string]uint64),
	}
}

// Get returns a fresh-enough snapshot for storeID, loading it when needed.
func (c *Cache) Get(ctx context.Context, storeID string) (*Snapshot, error) {
	if snap := c.cached(storeID); snap != nil {
		return snap, nil
	}

	v, err, _ := c.group.Do(storeID, func() (any, error) {
		if snap := c.cached(storeID); snap != nil {
			return snap, nil
		}
		c.mu.RLock()
		gen := c.gens[storeID]
		c.mu.RUnlock()

		snap, err := c.loader.Load(ctx, storeID)
		if err != nil {
			return nil, err
		}
		if c.ttl > 0 {
			snap.LoadedAt = c.now()
			c.mu.Lock()
			// An Invalidate during the load means snap may predate a write.
			if c.gens[storeID] == gen {
				c.entries[storeID] = snap
			}
			c.mu.Unlock()
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot of storeID. Call it after catalog writes.
func (c *Cache) Invalidate(storeID string) {
	c.mu.Lock()
	delete(c.entries, storeID)
	c.gens[storeID]++
	c.mu.Unlock()
	c.group.Forget(storeID)
}

func (c *Cache) cached(storeID string) *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.entries[storeID]
	if !ok || c.ttl <= 0 || c.now().Sub(snap.LoadedAt) >= c.ttl {
		return nil
	}
	return snap
}
