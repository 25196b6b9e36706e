package bizconn

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	owner   int64
	expires time.Time
}

// MemoryCache is an in-process Cache with a fixed entry lifetime.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates a MemoryCache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, connectionID string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[connectionID]
	if !ok {
		return 0, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, connectionID)
		return 0, false, nil
	}
	return e.owner, true, nil
}

// Set implements Cache.
func (c *MemoryCache) Set(_ context.Context, connectionID string, ownerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[connectionID] = memoryEntry{owner: ownerID, expires: c.now().Add(c.ttl)}
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, connectionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, connectionID)
	return nil
}

// Len returns the number of entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
