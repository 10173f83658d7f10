package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	data  []byte
	entry Entry
}

// MemoryCache keeps entries in process memory. It backs the "memory"
// store and tests.
type MemoryCache struct {
	mu         sync.RWMutex
	items      map[string]memoryItem
	defaultTTL time.Duration
	counters   counters
	now        func() time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache(defaultTTL time.Duration) *MemoryCache {
	return &MemoryCache{
		items:      make(map[string]memoryItem),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get retrieves data from cache, returning ErrMiss for absent or expired keys
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || item.entry.Expired(c.now()) {
		c.counters.miss()
		return nil, ErrMiss
	}

	c.counters.hit()

	return append([]byte(nil), item.data...), nil
}

// Set stores a copy of data with ttl. A zero ttl uses the default.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = memoryItem{
		data: append([]byte(nil), data...),
		entry: Entry{
			Key:       key,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
			Size:      int64(len(data)),
		},
	}

	return nil
}

// Delete removes an entry from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()

	return nil
}

// Clear removes all entries and resets statistics
func (c *MemoryCache) Clear(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.items = make(map[string]memoryItem)
	c.mu.Unlock()

	c.counters.reset()

	return nil
}

// Size returns the total size of cached data
func (c *MemoryCache) Size(ctx context.Context) (int64, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var total int64
	for _, item := range c.items {
		total += item.entry.Size
	}

	return total, nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, item := range c.items {
		if item.entry.Expired(now) {
			delete(c.items, key)
		}
	}

	return nil
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats(ctx context.Context) (*Stats, error) {
	size, err := c.Size(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	entries := int64(len(c.items))
	c.mu.RUnlock()

	return c.counters.snapshot(entries, size), nil
}

// Close is a no-op
func (c *MemoryCache) Close() error {
	return nil
}
