package catalog

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sells-group/campaign-planner/internal/model"
)

// Key identifies one market's reference data at a dataset version.
type Key struct {
	Market  string
	Version string
}

func (k Key) String() string { return k.Market + "@" + k.Version }

// Bundle is the reference data resolved for one Key.
type Bundle struct {
	Market       model.Market
	Demographics model.Dataset
	LoadedAt     time.Time
}

// Cache holds loaded reference data by market and dataset version. It is
// safe for concurrent use and is passed explicitly to the code that needs it.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*Bundle
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*Bundle)}
}

// Get returns the cached bundle for key.
func (c *Cache) Get(key Key) (*Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[key]
	return b, ok
}

// Put stores a bundle under key, replacing any previous entry.
func (c *Cache) Put(key Key, b *Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.LoadedAt.IsZero() {
		b.LoadedAt = time.Now()
	}
	c.entries[key] = b
}

// Load returns the cached bundle for key, calling load on a miss. Concurrent
// misses for the same key share a single load. Failed loads are not cached.
func (c *Cache) Load(key Key, load func() (*Bundle, error)) (*Bundle, error) {
	if b, ok := c.Get(key); ok {
		return b, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if b, ok := c.Get(key); ok {
			return b, nil
		}
		b, err := load()
		if err != nil {
			return nil, err
		}
		c.Put(key, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Bundle), nil
}

// Invalidate drops every cached version of a market.
func (c *Cache) Invalidate(market string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if k.Market == market {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of cached bundles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
