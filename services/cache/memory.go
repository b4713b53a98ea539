package cachesvc

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/darasa/core"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

// MemoryCache is a process local core.ListCache. A zero ttl keeps entries until their route is invalidated.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]map[string]memEntry // path -> variant -> entry
	invalid map[string]int                 // invalidations per path
	now     func() time.Time
}

var _ core.ListCache = (*MemoryCache)(nil)

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]map[string]memEntry),
		invalid: make(map[string]int),
		now:     time.Now,
	}
}

func (c *MemoryCache) Invalidate(_ context.Context, paths ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, path := range paths {
		delete(c.entries, path)
		c.invalid[path]++
	}
	return nil
}

// Invalidations returns how many times path was invalidated.
func (c *MemoryCache) Invalidations(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalid[path]
}

func (c *MemoryCache) Get(_ context.Context, path, variant string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[path][variant]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && c.now().After(entry.expires) {
		delete(c.entries[path], variant)
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (c *MemoryCache) Set(_ context.Context, path, variant string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries[path] == nil {
		c.entries[path] = make(map[string]memEntry)
	}
	c.entries[path][variant] = memEntry{
		data:    append([]byte(nil), data...),
		expires: c.now().Add(c.ttl),
	}
	return nil
}
