package analysis

import (
	"sync"
	"time"
)

const (
	DefaultCacheCapacity = 100
	DefaultCacheTTL      = 5 * time.Minute
)

type memoEntry struct {
	narrative string
	expiresAt time.Time
}

// MemoCache is a bounded in-memory TTL cache for analysis narratives. It is
// process-local: entries do not survive restarts. Concurrent callers missing
// the same key may each trigger a remote call; no single-flight guarantee.
type MemoCache struct {
	mu       sync.Mutex
	entries  map[string]memoEntry
	order    []string
	capacity int
	ttl      time.Duration
	now      func() time.Time

	hits   int
	misses int
}

func NewMemoCache(capacity int, ttl time.Duration) *MemoCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &MemoCache{
		entries:  make(map[string]memoEntry, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (c *MemoCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		if ok {
			delete(c.entries, key)
		}
		c.misses++
		return "", false
	}
	c.hits++
	return e.narrative, true
}

func (c *MemoCache) Put(key, narrative string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.evictLocked()
		c.order = append(c.order, key)
	}
	c.entries[key] = memoEntry{narrative: narrative, expiresAt: c.now().Add(c.ttl)}
}

// evictLocked drops expired entries, then the oldest insertion if the cache
// is still full.
func (c *MemoCache) evictLocked() {
	if len(c.entries) < c.capacity {
		return
	}
	now := c.now()
	kept := c.order[:0]
	for _, k := range c.order {
		if e, ok := c.entries[k]; ok && now.After(e.expiresAt) {
			delete(c.entries, k)
			continue
		}
		kept = append(kept, k)
	}
	c.order = kept
	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Stats reports hit/miss counters since construction.
func (c *MemoCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *MemoCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
