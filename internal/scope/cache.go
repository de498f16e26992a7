package scope

import (
	"sync"
	"time"
)

// HierarchyCache caches subordinate lookups. Pluggable so runtimes can choose
// between timer-driven sweeps and lazy expiration.
type HierarchyCache interface {
	Get(key string) ([]string, bool)
	Set(key string, ids []string)
	Invalidate(key string)
}

// TTLCache is an in-memory HierarchyCache with per-entry expiry and a
// periodic background sweep. Reads are shared-locked; expired entries miss
// even before the sweeper removes them.
type TTLCache struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry
	ttl     time.Duration
	done    chan struct{}
	stop    sync.Once
}

type ttlEntry struct {
	ids       []string
	expiresAt time.Time
}

// NewTTLCache creates a cache whose entries expire ttl after write and are
// swept every sweepEvery. Pass sweepEvery <= 0 to disable the sweeper and
// rely on expiration-on-read only.
func NewTTLCache(ttl, sweepEvery time.Duration) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]ttlEntry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweep(sweepEvery)
	}
	return c
}

// Get implements HierarchyCache.
func (c *TTLCache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.ids, true
}

// Set implements HierarchyCache.
func (c *TTLCache) Set(key string, ids []string) {
	c.mu.Lock()
	c.entries[key] = ttlEntry{ids: ids, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate implements HierarchyCache.
func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Stop terminates the background sweeper.
func (c *TTLCache) Stop() {
	c.stop.Do(func() { close(c.done) })
}

func (c *TTLCache) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.entries {
				if now.After(e.expiresAt) {
					delete(c.entries, k)
				}
			}
			c.mu.Unlock()
		}
	}
}
