package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process ResponseCache used in tests and in degraded
// mode when Redis is unavailable. Entries are lost on restart.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

type memoryEntry struct {
	resp      CachedResponse
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory response cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (c *MemoryCache) Get(_ context.Context, userID, question, pagePath string) (*CachedResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[Key(userID, question, pagePath)]
	if !ok {
		return nil, nil
	}
	if c.ttl > 0 && time.Now().After(e.expiresAt) {
		delete(c.entries, Key(userID, question, pagePath))
		return nil, nil
	}
	resp := e.resp
	return &resp, nil
}

func (c *MemoryCache) Put(_ context.Context, userID, question, pagePath string, resp CachedResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[Key(userID, question, pagePath)] = memoryEntry{
		resp:      resp,
		expiresAt: time.Now().Add(c.ttl),
	}
	return nil
}

var _ ResponseCache = (*MemoryCache)(nil)
