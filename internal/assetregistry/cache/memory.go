// Package cache provides the verification caches used in front of
// serial-number lookups: a process-local TTL map for single-instance
// deployments and a Redis cache for shared ones.
package cache

import (
	"context"
	"sync"
	"time"

	"custodia/internal/assetregistry"
)

type memoryEntry struct {
	v         *assetregistry.Verification
	expiresAt time.Time
}

// Memory is a process-local TTL cache. Expired entries are dropped lazily on
// read; there is no background sweeper.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]memoryEntry
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]memoryEntry),
	}
}

// WithClock overrides the time source for tests.
func (c *Memory) WithClock(clock func() time.Time) *Memory {
	c.clock = clock
	return c
}

func (c *Memory) Get(_ context.Context, serial string) (*assetregistry.Verification, bool) {
	c.mu.RLock()
	entry, ok := c.entries[serial]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.clock().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, serial)
		c.mu.Unlock()
		return nil, false
	}
	return entry.v, true
}

func (c *Memory) Set(_ context.Context, serial string, v *assetregistry.Verification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[serial] = memoryEntry{v: v, expiresAt: c.clock().Add(c.ttl)}
}

func (c *Memory) Invalidate(_ context.Context, serial string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, serial)
}
