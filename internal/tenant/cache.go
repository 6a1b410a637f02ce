package tenant

import (
	"context"
	"sync"
	"time"

	"crownbidder/internal/domain"
)

// MemoryCache is a process-local tenant cache with per-entry expiry. Used
// for cache-less single-instance deployments and in tests; multi-instance
// deployments share the Redis cache instead.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	tenant    *domain.Tenant
	expiresAt time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Get(_ context.Context, hostname string) (*domain.Tenant, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[hostname]
	c.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.tenant, true, nil
}

func (c *MemoryCache) Set(_ context.Context, hostname string, tenant *domain.Tenant, ttl time.Duration) error {
	c.mu.Lock()
	c.entries[hostname] = memoryEntry{tenant: tenant, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}
