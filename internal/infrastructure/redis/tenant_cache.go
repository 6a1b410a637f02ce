package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"crownbidder/internal/domain"

	"github.com/go-redis/redis/v8"
)

// RedisTenantCache shares resolved tenants across gateway instances, keyed
// by hostname with a bounded TTL.
type RedisTenantCache struct {
	client *redis.Client
}

func NewRedisTenantCache(client *redis.Client) *RedisTenantCache {
	return &RedisTenantCache{client: client}
}

func tenantKey(hostname string) string {
	return fmt.Sprintf("tenant:host:%s", hostname)
}

func (r *RedisTenantCache) Get(ctx context.Context, hostname string) (*domain.Tenant, bool, error) {
	result, err := r.client.Get(ctx, tenantKey(hostname)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, err
	}

	var tenant domain.Tenant
	if err := json.Unmarshal([]byte(result), &tenant); err != nil {
		return nil, false, err
	}
	return &tenant, true, nil
}

func (r *RedisTenantCache) Set(ctx context.Context, hostname string, tenant *domain.Tenant, ttl time.Duration) error {
	data, err := json.Marshal(tenant)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, tenantKey(hostname), data, ttl).Err()
}
