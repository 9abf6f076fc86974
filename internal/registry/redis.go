package registry

import (
	"context"
	"errors"
	"time"

	"github.com/tinywideclouds/go-push-scheduler/internal/storage/cache"
	"github.com/tinywideclouds/go-push-scheduler/pkg/push"
)

const slotKey = "pushsched:subscription"

// Redis persists the slot through a CacheClient so the subscription
// survives process restarts. A zero TTL keeps it until replaced or
// cleared.
type Redis struct {
	cache cache.CacheClient
	ttl   time.Duration
}

func NewRedis(client cache.CacheClient, ttl time.Duration) *Redis {
	return &Redis{cache: client, ttl: ttl}
}

func (r *Redis) Set(ctx context.Context, addr push.Address) error {
	return r.cache.Set(ctx, slotKey, addr, r.ttl)
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.cache.Del(ctx, slotKey)
}

func (r *Redis) Get(ctx context.Context) (*push.Address, error) {
	var addr push.Address
	err := r.cache.Get(ctx, slotKey, &addr)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &addr, nil
}
