package notify

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

type Marker interface {
	// Acquire reports true when the caller is the first to claim id.
	Acquire(ctx context.Context, id string) (bool, error)
}

var _ Marker = (*LocalMarker)(nil)

type LocalMarker struct {
	cache *cache.Cache
}

func NewLocalMarker(ttl time.Duration) *LocalMarker {
	return &LocalMarker{cache: cache.New(ttl, ttl)}
}

func (m *LocalMarker) Acquire(ctx context.Context, id string) (bool, error) {
	err := m.cache.Add(id, struct{}{}, cache.DefaultExpiration)
	return err == nil, nil
}

var _ Marker = (*RedisMarker)(nil)

type RedisMarker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisMarker(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisMarker {
	return &RedisMarker{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisMarker) Acquire(ctx context.Context, id string) (bool, error) {
	return m.client.SetNX(ctx, m.prefix+id, "v", m.ttl).Result()
}
