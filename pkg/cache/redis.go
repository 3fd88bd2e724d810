package cache

import (
	"context"
	"time"

	"lyricwidget/pkg/redis"
)

// Redis 使用 Redis 作为共享歌词缓存
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis wraps client; keys are stored as prefix+key with the given TTL (0 = no expiry).
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	return r.client.Get(ctx, r.prefix+key)
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.SetWithExpiration(ctx, r.prefix+key, value, r.ttl)
}
