package lock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLock implements RunLock with SET NX and a TTL so a crashed run
// cannot hold the lock forever.
type RedisLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed run lock
func NewRedisLock(addr string, db int, key string, ttl time.Duration) *RedisLock {
	return &RedisLock{
		client: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		key:    key,
		ttl:    ttl,
	}
}

// Acquire attempts to take the lock; false means a run is in progress
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	return l.client.SetNX(ctx, l.key, time.Now().Format(time.RFC3339), l.ttl).Result()
}

// Release drops the lock
func (l *RedisLock) Release(ctx context.Context) error {
	return l.client.Del(ctx, l.key).Err()
}

// Close closes the Redis connection
func (l *RedisLock) Close() error {
	return l.client.Close()
}
