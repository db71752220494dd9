// Package sessions resolves session tokens to user ids through a key/value
// session cache. Tokens are issued by an external collaborator; this package
// only reads them.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/redis/go-redis/v9"
)

// Cache is a read view of the session cache.
type Cache interface {
	// Get returns the value stored under key or common.ErrCacheMiss.
	Get(ctx context.Context, key string) (string, error)
}

// RedisCache implements Cache on top of a Redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to addr and pings it once.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connect %s: %w", addr, err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client.
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", common.ErrCacheMiss
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

// Alive reports whether the server answers PING.
func (r *RedisCache) Alive(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
