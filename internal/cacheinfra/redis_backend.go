package cacheinfra

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/zeebo/errs"
)

// RedisError is the class of redis backend failures.
var RedisError = errs.Class("redis backend")

// RedisBackend keeps encoded values in a shared redis database.
type RedisBackend struct {
	client *redis.Client
	cfg    RedisConfig
}

// NewRedisBackend connects to redis and verifies the connection with a ping.
func NewRedisBackend(ctx context.Context, cfg RedisConfig) (*RedisBackend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, RedisError.New("ping failed: %v", err)
	}

	return &RedisBackend{client: client, cfg: cfg}, nil
}

// Get returns the bytes stored for key; redis.Nil is reported as a miss.
func (r *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, RedisError.Wrap(err)
	}
	return value, true, nil
}

// Set stores value under key with the configured TTL.
func (r *RedisBackend) Set(ctx context.Context, key string, value []byte) error {
	return RedisError.Wrap(r.client.Set(ctx, key, value, r.cfg.TTL).Err())
}

// Delete removes the given keys in one round trip.
func (r *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return RedisError.Wrap(r.client.Del(ctx, keys...).Err())
}

// Close releases the connection pool.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
