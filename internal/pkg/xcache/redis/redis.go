package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lib_store "github.com/eko/gocache/lib/v4/store"
	redis "github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis used by the store.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Set(ctx context.Context, key string, values any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisType represents the storage type as a string value.
const RedisType = "redis"

// RedisStore stores JSON encoded values of type T under a key prefix.
// Clear only removes keys under its own prefix.
type RedisStore[T any] struct {
	client  Client
	prefix  string
	options *lib_store.Options
}

func NewRedisStore[T any](client Client, prefix string, options ...lib_store.Option) *RedisStore[T] {
	return &RedisStore[T]{
		client:  client,
		prefix:  prefix,
		options: lib_store.ApplyOptions(options...),
	}
}

func (s *RedisStore[T]) key(key any) (string, error) {
	k, ok := key.(string)
	if !ok {
		return "", fmt.Errorf("redis store: expected string key, got %T", key)
	}

	return s.prefix + k, nil
}

func (s *RedisStore[T]) Get(ctx context.Context, key any) (any, error) {
	value, _, err := s.get(ctx, key, false)
	return value, err
}

func (s *RedisStore[T]) GetWithTTL(ctx context.Context, key any) (any, time.Duration, error) {
	return s.get(ctx, key, true)
}

func (s *RedisStore[T]) get(ctx context.Context, key any, withTTL bool) (T, time.Duration, error) {
	var result T

	k, err := s.key(key)
	if err != nil {
		return result, 0, lib_store.NotFoundWithCause(err)
	}

	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return result, 0, lib_store.NotFoundWithCause(err)
	}

	if err != nil {
		return result, 0, err
	}

	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		var zero T
		return zero, 0, err
	}

	if !withTTL {
		return result, 0, nil
	}

	ttl, err := s.client.TTL(ctx, k).Result()
	if err != nil {
		var zero T
		return zero, 0, err
	}

	return result, ttl, nil
}

func (s *RedisStore[T]) Set(ctx context.Context, key any, value any, options ...lib_store.Option) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}

	opts := lib_store.ApplyOptionsWithDefault(s.options, options...)

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, k, string(raw), opts.Expiration).Err()
}

func (s *RedisStore[T]) Delete(ctx context.Context, key any) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}

	return s.client.Del(ctx, k).Err()
}

func (s *RedisStore[T]) GetType() string {
	return RedisType
}

// Clear deletes every key under the store prefix.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	var cursor uint64

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 256).Result()
		if err != nil {
			return err
		}

		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}

		if next == 0 {
			return nil
		}

		cursor = next
	}
}

// Invalidate clears the prefix; tags are not supported.
func (s *RedisStore[T]) Invalidate(ctx context.Context, options ...lib_store.InvalidateOption) error {
	return s.Clear(ctx)
}
