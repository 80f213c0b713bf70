package xcache

import (
	"context"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/store"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"

	"github.com/looplj/caseflow/internal/log"
	redis_store "github.com/looplj/caseflow/internal/pkg/xcache/redis"
	"github.com/looplj/caseflow/internal/pkg/xredis"
)

// Cache is an alias to the gocache CacheInterface:
//   - Get(ctx, key) (T, error)
//   - Set(ctx, key, value, options ...Option) error
//   - Delete(ctx, key) error
//   - Invalidate(ctx, options ...store.InvalidateOption) error
//   - Clear(ctx) error
//   - GetType() string
type Cache[T any] = cachelib.CacheInterface[T]

type SetterCache[T any] = cachelib.SetterCacheInterface[T]

// NewMemory creates a pure in-memory cache backed by patrickmn/go-cache.
func NewMemory[T any](client *gocache.Cache, options ...Option) SetterCache[T] {
	return cachelib.New[T](gocache_store.NewGoCache(client, options...))
}

// NewMemoryWithOptions builds the go-cache client from expiration settings.
func NewMemoryWithOptions[T any](defaultExpiration, cleanupInterval time.Duration, options ...Option) SetterCache[T] {
	return NewMemory[T](gocache.New(defaultExpiration, cleanupInterval), options...)
}

// NewRedis creates a redis cache whose keys all live under prefix.
func NewRedis[T any](client redis_store.Client, prefix string, options ...Option) SetterCache[T] {
	return cachelib.New[T](redis_store.NewRedisStore[T](client, prefix, options...))
}

// NewTwoLevel constructs a 2-level cache: memory first, then Redis.
func NewTwoLevel[T any](memory SetterCache[T], redis SetterCache[T]) Cache[T] {
	return cachelib.NewChain[T](memory, redis)
}

// NewFromConfig builds a typed cache from cfg. namespace prefixes redis keys
// so caches of different types never collide.
// An empty mode returns a noop cache.
func NewFromConfig[T any](ctx context.Context, cfg Config, namespace string) (Cache[T], error) {
	switch cfg.Mode {
	case "":
		return NewNoop[T](), nil
	case ModeMemory, ModeRedis, ModeTwoLevel:
	default:
		return nil, fmt.Errorf("invalid cache mode: %q", cfg.Mode)
	}

	memExpiration := defaultIfZero(cfg.Memory.Expiration, 5*time.Minute)
	memCleanupInterval := defaultIfZero(cfg.Memory.CleanupInterval, 10*time.Minute)
	mem := NewMemory[T](gocache.New(memExpiration, memCleanupInterval), store.WithExpiration(memExpiration))

	if cfg.Mode == ModeMemory {
		log.Info(ctx, "using memory cache", log.String("namespace", namespace))
		return mem, nil
	}

	if !cfg.Redis.Enabled() {
		if cfg.Mode == ModeRedis {
			return nil, fmt.Errorf("cache mode %s: %w", cfg.Mode, xredis.ErrNotConfigured)
		}

		log.Warn(ctx, "two-level cache without redis, falling back to memory", log.String("namespace", namespace))

		return mem, nil
	}

	client, err := xredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}

	redisExpiration := defaultIfZero(cfg.Redis.Expiration, 30*time.Minute)
	rds := NewRedis[T](client, namespace, store.WithExpiration(redisExpiration))

	if cfg.Mode == ModeRedis {
		log.Info(ctx, "using redis cache", log.String("namespace", namespace))
		return rds, nil
	}

	log.Info(ctx, "using two-level cache", log.String("namespace", namespace))

	return NewTwoLevel[T](mem, rds), nil
}

func defaultIfZero(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}

	return d
}
