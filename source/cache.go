package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/zllovesuki/subpulse/customer"
	"github.com/zllovesuki/subpulse/spec"

	"github.com/go-redis/redis/v7"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

var _ spec.Source = &Cache{}

const cacheKeyPrefix = "subpulse:snapshot:"

// CacheOptions contains the configuration for the snapshot cache
type CacheOptions struct {
	Source spec.Source
	Redis  *redis.Client
	Logger *zap.Logger
	TTL    time.Duration // Defaults to spec.DefaultCacheTTL
}

// Cache keeps the last snapshot of a Source in Redis. A cached snapshot is reused
// until it expires even though "now" moves on; it is stale by at most TTL.
type Cache struct {
	CacheOptions
}

type cachedSnapshot struct {
	FetchedAt time.Time           `json:"fetchedAt"`
	Customers []customer.Customer `json:"customers"`
}

// NewCache wraps the Source with a Redis snapshot cache
func NewCache(option CacheOptions) (*Cache, error) {
	if option.Source == nil {
		return nil, fmt.Errorf("nil Source is invalid")
	}
	if option.Redis == nil {
		return nil, fmt.Errorf("nil Redis is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if option.TTL <= 0 {
		option.TTL = spec.DefaultCacheTTL
	}
	return &Cache{
		CacheOptions: option,
	}, nil
}

func cacheKey(start time.Time) string {
	return fmt.Sprintf("%s%d", cacheKeyPrefix, start.Unix())
}

func (c *Cache) load(ctx context.Context, key string) (*cachedSnapshot, error) {
	raw, err := c.Redis.WithContext(ctx).Get(key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot read snapshot from cache")
	}
	var snapshot cachedSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, extErrors.Wrap(err, "Cannot decode cached snapshot")
	}
	return &snapshot, nil
}

func (c *Cache) store(ctx context.Context, key string, customers []customer.Customer) error {
	raw, err := json.Marshal(cachedSnapshot{
		FetchedAt: time.Now(),
		Customers: customers,
	})
	if err != nil {
		return extErrors.Wrap(err, "Cannot encode snapshot")
	}
	if err := c.Redis.WithContext(ctx).Set(key, raw, c.TTL).Err(); err != nil {
		return extErrors.Wrap(err, "Cannot write snapshot to cache")
	}
	return nil
}

// Customers serves the cached snapshot when present, otherwise fetches from the
// wrapped Source and caches the result. Redis failures never fail the fetch.
func (c *Cache) Customers(ctx context.Context, start, end time.Time) ([]customer.Customer, error) {
	key := cacheKey(start)
	logger := c.Logger.With(zap.String("Key", key))

	snapshot, err := c.load(ctx, key)
	if err != nil {
		logger.Warn("Snapshot cache unavailable, falling through",
			zap.Error(err),
		)
	}
	if snapshot != nil {
		logger.Debug("Serving snapshot from cache",
			zap.Time("FetchedAt", snapshot.FetchedAt),
		)
		return snapshot.Customers, nil
	}

	customers, err := c.Source.Customers(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := c.store(ctx, key, customers); err != nil {
		logger.Warn("Cannot cache snapshot",
			zap.Error(err),
		)
	}
	return customers, nil
}

// Invalidate drops the cached snapshot for start
func (c *Cache) Invalidate(ctx context.Context, start time.Time) error {
	if err := c.Redis.WithContext(ctx).Del(cacheKey(start)).Err(); err != nil {
		return extErrors.Wrap(err, "Cannot invalidate cached snapshot")
	}
	return nil
}
