package source

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/harvesthub/catalog-engine/internal/logging"
	"github.com/harvesthub/catalog-engine/internal/metrics"
	"github.com/harvesthub/catalog-engine/model"
)

// RedisConfig holds connection settings for the catalog cache.
type RedisConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Address  string        `koanf:"address"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db" validate:"gte=0"`
	Key      string        `koanf:"key"`
	TTL      time.Duration `koanf:"ttl"`
}

const (
	DefaultCacheKey = "catalog:items"
	DefaultCacheTTL = 5 * time.Minute
)

// NewRedisClient creates a go-redis client. It does not connect until first use.
func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// CachedLoader keeps the last catalog read from the wrapped loader in Redis,
// encoded with msgpack. A fresh copy under Key expires after TTL; a copy under
// Key+":stale" never expires and is served when the wrapped loader fails.
// Cache errors are logged and never fail a load on their own.
type CachedLoader struct {
	inner  Loader
	client redis.UniversalClient
	key    string
	ttl    time.Duration
	logger zerolog.Logger
}

func NewCachedLoader(inner Loader, client redis.UniversalClient, key string, ttl time.Duration) (*CachedLoader, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner loader cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	if key == "" {
		key = DefaultCacheKey
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedLoader{
		inner:  inner,
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logging.With().Str("component", "catalog_cache").Str("key", key).Logger(),
	}, nil
}

func (c *CachedLoader) Name() string { return c.inner.Name() + "+redis" }

func (c *CachedLoader) staleKey() string { return c.key + ":stale" }

func (c *CachedLoader) Load(ctx context.Context) ([]model.Item, error) {
	items, hit, err := c.read(ctx, c.key)
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn().Err(err).Msg("catalog cache read failed")
	case hit:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return items, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	items, loadErr := c.inner.Load(ctx)
	if loadErr != nil {
		stale, ok, err := c.read(ctx, c.staleKey())
		if err == nil && ok {
			c.logger.Warn().Err(loadErr).Int("items", len(stale)).Msg("source failed, serving stale catalog")
			return stale, nil
		}
		return nil, loadErr
	}

	if err := c.write(ctx, items); err != nil {
		c.logger.Warn().Err(err).Msg("catalog cache write failed")
	}
	return items, nil
}

// Invalidate drops the fresh copy so the next Load reads through. The stale
// copy is kept.
func (c *CachedLoader) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, c.key).Err()
}

// Bookings passes through when the wrapped loader can read bookings.
func (c *CachedLoader) Bookings(ctx context.Context, itemID string) ([]model.Interval, error) {
	bs, ok := c.inner.(BookingSource)
	if !ok {
		return []model.Interval{}, nil
	}
	return bs.Bookings(ctx, itemID)
}

func (c *CachedLoader) read(ctx context.Context, key string) ([]model.Item, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var items []model.Item
	if err := msgpack.Unmarshal(data, &items); err != nil {
		return nil, false, fmt.Errorf("decode cached catalog: %w", err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, true, nil
}

func (c *CachedLoader) write(ctx context.Context, items []model.Item) error {
	data, err := msgpack.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.key, data, c.ttl)
		pipe.Set(ctx, c.staleKey(), data, 0)
		return nil
	})
	return err
}
