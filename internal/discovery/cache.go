package discovery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"idlens/internal/identity/models"
	"idlens/pkg/platform/sentinel"
	"idlens/pkg/requestcontext"
)

const (
	cacheKeyPrefix  = "idlens:discovery:"
	defaultCacheTTL = 5 * time.Minute
)

// CachedClient serves repeated lookups from Redis for a bounded TTL.
// Only successful responses are cached. Cache failures fall through to the
// inner client and are logged, never returned.
type CachedClient struct {
	inner   Client
	rdb     *redis.Client
	ttl     time.Duration
	metrics *Metrics
	logger  *slog.Logger
}

// CacheOption configures a CachedClient.
type CacheOption func(*CachedClient)

func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedClient) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithCacheMetrics(m *Metrics) CacheOption {
	return func(c *CachedClient) {
		c.metrics = m
	}
}

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedClient) {
		c.logger = logger
	}
}

// NewCachedClient decorates inner with a Redis-backed response cache.
func NewCachedClient(inner Client, rdb *redis.Client, opts ...CacheOption) *CachedClient {
	c := &CachedClient{
		inner:  inner,
		rdb:    rdb,
		ttl:    defaultCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedClient) ResolveByKey(ctx context.Context, identityKey, description string) ([]models.RawRecord, error) {
	key := cacheKeyPrefix + "key:" + identityKey
	return c.cached(ctx, key, func() ([]models.RawRecord, error) {
		return c.inner.ResolveByKey(ctx, identityKey, description)
	})
}

func (c *CachedClient) ResolveByAttributes(ctx context.Context, attrs Attributes, description string) ([]models.RawRecord, error) {
	// hashed so search terms never appear in Redis keys
	sum := sha256.Sum256([]byte(attrs.Any))
	key := cacheKeyPrefix + "any:" + hex.EncodeToString(sum[:])
	return c.cached(ctx, key, func() ([]models.RawRecord, error) {
		return c.inner.ResolveByAttributes(ctx, attrs, description)
	})
}

func (c *CachedClient) cached(ctx context.Context, key string, fetch func() ([]models.RawRecord, error)) ([]models.RawRecord, error) {
	records, err := c.load(ctx, key)
	switch {
	case err == nil:
		c.metrics.incrementCache("hit")
		return records, nil
	case errors.Is(err, sentinel.ErrNotFound):
		c.metrics.incrementCache("miss")
	default:
		c.metrics.incrementCache("error")
		c.logger.WarnContext(ctx, "discovery cache read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}

	records, err = fetch()
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, key, records); err != nil {
		c.logger.WarnContext(ctx, "discovery cache write failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	return records, nil
}

func (c *CachedClient) load(ctx context.Context, key string) ([]models.RawRecord, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var records []models.RawRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *CachedClient) store(ctx context.Context, key string, records []models.RawRecord) error {
	if records == nil {
		records = []models.RawRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, data, c.ttl).Err()
}
