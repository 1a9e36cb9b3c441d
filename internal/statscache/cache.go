// Package statscache keeps the statistics summary in Redis for a short TTL.
package statscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/voyages/pkg/booking"
)

const (
	// DefaultKey is the Redis key holding the encoded summary.
	DefaultKey = "voyages:statistics:summary"
	// DefaultTTL bounds how stale a cached summary may be.
	DefaultTTL = 30 * time.Second
)

// ErrInvalidCacheConfig indicates a missing cache dependency.
var ErrInvalidCacheConfig = errors.New("statscache: invalid configuration")

// SummaryProvider computes a fresh summary.
type SummaryProvider interface {
	ComputeSummary(ctx context.Context) (booking.Summary, error)
}

// Option configures a Cache.
type Option func(*Cache)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(cache *Cache) {
		if key != "" {
			cache.key = key
		}
	}
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(cache *Cache) {
		if ttl > 0 {
			cache.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for degraded cache access.
func WithLogger(logger *zap.Logger) Option {
	return func(cache *Cache) {
		if logger != nil {
			cache.logger = logger
		}
	}
}

// Cache is a read-through summary cache. Redis failures never fail a read;
// the summary is computed directly instead.
type Cache struct {
	client   redis.Cmdable
	provider SummaryProvider
	key      string
	ttl      time.Duration
	logger   *zap.Logger
}

// New builds a Cache over client and provider.
func New(client redis.Cmdable, provider SummaryProvider, options ...Option) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: redis client is nil", ErrInvalidCacheConfig)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: summary provider is nil", ErrInvalidCacheConfig)
	}
	cache := &Cache{
		client:   client,
		provider: provider,
		key:      DefaultKey,
		ttl:      DefaultTTL,
		logger:   zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(cache)
		}
	}
	return cache, nil
}

// ComputeSummary returns the cached summary or computes and stores a new one.
func (cache *Cache) ComputeSummary(ctx context.Context) (booking.Summary, error) {
	payload, err := cache.client.Get(ctx, cache.key).Bytes()
	switch {
	case err == nil:
		var summary booking.Summary
		decodeErr := json.Unmarshal(payload, &summary)
		if decodeErr == nil {
			return summary, nil
		}
		cache.logger.Warn("discarding undecodable cached summary", zap.String("key", cache.key), zap.Error(decodeErr))
	case errors.Is(err, redis.Nil):
	default:
		cache.logger.Warn("statistics cache unavailable", zap.String("key", cache.key), zap.Error(err))
		return cache.provider.ComputeSummary(ctx)
	}

	summary, err := cache.provider.ComputeSummary(ctx)
	if err != nil {
		return booking.Summary{}, err
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return booking.Summary{}, fmt.Errorf("statscache: encode summary: %w", err)
	}
	if err := cache.client.Set(ctx, cache.key, string(encoded), cache.ttl).Err(); err != nil {
		cache.logger.Warn("statistics cache write failed", zap.String("key", cache.key), zap.Error(err))
	}
	return summary, nil
}

// Invalidate drops the cached summary.
func (cache *Cache) Invalidate(ctx context.Context) error {
	if err := cache.client.Del(ctx, cache.key).Err(); err != nil {
		return fmt.Errorf("statscache: invalidate: %w", err)
	}
	return nil
}

// LogOperation drops the cached summary after a successful change so the next
// read recomputes it. It lets the cache sit in an operation logger fan-out.
func (cache *Cache) LogOperation(ctx context.Context, entry booking.OperationLog) {
	if entry.Error != nil {
		return
	}
	if err := cache.Invalidate(ctx); err != nil {
		cache.logger.Warn("statistics cache invalidation failed", zap.String("key", cache.key), zap.String("operation", entry.Operation), zap.Error(err))
	}
}
