// Package cache provides an optional Redis-backed lookup cache for external
// provider responses (ban lookups, lyrics searches). The cache is strictly
// best-effort: a nil *Store, a dead Redis, or a marshal error all degrade to
// a miss and the caller re-fetches from the upstream.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notapi/notapi/internal/config"
	"github.com/notapi/notapi/internal/observability"
)

const keyPrefix = "notapi:lookup:"

// Store is a JSON key/value cache over Redis. All methods are safe on a nil
// receiver, so callers never branch on whether caching is configured.
type Store struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Store from config. Returns (nil, nil) when no cache endpoint
// is configured. The connection is verified with a PING so a misconfigured
// endpoint fails at startup, not mid-request.
func New(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Endpoint,
		Password:     cfg.Password.Value(),
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connecting to %s: %w", cfg.Endpoint, err)
	}

	return &Store{
		client:  client,
		ttl:     config.MustParseDuration(cfg.TTL, 10*time.Minute),
		logger:  logger.With("component", "cache"),
		metrics: metrics,
	}, nil
}

// GetJSON loads the value stored under key into dst. Returns false on miss,
// decode error, or disabled cache.
func (s *Store) GetJSON(ctx context.Context, key string, dst any) bool {
	if s == nil {
		return false
	}
	data, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncCacheMisses()
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Debug("cache entry unreadable, treating as miss", "key", key, "error", err)
		if s.metrics != nil {
			s.metrics.IncCacheMisses()
		}
		return false
	}
	if s.metrics != nil {
		s.metrics.IncCacheHits()
	}
	return true
}

// SetJSON stores v under key with the configured TTL. Failures are logged
// and swallowed.
func (s *Store) SetJSON(ctx context.Context, key string, v any) {
	if s == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Debug("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := s.client.Set(ctx, keyPrefix+key, data, s.ttl).Err(); err != nil {
		s.logger.Debug("cache write failed", "key", key, "error", err)
	}
}

// Ping verifies connectivity. Used by the deep readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil {
		return nil
	}
	return s.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
