package windguru

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kitewatch/wind-archive/internal/domain"
	"github.com/kitewatch/wind-archive/internal/observability"
)

// spotCacheTTL bounds how long a cached search result is served before the
// backend is consulted again.
const spotCacheTTL = 24 * time.Hour

// RedisSearcher wraps a SpotSearcher with a shared Redis cache, so multiple
// service replicas reuse each other's lookups. Redis failures degrade to a
// direct backend call; the cache is an optimization, never a dependency.
type RedisSearcher struct {
	inner   domain.SpotSearcher
	client  *redis.Client
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewRedisSearcher creates a Redis-backed cache decorator around a searcher.
func NewRedisSearcher(inner domain.SpotSearcher, addr, password string, db int, logger *slog.Logger, metrics *observability.Metrics) *RedisSearcher {
	return &RedisSearcher{
		inner: inner,
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		logger:  logger,
		metrics: metrics,
	}
}

func (r *RedisSearcher) SearchSpots(ctx context.Context, query string, limit int) (domain.SpotSearchResult, error) {
	key := "wind-archive:spots:" + searchKey(query, limit)

	if data, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var result domain.SpotSearchResult
		if err := json.Unmarshal(data, &result); err == nil {
			r.metrics.SpotSearches.WithLabelValues("hit").Inc()
			return result, nil
		}
		r.logger.Warn("discarding corrupt spot cache entry", "key", key)
	} else if err != redis.Nil {
		r.logger.Warn("spot cache read failed", "error", err)
	}

	result, err := r.inner.SearchSpots(ctx, query, limit)
	if err != nil {
		r.metrics.SpotSearches.WithLabelValues("error").Inc()
		return result, err
	}
	r.metrics.SpotSearches.WithLabelValues("miss").Inc()

	if len(result.Spots) > 0 {
		if data, err := json.Marshal(result); err == nil {
			if err := r.client.Set(ctx, key, data, spotCacheTTL).Err(); err != nil {
				r.logger.Warn("spot cache write failed", "error", err)
			}
		}
	}
	return result, nil
}

// Close releases the underlying Redis connection.
func (r *RedisSearcher) Close() error {
	return r.client.Close()
}
