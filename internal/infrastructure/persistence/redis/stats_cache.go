package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
)

// StatsCache implements stats.Cache on top of the generic Cache.
type StatsCache struct {
	cache *Cache
}

// NewStatsCache creates a new StatsCache.
func NewStatsCache(cache *Cache) *StatsCache {
	return &StatsCache{cache: cache}
}

// StatsKey builds the cache key for a user's summary.
func StatsKey(userID int64) string {
	return fmt.Sprintf("%ssummary:%d", PrefixStats, userID)
}

// GetSummary returns the cached summary or (nil, nil) on a miss.
func (s *StatsCache) GetSummary(ctx context.Context, userID int64) (*stats.Summary, error) {
	var summary stats.Summary
	err := s.cache.Get(ctx, StatsKey(userID), &summary)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}

// SetSummary caches a summary with the standard TTL.
func (s *StatsCache) SetSummary(ctx context.Context, summary *stats.Summary) error {
	if summary == nil {
		return nil
	}
	return s.cache.Set(ctx, StatsKey(summary.UserID), summary, TTLStatsSummary)
}

// Invalidate drops a user's cached summary.
func (s *StatsCache) Invalidate(ctx context.Context, userID int64) error {
	return s.cache.Delete(ctx, StatsKey(userID))
}
