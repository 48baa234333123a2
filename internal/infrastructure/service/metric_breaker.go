// Package service contains infrastructure decorators around domain
// interfaces.
package service

import (
	"context"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/pkg/circuitbreaker"
	"github.com/collectors-hub/collectors-hub/pkg/logger"
)

// BreakedMetricSource wraps an achievement.MetricSource with a circuit
// breaker. When the collection database is struggling, the breaker
// fails metric reads fast instead of piling timed-out queries onto it;
// the affected achievements are picked up by the next trigger or the
// reconcile job.
type BreakedMetricSource struct {
	source  achievement.MetricSource
	breaker *circuitbreaker.CircuitBreaker
}

// NewBreakedMetricSource creates the decorated source.
func NewBreakedMetricSource(source achievement.MetricSource, log *logger.Logger) *BreakedMetricSource {
	onStateChange := func(name string, from, to circuitbreaker.State) {
		log.Warn("circuit breaker state change",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	return &BreakedMetricSource{
		source:  source,
		breaker: circuitbreaker.MetricSourceBreaker(onStateChange),
	}
}

func (s *BreakedMetricSource) int64Call(ctx context.Context, fn func(context.Context) (int64, error)) (int64, error) {
	var result int64
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = fn(ctx)
		return callErr
	})
	return result, err
}

// DistinctCardCount implements achievement.MetricSource.
func (s *BreakedMetricSource) DistinctCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.DistinctCardCount(ctx, userID)
	})
}

// DistinctPlayerCount implements achievement.MetricSource.
func (s *BreakedMetricSource) DistinctPlayerCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.DistinctPlayerCount(ctx, userID)
	})
}

// DistinctTeamCount implements achievement.MetricSource.
func (s *BreakedMetricSource) DistinctTeamCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.DistinctTeamCount(ctx, userID)
	})
}

// TotalEstimatedValue implements achievement.MetricSource.
func (s *BreakedMetricSource) TotalEstimatedValue(ctx context.Context, userID int64) (float64, error) {
	var result float64
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		result, callErr = s.source.TotalEstimatedValue(ctx, userID)
		return callErr
	})
	return result, err
}

// GradedCardCount implements achievement.MetricSource.
func (s *BreakedMetricSource) GradedCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.GradedCardCount(ctx, userID)
	})
}

// RookieCardCount implements achievement.MetricSource.
func (s *BreakedMetricSource) RookieCardCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.RookieCardCount(ctx, userID)
	})
}

// CommentCount implements achievement.MetricSource.
func (s *BreakedMetricSource) CommentCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.CommentCount(ctx, userID)
	})
}

// LoginCount implements achievement.MetricSource.
func (s *BreakedMetricSource) LoginCount(ctx context.Context, userID int64) (int64, error) {
	return s.int64Call(ctx, func(ctx context.Context) (int64, error) {
		return s.source.LoginCount(ctx, userID)
	})
}
