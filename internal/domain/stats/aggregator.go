package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// Source - источник сырых данных для пересчёта сводки.
// Реализация читает таблицы прогресса и серий одним-двумя запросами.
type Source interface {
	// CompletedByTier возвращает количество выполненных достижений
	// пользователя по каждому уровню.
	CompletedByTier(ctx context.Context, userID int64) (map[achievement.Tier]int, error)

	// TotalPoints возвращает суммарно начисленные очки пользователя.
	TotalPoints(ctx context.Context, userID int64) (int, error)

	// LongestStreak возвращает лучшую серию пользователя среди категорий.
	LongestStreak(ctx context.Context, userID int64) (int, error)
}

// Aggregator пересчитывает сводку пользователя из сырых данных.
type Aggregator struct {
	source  Source
	catalog achievement.CatalogRepository
}

// NewAggregator создаёт агрегатор статистики.
func NewAggregator(source Source, catalog achievement.CatalogRepository) *Aggregator {
	return &Aggregator{
		source:  source,
		catalog: catalog,
	}
}

// Recompute строит актуальную сводку пользователя.
func (a *Aggregator) Recompute(ctx context.Context, userID int64, now time.Time) (*Summary, error) {
	summary, err := NewSummary(userID)
	if err != nil {
		return nil, err
	}

	byTier, err := a.source.CompletedByTier(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: completed by tier: %w", err)
	}

	points, err := a.source.TotalPoints(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: total points: %w", err)
	}

	longest, err := a.source.LongestStreak(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: longest streak: %w", err)
	}

	totalActive, err := a.catalog.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: count active: %w", err)
	}

	totalCompleted := 0
	for tier, count := range byTier {
		summary.CompletedByTier[tier] = count
		totalCompleted += count
	}

	summary.TotalCompleted = totalCompleted
	summary.TotalActive = totalActive
	summary.TotalPoints = points
	summary.LongestStreak = longest
	summary.UpdatedAt = now

	if totalActive > 0 {
		summary.CompletionPercentage = float64(totalCompleted) / float64(totalActive) * 100
		if summary.CompletionPercentage > 100 {
			summary.CompletionPercentage = 100
		}
	}

	return summary, nil
}
