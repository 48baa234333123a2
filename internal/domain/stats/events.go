package stats

import (
	"fmt"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
)

// NewRecomputedEvent создаёт событие пересчёта сводки пользователя.
func NewRecomputedEvent(summary *Summary, now time.Time) shared.Event {
	return shared.NewBaseEvent(
		shared.EventStatsRecomputed,
		fmt.Sprintf("user:%d", summary.UserID),
		now,
		map[string]any{
			"user_id":               summary.UserID,
			"total_completed":       summary.TotalCompleted,
			"total_points":          summary.TotalPoints,
			"completion_percentage": summary.CompletionPercentage,
			"longest_streak":        summary.LongestStreak,
		},
	)
}
