package achievement

import (
	"fmt"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
)

// NewUnlockedEvent создаёт событие разблокировки достижения.
// Повторное выполнение даёт тип recompleted.
func NewUnlockedEvent(userID int64, a *Achievement, timesCompleted int, now time.Time) shared.Event {
	typ := shared.EventAchievementUnlocked
	if timesCompleted > 1 {
		typ = shared.EventAchievementRecompleted
	}
	return shared.NewBaseEvent(
		typ,
		fmt.Sprintf("user:%d", userID),
		now,
		map[string]any{
			"user_id":          userID,
			"achievement_id":   a.ID,
			"achievement_name": a.Name,
			"tier":             string(a.Tier),
			"points":           a.Points,
			"times_completed":  timesCompleted,
		},
	)
}

// NewProgressedEvent создаёт событие изменения прогресса без разблокировки.
func NewProgressedEvent(userID int64, a *Achievement, progress, percentage float64, now time.Time) shared.Event {
	return shared.NewBaseEvent(
		shared.EventAchievementProgressed,
		fmt.Sprintf("user:%d", userID),
		now,
		map[string]any{
			"user_id":        userID,
			"achievement_id": a.ID,
			"progress":       progress,
			"percentage":     percentage,
		},
	)
}
