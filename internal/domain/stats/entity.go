// Package stats содержит доменную модель агрегированной статистики
// достижений пользователя. Сводка пересчитывается после каждой
// разблокировки и используется профилем пользователя без обращения
// к таблицам прогресса.
package stats

import (
	"errors"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// Доменные ошибки пакета stats.
var (
	ErrStatsNotFound = errors.New("stats: stats not found")
	ErrInvalidUserID = errors.New("stats: invalid user ID")
)

// Summary представляет агрегированную статистику пользователя.
type Summary struct {
	// UserID - идентификатор пользователя.
	UserID int64

	// TotalCompleted - количество выполненных достижений.
	TotalCompleted int

	// TotalActive - количество активных достижений в каталоге
	// на момент пересчёта.
	TotalActive int

	// CompletionPercentage - доля выполненных достижений, 0..100.
	CompletionPercentage float64

	// TotalPoints - суммарно начисленные очки.
	TotalPoints int

	// CompletedByTier - количество выполненных достижений по уровням.
	CompletedByTier map[achievement.Tier]int

	// LongestStreak - лучшая серия активных дней среди всех категорий.
	LongestStreak int

	// UpdatedAt - момент последнего пересчёта.
	UpdatedAt time.Time
}

// NewSummary создаёт пустую сводку пользователя.
func NewSummary(userID int64) (*Summary, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	return &Summary{
		UserID:          userID,
		CompletedByTier: make(map[achievement.Tier]int),
	}, nil
}

// CompletedAt возвращает количество выполненных достижений уровня.
func (s *Summary) CompletedAt(tier achievement.Tier) int {
	return s.CompletedByTier[tier]
}
