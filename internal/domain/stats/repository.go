package stats

import "context"

// Repository - хранилище сводок статистики.
type Repository interface {
	// Get возвращает сводку пользователя.
	// Возвращает ErrStatsNotFound, если сводка ещё не пересчитывалась.
	Get(ctx context.Context, userID int64) (*Summary, error)

	// Save сохраняет сводку (вставка или обновление по userID).
	Save(ctx context.Context, summary *Summary) error
}

// Cache - необязательный кэш сводок поверх хранилища.
// Движок обновляет кэш после пересчёта и читает через него в Stats;
// при неудачной записи устаревшая сводка удаляется.
type Cache interface {
	// GetSummary возвращает сводку из кэша или (nil, nil) при промахе.
	GetSummary(ctx context.Context, userID int64) (*Summary, error)

	// SetSummary кладёт сводку в кэш.
	SetSummary(ctx context.Context, summary *Summary) error

	// Invalidate удаляет сводку пользователя из кэша.
	Invalidate(ctx context.Context, userID int64) error
}
