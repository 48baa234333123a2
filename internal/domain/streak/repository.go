package streak

import "context"

// Repository - хранилище состояний серий.
type Repository interface {
	// Get возвращает состояние серии пары (userID, category).
	// Возвращает ErrStreakNotFound, если записи ещё нет.
	Get(ctx context.Context, userID int64, category Category) (*State, error)

	// GetAllForUser возвращает все серии пользователя.
	GetAllForUser(ctx context.Context, userID int64) ([]*State, error)

	// Save сохраняет состояние серии (вставка или обновление по
	// составному ключу). Лучшая серия в хранилище монотонна: запись
	// с меньшим LongestCount её не уменьшает.
	Save(ctx context.Context, state *State) error
}
