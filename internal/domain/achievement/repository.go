package achievement

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository - доступ на чтение к каталогу достижений.
// Каталог редактируется внешним административным сервисом; движку
// нужны только активные определения.
type CatalogRepository interface {
	// GetByID возвращает достижение по идентификатору.
	// Возвращает ErrAchievementNotFound, если достижение не найдено.
	GetByID(ctx context.Context, id int64) (*Achievement, error)

	// GetActive возвращает все активные достижения.
	GetActive(ctx context.Context) ([]*Achievement, error)

	// GetActiveByCategories возвращает активные достижения, множество
	// категорий которых пересекается с данным.
	GetActiveByCategories(ctx context.Context, categories []MetricCategory) ([]*Achievement, error)

	// CountActive возвращает количество активных достижений.
	CountActive(ctx context.Context) (int, error)
}

// ProgressRepository - хранилище прогресса пользователей.
type ProgressRepository interface {
	// Get возвращает прогресс пары (userID, achievementID).
	// Возвращает ErrProgressNotFound, если записи ещё нет.
	Get(ctx context.Context, userID, achievementID int64) (*UserAchievementProgress, error)

	// GetAllForUser возвращает весь прогресс пользователя.
	GetAllForUser(ctx context.Context, userID int64) ([]*UserAchievementProgress, error)

	// Apply выполняет одну атомарную запись прогресса: вставка, если
	// записи нет, иначе обновление на месте - единственной условной
	// операцией по составному ключу. Два одновременных триггера не
	// должны ни создать дубликат, ни дважды начислить очки за
	// неповторяемое достижение.
	Apply(ctx context.Context, update ProgressUpdate) error
}

// HistoryRepository - журнал изменений прогресса (только пополнение).
type HistoryRepository interface {
	// Append добавляет запись журнала.
	Append(ctx context.Context, entry *HistoryEntry) error

	// GetRecent возвращает последние записи пользователя.
	GetRecent(ctx context.Context, userID int64, limit int) ([]*HistoryEntry, error)

	// GetSince возвращает записи пользователя после указанного момента.
	GetSince(ctx context.Context, userID int64, since time.Time) ([]*HistoryEntry, error)
}
