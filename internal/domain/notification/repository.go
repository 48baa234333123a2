package notification

import "context"

// Repository - хранилище уведомлений.
type Repository interface {
	// Create сохраняет новое уведомление.
	Create(ctx context.Context, n *Notification) error

	// GetForUser возвращает последние уведомления пользователя.
	GetForUser(ctx context.Context, userID int64, limit int) ([]*Notification, error)

	// GetUnsent возвращает недоставленные уведомления для внешнего канала.
	GetUnsent(ctx context.Context, limit int) ([]*Notification, error)

	// MarkSent отмечает уведомление доставленным.
	MarkSent(ctx context.Context, id string) error

	// MarkRead отмечает уведомление прочитанным.
	MarkRead(ctx context.Context, id string) error

	// CountUnread возвращает количество непрочитанных уведомлений.
	CountUnread(ctx context.Context, userID int64) (int, error)
}
