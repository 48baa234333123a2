package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/collectors-hub/collectors-hub/internal/domain/notification"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// NotificationRepository implements notification.Repository for PostgreSQL.
type NotificationRepository struct {
	conn *Connection
}

// NewNotificationRepository creates a new NotificationRepository.
func NewNotificationRepository(conn *Connection) *NotificationRepository {
	return &NotificationRepository{conn: conn}
}

const notificationColumns = `
	id, user_id, type, achievement_id, title, message,
	points_awarded, sent, read, created_at, sent_at
`

// Create stores a new notification.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	query := `
		INSERT INTO notifications (
			id, user_id, type, achievement_id, title, message,
			points_awarded, sent, read, created_at, sent_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.conn.Exec(ctx, query,
		n.ID,
		n.UserID,
		string(n.Type),
		n.AchievementID,
		n.Title,
		n.Message,
		n.PointsAwarded,
		n.Sent,
		n.Read,
		n.CreatedAt,
		n.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// GetForUser returns the most recent notifications for a user.
func (r *NotificationRepository) GetForUser(ctx context.Context, userID int64, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.conn.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// GetUnsent returns undelivered notifications in creation order.
func (r *NotificationRepository) GetUnsent(ctx context.Context, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE NOT sent
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unsent notifications: %w", err)
	}
	defer rows.Close()

	return collectNotifications(rows)
}

// MarkSent marks a notification as delivered.
func (r *NotificationRepository) MarkSent(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE notifications SET sent = TRUE, sent_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// MarkRead marks a notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.conn.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotificationNotFound
	}
	return nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// scanNotification scans one notification row.
func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	var typ string
	var sentAt *time.Time

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&typ,
		&n.AchievementID,
		&n.Title,
		&n.Message,
		&n.PointsAwarded,
		&n.Sent,
		&n.Read,
		&n.CreatedAt,
		&sentAt,
	)
	if err != nil {
		return nil, err
	}

	n.Type = notification.Type(typ)
	n.SentAt = sentAt

	return &n, nil
}

func collectNotifications(rows pgx.Rows) ([]*notification.Notification, error) {
	var result []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
