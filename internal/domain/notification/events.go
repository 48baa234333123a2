package notification

import (
	"fmt"

	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
)

// NewCreatedEvent создаёт событие записи уведомления.
func NewCreatedEvent(n *Notification) shared.Event {
	return shared.NewBaseEvent(
		shared.EventNotificationCreated,
		fmt.Sprintf("user:%d", n.UserID),
		n.CreatedAt,
		map[string]any{
			"notification_id": n.ID,
			"user_id":         n.UserID,
			"type":            string(n.Type),
			"title":           n.Title,
		},
	)
}
