// Package notification содержит доменную модель уведомлений о достижениях.
// Уведомление создаётся в момент разблокировки достижения и хранится
// до доставки внешним каналом; сам движок уведомления не отправляет.
package notification

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Доменные ошибки пакета notification.
var (
	ErrNotificationNotFound = errors.New("notification: notification not found")
	ErrInvalidRecipient     = errors.New("notification: invalid recipient")
	ErrAlreadySent          = errors.New("notification: already sent")
)

// Type определяет тип уведомления.
type Type string

const (
	// TypeAchievementUnlocked - пользователь разблокировал достижение.
	TypeAchievementUnlocked Type = "achievement_unlocked"

	// TypeAchievementRecompleted - повторяемое достижение выполнено снова.
	TypeAchievementRecompleted Type = "achievement_recompleted"

	// TypeStreakMilestone - серия активных дней достигла круглой отметки.
	TypeStreakMilestone Type = "streak_milestone"
)

// IsValid проверяет, известен ли тип уведомления.
func (t Type) IsValid() bool {
	switch t {
	case TypeAchievementUnlocked, TypeAchievementRecompleted, TypeStreakMilestone:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION (Уведомление)
// ══════════════════════════════════════════════════════════════════════════════

// Notification представляет одно уведомление пользователю.
type Notification struct {
	// ID - уникальный идентификатор уведомления.
	ID string

	// UserID - получатель уведомления.
	UserID int64

	// Type - тип уведомления.
	Type Type

	// AchievementID - достижение, вызвавшее уведомление (0, если не применимо).
	AchievementID int64

	// Title - заголовок уведомления.
	Title string

	// Message - текст уведомления.
	Message string

	// PointsAwarded - начисленные очки (0, если не применимо).
	PointsAwarded int

	// Sent - доставлено ли уведомление внешним каналом.
	Sent bool

	// Read - прочитано ли уведомление пользователем.
	Read bool

	// CreatedAt - момент создания.
	CreatedAt time.Time

	// SentAt - момент доставки (nil, пока не доставлено).
	SentAt *time.Time
}

// NewUnlockNotification создаёт уведомление о разблокировке достижения.
// Если достижение выполнено повторно, тип меняется на recompleted,
// но формат заголовка остаётся тем же.
func NewUnlockNotification(userID, achievementID int64, name, description string, points int, repeat bool, now time.Time) (*Notification, error) {
	if userID <= 0 {
		return nil, ErrInvalidRecipient
	}

	typ := TypeAchievementUnlocked
	if repeat {
		typ = TypeAchievementRecompleted
	}

	message := description
	if points > 0 {
		message = fmt.Sprintf("%s (+%d points)", description, points)
	}

	return &Notification{
		ID:            uuid.NewString(),
		UserID:        userID,
		Type:          typ,
		AchievementID: achievementID,
		Title:         fmt.Sprintf("Achievement Unlocked: %s", name),
		Message:       message,
		PointsAwarded: points,
		CreatedAt:     now,
	}, nil
}

// NewStreakMilestoneNotification создаёт уведомление о круглой отметке серии.
func NewStreakMilestoneNotification(userID int64, category string, days int, now time.Time) (*Notification, error) {
	if userID <= 0 {
		return nil, ErrInvalidRecipient
	}

	return &Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      TypeStreakMilestone,
		Title:     fmt.Sprintf("Streak Milestone: %d days", days),
		Message:   fmt.Sprintf("Your %s streak reached %d days in a row. Keep it up!", category, days),
		CreatedAt: now,
	}, nil
}

// MarkSent отмечает уведомление доставленным.
func (n *Notification) MarkSent(at time.Time) error {
	if n.Sent {
		return ErrAlreadySent
	}
	n.Sent = true
	n.SentAt = &at
	return nil
}

// MarkRead отмечает уведомление прочитанным. Идемпотентно.
func (n *Notification) MarkRead() {
	n.Read = true
}
