package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUnlockNotification(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	n, err := NewUnlockNotification(42, 1, "Collector", "Add 10 cards to your collection", 25, false, now)
	require.NoError(t, err)

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, int64(42), n.UserID)
	assert.Equal(t, TypeAchievementUnlocked, n.Type)
	assert.Equal(t, int64(1), n.AchievementID)
	assert.Equal(t, "Achievement Unlocked: Collector", n.Title)
	assert.Equal(t, "Add 10 cards to your collection (+25 points)", n.Message)
	assert.Equal(t, 25, n.PointsAwarded)
	assert.False(t, n.Sent)
	assert.False(t, n.Read)
	assert.Equal(t, now, n.CreatedAt)
}

func TestNewUnlockNotification_Repeat(t *testing.T) {
	now := time.Now().UTC()

	n, err := NewUnlockNotification(42, 2, "Weekly Login", "Log in again after a week", 5, true, now)
	require.NoError(t, err)

	// recompletion changes the type but keeps the title format
	assert.Equal(t, TypeAchievementRecompleted, n.Type)
	assert.Equal(t, "Achievement Unlocked: Weekly Login", n.Title)
}

func TestNewUnlockNotification_ZeroPoints(t *testing.T) {
	n, err := NewUnlockNotification(42, 3, "First Comment", "Leave your first comment", 0, false, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "Leave your first comment", n.Message)
}

func TestNewUnlockNotification_InvalidRecipient(t *testing.T) {
	_, err := NewUnlockNotification(0, 1, "Collector", "desc", 10, false, time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestNewStreakMilestoneNotification(t *testing.T) {
	n, err := NewStreakMilestoneNotification(42, "login", 30, time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, TypeStreakMilestone, n.Type)
	assert.Equal(t, "Streak Milestone: 30 days", n.Title)
	assert.Contains(t, n.Message, "login streak reached 30 days")
}

func TestMarkSent(t *testing.T) {
	n, err := NewUnlockNotification(42, 1, "Collector", "desc", 10, false, time.Now().UTC())
	require.NoError(t, err)

	at := time.Now().UTC()
	require.NoError(t, n.MarkSent(at))
	assert.True(t, n.Sent)
	require.NotNil(t, n.SentAt)
	assert.Equal(t, at, *n.SentAt)

	assert.ErrorIs(t, n.MarkSent(at.Add(time.Minute)), ErrAlreadySent)
}

func TestMarkRead(t *testing.T) {
	n, err := NewUnlockNotification(42, 1, "Collector", "desc", 10, false, time.Now().UTC())
	require.NoError(t, err)

	n.MarkRead()
	n.MarkRead()
	assert.True(t, n.Read)
}

func TestTypeIsValid(t *testing.T) {
	assert.True(t, TypeAchievementUnlocked.IsValid())
	assert.True(t, TypeAchievementRecompleted.IsValid())
	assert.True(t, TypeStreakMilestone.IsValid())
	assert.False(t, Type("push").IsValid())
}
