package streak

import (
	"fmt"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
)

// milestones - круглые отметки серии, по которым создаются уведомления.
var milestones = []int{7, 30, 100, 365}

// IsMilestone сообщает, является ли длина серии круглой отметкой.
func IsMilestone(days int) bool {
	for _, m := range milestones {
		if days == m {
			return true
		}
	}
	return false
}

// NewOutcomeEvent создаёт доменное событие по результату записи активности.
// Для OutcomeNoChange события нет, возвращается nil.
func NewOutcomeEvent(state *State, outcome Outcome, now time.Time) shared.Event {
	var typ shared.EventType
	switch outcome {
	case OutcomeStarted:
		typ = shared.EventStreakStarted
	case OutcomeExtended:
		typ = shared.EventStreakExtended
	case OutcomeReset:
		typ = shared.EventStreakReset
	default:
		return nil
	}

	return shared.NewBaseEvent(
		typ,
		fmt.Sprintf("user:%d", state.UserID),
		now,
		map[string]any{
			"user_id":       state.UserID,
			"category":      state.Category.String(),
			"current_count": state.CurrentCount,
			"longest_count": state.LongestCount,
		},
	)
}
