package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
)

func TestIsMilestone(t *testing.T) {
	assert.True(t, IsMilestone(7))
	assert.True(t, IsMilestone(30))
	assert.True(t, IsMilestone(100))
	assert.True(t, IsMilestone(365))

	assert.False(t, IsMilestone(0))
	assert.False(t, IsMilestone(1))
	assert.False(t, IsMilestone(8))
}

func TestNewOutcomeEvent(t *testing.T) {
	state, err := NewState(42, CategoryLogin)
	require.NoError(t, err)

	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	state.RecordActivity(now)

	cases := []struct {
		outcome Outcome
		want    shared.EventType
	}{
		{OutcomeStarted, shared.EventStreakStarted},
		{OutcomeExtended, shared.EventStreakExtended},
		{OutcomeReset, shared.EventStreakReset},
	}
	for _, tc := range cases {
		ev := NewOutcomeEvent(state, tc.outcome, now)
		require.NotNil(t, ev)
		assert.Equal(t, tc.want, ev.EventType())
		assert.Equal(t, "user:42", ev.AggregateID())
		assert.Equal(t, 1, ev.Payload()["current_count"])
	}

	assert.Nil(t, NewOutcomeEvent(state, OutcomeNoChange, now))
}
