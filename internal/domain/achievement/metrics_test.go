package achievement

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMetricSource returns canned values per metric for a single user.
type fakeMetricSource struct {
	cards   int64
	players int64
	teams   int64
	value   float64
	graded  int64
	rookies int64
	comment int64
	logins  int64
	err     error
}

func (f *fakeMetricSource) DistinctCardCount(ctx context.Context, userID int64) (int64, error) {
	return f.cards, f.err
}
func (f *fakeMetricSource) DistinctPlayerCount(ctx context.Context, userID int64) (int64, error) {
	return f.players, f.err
}
func (f *fakeMetricSource) DistinctTeamCount(ctx context.Context, userID int64) (int64, error) {
	return f.teams, f.err
}
func (f *fakeMetricSource) TotalEstimatedValue(ctx context.Context, userID int64) (float64, error) {
	return f.value, f.err
}
func (f *fakeMetricSource) GradedCardCount(ctx context.Context, userID int64) (int64, error) {
	return f.graded, f.err
}
func (f *fakeMetricSource) RookieCardCount(ctx context.Context, userID int64) (int64, error) {
	return f.rookies, f.err
}
func (f *fakeMetricSource) CommentCount(ctx context.Context, userID int64) (int64, error) {
	return f.comment, f.err
}
func (f *fakeMetricSource) LoginCount(ctx context.Context, userID int64) (int64, error) {
	return f.logins, f.err
}

func TestRegistryIsClosed(t *testing.T) {
	names := RegisteredMetrics()
	assert.Len(t, names, 8)

	for _, name := range names {
		assert.True(t, IsRegisteredMetric(name))
	}

	assert.False(t, IsRegisteredMetric("raw_sql"))
	assert.False(t, IsRegisteredMetric(""))
}

func TestEvaluator_Evaluate(t *testing.T) {
	src := &fakeMetricSource{cards: 12, value: 1499.50, logins: 3}
	ev := NewEvaluator(src)
	ctx := context.Background()

	v, err := ev.Evaluate(ctx, 42, &Achievement{
		Metric: MetricDescriptor{Metric: MetricDistinctCardCount},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(12), v)

	v, err = ev.Evaluate(ctx, 42, &Achievement{
		Metric: MetricDescriptor{Metric: MetricTotalEstimatedValue},
	})
	require.NoError(t, err)
	assert.Equal(t, 1499.50, v)

	v, err = ev.Evaluate(ctx, 42, &Achievement{
		Metric: MetricDescriptor{Metric: MetricLoginCount},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestEvaluator_UnknownMetric(t *testing.T) {
	ev := NewEvaluator(&fakeMetricSource{})

	_, err := ev.Evaluate(context.Background(), 42, &Achievement{
		Metric: MetricDescriptor{Metric: "card_velocity"},
	})

	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestEvaluator_SourceErrorWrapped(t *testing.T) {
	sourceErr := errors.New("connection reset")
	ev := NewEvaluator(&fakeMetricSource{err: sourceErr})

	_, err := ev.Evaluate(context.Background(), 42, &Achievement{
		Metric: MetricDescriptor{Metric: MetricCommentCount},
	})

	assert.ErrorIs(t, err, sourceErr)
}

func TestEvaluator_NegativeValueClamped(t *testing.T) {
	ev := NewEvaluator(&fakeMetricSource{value: -250})

	v, err := ev.Evaluate(context.Background(), 42, &Achievement{
		Metric: MetricDescriptor{Metric: MetricTotalEstimatedValue},
	})

	require.NoError(t, err)
	assert.Equal(t, float64(0), v)
}
