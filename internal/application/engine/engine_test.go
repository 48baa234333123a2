package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/domain/notification"
	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
	"github.com/collectors-hub/collectors-hub/internal/domain/streak"
)

// ─────────────────────────────────────────────────────────────────────────────
// In-memory fakes
// ─────────────────────────────────────────────────────────────────────────────

type memCatalog struct {
	achievements []*achievement.Achievement
}

func (m *memCatalog) GetByID(ctx context.Context, id int64) (*achievement.Achievement, error) {
	for _, a := range m.achievements {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, achievement.ErrAchievementNotFound
}

func (m *memCatalog) GetActive(ctx context.Context) ([]*achievement.Achievement, error) {
	var out []*achievement.Achievement
	for _, a := range m.achievements {
		if a.Active {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCatalog) GetActiveByCategories(ctx context.Context, categories []achievement.MetricCategory) ([]*achievement.Achievement, error) {
	var out []*achievement.Achievement
	for _, a := range m.achievements {
		if a.Active && a.Metric.MatchesAny(categories) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memCatalog) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, a := range m.achievements {
		if a.Active {
			n++
		}
	}
	return n, nil
}

type progressKey struct {
	userID        int64
	achievementID int64
}

// memProgress mirrors the conditional upsert of the SQL repository:
// completed is monotone for non-repeatable achievements, and the award
// columns only move when the guard passes.
type memProgress struct {
	mu   sync.Mutex
	rows map[progressKey]*achievement.UserAchievementProgress
}

func newMemProgress() *memProgress {
	return &memProgress{rows: make(map[progressKey]*achievement.UserAchievementProgress)}
}

func (m *memProgress) Get(ctx context.Context, userID, achievementID int64) (*achievement.UserAchievementProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[progressKey{userID, achievementID}]
	if !ok {
		return nil, achievement.ErrProgressNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memProgress) GetAllForUser(ctx context.Context, userID int64) ([]*achievement.UserAchievementProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*achievement.UserAchievementProgress
	for key, row := range m.rows {
		if key.userID == userID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memProgress) Apply(ctx context.Context, u achievement.ProgressUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := progressKey{u.UserID, u.AchievementID}
	existing, ok := m.rows[key]
	if !ok {
		m.rows[key] = &achievement.UserAchievementProgress{
			UserID:             u.UserID,
			AchievementID:      u.AchievementID,
			Progress:           u.Progress,
			ProgressPercentage: u.ProgressPercentage,
			Completed:          u.Completed,
			CompletedAt:        u.CompletedAt,
			TimesCompleted:     u.TimesDelta,
			PointsAwarded:      u.PointsDelta,
			LastUpdate:         u.LastUpdate,
		}
		return nil
	}

	// Mirrors the SQL award guard: non-repeatable at most once,
	// repeatable at most once per cooldown window.
	cooldownOver := existing.CompletedAt == nil ||
		!existing.CompletedAt.After(u.LastUpdate.Add(-time.Duration(u.CooldownDays)*24*time.Hour))
	award := u.TimesDelta > 0 && (!existing.Completed || (u.Repeatable && cooldownOver))
	existing.Progress = u.Progress
	existing.ProgressPercentage = u.ProgressPercentage
	existing.Completed = existing.Completed || u.Completed
	if award {
		existing.CompletedAt = u.CompletedAt
		existing.TimesCompleted += u.TimesDelta
		existing.PointsAwarded += u.PointsDelta
	}
	existing.LastUpdate = u.LastUpdate
	return nil
}

type memHistory struct {
	mu      sync.Mutex
	entries []*achievement.HistoryEntry
}

func (m *memHistory) Append(ctx context.Context, entry *achievement.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memHistory) GetRecent(ctx context.Context, userID int64, limit int) ([]*achievement.HistoryEntry, error) {
	return nil, nil
}

func (m *memHistory) GetSince(ctx context.Context, userID int64, since time.Time) ([]*achievement.HistoryEntry, error) {
	return nil, nil
}

type streakKey struct {
	userID   int64
	category streak.Category
}

type memStreaks struct {
	mu   sync.Mutex
	rows map[streakKey]*streak.State
}

func newMemStreaks() *memStreaks {
	return &memStreaks{rows: make(map[streakKey]*streak.State)}
}

func (m *memStreaks) Get(ctx context.Context, userID int64, category streak.Category) (*streak.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.rows[streakKey{userID, category}]
	if !ok {
		return nil, streak.ErrStreakNotFound
	}
	cp := *row
	return &cp, nil
}

func (m *memStreaks) GetAllForUser(ctx context.Context, userID int64) ([]*streak.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*streak.State
	for key, row := range m.rows {
		if key.userID != userID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStreaks) Save(ctx context.Context, state *streak.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := streakKey{state.UserID, state.Category}
	cp := *state
	if existing, ok := m.rows[key]; ok && existing.LongestCount > cp.LongestCount {
		cp.LongestCount = existing.LongestCount
	}
	m.rows[key] = &cp
	return nil
}

type memNotifications struct {
	mu      sync.Mutex
	created []*notification.Notification
}

func (m *memNotifications) Create(ctx context.Context, n *notification.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, n)
	return nil
}

func (m *memNotifications) GetForUser(ctx context.Context, userID int64, limit int) ([]*notification.Notification, error) {
	return nil, nil
}

func (m *memNotifications) GetUnsent(ctx context.Context, limit int) ([]*notification.Notification, error) {
	return nil, nil
}

func (m *memNotifications) MarkSent(ctx context.Context, id string) error { return nil }
func (m *memNotifications) MarkRead(ctx context.Context, id string) error { return nil }
func (m *memNotifications) CountUnread(ctx context.Context, userID int64) (int, error) {
	return 0, nil
}

func (m *memNotifications) forUser(userID int64) []*notification.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*notification.Notification
	for _, n := range m.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

// memStats implements both stats.Repository and stats.Source so the
// aggregator reads what the progress fakes wrote.
type memStats struct {
	mu        sync.Mutex
	summaries map[int64]*stats.Summary
	progress  *memProgress
	catalog   *memCatalog
	streaks   *memStreaks
}

func newMemStats(progress *memProgress, catalog *memCatalog, streaks *memStreaks) *memStats {
	return &memStats{
		summaries: make(map[int64]*stats.Summary),
		progress:  progress,
		catalog:   catalog,
		streaks:   streaks,
	}
}

func (m *memStats) Get(ctx context.Context, userID int64) (*stats.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.summaries[userID]
	if !ok {
		return nil, stats.ErrStatsNotFound
	}
	return s, nil
}

func (m *memStats) Save(ctx context.Context, summary *stats.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[summary.UserID] = summary
	return nil
}

func (m *memStats) CompletedByTier(ctx context.Context, userID int64) (map[achievement.Tier]int, error) {
	rows, _ := m.progress.GetAllForUser(ctx, userID)
	out := make(map[achievement.Tier]int)
	for _, row := range rows {
		if !row.Completed {
			continue
		}
		a, err := m.catalog.GetByID(ctx, row.AchievementID)
		if err != nil {
			continue
		}
		out[a.Tier]++
	}
	return out, nil
}

func (m *memStats) TotalPoints(ctx context.Context, userID int64) (int, error) {
	rows, _ := m.progress.GetAllForUser(ctx, userID)
	total := 0
	for _, row := range rows {
		total += row.PointsAwarded
	}
	return total, nil
}

func (m *memStats) LongestStreak(ctx context.Context, userID int64) (int, error) {
	states, _ := m.streaks.GetAllForUser(ctx, userID)
	longest := 0
	for _, s := range states {
		if s.LongestCount > longest {
			longest = s.LongestCount
		}
	}
	return longest, nil
}

// memStatsCache is an in-memory stats.Cache.
type memStatsCache struct {
	mu   sync.Mutex
	rows map[int64]*stats.Summary
}

func newMemStatsCache() *memStatsCache {
	return &memStatsCache{rows: make(map[int64]*stats.Summary)}
}

func (m *memStatsCache) GetSummary(ctx context.Context, userID int64) (*stats.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows[userID], nil
}

func (m *memStatsCache) SetSummary(ctx context.Context, summary *stats.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[summary.UserID] = summary
	return nil
}

func (m *memStatsCache) Invalidate(ctx context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, userID)
	return nil
}

// memPublisher records published domain events.
type memPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (m *memPublisher) Publish(ev shared.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memPublisher) ofType(typ shared.EventType) []shared.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []shared.Event
	for _, ev := range m.events {
		if ev.EventType() == typ {
			out = append(out, ev)
		}
	}
	return out
}

// memMetricSource serves canned per-metric values with optional errors.
type memMetricSource struct {
	mu       sync.Mutex
	cards    int64
	comments int64
	logins   int64
	value    float64

	cardsErr    error
	commentsErr error
}

func (m *memMetricSource) setCards(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = n
}

func (m *memMetricSource) setLogins(n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = n
}

func (m *memMetricSource) DistinctCardCount(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards, m.cardsErr
}

func (m *memMetricSource) DistinctPlayerCount(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (m *memMetricSource) DistinctTeamCount(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (m *memMetricSource) TotalEstimatedValue(ctx context.Context, userID int64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

func (m *memMetricSource) GradedCardCount(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (m *memMetricSource) RookieCardCount(ctx context.Context, userID int64) (int64, error) {
	return 0, nil
}

func (m *memMetricSource) CommentCount(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comments, m.commentsErr
}

func (m *memMetricSource) LoginCount(ctx context.Context, userID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins, m.commentsErr
}

// ─────────────────────────────────────────────────────────────────────────────
// Harness
// ─────────────────────────────────────────────────────────────────────────────

type testHarness struct {
	engine        *Engine
	catalog       *memCatalog
	progress      *memProgress
	history       *memHistory
	streaks       *memStreaks
	notifications *memNotifications
	stats         *memStats
	source        *memMetricSource
	published     *memPublisher
}

func newTestHarness(t *testing.T, achievements []*achievement.Achievement) *testHarness {
	t.Helper()

	catalog := &memCatalog{achievements: achievements}
	progress := newMemProgress()
	streaks := newMemStreaks()
	statsStore := newMemStats(progress, catalog, streaks)
	h := &testHarness{
		catalog:       catalog,
		progress:      progress,
		history:       &memHistory{},
		streaks:       streaks,
		notifications: &memNotifications{},
		stats:         statsStore,
		source:        &memMetricSource{},
		published:     &memPublisher{},
	}

	eng, err := NewEngine(Deps{
		Catalog:       h.catalog,
		Progress:      h.progress,
		History:       h.history,
		Streaks:       h.streaks,
		Notifications: h.notifications,
		StatsRepo:     h.stats,
		StatsSource:   h.stats,
		Metrics:       achievement.NewEvaluator(h.source),
		Events:        h.published,
	}, Config{
		QueueSize:           16,
		Workers:             1,
		EvalTimeout:         5 * time.Second,
		EnableNotifications: true,
		EnableStreaks:       true,
		EnableStats:         true,
	})
	require.NoError(t, err)

	h.engine = eng
	return h
}

// setClock pins the engine's clock to a fixed instant.
func (h *testHarness) setClock(at time.Time) {
	h.engine.clock = func() time.Time { return at }
}

func collectorDef() *achievement.Achievement {
	return &achievement.Achievement{
		ID:                   1,
		Name:                 "Collector",
		Description:          "Add 10 cards to your collection",
		Tier:                 achievement.TierCommon,
		Points:               25,
		RequirementThreshold: 10,
		Metric: achievement.MetricDescriptor{
			Metric:     achievement.MetricDistinctCardCount,
			Categories: []achievement.MetricCategory{achievement.CategoryCollection},
		},
		Active: true,
	}
}

func weeklyLoginDef() *achievement.Achievement {
	return &achievement.Achievement{
		ID:                   2,
		Name:                 "Weekly Login",
		Description:          "Log in again after a week",
		Tier:                 achievement.TierUncommon,
		Points:               5,
		RequirementThreshold: 1,
		Metric: achievement.MetricDescriptor{
			Metric:     achievement.MetricLoginCount,
			Categories: []achievement.MetricCategory{achievement.CategoryLogin},
		},
		Repeatable:   true,
		CooldownDays: 7,
		Active:       true,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenario: the tenth card unlocks Collector exactly once
// ─────────────────────────────────────────────────────────────────────────────

func TestCollectorUnlocksOnTenthCard(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	ctx := context.Background()

	// nine cards: progress only
	h.source.setCards(9)
	report, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)
	assert.Equal(t, 0, report.Unlocked)

	row, err := h.progress.Get(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(9), row.Progress)
	assert.Equal(t, float64(90), row.ProgressPercentage)
	assert.False(t, row.Completed)
	assert.Empty(t, h.notifications.forUser(42))

	// the tenth card crosses the threshold
	h.source.setCards(10)
	report, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unlocked)
	assert.Equal(t, 25, report.PointsAwarded)

	row, err = h.progress.Get(ctx, 42, 1)
	require.NoError(t, err)
	assert.True(t, row.Completed)
	assert.Equal(t, 1, row.TimesCompleted)
	assert.Equal(t, 25, row.PointsAwarded)
	require.NotNil(t, row.CompletedAt)

	created := h.notifications.forUser(42)
	require.Len(t, created, 1)
	assert.Equal(t, "Achievement Unlocked: Collector", created[0].Title)
	assert.Equal(t, notification.TypeAchievementUnlocked, created[0].Type)
	assert.Equal(t, 25, created[0].PointsAwarded)

	// an eleventh card updates progress but never re-awards
	h.source.setCards(11)
	report, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unlocked)

	row, err = h.progress.Get(ctx, 42, 1)
	require.NoError(t, err)
	assert.Equal(t, float64(11), row.Progress)
	assert.Equal(t, 1, row.TimesCompleted)
	assert.Equal(t, 25, row.PointsAwarded)
	assert.Len(t, h.notifications.forUser(42), 1)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenario: Weekly Login honors its seven day cooldown
// ─────────────────────────────────────────────────────────────────────────────

func TestWeeklyLoginCooldown(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{weeklyLoginDef()})
	ctx := context.Background()

	day1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// day 1: first login completes the achievement
	h.setClock(day1)
	h.source.setLogins(1)
	report, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unlocked)

	// day 3: inside the cooldown window, skipped without a metric read
	h.setClock(day1.AddDate(0, 0, 2))
	h.source.setLogins(2)
	report, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Unlocked)
	assert.Equal(t, 1, report.Skipped)

	row, err := h.progress.Get(ctx, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, row.TimesCompleted)

	// day 9: cooldown elapsed, the completion counts again
	h.setClock(day1.AddDate(0, 0, 8))
	h.source.setLogins(3)
	report, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unlocked)

	row, err = h.progress.Get(ctx, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, row.TimesCompleted)
	assert.Equal(t, 10, row.PointsAwarded)

	created := h.notifications.forUser(42)
	require.Len(t, created, 2)
	assert.Equal(t, notification.TypeAchievementUnlocked, created[0].Type)
	assert.Equal(t, notification.TypeAchievementRecompleted, created[1].Type)
	assert.Equal(t, "Achievement Unlocked: Weekly Login", created[1].Title)
}

// ─────────────────────────────────────────────────────────────────────────────
// Scenario: daily login streak builds, survives same-day logins, resets
// ─────────────────────────────────────────────────────────────────────────────

func TestLoginStreakBuildAndReset(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	monday := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		h.setClock(monday.AddDate(0, 0, i))
		_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
		require.NoError(t, err)
	}

	state, err := h.streaks.Get(ctx, 42, streak.CategoryLogin)
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentCount)
	assert.Equal(t, 3, state.LongestCount)

	// a second login on Wednesday changes nothing
	h.setClock(monday.AddDate(0, 0, 2).Add(8 * time.Hour))
	report, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeNoChange, report.StreakOutcome)

	state, err = h.streaks.Get(ctx, 42, streak.CategoryLogin)
	require.NoError(t, err)
	assert.Equal(t, 3, state.CurrentCount)

	// Thursday skipped; Friday resets current but keeps the record
	h.setClock(monday.AddDate(0, 0, 4))
	report, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	assert.Equal(t, streak.OutcomeReset, report.StreakOutcome)

	state, err = h.streaks.Get(ctx, 42, streak.CategoryLogin)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CurrentCount)
	assert.Equal(t, 3, state.LongestCount)
}

func TestStreaksTrackedPerCategory(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	h.setClock(at)

	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)
	_, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)

	_, err = h.streaks.Get(ctx, 42, streak.CategoryLogin)
	assert.NoError(t, err)
	_, err = h.streaks.Get(ctx, 42, streak.CategoryCards)
	assert.NoError(t, err)
	_, err = h.streaks.Get(ctx, 42, streak.CategoryComments)
	assert.ErrorIs(t, err, streak.ErrStreakNotFound)
}

// ─────────────────────────────────────────────────────────────────────────────
// Failure isolation
// ─────────────────────────────────────────────────────────────────────────────

func TestFailingMetricDoesNotAbortBatch(t *testing.T) {
	commentAchievement := &achievement.Achievement{
		ID:                   3,
		Name:                 "Conversationalist",
		Description:          "Leave 5 comments",
		Tier:                 achievement.TierCommon,
		Points:               10,
		RequirementThreshold: 5,
		Metric: achievement.MetricDescriptor{
			Metric:     achievement.MetricCommentCount,
			Categories: []achievement.MetricCategory{achievement.CategoryComments},
		},
		Active: true,
	}

	h := newTestHarness(t, []*achievement.Achievement{collectorDef(), commentAchievement})
	h.source.setCards(10)
	h.source.commentsErr = errors.New("relation card_comments is locked")

	// manual_check evaluates the whole catalog in one batch
	report, err := h.engine.CheckAchievementsSync(context.Background(), 42, achievement.EventManualCheck)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Evaluated)
	assert.Equal(t, 1, report.Unlocked)
	assert.Equal(t, 1, report.Failed)

	// the healthy achievement still landed
	row, err := h.progress.Get(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, row.Completed)
}

func TestUnknownMetricIsIsolated(t *testing.T) {
	broken := collectorDef()
	broken.ID = 9
	broken.Name = "Broken"
	broken.Metric.Metric = "card_velocity"

	h := newTestHarness(t, []*achievement.Achievement{broken, collectorDef()})
	h.source.setCards(10)

	report, err := h.engine.CheckAchievementsSync(context.Background(), 42, achievement.EventCardAdded)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Evaluated)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Unlocked)
}

// ─────────────────────────────────────────────────────────────────────────────
// Candidate resolution
// ─────────────────────────────────────────────────────────────────────────────

func TestCandidatesFilteredByCategory(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef(), weeklyLoginDef()})
	h.source.setCards(3)
	h.source.setLogins(1)

	// a card event never evaluates login achievements
	report, err := h.engine.CheckAchievementsSync(context.Background(), 42, achievement.EventCardAdded)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Evaluated)

	_, err = h.progress.Get(context.Background(), 42, 2)
	assert.ErrorIs(t, err, achievement.ErrProgressNotFound)
}

func TestManualCheckEvaluatesFullCatalog(t *testing.T) {
	inactive := collectorDef()
	inactive.ID = 5
	inactive.Active = false

	h := newTestHarness(t, []*achievement.Achievement{collectorDef(), weeklyLoginDef(), inactive})
	h.source.setCards(10)
	h.source.setLogins(1)

	report, err := h.engine.CheckAchievementsSync(context.Background(), 42, achievement.EventManualCheck)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Evaluated)
	assert.Equal(t, 2, report.Unlocked)
}

// ─────────────────────────────────────────────────────────────────────────────
// Stats recomputation
// ─────────────────────────────────────────────────────────────────────────────

func TestStatsRecomputedAfterUnlock(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef(), weeklyLoginDef()})
	ctx := context.Background()

	h.source.setCards(10)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)

	summary, err := h.stats.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCompleted)
	assert.Equal(t, 2, summary.TotalActive)
	assert.Equal(t, float64(50), summary.CompletionPercentage)
	assert.Equal(t, 25, summary.TotalPoints)
	assert.Equal(t, 1, summary.CompletedAt(achievement.TierCommon))
}

// The summary is rebuilt after every trigger, not only on unlocks: the
// longest streak can move while no achievement completes.
func TestStatsRecomputedWithoutUnlock(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	ctx := context.Background()

	h.source.setCards(4)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)

	summary, err := h.stats.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalCompleted)
	assert.Equal(t, 0, summary.TotalPoints)
}

func TestStatsReflectStreakExtension(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{weeklyLoginDef()})
	ctx := context.Background()

	// No logins counted: the login achievement never completes, but
	// the streak still extends day over day.
	h.source.setLogins(0)

	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	h.setClock(monday)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	h.setClock(monday.AddDate(0, 0, 1))
	_, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	summary, err := h.stats.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalCompleted)
	assert.Equal(t, 2, summary.LongestStreak)
}

func TestStatsReadThroughCache(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	cache := newMemStatsCache()

	eng, err := NewEngine(Deps{
		Catalog:       h.catalog,
		Progress:      h.progress,
		History:       h.history,
		Streaks:       h.streaks,
		Notifications: h.notifications,
		StatsRepo:     h.stats,
		StatsSource:   h.stats,
		StatsCache:    cache,
		Metrics:       achievement.NewEvaluator(h.source),
	}, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()

	// no summary anywhere yet
	_, err = eng.Stats(ctx, 42)
	assert.ErrorIs(t, err, stats.ErrStatsNotFound)

	h.source.setCards(10)
	_, err = eng.CheckAchievementsSync(ctx, 42, achievement.EventCardAdded)
	require.NoError(t, err)

	// the recompute populated the cache alongside the repository
	cached, err := cache.GetSummary(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, cached)

	summary, err := eng.Stats(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCompleted)

	// a cache miss falls back to the repository and repopulates
	require.NoError(t, cache.Invalidate(ctx, 42))
	summary, err = eng.Stats(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalCompleted)

	cached, err = cache.GetSummary(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, cached)
}

// ─────────────────────────────────────────────────────────────────────────────
// Domain events and streak milestones
// ─────────────────────────────────────────────────────────────────────────────

func TestStreakMilestoneNotificationAtSevenDays(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		h.setClock(day.AddDate(0, 0, i))
		_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
		require.NoError(t, err)
	}

	var milestone *notification.Notification
	for _, n := range h.notifications.forUser(42) {
		if n.Type == notification.TypeStreakMilestone {
			milestone = n
		}
	}
	require.NotNil(t, milestone, "7-day streak should record a milestone notification")
	assert.Equal(t, "Streak Milestone: 7 days", milestone.Title)
	assert.Len(t, h.published.ofType(shared.EventNotificationCreated), 1)
}

func TestStreakEventsPublished(t *testing.T) {
	h := newTestHarness(t, nil)
	ctx := context.Background()

	monday := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	h.setClock(monday)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	h.setClock(monday.AddDate(0, 0, 1))
	_, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	// Friday: the Wednesday and Thursday gap resets the streak.
	h.setClock(monday.AddDate(0, 0, 4))
	_, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	assert.Len(t, h.published.ofType(shared.EventStreakStarted), 1)
	assert.Len(t, h.published.ofType(shared.EventStreakExtended), 1)
	assert.Len(t, h.published.ofType(shared.EventStreakReset), 1)
}

func TestUnlockAndRecompleteEventsPublished(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{weeklyLoginDef()})
	ctx := context.Background()

	h.source.setLogins(1)
	day := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	h.setClock(day)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	h.source.setLogins(2)
	h.setClock(day.AddDate(0, 0, 8))
	_, err = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	assert.Len(t, h.published.ofType(shared.EventAchievementUnlocked), 1)
	assert.Len(t, h.published.ofType(shared.EventAchievementRecompleted), 1)
	assert.NotEmpty(t, h.published.ofType(shared.EventStatsRecomputed))
}

// ─────────────────────────────────────────────────────────────────────────────
// Concurrency: the conditional upsert prevents a double award
// ─────────────────────────────────────────────────────────────────────────────

func TestConcurrentTriggersAwardOnce(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	h.source.setCards(10)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.engine.CheckAchievementsSync(context.Background(), 42, achievement.EventCardAdded)
		}()
	}
	wg.Wait()

	row, err := h.progress.Get(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, row.TimesCompleted)
	assert.Equal(t, 25, row.PointsAwarded)
}

// Two post-cooldown triggers racing on a repeatable achievement must
// award once: the store's guard checks the cooldown distance, not just
// the completed flag.
func TestConcurrentRepeatableAwardsOncePerWindow(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{weeklyLoginDef()})
	ctx := context.Background()

	day1 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	h.setClock(day1)
	h.source.setLogins(1)
	_, err := h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
	require.NoError(t, err)

	h.setClock(day1.AddDate(0, 0, 8))
	h.source.setLogins(2)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.engine.CheckAchievementsSync(ctx, 42, achievement.EventLogin)
		}()
	}
	wg.Wait()

	row, err := h.progress.Get(ctx, 42, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, row.TimesCompleted)
	assert.Equal(t, 10, row.PointsAwarded)
}

// ─────────────────────────────────────────────────────────────────────────────
// Queue behavior
// ─────────────────────────────────────────────────────────────────────────────

func TestAsyncProcessing(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	h.source.setCards(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.engine.Start(ctx)
	require.NoError(t, h.engine.CheckAchievements(42, achievement.EventCardAdded, EventData{"card_id": int64(901)}))
	h.engine.Stop()

	row, err := h.progress.Get(context.Background(), 42, 1)
	require.NoError(t, err)
	assert.True(t, row.Completed)
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})

	// recreate with a single-slot queue and no running workers
	eng, err := NewEngine(Deps{
		Catalog:       h.catalog,
		Progress:      h.progress,
		History:       h.history,
		Streaks:       h.streaks,
		Notifications: h.notifications,
		StatsRepo:     h.stats,
		StatsSource:   h.stats,
		Metrics:       achievement.NewEvaluator(h.source),
	}, Config{QueueSize: 1, Workers: 1, EvalTimeout: time.Second})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			assert.NoError(t, eng.CheckAchievements(42, achievement.EventLogin, nil))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked on a full queue")
	}

	assert.Equal(t, 1, eng.QueueDepth())
}

func TestInvalidTriggersRejected(t *testing.T) {
	h := newTestHarness(t, nil)

	assert.ErrorIs(t, h.engine.CheckAchievements(0, achievement.EventLogin, nil), ErrInvalidUserID)
	assert.ErrorIs(t, h.engine.CheckAchievements(42, "card_sold", nil), ErrInvalidEvent)

	_, err := h.engine.CheckAchievementsSync(context.Background(), -1, achievement.EventLogin)
	assert.ErrorIs(t, err, ErrInvalidUserID)
	_, err = h.engine.CheckAchievementsSync(context.Background(), 42, "")
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestStoppedEngineRejectsTriggers(t *testing.T) {
	h := newTestHarness(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	h.engine.Start(ctx)
	h.engine.Stop()
	cancel()

	assert.ErrorIs(t, h.engine.CheckAchievements(42, achievement.EventLogin, nil), ErrEngineStopped)
}

// Enqueues racing Stop must never panic the emitting flow: the jobs
// channel stays open for the engine's lifetime, so a trigger landing
// in the shutdown window is buffered or rejected, never a send on a
// closed channel.
func TestEnqueueRacingStopNeverPanics(t *testing.T) {
	h := newTestHarness(t, []*achievement.Achievement{collectorDef()})
	h.source.setCards(10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.engine.Start(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				err := h.engine.CheckAchievements(42, achievement.EventCardAdded, nil)
				if err != nil {
					assert.ErrorIs(t, err, ErrEngineStopped)
					return
				}
			}
		}()
	}

	h.engine.Stop()
	wg.Wait()
}

func TestNewEngineValidatesDeps(t *testing.T) {
	_, err := NewEngine(Deps{}, DefaultConfig())
	assert.Error(t, err)

	src := &memMetricSource{}
	deps := Deps{
		Catalog:  &memCatalog{},
		Progress: newMemProgress(),
		Metrics:  achievement.NewEvaluator(src),
	}

	// streaks enabled without a repository
	_, err = NewEngine(deps, Config{EnableStreaks: true})
	assert.Error(t, err)

	// everything optional disabled: minimal deps suffice
	eng, err := NewEngine(deps, Config{})
	require.NoError(t, err)
	assert.NotNil(t, eng)
}
