package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/domain/notification"
	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
	"github.com/collectors-hub/collectors-hub/internal/domain/streak"
	"github.com/collectors-hub/collectors-hub/pkg/logger"
)

// Report summarizes the processing of one trigger.
type Report struct {
	UserID int64
	Event  achievement.TriggerEvent

	// Evaluated is the number of candidate achievements examined.
	Evaluated int

	// Unlocked is the number of achievements newly completed.
	Unlocked int

	// Skipped counts cooldown and no-change early exits.
	Skipped int

	// Failed counts achievements whose evaluation or persistence
	// failed. Failures are isolated: they never abort the batch.
	Failed int

	// PointsAwarded is the total points granted by this trigger.
	PointsAwarded int

	// StreakOutcome reports the streak transition, if any.
	StreakOutcome streak.Outcome

	ProcessedAt time.Time
}

// process runs the full pipeline for one trigger: streak update,
// candidate resolution, per-achievement evaluation, and stats
// recomputation. Only a candidate resolution failure aborts the whole
// trigger; everything per-achievement is isolated.
func (e *Engine) process(ctx context.Context, t Trigger) (*Report, error) {
	now := e.clock()
	report := &Report{UserID: t.UserID, Event: t.Event, ProcessedAt: now}

	if len(t.Data) > 0 {
		e.log.Debug("trigger context",
			logger.UserID(t.UserID),
			logger.TriggerEvent(string(t.Event)),
			logger.Any("data", t.Data),
		)
	}

	if e.cfg.EnableStreaks && t.Event.StreakEligible() {
		outcome, err := e.updateStreak(ctx, t, now)
		if err != nil {
			// Streak failures do not block achievement evaluation.
			e.log.Error("streak update failed",
				logger.UserID(t.UserID),
				logger.StreakCategory(t.Event.StreakCategory()),
				logger.Err(err),
			)
		} else {
			report.StreakOutcome = outcome
		}
	}

	candidates, err := e.resolveCandidates(ctx, t.Event)
	if err != nil {
		return nil, fmt.Errorf("engine: resolve candidates: %w", err)
	}

	for _, a := range candidates {
		report.Evaluated++

		decision, err := e.processAchievement(ctx, t, a, now)
		if err != nil {
			report.Failed++
			e.log.Error("achievement evaluation failed",
				logger.UserID(t.UserID),
				logger.AchievementID(a.ID),
				logger.AchievementName(a.Name),
				logger.Err(err),
			)
			continue
		}

		if decision.Skip {
			report.Skipped++
			continue
		}
		if decision.WasJustCompleted {
			report.Unlocked++
			report.PointsAwarded += decision.PointsDelta
		}
	}

	// Stats are rebuilt once per trigger regardless of unlocks: the
	// summary carries the longest streak, which can move without any
	// achievement completing.
	if e.cfg.EnableStats {
		if err := e.recomputeStats(ctx, t.UserID, now); err != nil {
			e.log.Error("stats recomputation failed",
				logger.UserID(t.UserID),
				logger.Err(err),
			)
		}
	}

	return report, nil
}

// resolveCandidates loads active achievements whose metric categories
// are touched by the event. manual_check resolves to the full catalog.
func (e *Engine) resolveCandidates(ctx context.Context, event achievement.TriggerEvent) ([]*achievement.Achievement, error) {
	categories := event.Categories()
	if categories == nil {
		return e.deps.Catalog.GetActive(ctx)
	}
	return e.deps.Catalog.GetActiveByCategories(ctx, categories)
}

// processAchievement evaluates one achievement for the user and
// persists the outcome. Returns the update decision so the caller can
// account for unlocks and skips.
func (e *Engine) processAchievement(ctx context.Context, t Trigger, a *achievement.Achievement, now time.Time) (achievement.UpdateDecision, error) {
	prior, err := e.deps.Progress.Get(ctx, t.UserID, a.ID)
	if err != nil && !errors.Is(err, achievement.ErrProgressNotFound) {
		return achievement.UpdateDecision{}, shared.WrapDomainError("achievement", "Get", shared.ErrPersistence, "load progress", err)
	}

	// Cooldown is decided before the metric is read: a repeatable
	// achievement inside its cooldown window costs no metric query.
	if decision := achievement.DecideUpdate(prior, a, priorValue(prior), now); decision.Skip && decision.SkipReason == achievement.SkipCooldown {
		return decision, nil
	}

	value, err := e.deps.Metrics.Evaluate(ctx, t.UserID, a)
	if err != nil {
		return achievement.UpdateDecision{}, shared.WrapDomainError("achievement", "Evaluate", shared.ErrMetricEvaluation, string(a.Metric.Metric), err)
	}

	decision := achievement.DecideUpdate(prior, a, value, now)
	if decision.Skip {
		return decision, nil
	}

	update := achievement.BuildProgressUpdate(t.UserID, a, decision, now)
	if err := e.deps.Progress.Apply(ctx, update); err != nil {
		return achievement.UpdateDecision{}, shared.WrapDomainError("achievement", "Apply", shared.ErrPersistence, "apply progress", err)
	}

	if e.deps.History != nil {
		entry := achievement.NewHistoryEntry(t.UserID, a.ID, priorValue(prior), decision.NewValue, decision.PointsDelta, t.Event, now)
		if err := e.deps.History.Append(ctx, entry); err != nil {
			// History is advisory; the progress write already landed.
			e.log.Warn("history append failed",
				logger.UserID(t.UserID),
				logger.AchievementID(a.ID),
				logger.Err(err),
			)
		}
	}

	if decision.WasJustCompleted {
		e.onUnlock(ctx, t, a, prior, now)
	} else if err := e.events.Publish(achievement.NewProgressedEvent(t.UserID, a, decision.NewValue, decision.Percentage, now)); err != nil {
		e.log.Warn("progress event publish failed", logger.Err(err))
	}

	return decision, nil
}

// onUnlock records the notification and publishes the unlock event.
// Both are best-effort: the progress row is already the source of truth.
func (e *Engine) onUnlock(ctx context.Context, t Trigger, a *achievement.Achievement, prior *achievement.UserAchievementProgress, now time.Time) {
	timesCompleted := 1
	repeat := false
	if prior != nil {
		timesCompleted = prior.TimesCompleted + 1
		repeat = prior.TimesCompleted > 0
	}

	e.log.Info("achievement unlocked",
		logger.UserID(t.UserID),
		logger.AchievementID(a.ID),
		logger.AchievementName(a.Name),
		logger.Points(a.Points),
		logger.Int("times_completed", timesCompleted),
	)

	if e.cfg.EnableNotifications {
		n, err := notification.NewUnlockNotification(t.UserID, a.ID, a.Name, a.Description, a.Points, repeat, now)
		if err == nil {
			err = e.deps.Notifications.Create(ctx, n)
		}
		if err != nil {
			e.log.Error("notification create failed",
				logger.UserID(t.UserID),
				logger.AchievementID(a.ID),
				logger.Err(err),
			)
		} else if err := e.events.Publish(notification.NewCreatedEvent(n)); err != nil {
			e.log.Warn("notification event publish failed", logger.Err(err))
		}
	}

	if err := e.events.Publish(achievement.NewUnlockedEvent(t.UserID, a, timesCompleted, now)); err != nil {
		e.log.Warn("unlock event publish failed", logger.Err(err))
	}
}

// updateStreak runs the streak state machine for the event's category.
func (e *Engine) updateStreak(ctx context.Context, t Trigger, now time.Time) (streak.Outcome, error) {
	category := streak.Category(t.Event.StreakCategory())

	state, err := e.deps.Streaks.Get(ctx, t.UserID, category)
	if err != nil {
		if !errors.Is(err, streak.ErrStreakNotFound) {
			return streak.OutcomeNoChange, shared.WrapDomainError("streak", "Get", shared.ErrStreakUpdate, "load streak", err)
		}
		state, err = streak.NewState(t.UserID, category)
		if err != nil {
			return streak.OutcomeNoChange, err
		}
	}

	outcome := state.RecordActivity(now)
	if outcome == streak.OutcomeNoChange {
		// Same-day activity, nothing to persist.
		return outcome, nil
	}

	if err := e.deps.Streaks.Save(ctx, state); err != nil {
		return outcome, shared.WrapDomainError("streak", "Save", shared.ErrStreakUpdate, "save streak", err)
	}

	if ev := streak.NewOutcomeEvent(state, outcome, now); ev != nil {
		if err := e.events.Publish(ev); err != nil {
			e.log.Warn("streak event publish failed", logger.Err(err))
		}
	}

	if e.cfg.EnableNotifications && outcome == streak.OutcomeExtended && streak.IsMilestone(state.CurrentCount) {
		e.onStreakMilestone(ctx, t.UserID, state, now)
	}

	e.log.Debug("streak updated",
		logger.UserID(t.UserID),
		logger.StreakCategory(category.String()),
		logger.String("outcome", outcome.String()),
		logger.Int("current", state.CurrentCount),
		logger.Int("longest", state.LongestCount),
	)
	return outcome, nil
}

// onStreakMilestone records a notification when the streak reaches a
// round day count. Best-effort, same as unlock notifications.
func (e *Engine) onStreakMilestone(ctx context.Context, userID int64, state *streak.State, now time.Time) {
	n, err := notification.NewStreakMilestoneNotification(userID, state.Category.String(), state.CurrentCount, now)
	if err == nil {
		err = e.deps.Notifications.Create(ctx, n)
	}
	if err != nil {
		e.log.Error("streak milestone notification failed",
			logger.UserID(userID),
			logger.StreakCategory(state.Category.String()),
			logger.Err(err),
		)
		return
	}
	if err := e.events.Publish(notification.NewCreatedEvent(n)); err != nil {
		e.log.Warn("notification event publish failed", logger.Err(err))
	}
}

// recomputeStats rebuilds the user's summary after a trigger.
// Transient database errors are retried.
func (e *Engine) recomputeStats(ctx context.Context, userID int64, now time.Time) error {
	aggregator := stats.NewAggregator(e.deps.StatsSource, e.deps.Catalog)

	return e.statsRetry.Do(ctx, func(ctx context.Context) error {
		summary, err := aggregator.Recompute(ctx, userID, now)
		if err != nil {
			return err
		}
		if err := e.deps.StatsRepo.Save(ctx, summary); err != nil {
			return err
		}
		if e.deps.StatsCache != nil {
			if err := e.deps.StatsCache.SetSummary(ctx, summary); err != nil {
				// Drop the stale entry so readers fall back to the
				// repository instead of serving the old summary.
				e.log.Warn("stats cache update failed", logger.UserID(userID), logger.Err(err))
				if err := e.deps.StatsCache.Invalidate(ctx, userID); err != nil {
					e.log.Warn("stats cache invalidate failed", logger.UserID(userID), logger.Err(err))
				}
			}
		}
		if err := e.events.Publish(stats.NewRecomputedEvent(summary, now)); err != nil {
			e.log.Warn("stats event publish failed", logger.Err(err))
		}
		return nil
	})
}

// priorValue extracts the stored metric value from a possibly nil row.
func priorValue(prior *achievement.UserAchievementProgress) float64 {
	if prior == nil {
		return 0
	}
	return prior.Progress
}
