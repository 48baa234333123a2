// Package jobs contains implementations of scheduled jobs for the
// achievement engine.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/application/engine"
	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE ACHIEVEMENTS JOB
// ══════════════════════════════════════════════════════════════════════════════

// ActiveUserSource lists users that had progress activity recently.
type ActiveUserSource interface {
	RecentlyActiveUsers(ctx context.Context, days int, limit int) ([]int64, error)
}

// ReconcileAchievementsJob re-runs a manual_check for recently active
// users. It catches up on triggers that were dropped when the engine's
// queue was full and on catalog changes made since the last pass.
type ReconcileAchievementsJob struct {
	engine *engine.Engine
	users  ActiveUserSource
	logger *slog.Logger
	config ReconcileConfig
}

// ReconcileConfig contains configuration for the reconcile job.
type ReconcileConfig struct {
	// LookbackDays is how far back to look for active users.
	LookbackDays int

	// MaxUsers bounds the number of users per run.
	MaxUsers int

	// Concurrency is the number of users processed in parallel.
	Concurrency int

	// PerUserTimeout bounds the manual_check of a single user.
	PerUserTimeout time.Duration
}

// DefaultReconcileConfig returns sensible defaults.
func DefaultReconcileConfig() ReconcileConfig {
	return ReconcileConfig{
		LookbackDays:   2,
		MaxUsers:       5000,
		Concurrency:    4,
		PerUserTimeout: 30 * time.Second,
	}
}

// NewReconcileAchievementsJob creates the job.
func NewReconcileAchievementsJob(eng *engine.Engine, users ActiveUserSource, logger *slog.Logger, config ReconcileConfig) *ReconcileAchievementsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultReconcileConfig().Concurrency
	}
	if config.PerUserTimeout <= 0 {
		config.PerUserTimeout = DefaultReconcileConfig().PerUserTimeout
	}

	return &ReconcileAchievementsJob{
		engine: eng,
		users:  users,
		logger: logger,
		config: config,
	}
}

// Name implements scheduler.Job.
func (j *ReconcileAchievementsJob) Name() string {
	return "reconcile_achievements"
}

// Description implements scheduler.Job.
func (j *ReconcileAchievementsJob) Description() string {
	return "Re-evaluates all achievements for recently active users"
}

// Run implements scheduler.Job.
func (j *ReconcileAchievementsJob) Run(ctx context.Context) error {
	userIDs, err := j.users.RecentlyActiveUsers(ctx, j.config.LookbackDays, j.config.MaxUsers)
	if err != nil {
		return err
	}

	if len(userIDs) == 0 {
		j.logger.Info("reconcile: no active users")
		return nil
	}

	var processed, unlocked, failed atomic.Int64

	sem := make(chan struct{}, j.config.Concurrency)
	var wg sync.WaitGroup

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			defer func() { <-sem }()

			userCtx, cancel := context.WithTimeout(ctx, j.config.PerUserTimeout)
			defer cancel()

			report, err := j.engine.CheckAchievementsSync(userCtx, userID, achievement.EventManualCheck)
			if err != nil {
				failed.Add(1)
				j.logger.Error("reconcile: user check failed", "user_id", userID, "error", err)
				return
			}

			processed.Add(1)
			unlocked.Add(int64(report.Unlocked))
		}(userID)
	}

	wg.Wait()

	j.logger.Info("reconcile completed",
		"users", len(userIDs),
		"processed", processed.Load(),
		"unlocked", unlocked.Load(),
		"failed", failed.Load(),
	)
	return nil
}
