// Package main - утилита пересчёта достижений.
//
// Backfill выполняет синхронный manual_check для одного пользователя
// или для всех недавно активных. Применяется после изменения каталога
// достижений и при восстановлении после сбоев.
//
// Использование:
//
//	backfill -user 42
//	backfill -all -days 30
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/collectors-hub/collectors-hub/config"
	"github.com/collectors-hub/collectors-hub/internal/application/engine"
	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/persistence/postgres"
	"github.com/collectors-hub/collectors-hub/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var (
		userID  = flag.Int64("user", 0, "recompute achievements for a single user")
		all     = flag.Bool("all", false, "recompute for all recently active users")
		days    = flag.Int("days", 30, "lookback window in days for -all")
		limit   = flag.Int("limit", 10000, "maximum number of users for -all")
		timeout = flag.Duration("timeout", 10*time.Minute, "total run timeout")
	)
	flag.Parse()

	if *userID <= 0 && !*all {
		fmt.Fprintln(os.Stderr, "backfill: specify -user <id> or -all")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*userID, *all, *days, *limit, *timeout); err != nil {
		fmt.Fprintf(os.Stderr, "backfill: %v\n", err)
		os.Exit(1)
	}
}

func run(userID int64, all bool, days, limit int, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Options{
		Output: os.Stdout,
		Level:  logger.ParseLevel(cfg.App.LogLevel),
	})

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()

	catalogRepo := postgres.NewCatalogRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	historyRepo := postgres.NewHistoryRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)
	evaluator := achievement.NewEvaluator(postgres.NewMetricSource(dbConn))

	// Уведомления при пересчёте не создаются: каталог мог измениться
	// задним числом, и рассылать "новые" достижения за старые действия
	// не нужно.
	eng, err := engine.NewEngine(engine.Deps{
		Catalog:       catalogRepo,
		Progress:      progressRepo,
		History:       historyRepo,
		Streaks:       streakRepo,
		Notifications: notificationRepo,
		StatsRepo:     statsRepo,
		StatsSource:   statsRepo,
		Metrics:       evaluator,
		Logger:        log,
	}, engine.Config{
		QueueSize:           1,
		Workers:             1,
		EvalTimeout:         cfg.Engine.EvalTimeout,
		EnableNotifications: false,
		EnableStreaks:       false,
		EnableStats:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	if userID > 0 {
		return backfillUser(ctx, eng, log, userID)
	}

	users, err := statsRepo.RecentlyActiveUsers(ctx, days, limit)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}

	log.Info("backfill starting", logger.Int("users", len(users)))

	failed := 0
	for _, id := range users {
		if err := backfillUser(ctx, eng, log, id); err != nil {
			failed++
			log.Error("user backfill failed", logger.UserID(id), logger.Err(err))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d users failed", failed, len(users))
	}

	log.Info("backfill completed", logger.Int("users", len(users)))
	return nil
}

func backfillUser(ctx context.Context, eng *engine.Engine, log *logger.Logger, userID int64) error {
	report, err := eng.CheckAchievementsSync(ctx, userID, achievement.EventManualCheck)
	if err != nil {
		return err
	}

	log.Info("user recomputed",
		logger.UserID(userID),
		logger.Int("evaluated", report.Evaluated),
		logger.Int("unlocked", report.Unlocked),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
	)

	if summary, err := eng.Stats(ctx, userID); err == nil {
		log.Info("summary",
			logger.UserID(userID),
			logger.Int("total_completed", summary.TotalCompleted),
			logger.Int("total_points", summary.TotalPoints),
			logger.Float64("completion_pct", summary.CompletionPercentage),
		)
	}
	return nil
}
