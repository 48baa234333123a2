// Package main - точка входа фонового процесса движка достижений.
//
// Worker принимает триггерные события из основного приложения,
// вычисляет метрики достижений, ведёт серии активных дней, создаёт
// уведомления и пересчитывает сводную статистику. Ночью выполняется
// сверка: полный пересчёт для недавно активных пользователей.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/collectors-hub/collectors-hub/config"
	"github.com/collectors-hub/collectors-hub/internal/application/engine"
	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/messaging"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/persistence/postgres"
	rediscache "github.com/collectors-hub/collectors-hub/internal/infrastructure/persistence/redis"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/scheduler"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/scheduler/jobs"
	"github.com/collectors-hub/collectors-hub/internal/infrastructure/service"
	"github.com/collectors-hub/collectors-hub/pkg/logger"
)

func main() {
	// .env удобен в разработке; в production переменные приходят из окружения.
	_ = godotenv.Load()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := newLogger(cfg)
	slogger := newSlog(cfg)

	log.Info("starting achievement worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─────────────────────────────────────────────────────────────────────────
	// PostgreSQL
	// ─────────────────────────────────────────────────────────────────────────
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer dbConn.Close()
	log.Info("database connection established")

	if cfg.Database.AutoMigrate {
		migrator := postgres.NewMigrator(dbConn)
		if err := migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Redis (опционально)
	// ─────────────────────────────────────────────────────────────────────────
	var statsCache stats.Cache
	if !cfg.Redis.Disabled && cfg.Features.IsEnabled(config.FeatureStatsCache) {
		cache, err := connectRedis(cfg)
		if err != nil {
			log.Warn("failed to connect to Redis, stats caching disabled", logger.Err(err))
		} else {
			defer cache.Close()
			statsCache = rediscache.NewStatsCache(cache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// Репозитории и источники метрик
	// ─────────────────────────────────────────────────────────────────────────
	catalogRepo := postgres.NewCatalogRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	historyRepo := postgres.NewHistoryRepository(dbConn)
	streakRepo := postgres.NewStreakRepository(dbConn)
	notificationRepo := postgres.NewNotificationRepository(dbConn)
	statsRepo := postgres.NewStatsRepository(dbConn)

	metricSource := service.NewBreakedMetricSource(postgres.NewMetricSource(dbConn), log)
	evaluator := achievement.NewEvaluator(metricSource)

	// ─────────────────────────────────────────────────────────────────────────
	// Event bus
	// ─────────────────────────────────────────────────────────────────────────
	busConfig := messaging.DefaultConfig()
	busConfig.Logger = slogger
	eventBus := messaging.NewInMemoryEventBus(busConfig)
	defer func() { _ = eventBus.Close() }()

	// ─────────────────────────────────────────────────────────────────────────
	// Движок достижений
	// ─────────────────────────────────────────────────────────────────────────
	eng, err := engine.NewEngine(engine.Deps{
		Catalog:       catalogRepo,
		Progress:      progressRepo,
		History:       historyRepo,
		Streaks:       streakRepo,
		Notifications: notificationRepo,
		StatsRepo:     statsRepo,
		StatsSource:   statsRepo,
		Metrics:       evaluator,
		StatsCache:    statsCache,
		Events:        eventBus,
		Logger:        log,
	}, engine.Config{
		QueueSize:           cfg.Engine.QueueSize,
		Workers:             cfg.Engine.Workers,
		EvalTimeout:         cfg.Engine.EvalTimeout,
		EnableNotifications: cfg.Features.IsEnabled(config.FeatureNotifications),
		EnableStreaks:       cfg.Features.IsEnabled(config.FeatureStreaks),
		EnableStats:         true,
	})
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}

	eng.Start(ctx)
	defer eng.Stop()

	// ─────────────────────────────────────────────────────────────────────────
	// Планировщик: ночная сверка
	// ─────────────────────────────────────────────────────────────────────────
	if cfg.Scheduler.Enabled && cfg.Features.IsEnabled(config.FeatureReconcileJob) {
		sched := scheduler.NewScheduler(scheduler.Config{
			Logger:   slogger,
			Timezone: cfg.App.Location,
		})

		reconcile := jobs.NewReconcileAchievementsJob(eng, statsRepo, slogger, jobs.ReconcileConfig{
			LookbackDays: cfg.Scheduler.ReconcileLookbackDays,
			MaxUsers:     cfg.Scheduler.ReconcileMaxUsers,
			Concurrency:  cfg.Scheduler.ReconcileConcurrency,
		})
		if err := sched.Register(reconcile, scheduler.NewDailySchedule(cfg.Scheduler.ReconcileHour, 0)); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}

		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
	}

	log.Info("worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	log.Info("shutdown signal received", logger.String("signal", sig.String()))
	cancel()

	return nil
}

func connectRedis(cfg *config.Config) (*rediscache.Cache, error) {
	if cfg.Redis.URL != "" {
		return rediscache.NewCacheFromURL(cfg.Redis.URL)
	}

	redisCfg := rediscache.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout
	return rediscache.NewCache(redisCfg)
}

func newLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.App.LogLevel)
	if cfg.App.Debug {
		opts.Level = logger.LevelDebug
	}
	return logger.New(opts)
}

func newSlog(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
