// Package engine contains the achievement computation engine.
// The engine receives trigger events from collection flows, evaluates
// metric-based achievements, maintains daily activity streaks, and
// records notifications. All work happens off the caller's critical
// path: triggers are enqueued onto a bounded queue served by a worker
// pool, and a full queue drops the trigger rather than blocking the
// caller.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/collectors-hub/collectors-hub/internal/domain/achievement"
	"github.com/collectors-hub/collectors-hub/internal/domain/notification"
	"github.com/collectors-hub/collectors-hub/internal/domain/shared"
	"github.com/collectors-hub/collectors-hub/internal/domain/stats"
	"github.com/collectors-hub/collectors-hub/internal/domain/streak"
	"github.com/collectors-hub/collectors-hub/pkg/logger"
	"github.com/collectors-hub/collectors-hub/pkg/retry"
)

// Engine errors.
var (
	ErrEngineStopped = errors.New("engine: engine is stopped")
	ErrInvalidUserID = errors.New("engine: invalid user ID")
	ErrInvalidEvent  = errors.New("engine: invalid trigger event")
)

// EventData carries free-form context from the emitting flow (card id,
// comment id, and so on). The engine re-reads every metric from the
// source of truth, so the data is never trusted for computation; it is
// attached to logs and events for traceability only.
type EventData map[string]interface{}

// Trigger is one enqueued achievement check request.
type Trigger struct {
	UserID     int64
	Event      achievement.TriggerEvent
	Data       EventData
	EnqueuedAt time.Time
}

// Deps contains everything the engine needs. All repositories are
// interfaces so tests can inject in-memory fakes.
type Deps struct {
	Catalog       achievement.CatalogRepository
	Progress      achievement.ProgressRepository
	History       achievement.HistoryRepository
	Streaks       streak.Repository
	Notifications notification.Repository
	StatsRepo     stats.Repository
	StatsSource   stats.Source

	// Metrics evaluates the registered metric strategies.
	Metrics *achievement.Evaluator

	// StatsCache is optional; nil disables summary caching.
	StatsCache stats.Cache

	// Events is optional; nil falls back to a no-op publisher.
	Events shared.EventPublisher

	Logger *logger.Logger
}

// Config tunes the engine's asynchronous behavior.
type Config struct {
	// QueueSize is the trigger queue capacity. When the queue is full,
	// new triggers are dropped and logged, never blocking the caller.
	QueueSize int

	// Workers is the number of goroutines consuming the queue.
	Workers int

	// EvalTimeout bounds the processing of a single trigger.
	EvalTimeout time.Duration

	// EnableNotifications controls notification creation on unlock.
	EnableNotifications bool

	// EnableStreaks controls daily streak tracking.
	EnableStreaks bool

	// EnableStats controls summary recomputation after unlocks.
	EnableStats bool
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:           1024,
		Workers:             4,
		EvalTimeout:         10 * time.Second,
		EnableNotifications: true,
		EnableStreaks:       true,
		EnableStats:         true,
	}
}

// Engine is the achievement computation engine.
type Engine struct {
	deps Deps
	cfg  Config
	log  *logger.Logger

	events     shared.EventPublisher
	statsRetry *retry.Retrier

	jobs     chan Trigger
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopped  chan struct{}

	// clock is overridable in tests for cooldown and streak scenarios.
	clock func() time.Time
}

// NewEngine validates dependencies and constructs the engine.
// Start must be called before triggers are accepted.
func NewEngine(deps Deps, cfg Config) (*Engine, error) {
	if deps.Catalog == nil || deps.Progress == nil || deps.Metrics == nil {
		return nil, errors.New("engine: catalog, progress, and metrics are required")
	}
	if cfg.EnableStreaks && deps.Streaks == nil {
		return nil, errors.New("engine: streak repository is required when streaks are enabled")
	}
	if cfg.EnableNotifications && deps.Notifications == nil {
		return nil, errors.New("engine: notification repository is required when notifications are enabled")
	}
	if cfg.EnableStats && (deps.StatsRepo == nil || deps.StatsSource == nil) {
		return nil, errors.New("engine: stats repository and source are required when stats are enabled")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.EvalTimeout <= 0 {
		cfg.EvalTimeout = DefaultConfig().EvalTimeout
	}

	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("achievement_engine"))

	events := deps.Events
	if events == nil {
		events = shared.NopPublisher{}
	}

	return &Engine{
		deps:       deps,
		cfg:        cfg,
		log:        log,
		events:     events,
		statsRetry: retry.DatabaseRetrier(),
		jobs:       make(chan Trigger, cfg.QueueSize),
		stopped:    make(chan struct{}),
		clock:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start launches the worker pool. The context bounds the lifetime of
// all workers: cancel it or call Stop to shut the engine down.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.worker(ctx, i)
	}
	e.log.Info("engine started",
		logger.Int("workers", e.cfg.Workers),
		logger.Int("queue_size", e.cfg.QueueSize),
	)
}

// Stop signals shutdown and waits for the workers to drain the queue.
// The jobs channel is never closed: a trigger racing Stop lands in the
// buffer or is dropped, it can never panic the emitting flow.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopped)
	})
	e.wg.Wait()
	e.log.Info("engine stopped")
}

// CheckAchievements enqueues a trigger for asynchronous processing.
// It never blocks: if the queue is full the trigger is dropped with a
// warning, to be reconciled later by the nightly job. A failure here
// never propagates to the collection flow that emitted the trigger.
func (e *Engine) CheckAchievements(userID int64, event achievement.TriggerEvent, data EventData) error {
	if userID <= 0 {
		return ErrInvalidUserID
	}
	if !event.IsValid() {
		return ErrInvalidEvent
	}

	select {
	case <-e.stopped:
		return ErrEngineStopped
	default:
	}

	t := Trigger{UserID: userID, Event: event, Data: data, EnqueuedAt: e.clock()}

	select {
	case e.jobs <- t:
		return nil
	default:
		e.log.Warn("trigger queue full, dropping trigger",
			logger.UserID(userID),
			logger.TriggerEvent(string(event)),
		)
		return nil
	}
}

// CheckAchievementsSync processes a trigger on the caller's goroutine.
// Used by the backfill CLI and the reconcile job; collection flows
// should use CheckAchievements instead.
func (e *Engine) CheckAchievementsSync(ctx context.Context, userID int64, event achievement.TriggerEvent) (*Report, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}
	if !event.IsValid() {
		return nil, ErrInvalidEvent
	}
	return e.process(ctx, Trigger{UserID: userID, Event: event, EnqueuedAt: e.clock()})
}

// QueueDepth returns the number of pending triggers.
func (e *Engine) QueueDepth() int {
	return len(e.jobs)
}

// Stats returns the user's summary, reading through the cache when
// one is configured. A cache miss falls back to the repository and
// repopulates the cache.
func (e *Engine) Stats(ctx context.Context, userID int64) (*stats.Summary, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	if e.deps.StatsCache != nil {
		if summary, err := e.deps.StatsCache.GetSummary(ctx, userID); err == nil && summary != nil {
			return summary, nil
		}
	}

	summary, err := e.deps.StatsRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if e.deps.StatsCache != nil {
		if err := e.deps.StatsCache.SetSummary(ctx, summary); err != nil {
			e.log.Warn("stats cache update failed", logger.UserID(userID), logger.Err(err))
		}
	}
	return summary, nil
}

func (e *Engine) worker(ctx context.Context, id int) {
	defer e.wg.Done()

	log := e.log.With(logger.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopped:
			// Drain triggers enqueued before Stop, then exit.
			for {
				select {
				case t := <-e.jobs:
					e.runTrigger(ctx, log, t)
				default:
					return
				}
			}
		case t := <-e.jobs:
			e.runTrigger(ctx, log, t)
		}
	}
}

func (e *Engine) runTrigger(ctx context.Context, log *logger.Logger, t Trigger) {
	evalCtx, cancel := context.WithTimeout(ctx, e.cfg.EvalTimeout)
	report, err := e.process(evalCtx, t)
	cancel()

	if err != nil {
		log.Error("trigger processing failed",
			logger.UserID(t.UserID),
			logger.TriggerEvent(string(t.Event)),
			logger.Err(err),
		)
		return
	}
	if report.Unlocked > 0 {
		log.Info("trigger processed",
			logger.UserID(t.UserID),
			logger.TriggerEvent(string(t.Event)),
			logger.Int("evaluated", report.Evaluated),
			logger.Int("unlocked", report.Unlocked),
		)
	}
}
