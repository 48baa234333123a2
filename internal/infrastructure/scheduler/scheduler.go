// Package scheduler implements background job scheduling for the
// achievement engine: the nightly reconcile pass and any other
// periodic maintenance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// JOB INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Job defines the interface that all scheduled jobs must implement.
type Job interface {
	// Name returns the unique name of the job.
	Name() string

	// Run executes the job.
	// The context is cancelled when the scheduler is stopping.
	Run(ctx context.Context) error

	// Description returns a human-readable description of the job.
	Description() string
}

// Schedule defines when a job should run.
type Schedule interface {
	// Next returns the next time the job should run after the given time.
	Next(t time.Time) time.Time

	// String returns a human-readable representation of the schedule.
	String() string
}

// JobResult contains the result of a job execution.
type JobResult struct {
	JobName     string
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Success     bool
	Error       error
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULER
// ══════════════════════════════════════════════════════════════════════════════

// Scheduler manages and executes scheduled jobs.
type Scheduler struct {
	mu sync.RWMutex

	logger   *slog.Logger
	timezone *time.Location

	jobs     map[string]*scheduledJob
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	lastRuns map[string]*JobResult
}

// scheduledJob wraps a Job with scheduling information.
type scheduledJob struct {
	job       Job
	schedule  Schedule
	nextRun   time.Time
	runCount  int64
	failCount int64
}

// Config contains configuration for the Scheduler.
type Config struct {
	// Logger for structured logging.
	Logger *slog.Logger

	// Timezone for schedule calculations (default: UTC).
	Timezone *time.Location
}

// NewScheduler creates a new Scheduler with the given configuration.
func NewScheduler(config Config) *Scheduler {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timezone == nil {
		config.Timezone = time.UTC
	}

	return &Scheduler{
		logger:   config.Logger,
		timezone: config.Timezone,
		jobs:     make(map[string]*scheduledJob),
		lastRuns: make(map[string]*JobResult),
	}
}

// Register adds a job with its schedule.
func (s *Scheduler) Register(job Job, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.Name()]; exists {
		return fmt.Errorf("scheduler: job %q already registered", job.Name())
	}

	s.jobs[job.Name()] = &scheduledJob{
		job:      job,
		schedule: schedule,
		nextRun:  schedule.Next(time.Now().In(s.timezone)),
	}

	s.logger.Info("job registered",
		"job", job.Name(),
		"schedule", schedule.String(),
	)
	return nil
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler: already running")
	}
	s.running = true

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for name := range s.jobs {
		s.wg.Add(1)
		go s.runLoop(runCtx, name)
	}
	s.mu.Unlock()

	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels all job loops and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// LastRun returns the last result of a job, if it has run.
func (s *Scheduler) LastRun(jobName string) (*JobResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.lastRuns[jobName]
	return result, ok
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, jobName string) error {
	s.mu.RLock()
	sj, ok := s.jobs[jobName]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", jobName)
	}

	s.execute(ctx, sj)
	return nil
}

func (s *Scheduler) runLoop(ctx context.Context, name string) {
	defer s.wg.Done()

	s.mu.RLock()
	sj := s.jobs[name]
	s.mu.RUnlock()

	for {
		now := time.Now().In(s.timezone)
		wait := sj.nextRun.Sub(now)
		if wait < 0 {
			wait = 0
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.execute(ctx, sj)

		s.mu.Lock()
		sj.nextRun = sj.schedule.Next(time.Now().In(s.timezone))
		s.mu.Unlock()
	}
}

func (s *Scheduler) execute(ctx context.Context, sj *scheduledJob) {
	started := time.Now()
	s.logger.Info("job starting", "job", sj.job.Name())

	err := s.runSafely(ctx, sj.job)

	result := &JobResult{
		JobName:     sj.job.Name(),
		StartedAt:   started,
		CompletedAt: time.Now(),
		Duration:    time.Since(started),
		Success:     err == nil,
		Error:       err,
	}

	s.mu.Lock()
	sj.runCount++
	if err != nil {
		sj.failCount++
	}
	s.lastRuns[sj.job.Name()] = result
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("job failed",
			"job", sj.job.Name(),
			"duration", result.Duration,
			"error", err,
		)
		return
	}

	s.logger.Info("job completed",
		"job", sj.job.Name(),
		"duration", result.Duration,
	)
}

func (s *Scheduler) runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scheduler: job %q panicked: %v", job.Name(), r)
		}
	}()

	return job.Run(ctx)
}
