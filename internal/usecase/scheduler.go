package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"HeroScanner/internal/ports"
)

// SchedulerDeps wires the cron-like driver with the ingestion and classification use cases.
type SchedulerDeps struct {
	Driver   ports.Scheduler
	Pipeline *Pipeline
	// Classifier runs after every ingest that inserted records when set.
	Classifier *ClassificationService
	Guard      *RunGuard
	Lookback   time.Duration
	Logger     *slog.Logger
}

// Scheduler runs ingestion over the window since the previous tick.
type Scheduler struct {
	driver     ports.Scheduler
	pipeline   *Pipeline
	classifier *ClassificationService
	guard      *RunGuard
	lookback   time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	lastTick time.Time
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(deps SchedulerDeps) *Scheduler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lookback := deps.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	guard := deps.Guard
	if guard == nil {
		guard = &RunGuard{}
	}
	return &Scheduler{
		driver:     deps.Driver,
		pipeline:   deps.Pipeline,
		classifier: deps.Classifier,
		guard:      guard,
		lookback:   lookback,
		logger:     logger.With("component", "scheduler"),
	}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.pipeline == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.Tick(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Tick ingests the window ending at trigger and optionally classifies the new records.
func (s *Scheduler) Tick(ctx context.Context, trigger time.Time) {
	from := s.windowStart(trigger)

	result, err := s.pipeline.ProcessWindow(ctx, from, trigger)
	if err != nil {
		s.logger.Error("scheduled ingest failed", "from", from, "err", err)
		return
	}
	s.markTick(trigger)

	if s.classifier == nil || result.Inserted == 0 {
		return
	}

	err = s.guard.Do(func() error {
		_, runErr := s.classifier.RunClassification(ctx)
		return runErr
	})
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Info("classification skipped, another run is active")
	case err != nil:
		s.logger.Error("scheduled classification failed", "err", err)
	}
}

// windowStart resumes from the last successful tick so a failed window is retried.
func (s *Scheduler) windowStart(trigger time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastTick.IsZero() || !s.lastTick.Before(trigger) {
		return trigger.Add(-s.lookback)
	}
	return s.lastTick
}

func (s *Scheduler) markTick(trigger time.Time) {
	s.mu.Lock()
	s.lastTick = trigger
	s.mu.Unlock()
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
