package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"HeroScanner/internal/ports"
)

// CronScheduler runs a job on a standard five-field cron expression.
type CronScheduler struct {
	spec       string
	location   *time.Location
	runOnStart bool
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, loc *time.Location, runOnStart bool, logger *slog.Logger) *CronScheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CronScheduler{
		spec:       spec,
		location:   loc,
		runOnStart: runOnStart,
		logger:     logger.With("component", "cron"),
	}
}

// Start registers job and begins ticking. Starting twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cron != nil {
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	logger := cronLogger{c.logger}
	runner := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(c.location),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := runner.AddFunc(c.spec, func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	}); err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}

	runner.Start()
	c.cron = runner
	c.logger.Info("scheduler started", "spec", c.spec, "location", c.location.String())

	if c.runOnStart {
		go job(time.Now().In(c.location))
	}

	return nil
}

// Stop halts scheduling and waits for a running job to finish or ctx to expire.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	runner := c.cron
	c.cron = nil
	c.mu.Unlock()

	if runner == nil {
		return nil
	}

	select {
	case <-runner.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
