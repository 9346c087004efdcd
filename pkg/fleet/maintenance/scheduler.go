package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runner materializes due work orders.
type Runner interface {
	Run(ctx context.Context, now time.Time) ([]Generated, error)
}

// Scheduler runs a Runner on a cron schedule.
type Scheduler struct {
	runner  Runner
	spec    string
	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
	now     func() time.Time
}

// NewScheduler creates a scheduler for runner using a standard five-field
// cron expression. Overlapping runs are skipped.
func NewScheduler(runner Runner, spec string) *Scheduler {
	return &Scheduler{
		runner: runner,
		spec:   spec,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: slog.Default().With("component", "maintenance.scheduler"),
		now:    time.Now,
	}
}

// Start schedules the runner. An empty spec leaves the scheduler idle.
//
// Common expressions:
//   - "0 * * * *"    - hourly
//   - "30 5 * * *"   - daily at 05:30
//   - "0 6 * * 1-5"  - weekdays at 06:00
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.spec == "" {
		s.logger.Info("maintenance schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := cron.ParseStandard(s.spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.spec, err)
	}
	if _, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule maintenance runs: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("maintenance scheduler started", "schedule", s.spec)
	return nil
}

// Run starts the scheduler and blocks until ctx is cancelled, then stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	generated, err := s.runner.Run(ctx, s.now())
	if err != nil {
		s.logger.Error("scheduled maintenance run failed", "generated", len(generated), "error", err)
		return
	}
	if len(generated) > 0 {
		s.logger.Info("scheduled maintenance run completed", "generated", len(generated))
	} else {
		s.logger.Debug("scheduled maintenance run completed, nothing due")
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("maintenance scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
