package integrity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs integrity sweeps on a cron schedule.
type Scheduler struct {
	sweeper  *Sweeper
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	logger   *slog.Logger
	running  bool
}

// NewScheduler creates a sweep scheduler. The schedule uses standard cron
// syntax; an empty schedule disables the scheduler.
func NewScheduler(sweeper *Sweeper, schedule string) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "custody.integrity.scheduler"),
	}
}

// Start begins scheduled sweeps.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "0 */6 * * *"  - Every 6 hours
//   - "*/30 * * * *" - Every 30 minutes
//
// If the schedule is empty, Start does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	// Validate cron expression
	_, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err = s.cron.AddFunc(s.schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule integrity sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("integrity sweep scheduler started", "schedule", s.schedule)

	// Wait for context cancellation in background
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runSweep executes one sweep cycle.
func (s *Scheduler) runSweep(ctx context.Context) {
	s.logger.Info("starting scheduled integrity sweep")

	report, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("scheduled integrity sweep failed",
			"error", err,
		)
		return
	}

	if !report.OK() {
		s.logger.Error("scheduled integrity sweep found failures",
			"failures", len(report.Failures),
		)
	}
}

// Stop stops the scheduler and waits for any running sweep to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done() // Wait for running jobs to finish
		s.running = false
		s.logger.Info("integrity sweep scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep time.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
