package probe

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Scheduler runs a Job on a cron expression or @every descriptor.
type Scheduler struct {
	mu       sync.Mutex
	schedule string
	job      Job
	cron     *cron.Cron
	logger   *slog.Logger
	cancel   context.CancelFunc
}

// NewScheduler creates a scheduler for job. It does nothing until Start.
func NewScheduler(schedule string, job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		schedule: schedule,
		job:      job,
		logger:   logger.With("component", "scheduler"),
	}
}

// ParseSchedule reports whether expr is an accepted schedule.
func ParseSchedule(expr string) error {
	if _, err := parser().Parse(expr); err != nil {
		return fmt.Errorf("probe: invalid schedule %q: %w", expr, err)
	}
	return nil
}

func parser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// Start registers the job and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())

	c := cron.New(cron.WithParser(parser()))
	job := s.job
	_, err := c.AddFunc(s.schedule, func() {
		if err := job.Run(ctx); err != nil {
			s.logger.Error("job failed", "job", job.Name(), "error", err)
		}
	})
	if err != nil {
		cancel()
		return fmt.Errorf("probe: invalid schedule for job %q: %w", job.Name(), err)
	}

	s.cancel = cancel
	s.cron = c
	s.cron.Start()
	s.logger.Info("scheduler started", "job", job.Name(), "schedule", s.schedule)
	return nil
}

// Stop cancels in-flight work and waits for it to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.cron == nil {
		return nil
	}
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
