// Package scheduler runs the daily report job on a cron schedule for daemon
// mode.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the work the scheduler triggers. The context is cancelled when the
// scheduler shuts down; a job error is logged, never fatal, so one failed
// morning does not kill the daemon.
type Job func(ctx context.Context) error

// Scheduler fires a Job on a cron expression in a fixed location.
type Scheduler struct {
	cron      *cron.Cron
	job       Job
	bootDelay time.Duration
	logger    *slog.Logger

	// ctx is set by Run before the cron loop starts; fire only runs after
	// that.
	ctx context.Context
}

// New creates a Scheduler. spec is a standard five-field cron expression
// evaluated in loc (UTC when nil). bootDelay postpones each firing briefly
// so that network and DNS are up on slow boots before the first fetch.
func New(spec string, loc *time.Location, bootDelay time.Duration, job Job, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	s := &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		job:       job,
		bootDelay: bootDelay,
		logger:    logger.With(slog.String("component", "scheduler")),
	}
	if _, err := s.cron.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("scheduler: parse cron %q: %w", spec, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled, then waits for
// a running job to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	s.logger.Info("scheduler started")

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) fire() {
	ctx := s.ctx
	if s.bootDelay > 0 {
		select {
		case <-time.After(s.bootDelay):
		case <-ctx.Done():
			return
		}
	}

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.Error("scheduled run failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return
	}
	s.logger.Info("scheduled run complete",
		slog.Duration("elapsed", time.Since(start)),
	)
}
