package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRejectsBadCron(t *testing.T) {
	_, err := New("not a cron spec", nil, 0, func(ctx context.Context) error { return nil }, discard())
	if err == nil {
		t.Fatalf("invalid cron expression accepted")
	}
}

func TestRunFiresJob(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	// cron's @every schedules no finer than one second, so the window must
	// cover at least two whole ticks.
	s, err := New("@every 1s", nil, 0, job, discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2600*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); err != context.DeadlineExceeded {
		t.Fatalf("run returned %v, want DeadlineExceeded", err)
	}
	if runs.Load() == 0 {
		t.Fatalf("job never fired")
	}
}

func TestBootDelayRespectsCancellation(t *testing.T) {
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}
	// Delay longer than the run window: the tick at 1s lands inside the
	// window but the job must never start.
	s, err := New("@every 1s", nil, 10*time.Second, job, discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)
	if runs.Load() != 0 {
		t.Fatalf("job fired despite boot delay exceeding the run window")
	}
}
