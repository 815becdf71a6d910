package ddns

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ScheduleState is the bookkeeping of one Scheduler. It lives only as long as the process.
type ScheduleState struct {
	Runs        uint64
	LastStart   time.Time
	LastElapsed time.Duration
}

// Scheduler runs a job repeatedly at a fixed cadence.
//
// The wait after each run is shortened by the time the run took.
// A run that overruns the interval is followed immediately by the next one;
// runs never overlap and are never skipped.
type Scheduler struct {
	interval time.Duration
	logger   *slog.Logger
	state    ScheduleState

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// NewScheduler creates a Scheduler with the given interval between run starts.
// A nil logger discards messages.
func NewScheduler(interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive; got %s", ErrConfig, interval)
	}
	if logger == nil {
		logger = discard
	}
	return &Scheduler{
		interval: interval,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepContext,
	}, nil
}

// State returns a copy of the scheduler's bookkeeping.
func (s *Scheduler) State() ScheduleState {
	return s.state
}

// Run calls job.RunDDNS until ctx is canceled, and then returns ctx.Err().
//
// Errors returned by the job, and panics inside it, are logged and never end the loop.
func (s *Scheduler) Run(ctx context.Context, job DDNSClient) error {
	s.logger.Info("schedule started", "interval", s.interval)
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("schedule stopped", "runs", s.state.Runs)
			return err
		}

		wait := s.cycle(ctx, job)
		if wait == 0 {
			continue
		}
		if err := s.sleep(ctx, wait); err != nil {
			s.logger.Info("schedule stopped", "runs", s.state.Runs)
			return err
		}
	}
}

// cycle runs the job once and returns how long to wait before the next cycle.
func (s *Scheduler) cycle(ctx context.Context, job DDNSClient) time.Duration {
	start := s.now()
	s.state.Runs++
	s.state.LastStart = start
	s.logger.Info("run started", "run", s.state.Runs)

	err := runSafely(ctx, job)
	elapsed := s.now().Sub(start)
	s.state.LastElapsed = elapsed

	if err != nil {
		s.logger.Warn("run failed", "run", s.state.Runs, "elapsed", elapsed, "err", err)
	} else {
		s.logger.Info("run succeeded", "run", s.state.Runs, "elapsed", elapsed)
	}

	wait := NextWait(s.interval, elapsed)
	if wait == 0 {
		scheduleOverrunsTotal.Inc()
		s.logger.Warn("run overran the interval, starting next run now", "elapsed", elapsed, "interval", s.interval)
		return 0
	}
	s.logger.Info("waiting for next run", "wait", wait, "next", start.Add(s.interval).Format(time.DateTime))
	return wait
}

// NextWait returns the time left in interval after a run that took elapsed, or zero if it overran.
func NextWait(interval, elapsed time.Duration) time.Duration {
	if elapsed >= interval {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return interval - elapsed
}

func runSafely(ctx context.Context, job DDNSClient) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return job.RunDDNS(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunOnce runs job a single time, for single-shot mode. Panics are returned as errors.
func RunOnce(ctx context.Context, job DDNSClient) error {
	err := runSafely(ctx, job)
	if err != nil && errors.Is(err, context.Canceled) {
		return fmt.Errorf("run interrupted: %w", err)
	}
	return err
}
