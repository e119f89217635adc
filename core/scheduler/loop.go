// Package scheduler runs a job repeatedly with a fixed delay between runs.
//
// The delay starts when a run finishes, so a slow run pushes the next one back.
// Cancellation is observed only between runs: a run in progress always
// completes with a context that is not cancelled by the caller.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"mixer-report/core/errors"

	"go.uber.org/zap"
)

// DefaultDelay is the pause between pipeline cycles.
const DefaultDelay = 60 * time.Second

// Clock abstracts waiting so loops can be driven by tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock waits on the wall clock.
var RealClock Clock = realClock{}

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Loop runs a Job until its context is cancelled.
type Loop struct {
	delay  time.Duration
	clock  Clock
	logger *zap.Logger
	runs   atomic.Uint64
}

// New creates a loop waiting delay between runs. A nil clock uses RealClock.
func New(delay time.Duration, clock Clock, logger *zap.Logger) *Loop {
	if delay <= 0 {
		delay = DefaultDelay
	}
	if clock == nil {
		clock = RealClock
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{delay: delay, clock: clock, logger: logger}
}

// Delay returns the pause between runs.
func (l *Loop) Delay() time.Duration {
	return l.delay
}

// Runs returns how many runs have started.
func (l *Loop) Runs() uint64 {
	return l.runs.Load()
}

// Run executes job immediately and then again after every delay.
// Job errors and panics are logged and never stop the loop.
// Run returns the context error once ctx is cancelled.
func (l *Loop) Run(ctx context.Context, job Job) error {
	l.logger.Info("Scheduler started", zap.Duration("delay", l.delay))
	for {
		n := l.runs.Add(1)
		if err := l.runOnce(ctx, job); err != nil {
			l.logger.Error("Scheduled run failed",
				zap.Uint64("run", n),
				zap.String("kind", errors.Classify(err)),
				zap.Error(err))
		}

		if err := ctx.Err(); err != nil {
			l.logger.Info("Scheduler stopped", zap.Uint64("runs", n))
			return err
		}

		select {
		case <-ctx.Done():
			l.logger.Info("Scheduler stopped", zap.Uint64("runs", n))
			return ctx.Err()
		case <-l.clock.After(l.delay):
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf("run panicked: %v", r)
		}
	}()
	return job(context.WithoutCancel(ctx))
}
