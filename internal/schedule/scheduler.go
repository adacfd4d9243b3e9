// Package schedule runs cancellable periodic jobs and provides the
// poll-until and scan helpers the monitoring engine is built from.
package schedule

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Job is the body of one tick. It receives a context that is cancelled
// when the owning handle is cancelled.
type Job func(ctx context.Context)

type Scheduler struct {
	clock  clockwork.Clock
	logger zerolog.Logger
}

func New(clock clockwork.Clock, logger zerolog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:  clock,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Every runs job once per period, starting one period from now, until the
// returned handle is cancelled. Ticks of one job never overlap: a tick that
// outlasts the period delays the next one instead of running concurrently.
// A panicking tick is logged and the schedule stays registered.
func (s *Scheduler) Every(name string, period time.Duration, job Job) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{name: name, cancel: cancel, done: make(chan struct{})}

	// Created before returning so a fake clock already sees the ticker.
	ticker := s.clock.NewTicker(period)
	logger := s.logger.With().Str("task", name).Logger()

	go func() {
		defer close(h.done)
		defer ticker.Stop()

		logger.Debug().Dur("period", period).Msg("task scheduled")
		for {
			select {
			case <-ctx.Done():
				logger.Debug().Msg("task cancelled")
				return
			case <-ticker.Chan():
				if ctx.Err() != nil {
					return
				}
				runTick(ctx, logger, job)
			}
		}
	}()
	return h
}

func runTick(ctx context.Context, logger zerolog.Logger, job Job) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Str("panic", fmt.Sprint(r)).
				Str("stack", string(debug.Stack())).
				Msg("task tick panicked")
		}
	}()
	job(ctx)
}

// Handle is the cancellation token of a scheduled job.
type Handle struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (h *Handle) Name() string { return h.name }

// Cancel stops future ticks. A tick in progress sees its context cancelled
// and finishes on its own. Safe to call more than once and from inside the job.
func (h *Handle) Cancel() {
	h.once.Do(h.cancel)
}

// Wait blocks until the job goroutine has exited or ctx ends.
// Must not be called from inside the job itself.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
