package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
)

var ErrAttemptsExhausted = errors.New("poll attempts exhausted")

// Check reports whether the polled operation has reached a final state.
type Check func(ctx context.Context, attempt int) (done bool, err error)

// PollUntil calls check up to attempts times, waiting delay between calls,
// until it reports done. An error from check ends polling immediately.
func PollUntil(ctx context.Context, clock clockwork.Clock, attempts int, delay time.Duration, check Check) error {
	for attempt := 1; attempt <= attempts; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if attempt < attempts {
			if err := Sleep(ctx, clock, delay); err != nil {
				return err
			}
		}
	}
	return ErrAttemptsExhausted
}

// Sleep waits for d on clock, returning early with ctx.Err() on cancellation.
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}
