package marketplace

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
)

// retryRateLimited runs op under p. op marks non-retryable failures with
// backoff.Permanent; the last retryable error is returned on exhaustion.
func retryRateLimited(ctx context.Context, clock clockwork.Clock, p RetryPolicy, op backoff.Operation, notify backoff.Notify) error {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.BaseDelay
	exp.Multiplier = 2
	exp.RandomizationFactor = 0
	exp.MaxInterval = 24 * time.Hour
	exp.MaxElapsedTime = 0

	retries := uint64(max(p.MaxAttempts, 1) - 1)
	b := backoff.WithContext(backoff.WithMaxRetries(exp, retries), ctx)
	return backoff.RetryNotifyWithTimer(op, b, notify, &clockTimer{clock: clock})
}

// clockTimer drives backoff waits from a clockwork clock.
type clockTimer struct {
	clock clockwork.Clock
	timer clockwork.Timer
}

func (t *clockTimer) Start(d time.Duration) {
	if t.timer == nil {
		t.timer = t.clock.NewTimer(d)
		return
	}
	t.timer.Reset(d)
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.timer.Chan()
}
