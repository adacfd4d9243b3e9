package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollUntil_DoneOnThirdAttempt(t *testing.T) {
	var attempts []int
	err := PollUntil(context.Background(), clockwork.NewRealClock(), 5, time.Millisecond,
		func(ctx context.Context, attempt int) (bool, error) {
			attempts = append(attempts, attempt)
			return attempt == 3, nil
		})

	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestPollUntil_Exhausted(t *testing.T) {
	calls := 0
	err := PollUntil(context.Background(), clockwork.NewRealClock(), 4, 0,
		func(ctx context.Context, attempt int) (bool, error) {
			calls++
			return false, nil
		})

	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, 4, calls)
}

func TestPollUntil_CheckErrorStops(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := PollUntil(context.Background(), clockwork.NewRealClock(), 5, 0,
		func(ctx context.Context, attempt int) (bool, error) {
			calls++
			return false, boom
		})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_WaitsDelayOnClock(t *testing.T) {
	fc := clockwork.NewFakeClock()
	calls := make(chan int, 5)
	result := make(chan error, 1)

	go func() {
		result <- PollUntil(context.Background(), fc, 2, 5*time.Second,
			func(ctx context.Context, attempt int) (bool, error) {
				calls <- attempt
				return attempt == 2, nil
			})
	}()

	assert.Equal(t, 1, <-calls)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(5 * time.Second)

	assert.Equal(t, 2, <-calls)
	require.NoError(t, <-result)
}

func TestSleep_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Sleep(ctx, clockwork.NewFakeClock(), time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
