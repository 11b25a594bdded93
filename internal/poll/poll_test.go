package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"
)

func TestUntil_FirstAttempt(t *testing.T) {
	clk := testclock.NewClock(time.Time{})

	calls := 0
	err := Until(context.Background(), Config{
		Interval: time.Second,
		Attempts: 3,
		Clock:    clk,
	}, "node ready", func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestUntil_EventualSuccess(t *testing.T) {
	clk := testclock.NewClock(time.Time{})
	errNotReady := errors.New("not ready")

	calls := 0
	done := make(chan error, 1)

	go func() {
		done <- Until(context.Background(), Config{
			Interval: time.Second,
			Attempts: 5,
			Clock:    clk,
		}, "node ready", func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errNotReady
			}
			return nil
		})
	}()

	// Two failed attempts mean two interval waits.
	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))

	require.NoError(t, <-done)
	require.Equal(t, 3, calls)
}

func TestUntil_AttemptsExceeded(t *testing.T) {
	clk := testclock.NewClock(time.Time{})
	errNotReady := errors.New("not ready")

	done := make(chan error, 1)

	go func() {
		done <- Until(context.Background(), Config{
			Interval: time.Second,
			Attempts: 3,
			Clock:    clk,
		}, "cluster healthy", func(ctx context.Context) error {
			return errNotReady
		})
	}()

	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))

	err := <-done
	require.Error(t, err)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, "cluster healthy", timeoutErr.Op)
	require.ErrorIs(t, err, errNotReady)
}

func TestUntil_ContextCancelled(t *testing.T) {
	clk := testclock.NewClock(time.Time{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Until(ctx, Config{
			Interval: time.Minute,
			Attempts: 10,
			Clock:    clk,
		}, "node ready", func(ctx context.Context) error {
			return errors.New("not ready")
		})
	}()

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
