package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"
)

// TimeoutError is returned when an operation does not succeed within the
// configured number of attempts.
type TimeoutError struct {
	Op      string
	LastErr error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: timed out: %v", e.Op, e.LastErr)
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Config bounds a polling loop: the operation is attempted at most Attempts
// times, Interval apart. The clock is injectable so the loop can be driven
// by a fake clock in tests.
type Config struct {
	Interval time.Duration
	Attempts int
	Clock    clock.Clock
}

func (c Config) withDefaults() Config {
	if c.Interval == 0 {
		c.Interval = time.Second
	}

	if c.Attempts == 0 {
		c.Attempts = 1
	}

	if c.Clock == nil {
		c.Clock = clock.WallClock
	}

	return c
}

// Until retries fn at a fixed interval until it succeeds, the attempt budget
// is exhausted, or ctx is cancelled. Exhaustion is reported as a TimeoutError
// naming the operation and wrapping the last attempt's error.
func Until(ctx context.Context, cfg Config, op string, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			return fn(ctx)
		},
		Attempts: cfg.Attempts,
		Delay:    cfg.Interval,
		Clock:    cfg.Clock,
		Stop:     ctx.Done(),
	})
	if err == nil {
		return nil
	}

	if retry.IsRetryStopped(err) {
		return ctx.Err()
	}

	if retry.IsAttemptsExceeded(err) || retry.IsDurationExceeded(err) {
		return &TimeoutError{Op: op, LastErr: retry.LastError(err)}
	}

	return err
}
