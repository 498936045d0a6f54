package utils

import (
	"context"
	"time"
)

var sleep = time.Sleep

// WaitFor blocks for d or until ctx is done, whichever comes first.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sleep(d)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Backoff returns the exponential delay for the given zero-based attempt,
// doubling from initial and never exceeding max.
func Backoff(attempt int, initial, max time.Duration) time.Duration {
	if initial <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	wait := initial
	for i := 0; i < attempt; i++ {
		wait *= 2
		if max > 0 && wait >= max {
			return max
		}
	}

	if max > 0 && wait > max {
		return max
	}
	return wait
}
