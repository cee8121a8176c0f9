// Package retryutil retries transient failures with a fixed delay between
// attempts. Callers decide what counts as transient.
package retryutil

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultAttempts = 3
	defaultDelay    = 2 * time.Second
)

// Do runs fn up to attempts times, sleeping delay between tries. Retries stop
// as soon as retryable reports the error as permanent or ctx is done; the last
// error is returned.
func Do(ctx context.Context, logger *slog.Logger, name string, attempts int, delay time.Duration, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	if delay <= 0 {
		delay = defaultDelay
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		if logger != nil {
			logger.Warn(name+"_retrying", "attempt", attempt, "delay", delay.String(), "error", lastErr.Error())
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
