// Package resilience provides a jittered exponential-backoff retry helper
// shared by any component that calls out to a flaky external process or
// service.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes the backoff/retry loop.
type RetryConfig struct {
	// MaxRetries is the number of additional attempts after the initial
	// failure. MaxRetries=3 means the operation runs at most 4 times.
	MaxRetries int

	// BaseDelay is the initial wait before the first retry; it doubles on
	// each subsequent attempt.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts regardless of the
	// exponential calculation.
	MaxDelay time.Duration

	// OperationTimeout bounds the entire call, including all retries.
	OperationTimeout time.Duration
}

// DefaultRetryConfig is a conservative default suitable for local CLI
// invocations of the storage manager.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:       3,
	BaseDelay:        500 * time.Millisecond,
	MaxDelay:         10 * time.Second,
	OperationTimeout: 2 * time.Minute,
}

// Execute runs operation, retrying with exponential backoff and jitter
// while isRetryable(err) reports true, up to cfg.MaxRetries additional
// attempts, all bounded by cfg.OperationTimeout.
func Execute(ctx context.Context, cfg RetryConfig, opName string, isRetryable func(error) bool, operation func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.OperationTimeout)
	defer cancel()

	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s timed out before attempt %d: %w", opName, attempt+1, ctx.Err())
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}
		if attempt == cfg.MaxRetries {
			break
		}

		slog.Warn("transient error detected, scheduling retry",
			"operation", opName,
			"attempt", attempt+1,
			"max_retries", cfg.MaxRetries,
			"error", lastErr)

		backoff := float64(cfg.BaseDelay) * math.Pow(2, float64(attempt))
		jitter := time.Duration(rand.Int63n(int64(backoff)/2 + 1))
		sleep := min(time.Duration(backoff)+jitter, cfg.MaxDelay)

		select {
		case <-time.After(sleep):
			continue
		case <-ctx.Done():
			return fmt.Errorf("%s context cancelled during backoff: %w", opName, ctx.Err())
		}
	}

	return fmt.Errorf("%s failed after %d retries: %w", opName, cfg.MaxRetries, lastErr)
}
