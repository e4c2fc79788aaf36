package errors

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
// The same policy is shared by page fetches and per-project searches.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts (not including initial attempt).
	MaxRetries int

	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the computed backoff. A longer Retry-After hint from the
	// server is still honoured.
	MaxDelay time.Duration

	// Multiplier is the factor by which delay increases after each retry.
	Multiplier float64

	// Jitter adds randomness to delay to prevent thundering herd.
	Jitter bool

	// RetryIf decides whether an error is worth another attempt.
	// Nil means IsRetryable.
	RetryIf func(error) bool

	// OnRetry is called before sleeping for the next attempt.
	// attempt is 1 for the first retry.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultRetryConfig returns the retry policy used against GitLab.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     8 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retry executes a function with exponential backoff retry logic.
// Only errors accepted by cfg.RetryIf are retried; anything else is returned
// as is. If the context is cancelled, it returns the context error immediately.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult executes a function that returns a value with retry logic.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = IsRetryable
	}

	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		// A cancelled parent is never a transient failure
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !retryIf(err) {
			return zero, err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		waitDelay := delay
		if cfg.Jitter {
			// delay * (0.5 + rand(0, 0.5))
			jitterFactor := 0.5 + rand.Float64()*0.5
			waitDelay = time.Duration(float64(delay) * jitterFactor)
		}
		// Retry-After is a floor; MaxDelay only caps the backoff. The
		// context bounds how long a server can make us wait.
		if ra := RetryAfter(err); ra > waitDelay {
			waitDelay = ra
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, waitDelay)
		}

		timer := time.NewTimer(waitDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, fmt.Errorf("failed after %d retries: %w", cfg.MaxRetries, lastErr)
}
