package errors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestRetry_SucceedsAfterTransientError(t *testing.T) {
	// Given: a function that times out twice then succeeds
	attempts := 0
	fn := func() error {
		attempts++
		if attempts < 3 {
			return TimeoutError("deadline exceeded", nil)
		}
		return nil
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: succeeds on the third attempt
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_FailsAfterMaxRetries(t *testing.T) {
	// Given: a function that always returns a 5xx
	attempts := 0
	fn := func() error {
		attempts++
		return New(ErrCodeServerError, "502 bad gateway", nil)
	}

	// When: retrying with two retries
	cfg := fastRetryConfig()
	cfg.MaxRetries = 2
	err := Retry(context.Background(), cfg, fn)

	// Then: fails with the last error wrapped
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, ErrCodeServerError, GetCode(err))
	assert.Equal(t, 3, attempts)
}

func TestRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	// Given: a function failing with 401
	attempts := 0
	fn := func() error {
		attempts++
		return New(ErrCodeUnauthorized, "401 unauthorized", nil)
	}

	// When: retrying
	err := Retry(context.Background(), fastRetryConfig(), fn)

	// Then: the error surfaces after one attempt, unwrapped
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeUnauthorized, GetCode(err))
	assert.NotContains(t, err.Error(), "retries")
}

func TestRetry_DoesNotRetryDecodeErrors(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func() error {
		attempts++
		return DecodeError("invalid character '<'", nil)
	})

	assert.Equal(t, 1, attempts)
	assert.Equal(t, ErrCodeDecodeFailed, GetCode(err))
}

func TestRetry_CustomRetryIf(t *testing.T) {
	// Given: a predicate that accepts any error
	cfg := fastRetryConfig()
	cfg.RetryIf = func(error) bool { return true }
	attempts := 0

	// When: the function fails with a plain error
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return errors.New("plain")
	})

	// Then: all attempts are used
	assert.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestRetry_OnRetryObservesEachRetry(t *testing.T) {
	// Given: a hook recording attempt numbers
	var seen []int
	cfg := fastRetryConfig()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		seen = append(seen, attempt)
		assert.True(t, IsRetryable(err))
		assert.Positive(t, delay)
	}
	attempts := 0

	// When: the function fails twice
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts <= 2 {
			return NetworkError("connection refused", nil)
		}
		return nil
	})

	// Then: the hook saw retries 1 and 2
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRetry_HonoursRetryAfter(t *testing.T) {
	// Given: a 429 asking for a 40ms pause with a 1ms backoff
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = time.Second
	var delays []time.Duration
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }
	attempts := 0

	// When: retrying
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts == 1 {
			return RateLimitedError("slow down", 40*time.Millisecond)
		}
		return nil
	})

	// Then: the server hint wins over the shorter backoff
	require.NoError(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, 40*time.Millisecond, delays[0])
}

func TestRetry_RetryAfterIsNotCappedByMaxDelay(t *testing.T) {
	// Given: a 429 asking for 60ms while backoff is capped at 5ms
	cfg := fastRetryConfig()
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	var delays []time.Duration
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }
	attempts := 0

	// When: retrying
	start := time.Now()
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts == 1 {
			return RateLimitedError("slow down", 60*time.Millisecond)
		}
		return nil
	})

	// Then: the full server-requested pause was waited
	require.NoError(t, err)
	require.Len(t, delays, 1)
	assert.Equal(t, 60*time.Millisecond, delays[0])
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	// Given: a context cancelled while backing off
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	cfg := DefaultRetryConfig()
	cfg.InitialDelay = 500 * time.Millisecond

	// When: retrying a transient failure
	start := time.Now()
	err := Retry(ctx, cfg, func() error {
		return NetworkError("connection refused", nil)
	})

	// Then: returns the context error quickly
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestRetry_CancelledErrorIsNotRetried(t *testing.T) {
	// Given: a function that observes cancellation
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	// When: the function cancels and fails
	err := Retry(ctx, fastRetryConfig(), func() error {
		attempts++
		cancel()
		return NetworkError("request aborted", context.Canceled)
	})

	// Then: no retry is attempted
	assert.Equal(t, 1, attempts)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetry_ExponentialBackoff(t *testing.T) {
	// Given: a hook recording computed delays
	cfg := RetryConfig{
		MaxRetries:   3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     25 * time.Millisecond,
		Multiplier:   2.0,
	}
	var delays []time.Duration
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }

	// When: every attempt fails
	_ = Retry(context.Background(), cfg, func() error {
		return New(ErrCodeServerError, "500", nil)
	})

	// Then: delays double and are capped
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond}, delays)
}

func TestRetry_WithJitterStaysInRange(t *testing.T) {
	cfg := fastRetryConfig()
	cfg.InitialDelay = 20 * time.Millisecond
	cfg.MaxRetries = 1
	cfg.Jitter = true
	var delay time.Duration
	cfg.OnRetry = func(_ int, _ error, d time.Duration) { delay = d }

	_ = Retry(context.Background(), cfg, func() error {
		return TimeoutError("t", nil)
	})

	assert.GreaterOrEqual(t, delay, 10*time.Millisecond)
	assert.LessOrEqual(t, delay, 20*time.Millisecond)
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	attempts := 0
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, TimeoutError("t", nil)
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRetryWithResult_ReturnsZeroOnFailure(t *testing.T) {
	result, err := RetryWithResult(context.Background(), fastRetryConfig(), func() (string, error) {
		return "partial", New(ErrCodeNotFound, "404", nil)
	})

	assert.Error(t, err)
	assert.Equal(t, "", result)
}

func TestRetry_Concurrent(t *testing.T) {
	// Given: concurrent retry operations
	var successCount atomic.Int32
	done := make(chan struct{})

	// When: running multiple retries concurrently
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			attempts := 0
			err := Retry(context.Background(), fastRetryConfig(), func() error {
				attempts++
				if attempts < 2 {
					return NetworkError("refused", nil)
				}
				return nil
			})
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	// Then: all should succeed
	assert.Equal(t, int32(10), successCount.Load())
}

func TestDefaultRetryConfig_HasSensibleDefaults(t *testing.T) {
	cfg := DefaultRetryConfig()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 8*time.Second, cfg.MaxDelay)
	assert.Equal(t, 2.0, cfg.Multiplier)
	assert.True(t, cfg.Jitter)
}
