package github

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lent0n/jira-github-integration/internal/domain"
)

// RetryConfig bounds the retry loop around one outbound call
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each retry wait
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig is 3 attempts with 1s, 2s, 4s ... backoff capped at 10s
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}
}

// Backoff returns the delay before the given attempt (1-based). Attempt 1 has no delay.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := c.InitialDelay
	for i := 2; i < attempt; i++ {
		d *= 2
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// IsRetryable treats 5xx responses and transport failures as transient.
// 4xx responses and anything else (decode errors, validation) are terminal.
func IsRetryable(err error) bool {
	var apiErr *domain.HostAPIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	var transportErr *domain.TransportError
	return errors.As(err, &transportErr)
}

// Retry runs op until it succeeds, returns a non-retryable error or runs out of attempts.
// When attempts run out the last HostAPIError is preferred over the last TransportError.
func Retry[T any](ctx context.Context, cfg RetryConfig, retryable func(error) bool, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr, lastAPIErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := cfg.Backoff(attempt)
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, delay, lastErr)
			}
			if err := sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("retry aborted after %d attempts: %w", attempt-1, err)
			}
		}

		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}

		lastErr = err
		var apiErr *domain.HostAPIError
		if errors.As(err, &apiErr) {
			lastAPIErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	if lastAPIErr != nil {
		return zero, lastAPIErr
	}
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
