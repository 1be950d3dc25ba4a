package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/codexai/internal/core/domain"
	"github.com/custodia-labs/codexai/internal/logger"
)

// withRetry runs fn under policy. Each attempt gets its own timeout when
// timeout is positive. Only transient provider failures and attempt
// timeouts are retried; anything else is returned at once.
func withRetry[T any](
	ctx context.Context,
	policy domain.RetryPolicy,
	timeout time.Duration,
	step string,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.Attempts()
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoff(policy, attempt-1, lastErr)
			logger.Warn("%s: attempt %d/%d failed: %v (retrying in %s)", step, attempt, attempts, lastErr, delay)
			if err := sleep(ctx, delay); err != nil {
				return zero, fmt.Errorf("%s: %w", step, err)
			}
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		v, err := fn(callCtx)
		cancel()
		if err == nil {
			return v, nil
		}
		if !retryable(ctx, err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("%s: gave up after %d attempts: %w", step, attempts, lastErr)
}

// retryable reports whether err is worth another attempt. Cancellation of
// the caller's context always stops retrying.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, domain.ErrTransientProvider) || errors.Is(err, context.DeadlineExceeded)
}

// backoff is the policy delay, stretched to a provider's Retry-After hint
// but never beyond the policy cap.
func backoff(policy domain.RetryPolicy, n int, err error) time.Duration {
	delay := policy.Delay(n)
	var pe *domain.ProviderError
	if errors.As(err, &pe) && pe.RetryAfter > delay {
		delay = pe.RetryAfter
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
