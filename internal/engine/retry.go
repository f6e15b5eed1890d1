package engine

import (
	"context"
	"time"
)

// retryPolicy bounds attempts for one logical call. The delay before attempt
// n+1 is Backoff doubled n-1 times.
type retryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

func (p retryPolicy) backoffFor(attempt int) time.Duration {
	delay := p.Backoff
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// withRetry runs fn under the policy, sleeping between transient failures.
// Non-transient errors and context cancellation return immediately. Listing
// calls during enumeration and planning share this policy with the executor's
// re-queue retries.
func withRetry(ctx context.Context, policy retryPolicy, fn func() error) error {
	var err error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err = fn()
		if err == nil {
			return nil
		}
		if classify(err) != ClassTransient {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.backoffFor(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
		timer.Stop()
	}
	return err
}
