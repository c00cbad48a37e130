package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// IsRetryableFunc determines if an error should trigger a retry
type IsRetryableFunc func(error) bool

// Delay computes the wait before the given attempt (1-based count of failures so far)
func (p Policy) Delay(attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 0 {
		return 0
	}
	backoff := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if p.MaxDelay > 0 && backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	if p.Jitter > 0 && rng != nil {
		jitter := backoff * p.Jitter
		backoff = backoff - jitter + rng.Float64()*2*jitter
	}
	return time.Duration(backoff)
}

// Do calls fn until it succeeds, returns a non-retryable error, runs out of attempts,
// or ctx is done. The last error is always wrapped so callers can errors.Is/As it.
func Do(ctx context.Context, policy Policy, fn func(context.Context) error, isRetryable IsRetryableFunc) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if isRetryable == nil || !isRetryable(err) {
			return err
		}
		if attempt == policy.MaxAttempts {
			break
		}

		timer := time.NewTimer(policy.Delay(attempt, rng))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled by context: %w", lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("max retry attempts (%d) exceeded: %w", policy.MaxAttempts, lastErr)
}
