package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("connection reset")

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errFlaky
		}
		return nil
	}, func(error) bool { return true })

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := errors.New("invalid account")
	err := Do(context.Background(), fastPolicy(5), func(context.Context) error {
		calls++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	err := Do(context.Background(), fastPolicy(2), func(context.Context) error { return errFlaky },
		func(error) bool { return true })

	assert.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "max retry attempts (2)")
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 1}

	err := Do(ctx, p, func(context.Context) error { cancel(); return errFlaky }, func(error) bool { return true })

	assert.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestDelayIsCapped(t *testing.T) {
	p := Policy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0, nil))
	assert.Equal(t, time.Second, p.Delay(1, nil))
	assert.Equal(t, 2*time.Second, p.Delay(2, nil))
	assert.Equal(t, 3*time.Second, p.Delay(5, nil))
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, PolicyPaymentAdapter.Validate())
	assert.ErrorIs(t, Policy{MaxAttempts: 0, Multiplier: 1}.Validate(), ErrInvalidMaxAttempts)
	assert.ErrorIs(t, Policy{MaxAttempts: 1, Multiplier: 0.5}.Validate(), ErrInvalidMultiplier)
}
