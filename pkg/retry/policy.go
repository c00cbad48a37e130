package retry

import (
	"errors"
	"time"
)

var (
	ErrInvalidMaxAttempts = errors.New("max attempts must be at least 1")
	ErrInvalidMultiplier  = errors.New("multiplier must be at least 1.0")
	ErrInvalidJitter      = errors.New("jitter must be between 0 and 1")
)

// Policy defines retry behavior
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	Jitter      float64
}

var (
	// PolicyPaymentAdapter is used around deposit submission and settlement
	PolicyPaymentAdapter = Policy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.2,
	}

	// PolicyQuick is for cheap idempotent calls such as graph projection
	PolicyQuick = Policy{
		MaxAttempts: 3,
		BaseDelay:   50 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  1.5,
		Jitter:      0.1,
	}

	PolicyNoRetry = Policy{MaxAttempts: 1, Multiplier: 1}
)

// WithMaxAttempts returns a copy with a different attempt budget
func (p Policy) WithMaxAttempts(n int) Policy {
	p.MaxAttempts = n
	return p
}

// WithBaseDelay returns a copy with a different initial delay
func (p Policy) WithBaseDelay(d time.Duration) Policy {
	p.BaseDelay = d
	return p
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.Multiplier < 1.0 {
		return ErrInvalidMultiplier
	}
	if p.Jitter < 0 || p.Jitter > 1.0 {
		return ErrInvalidJitter
	}
	return nil
}
