package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

type Config struct {
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration

	// IsSuccessful decides which errors leave the breaker untouched; defaults to HealthyOutcome
	IsSuccessful func(error) bool
}

func DefaultConfig() Config {
	return Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
	}
}

// Breaker guards calls to a payment network
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// HealthyOutcome reports whether err leaves the breaker's failure count alone:
// caller cancellation and client-side rejections such as declines.
func HealthyOutcome(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	switch apperrors.GetType(err) {
	case apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeNotFound,
		apperrors.ErrorTypeConflict,
		apperrors.ErrorTypeUnauthorized,
		apperrors.ErrorTypeInsufficientFunds:
		return true
	}
	return false
}

func New(name string, cfg Config) *Breaker {
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = HealthyOutcome
	}
	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, _ gobreaker.State, to gobreaker.State) {
			metrics.UpdateCircuitBreakerState(name, stateValue(to))
		},
	}
	metrics.UpdateCircuitBreakerState(name, 0)
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn unless the breaker is open. Only errors rejected by IsSuccessful count
// as failures; a context already done never reaches the breaker.
func Execute[T any](ctx context.Context, b *Breaker, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

// State reports the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Name() string {
	return b.cb.Name()
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 2
	default:
		return 0
	}
}
