// Package resilient wraps payment and settlement adapters with per-endpoint circuit breakers,
// bounded retries and call metrics.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/ledger"
	"github.com/cafe-connect/trust_ledger/pkg/circuitbreaker"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
	"github.com/cafe-connect/trust_ledger/pkg/retry"
	"github.com/cafe-connect/trust_ledger/pkg/tracing"
)

// Adapter decorates a payment network. Retrying is safe because every request
// carries an idempotency key downstream.
type Adapter struct {
	service    string
	payments   ledger.PaymentAdapter
	settlement ledger.SettlementAdapter
	submits    *circuitbreaker.Breaker
	settles    *circuitbreaker.Breaker
	policy     retry.Policy
	logger     *logger.Logger
}

type Options struct {
	Service string
	Breaker circuitbreaker.Config
	Policy  retry.Policy
}

func New(payments ledger.PaymentAdapter, settlement ledger.SettlementAdapter, opts Options, log *logger.Logger) *Adapter {
	if opts.Service == "" {
		opts.Service = "payment_network"
	}
	if opts.Policy.MaxAttempts == 0 {
		opts.Policy = retry.PolicyPaymentAdapter
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Adapter{
		service:    opts.Service,
		payments:   payments,
		settlement: settlement,
		submits:    circuitbreaker.New(opts.Service+"_submit", opts.Breaker),
		settles:    circuitbreaker.New(opts.Service+"_settle", opts.Breaker),
		policy:     opts.Policy,
		logger:     log,
	}
}

func (a *Adapter) Submit(ctx context.Context, req entities.DepositSubmission) (*entities.PaymentReceipt, error) {
	if a.payments == nil {
		return nil, fmt.Errorf("%s: deposits not supported", a.service)
	}
	return a.call(ctx, "submit", a.submits, func(ctx context.Context) (*entities.PaymentReceipt, error) {
		return a.payments.Submit(ctx, req)
	})
}

func (a *Adapter) Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	if a.settlement == nil {
		return nil, fmt.Errorf("%s: settlement not supported", a.service)
	}
	return a.call(ctx, "settle", a.settles, func(ctx context.Context) (*entities.PaymentReceipt, error) {
		return a.settlement.Settle(ctx, req)
	})
}

// State reports the worse of the submit and settle breakers for health checks
func (a *Adapter) State() gobreaker.State {
	submit, settle := a.submits.State(), a.settles.State()
	if severity(settle) > severity(submit) {
		return settle
	}
	return submit
}

// SubmitState and SettleState expose each breaker on its own
func (a *Adapter) SubmitState() gobreaker.State { return a.submits.State() }

func (a *Adapter) SettleState() gobreaker.State { return a.settles.State() }

func severity(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

func (a *Adapter) call(ctx context.Context, endpoint string, breaker *circuitbreaker.Breaker, fn func(context.Context) (*entities.PaymentReceipt, error)) (*entities.PaymentReceipt, error) {
	var receipt *entities.PaymentReceipt
	attempt := 0
	err := retry.Do(ctx, a.policy, func(ctx context.Context) error {
		attempt++
		start := time.Now()
		var r *entities.PaymentReceipt
		err := tracing.TraceExternalCall(ctx, a.service, endpoint, func(ctx context.Context) error {
			var err error
			r, err = circuitbreaker.Execute(ctx, breaker, fn)
			return err
		})
		metrics.RecordExternalAPICall(a.service, endpoint, callStatus(err), time.Since(start).Seconds())
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return fmt.Errorf("%s unavailable: %w", a.service, err)
			}
			a.logger.CtxWarn(ctx, "payment network call failed",
				"service", a.service,
				"endpoint", endpoint,
				"attempt", attempt,
				"error", err,
			)
			return err
		}
		receipt = r
		return nil
	}, apperrors.ShouldRetry)
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}
