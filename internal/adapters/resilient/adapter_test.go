package resilient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/circuitbreaker"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/retry"
)

type scriptedNetwork struct {
	calls int32
	errs  []error
}

func (s *scriptedNetwork) next() (*entities.PaymentReceipt, error) {
	n := int(atomic.AddInt32(&s.calls, 1))
	if n <= len(s.errs) && s.errs[n-1] != nil {
		return nil, s.errs[n-1]
	}
	return &entities.PaymentReceipt{ExternalID: "ok"}, nil
}

func (s *scriptedNetwork) Submit(context.Context, entities.DepositSubmission) (*entities.PaymentReceipt, error) {
	return s.next()
}

func (s *scriptedNetwork) Settle(context.Context, entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	return s.next()
}

var fastPolicy = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}

func transient() error {
	return apperrors.WrapWithType(errors.New("502"), apperrors.ErrorTypeTransient, "GATEWAY_UNAVAILABLE", "gateway is unavailable")
}

func TestRetriesTransientFailures(t *testing.T) {
	net := &scriptedNetwork{errs: []error{transient(), transient()}}
	a := New(net, net, Options{Service: "test_retry", Breaker: circuitbreaker.Config{Timeout: time.Minute}, Policy: fastPolicy}, nil)

	receipt, err := a.Submit(context.Background(), entities.DepositSubmission{})
	require.NoError(t, err)
	assert.Equal(t, "ok", receipt.ExternalID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&net.calls))
}

func TestDoesNotRetryPermanentFailures(t *testing.T) {
	declined := apperrors.NewValidationError("card declined")
	net := &scriptedNetwork{errs: []error{declined}}
	a := New(net, net, Options{Service: "test_permanent", Breaker: circuitbreaker.Config{Timeout: time.Minute}, Policy: fastPolicy}, nil)

	_, err := a.Settle(context.Background(), entities.SettlementRequest{})
	assert.ErrorIs(t, err, declined)
	assert.Equal(t, int32(1), atomic.LoadInt32(&net.calls))
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	net := &scriptedNetwork{errs: []error{transient(), transient(), transient()}}
	a := New(net, net, Options{Service: "test_breaker", Breaker: circuitbreaker.Config{Timeout: time.Minute}, Policy: retry.PolicyNoRetry}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.Settle(ctx, entities.SettlementRequest{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, a.State())
	assert.Equal(t, gobreaker.StateOpen, a.SettleState())

	_, err := a.Settle(ctx, entities.SettlementRequest{})
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&net.calls))

	// deposits keep flowing through their own breaker
	assert.Equal(t, gobreaker.StateClosed, a.SubmitState())
	_, err = a.Submit(ctx, entities.DepositSubmission{})
	require.NoError(t, err)
}

func TestDeclinedDepositsLeaveNetworkAvailable(t *testing.T) {
	declined := apperrors.NewValidationError("card declined")
	net := &scriptedNetwork{errs: []error{declined, declined, declined}}
	a := New(net, net, Options{Service: "test_declines", Breaker: circuitbreaker.Config{Timeout: time.Minute}, Policy: fastPolicy}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := a.Submit(ctx, entities.DepositSubmission{ExternalRef: "declined"})
		assert.ErrorIs(t, err, declined)
	}
	assert.Equal(t, gobreaker.StateClosed, a.State())

	receipt, err := a.Settle(ctx, entities.SettlementRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", receipt.ExternalID)

	receipt, err = a.Submit(ctx, entities.DepositSubmission{ExternalRef: "another-user"})
	require.NoError(t, err)
	assert.Equal(t, "ok", receipt.ExternalID)
	assert.Equal(t, int32(5), atomic.LoadInt32(&net.calls))
}

func TestMissingSettlementIsAnError(t *testing.T) {
	net := &scriptedNetwork{}
	a := New(net, nil, Options{Service: "test_missing", Policy: fastPolicy}, nil)

	_, err := a.Settle(context.Background(), entities.SettlementRequest{})
	assert.Error(t, err)
}
