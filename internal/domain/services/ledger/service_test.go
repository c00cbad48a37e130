package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/alerts"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/stats"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/wallet"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

const (
	alice entities.Principal = "alice-aa"
	bob   entities.Principal = "bob-bb"
	carol entities.Principal = "carol-cc"
	dave  entities.Principal = "dave-dd"
)

type MockPaymentAdapter struct {
	mock.Mock
}

func (m *MockPaymentAdapter) Submit(ctx context.Context, req entities.DepositSubmission) (*entities.PaymentReceipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*entities.PaymentReceipt)
	return receipt, args.Error(1)
}

type MockSettlementAdapter struct {
	mock.Mock
}

func (m *MockSettlementAdapter) Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	args := m.Called(ctx, req)
	receipt, _ := args.Get(0).(*entities.PaymentReceipt)
	return receipt, args.Error(1)
}

type settleFunc func(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error)

func (f settleFunc) Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	return f(ctx, req)
}

type staticCircles map[entities.Principal][]entities.Principal

func (c staticCircles) OwnersGranting(member entities.Principal, perm entities.Permission) []entities.Principal {
	if perm != entities.PermissionSpendingAlerts {
		return nil
	}
	return c[member]
}

type harness struct {
	ledger     *Service
	wallets    *wallet.Service
	alerts     *alerts.Service
	stats      *stats.Aggregator
	payments   *MockPaymentAdapter
	settlement *MockSettlementAdapter
	clock      *clock.Fake
}

func newHarness(t *testing.T, opts ...func(*Dependencies)) *harness {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC))
	clk.Step = time.Millisecond
	log := logger.NewNop()
	agg := stats.NewAggregator(clk)
	wallets := wallet.NewService(nil, agg, clk, log)
	alertSvc := alerts.NewService(agg, clk, log)
	payments := &MockPaymentAdapter{}
	settlement := &MockSettlementAdapter{}

	deps := Dependencies{
		Wallets:    wallets,
		Alerts:     alertSvc,
		Circles:    staticCircles{alice: {carol}},
		Stats:      agg,
		Payments:   payments,
		Settlement: settlement,
		Clock:      clk,
		Logger:     log,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	_, err := wallets.CreateWallet(context.Background(), alice, nil)
	require.NoError(t, err)

	return &harness{
		ledger:     NewService(deps, DefaultConfig()),
		wallets:    wallets,
		alerts:     alertSvc,
		stats:      agg,
		payments:   payments,
		settlement: settlement,
		clock:      clk,
	}
}

func (h *harness) fund(t *testing.T, p entities.Principal, amount uint64) {
	t.Helper()
	require.NoError(t, h.wallets.Credit(context.Background(), p, amount))
}

func (h *harness) balance(t *testing.T, p entities.Principal) *entities.Balance {
	t.Helper()
	b, err := h.ledger.GetBalance(context.Background(), p)
	require.NoError(t, err)
	return b
}

func receipt(id string, rate int64) *entities.PaymentReceipt {
	return &entities.PaymentReceipt{ExternalID: id, Rate: decimal.NewFromInt(rate)}
}

func alertTypes(t *testing.T, h *harness, owner entities.Principal) []entities.AlertType {
	t.Helper()
	list, err := h.alerts.List(context.Background(), owner)
	require.NoError(t, err)
	out := make([]entities.AlertType, 0, len(list))
	for _, a := range list {
		out = append(out, a.Type)
	}
	return out
}

func TestDepositCreditsWallet(t *testing.T) {
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.MatchedBy(func(req entities.DepositSubmission) bool {
		return req.ExternalRef == "venmo-001" && req.Principal == alice
	})).Return(receipt("vx-1", 100), nil).Once()

	dep, err := h.ledger.Deposit(context.Background(), alice, decimal.RequireFromString("12.5"), entities.MethodVenmo, "venmo-001")
	require.NoError(t, err)

	assert.Equal(t, entities.StatusCompleted, dep.Status)
	assert.Equal(t, uint64(1250), dep.CreditedUnits)
	assert.Equal(t, "vx-1", dep.ExternalPaymentID)
	assert.NotNil(t, dep.CompletedAt)
	assert.Regexp(t, `^CAFE\d{4}$`, dep.VerificationCode)
	assert.Equal(t, uint64(1250), h.balance(t, alice).Available)
	h.payments.AssertExpectations(t)
}

func TestDepositUsesReceiptRate(t *testing.T) {
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(receipt("x", 250), nil).Once()

	dep, err := h.ledger.Deposit(context.Background(), alice, decimal.NewFromInt(2), entities.MethodZelle, "zelle-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(500), dep.CreditedUnits)
}

func TestDepositFallsBackToDefaultRate(t *testing.T) {
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(&entities.PaymentReceipt{ExternalID: "x"}, nil).Once()

	dep, err := h.ledger.Deposit(context.Background(), alice, decimal.NewFromInt(3), entities.MethodCashApp, "cash-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(300), dep.CreditedUnits)
}

func TestDepositIsIdempotentOnExternalRef(t *testing.T) {
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(receipt("x", 100), nil).Once()
	ctx := context.Background()

	first, err := h.ledger.Deposit(ctx, alice, decimal.NewFromInt(5), entities.MethodVenmo, "ref-1")
	require.NoError(t, err)
	second, err := h.ledger.Deposit(ctx, alice, decimal.NewFromInt(5), entities.MethodVenmo, "ref-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, uint64(500), h.balance(t, alice).Available)
	h.payments.AssertNumberOfCalls(t, "Submit", 1)
}

func TestConcurrentDuplicateDepositsCreditOnce(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(receipt("x", 100), nil)

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dep, err := h.ledger.Deposit(context.Background(), alice, decimal.NewFromInt(1), entities.MethodVenmo, "dup-ref")
			if assert.NoError(t, err) {
				ids[i] = dep.ID
			}
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, uint64(100), h.balance(t, alice).Available)
	h.payments.AssertNumberOfCalls(t, "Submit", 1)
}

func TestDepositFailureLeavesBalanceAndAllowsRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(nil, errors.New("network unavailable")).Once()
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(receipt("x", 100), nil).Once()

	failed, err := h.ledger.Deposit(ctx, alice, decimal.NewFromInt(4), entities.MethodApplePay, "ap-9")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	require.NotNil(t, failed)
	assert.Equal(t, entities.StatusFailed, failed.Status)
	assert.Equal(t, uint64(0), h.balance(t, alice).Available)

	retried, err := h.ledger.Deposit(ctx, alice, decimal.NewFromInt(4), entities.MethodApplePay, "ap-9")
	require.NoError(t, err)
	assert.NotEqual(t, failed.ID, retried.ID)
	assert.Equal(t, entities.StatusCompleted, retried.Status)
	assert.Equal(t, uint64(400), h.balance(t, alice).Available)

	deposits, err := h.ledger.GetDeposits(ctx, alice)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	assert.Equal(t, retried.ID, deposits[0].ID)
}

func TestDepositValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.Deposit(ctx, alice, decimal.Zero, entities.MethodVenmo, "r")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = h.ledger.Deposit(ctx, alice, decimal.NewFromInt(1), "paypal", "r")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = h.ledger.Deposit(ctx, alice, decimal.NewFromInt(1), entities.MethodVenmo, "  ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = h.ledger.Deposit(ctx, bob, decimal.NewFromInt(1), entities.MethodVenmo, "r")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))

	_, err = h.ledger.Deposit(ctx, entities.AnonymousPrincipal, decimal.NewFromInt(1), entities.MethodVenmo, "r")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnauthorized))

	h.payments.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestDepositTooSmallToConvertFails(t *testing.T) {
	h := newHarness(t)
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(receipt("x", 100), nil).Once()

	dep, err := h.ledger.Deposit(context.Background(), alice, decimal.RequireFromString("0.001"), entities.MethodVenmo, "tiny")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, entities.StatusFailed, dep.Status)
	assert.Equal(t, uint64(0), h.balance(t, alice).Available)
}

func TestDepositRefOwnedByAnotherPrincipal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.wallets.CreateWallet(ctx, bob, nil)
	require.NoError(t, err)
	h.payments.On("Submit", mock.Anything, mock.Anything).Return(receipt("x", 100), nil).Once()

	_, err = h.ledger.Deposit(ctx, alice, decimal.NewFromInt(1), entities.MethodVenmo, "shared")
	require.NoError(t, err)
	_, err = h.ledger.Deposit(ctx, bob, decimal.NewFromInt(1), entities.MethodVenmo, "shared")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestSendMoneyMovesFunds(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 1_000)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(receipt("blk-1", 0), nil).Once()
	notes := "coffee"

	tx, err := h.ledger.SendMoney(context.Background(), alice, string(bob), 400, &notes)
	require.NoError(t, err)

	assert.Equal(t, entities.StatusCompleted, tx.Status)
	assert.Equal(t, "blk-1", tx.SettlementRef)
	assert.Equal(t, entities.RiskLow, tx.RiskLevel)
	assert.True(t, tx.SafetyApproved)
	assert.Equal(t, uint64(600), h.balance(t, alice).Available)
	assert.Equal(t, uint64(400), h.balance(t, bob).Available)
	assert.Equal(t, uint64(2), h.stats.Snapshot().TotalWallets)

	w, err := h.wallets.GetWallet(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(400), w.TotalSpent)
}

func TestSendMoneyRoundTripRestoresBalances(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.wallets.CreateWallet(ctx, bob, nil)
	require.NoError(t, err)
	h.fund(t, alice, 700)
	h.fund(t, bob, 300)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(receipt("ok", 0), nil)

	_, err = h.ledger.SendMoney(ctx, alice, string(bob), 250, nil)
	require.NoError(t, err)
	_, err = h.ledger.SendMoney(ctx, bob, string(alice), 250, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(700), h.balance(t, alice).Available)
	assert.Equal(t, uint64(300), h.balance(t, bob).Available)
}

func TestSendMoneySettlementFailureReleasesHold(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 1_000)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(nil, errors.New("settlement rejected")).Once()

	tx, err := h.ledger.SendMoney(context.Background(), alice, string(bob), 400, nil)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	require.NotNil(t, tx)
	assert.Equal(t, entities.StatusFailed, tx.Status)
	assert.Equal(t, "settlement rejected", tx.FailureReason)
	b := h.balance(t, alice)
	assert.Equal(t, uint64(1_000), b.Available)
	assert.Equal(t, uint64(0), b.Held)
	assert.Equal(t, 0, h.wallets.OpenHolds())
	assert.False(t, h.wallets.Exists(bob))
}

func TestSendMoneyAdapterPanicReleasesHold(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Settlement = settleFunc(func(context.Context, entities.SettlementRequest) (*entities.PaymentReceipt, error) {
			panic("driver exploded")
		})
	})
	h.fund(t, alice, 100)

	tx, err := h.ledger.SendMoney(context.Background(), alice, string(bob), 100, nil)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	assert.Equal(t, entities.StatusFailed, tx.Status)
	assert.Equal(t, uint64(100), h.balance(t, alice).Available)
}

func TestSendMoneyCancelledContextReleasesHold(t *testing.T) {
	h := newHarness(t, func(d *Dependencies) {
		d.Settlement = settleFunc(func(ctx context.Context, _ entities.SettlementRequest) (*entities.PaymentReceipt, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	})
	h.fund(t, alice, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	tx, err := h.ledger.SendMoney(ctx, alice, string(bob), 60, nil)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, entities.StatusFailed, tx.Status)
	assert.Equal(t, uint64(100), h.balance(t, alice).Available)
}

func TestSendMoneyValidation(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 100)
	ctx := context.Background()

	tests := []struct {
		name    string
		from    entities.Principal
		to      string
		amount  uint64
		errType apperrors.ErrorType
	}{
		{"zero amount", alice, string(bob), 0, apperrors.ErrorTypeValidation},
		{"self send", alice, string(alice), 10, apperrors.ErrorTypeValidation},
		{"anonymous recipient", alice, string(entities.AnonymousPrincipal), 10, apperrors.ErrorTypeValidation},
		{"malformed recipient", alice, "Not A Principal", 10, apperrors.ErrorTypeValidation},
		{"sender without wallet", carol, string(bob), 10, apperrors.ErrorTypeNotFound},
		{"insufficient funds", alice, string(bob), 101, apperrors.ErrorTypeInsufficientFunds},
		{"anonymous sender", entities.AnonymousPrincipal, string(bob), 10, apperrors.ErrorTypeUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := h.ledger.SendMoney(ctx, tt.from, tt.to, tt.amount, nil)
			assert.Nil(t, tx)
			assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
		})
	}
	h.settlement.AssertNotCalled(t, "Settle", mock.Anything, mock.Anything)
	assert.Equal(t, uint64(100), h.balance(t, alice).Available)
}

func TestConcurrentSendsOnlyOneSucceeds(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	h := newHarness(t, func(d *Dependencies) {
		d.Settlement = settleFunc(func(context.Context, entities.SettlementRequest) (*entities.PaymentReceipt, error) {
			entered <- struct{}{}
			<-release
			return &entities.PaymentReceipt{ExternalID: "ok"}, nil
		})
	})
	h.fund(t, alice, 1_000)
	ctx := context.Background()

	firstErr := make(chan error, 1)
	go func() {
		_, err := h.ledger.SendMoney(ctx, alice, string(bob), 600, nil)
		firstErr <- err
	}()
	<-entered

	// The first send is suspended in settlement with its funds held
	_, err := h.ledger.SendMoney(ctx, alice, string(carol), 600, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInsufficientFunds))

	close(release)
	require.NoError(t, <-firstErr)

	assert.Equal(t, uint64(400), h.balance(t, alice).Available)
	assert.Equal(t, uint64(600), h.balance(t, bob).Available)
	assert.False(t, h.wallets.Exists(carol))
}

func TestBalanceConservedUnderInterleavedSends(t *testing.T) {
	var calls int32
	h := newHarness(t, func(d *Dependencies) {
		d.Settlement = settleFunc(func(context.Context, entities.SettlementRequest) (*entities.PaymentReceipt, error) {
			n := atomic.AddInt32(&calls, 1)
			time.Sleep(time.Millisecond)
			if n%3 == 0 {
				return nil, errors.New("flaky settlement")
			}
			return &entities.PaymentReceipt{ExternalID: "ok"}, nil
		})
	})
	h.fund(t, alice, 10_000)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.ledger.SendMoney(context.Background(), alice, string(bob), 1_000, nil)
		}()
	}
	wg.Wait()

	a := h.balance(t, alice)
	var bobBalance uint64
	if h.wallets.Exists(bob) {
		bobBalance = h.balance(t, bob).Available
	}
	assert.Equal(t, uint64(0), a.Held)
	assert.Equal(t, uint64(10_000), a.Available+bobBalance)
	assert.LessOrEqual(t, bobBalance, uint64(10_000))
	assert.Equal(t, 0, h.wallets.OpenHolds())
}

func TestLargeTransferRaisesAlert(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 20_000_000_000)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(receipt("ok", 0), nil).Once()

	tx, err := h.ledger.SendMoney(context.Background(), alice, string(bob), 11_000_000_000, nil)
	require.NoError(t, err)

	assert.Equal(t, entities.RiskMedium, tx.RiskLevel)
	assert.Equal(t, []entities.AlertType{entities.AlertTransferRisk}, alertTypes(t, h, alice))

	list, err := h.alerts.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, entities.SeverityMedium, list[0].Severity)
	assert.Equal(t, "30", list[0].Metadata["risk_points"])
}

func TestTransferBelowTopTierRaisesNoAlert(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, 20_000_000_000)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(receipt("ok", 0), nil).Once()

	tx, err := h.ledger.SendMoney(context.Background(), alice, string(bob), 6_000_000_000, nil)
	require.NoError(t, err)

	assert.Equal(t, entities.RiskLow, tx.RiskLevel)
	assert.Empty(t, alertTypes(t, h, alice))
}

func TestRecordSpendingHighRisk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	rec, err := h.ledger.RecordSpending(ctx, alice, 11_000_000_000, entities.EmotionExcited, "gift", nil)
	require.NoError(t, err)

	assert.Equal(t, entities.RiskHigh, rec.RiskAssessment)
	assert.True(t, rec.FlaggedSuspicious)
	s := h.stats.Snapshot()
	assert.Equal(t, uint64(1), s.TotalTransactions)
	assert.Equal(t, uint64(1), s.ScamsPrevented)

	assert.Contains(t, alertTypes(t, h, alice), entities.AlertSpendingRisk)
	assert.Equal(t, []entities.AlertType{entities.AlertSpendingCircle}, alertTypes(t, h, carol))

	w, err := h.wallets.GetWallet(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(11_000_000_000), w.TotalSpent)
	assert.Equal(t, entities.SafetyHighRisk, w.SafetyRating)
	assert.NotNil(t, w.SpendingPolicy.LastLargePurchase)
}

func TestRecordSpendingLowRisk(t *testing.T) {
	h := newHarness(t)

	rec, err := h.ledger.RecordSpending(context.Background(), alice, 100, entities.EmotionNeutral, "entertainment", nil)
	require.NoError(t, err)

	assert.Equal(t, entities.RiskLow, rec.RiskAssessment)
	assert.False(t, rec.FlaggedSuspicious)
	assert.Equal(t, uint64(0), h.stats.Snapshot().ScamsPrevented)
	assert.Empty(t, alertTypes(t, h, alice))
}

func TestRecordSpendingWithoutWallet(t *testing.T) {
	h := newHarness(t)

	_, err := h.ledger.RecordSpending(context.Background(), dave, 10, entities.EmotionHappy, "food", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), h.stats.Snapshot().TotalTransactions)
}

func TestRecordSpendingRejectsUnknownTag(t *testing.T) {
	h := newHarness(t)

	_, err := h.ledger.RecordSpending(context.Background(), alice, 10, "furious", "food", nil)

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, uint64(0), h.stats.Snapshot().TotalTransactions)
}

func TestRecordSpendingLimitAlerts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.RecordSpending(ctx, alice, 600_000_000, entities.EmotionNeutral, "rent", nil)
	require.NoError(t, err)
	list, err := h.alerts.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entities.AlertSpendingLimit, list[0].Type)
	assert.Equal(t, entities.SeverityMedium, list[0].Severity)

	_, err = h.ledger.RecordSpending(ctx, alice, 500_000_000, entities.EmotionNeutral, "rent", nil)
	require.NoError(t, err)
	list, err = h.alerts.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, entities.SeverityHigh, list[0].Severity)
	assert.Equal(t, "daily_limit", list[0].Metadata["limit"])

	h.clock.Advance(25 * time.Hour)
	_, err = h.ledger.RecordSpending(ctx, alice, 100, entities.EmotionNeutral, "rent", nil)
	require.NoError(t, err)
	list, err = h.alerts.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetSpendingHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	for i := 1; i <= 60; i++ {
		_, err := h.ledger.RecordSpending(ctx, alice, uint64(i), entities.EmotionHappy, "snack", nil)
		require.NoError(t, err)
	}

	all, err := h.ledger.GetSpendingHistory(ctx, alice, 0)
	require.NoError(t, err)
	assert.Len(t, all, 50)
	assert.Equal(t, uint64(60), all[0].Amount)

	some, err := h.ledger.GetSpendingHistory(ctx, alice, 3)
	require.NoError(t, err)
	require.Len(t, some, 3)
	assert.Equal(t, uint64(58), some[2].Amount)
}

func TestGetSpendingAnalysis(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.ledger.RecordSpending(ctx, alice, 11_000_000_000, entities.EmotionExcited, "gift", nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = h.ledger.RecordSpending(ctx, alice, 10, entities.EmotionHappy, "snack", nil)
		require.NoError(t, err)
	}

	a, err := h.ledger.GetSpendingAnalysis(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, uint64(4), a.TotalTransactions)
	assert.Equal(t, uint64(1), a.HighRiskTransactions)
	assert.Equal(t, uint32(25), a.RiskPercentage)
	assert.Equal(t, entities.EmotionExcited, a.MostEmotionalTag)
	assert.Equal(t, entities.SafetyCaution, a.SafetyRating)
	assert.Contains(t, a.Recommendations, "Add emergency contacts for enhanced safety")
	assert.Contains(t, a.Recommendations, "Cooling off period active - wait before large purchases")
	assert.Contains(t, a.Recommendations, "Build trust through verified transactions")

	_, err = h.ledger.GetSpendingAnalysis(ctx, bob)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestTransactionHistoryIsFilteredToParticipants(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.wallets.CreateWallet(ctx, carol, nil)
	require.NoError(t, err)
	h.fund(t, alice, 100)
	h.fund(t, carol, 100)
	h.settlement.On("Settle", mock.Anything, mock.Anything).Return(receipt("ok", 0), nil)

	aliceTx, err := h.ledger.SendMoney(ctx, alice, string(bob), 10, nil)
	require.NoError(t, err)
	_, err = h.ledger.SendMoney(ctx, carol, string(dave), 10, nil)
	require.NoError(t, err)

	history, err := h.ledger.GetTransactionHistory(ctx, bob)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, aliceTx.ID, history[0].ID)

	_, err = h.ledger.GetTransaction(ctx, dave, aliceTx.ID)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestLinkPaymentAccount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	acct, err := h.ledger.LinkPaymentAccount(ctx, alice, entities.MethodVenmo, "@alice-venmo-5521", "main")
	require.NoError(t, err)
	assert.Equal(t, "****5521", acct.Identifier)
	assert.True(t, acct.IsVerified)

	_, err = h.ledger.LinkPaymentAccount(ctx, alice, "paypal", "x", "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	accounts, err := h.ledger.GetLinkedAccounts(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "****", MaskIdentifier("abc"))
	assert.Equal(t, "****", MaskIdentifier("abcd"))
	assert.Equal(t, "****bcde", MaskIdentifier("abcde"))
}
