package ledger

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/idempotency"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

var maxUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// Deposit collects amount from an external network and credits the caller's wallet.
// It is idempotent on (method, externalRef): a reference already processing or
// completed returns the existing request without crediting again. A failed
// reference may be retried.
func (s *Service) Deposit(ctx context.Context, principal entities.Principal, amount decimal.Decimal, method entities.PaymentMethod, externalRef string) (*entities.DepositRequest, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, apperrors.NewValidationError("deposit amount must be greater than zero")
	}
	if !method.IsValid() {
		return nil, apperrors.NewValidationErrorf("unsupported payment method %q", method)
	}
	externalRef = strings.TrimSpace(externalRef)
	if err := idempotency.ValidateKey(externalRef); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if !s.wallets.Exists(principal) {
		return nil, apperrors.NewNotFoundError("wallet")
	}

	key := idempotency.ScopedKey(string(method), externalRef)
	log := s.logger.WithContext(ctx).ForPrincipal(principal.String())

	// Phase 1: register the request locally before anything leaves the process
	s.mu.Lock()
	if id, ok := s.depositByRef[key]; ok {
		existing := s.deposits[id]
		if existing.Principal != principal {
			s.mu.Unlock()
			return nil, apperrors.NewConflictError("external reference already used")
		}
		if existing.Status != entities.StatusFailed {
			out := *existing
			s.mu.Unlock()
			metrics.DepositReplaysTotal.Inc()
			log.Info("deposit replayed", "deposit_id", out.ID, "status", out.Status)
			return &out, nil
		}
	}

	now := s.clock.Now()
	dep := &entities.DepositRequest{
		ID:                "dep_" + uuid.NewString(),
		Principal:         principal,
		Amount:            amount,
		Method:            method,
		ExternalPaymentID: externalRef,
		Status:            entities.StatusProcessing,
		VerificationCode:  fmt.Sprintf("CAFE%04d", now.UnixNano()%10000),
		CreatedAt:         now,
	}
	s.deposits[dep.ID] = dep
	s.depositByRef[key] = dep.ID
	s.depositsByUser[principal] = append(s.depositsByUser[principal], dep.ID)
	s.mu.Unlock()

	// Shared claim so another replica cannot process the same reference
	holder, claimed, err := s.claims.Claim(ctx, key, dep.ID, s.cfg.ClaimTTL)
	if err != nil || !claimed {
		reason := "external reference is being processed elsewhere"
		if err != nil {
			reason = "idempotency store unavailable"
			log.Error("deposit claim failed", "deposit_id", dep.ID, "error", err)
		} else {
			log.Warn("deposit reference held by another request", "deposit_id", dep.ID, "holder", holder)
		}
		out := s.failDeposit(dep.ID, reason)
		metrics.RecordLedgerOperation("deposit", "rejected", 0)
		if err != nil {
			return out, apperrors.WrapInternal(err, reason)
		}
		return out, apperrors.NewConflictError(reason)
	}

	// Suspension point
	receipt, err := callAdapter(ctx, func(ctx context.Context) (*entities.PaymentReceipt, error) {
		return s.payments.Submit(ctx, entities.DepositSubmission{
			DepositID:   dep.ID,
			Principal:   principal,
			Method:      method,
			ExternalRef: externalRef,
			Amount:      amount,
		})
	})

	// Phase 2: commit or roll back
	if err != nil {
		out := s.failDeposit(dep.ID, err.Error())
		s.releaseClaim(ctx, key)
		metrics.RecordLedgerOperation("deposit", "failed", 0)
		log.Warn("deposit failed at payment network", "deposit_id", dep.ID, "error", err)
		return out, apperrors.WrapExternal(err, "payment", "deposit submission failed")
	}

	units, convErr := s.toUnits(amount, receipt.Rate)

	s.mu.Lock()
	if convErr == nil {
		convErr = s.wallets.Credit(ctx, principal, units)
	}
	if convErr != nil {
		dep.FailureReason = convErr.Error()
		_ = transition(&dep.Status, entities.StatusFailed)
		out := *dep
		s.mu.Unlock()
		s.releaseClaim(ctx, key)
		metrics.RecordLedgerOperation("deposit", "failed", 0)
		log.Error("deposit could not be credited", "deposit_id", dep.ID, "error", convErr)
		return &out, convErr
	}
	completedAt := s.clock.Now()
	dep.CreditedUnits = units
	dep.CompletedAt = &completedAt
	if receipt.ExternalID != "" {
		dep.ExternalPaymentID = receipt.ExternalID
	}
	_ = transition(&dep.Status, entities.StatusCompleted)
	out := *dep
	s.mu.Unlock()

	metrics.RecordLedgerOperation("deposit", "completed", units)
	log.Info("deposit completed", "deposit_id", dep.ID, "units", units, "method", method)
	return &out, nil
}

// toUnits converts an external amount into ledger units, rounding down
func (s *Service) toUnits(amount, rate decimal.Decimal) (uint64, error) {
	if !rate.IsPositive() {
		rate = s.cfg.DefaultConversionRate
	}
	units := amount.Mul(rate).Floor()
	if !units.IsPositive() {
		return 0, apperrors.NewValidationError("deposit amount converts to zero units")
	}
	if units.GreaterThan(maxUnits) {
		return 0, apperrors.NewValidationError("deposit amount exceeds the ledger range")
	}
	return units.BigInt().Uint64(), nil
}

func (s *Service) failDeposit(id, reason string) *entities.DepositRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	dep := s.deposits[id]
	if transition(&dep.Status, entities.StatusFailed) == nil {
		dep.FailureReason = reason
	}
	out := *dep
	return &out
}

func (s *Service) releaseClaim(ctx context.Context, key string) {
	if err := s.claims.Release(ctx, key); err != nil {
		s.logger.CtxWarn(ctx, "failed to release deposit claim", "key", key, "error", err)
	}
}

// GetDeposit returns one of the caller's deposit requests
func (s *Service) GetDeposit(ctx context.Context, principal entities.Principal, depositID string) (*entities.DepositRequest, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	dep, ok := s.deposits[depositID]
	if !ok || dep.Principal != principal {
		return nil, apperrors.NewNotFoundError("deposit")
	}
	out := *dep
	return &out, nil
}

// GetDeposits lists the caller's deposit requests, newest first
func (s *Service) GetDeposits(ctx context.Context, principal entities.Principal) ([]entities.DepositRequest, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.depositsByUser[principal]
	out := make([]entities.DepositRequest, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.deposits[ids[i]])
	}
	return out, nil
}
