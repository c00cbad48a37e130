package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/internal/domain/services/risk"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const transferType = "send_money"

// SendMoney moves amount from the caller to another principal. Funds are held before
// the settlement call; two concurrent sends can never both spend the same balance.
// On settlement failure the hold is released and the failed transaction is returned
// together with an adapter error.
func (s *Service) SendMoney(ctx context.Context, from entities.Principal, to string, amount uint64, notes *string) (*entities.PaymentTransaction, error) {
	if err := entities.RequireCaller(from); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, apperrors.NewValidationError("amount must be greater than zero")
	}
	recipient, err := entities.ParsePrincipal(to)
	if err != nil {
		return nil, err
	}
	if recipient.IsAnonymous() {
		return nil, apperrors.NewValidationError("cannot send to the anonymous principal")
	}
	if recipient == from {
		return nil, apperrors.NewValidationError("cannot send money to yourself")
	}
	if !s.wallets.Exists(from) {
		return nil, apperrors.NewNotFoundError("wallet")
	}

	assessment := risk.Assess(amount, entities.EmotionNeutral, transferType)
	metrics.RecordRiskAssessment(string(assessment.Level))
	log := s.logger.WithContext(ctx).ForPrincipal(from.String())

	// Phase 1: hold the funds and record the transaction as processing
	txID := "tx_" + uuid.NewString()
	s.mu.Lock()
	if _, err := s.wallets.Hold(ctx, from, txID, amount); err != nil {
		s.mu.Unlock()
		metrics.RecordLedgerOperation("send", "rejected", 0)
		return nil, err
	}
	tx := &entities.PaymentTransaction{
		ID:              txID,
		From:            from,
		To:              recipient.String(),
		Amount:          amount,
		Method:          entities.MethodInternal,
		TransactionType: transferType,
		Status:          entities.StatusPending,
		RiskLevel:       assessment.Level,
		SafetyApproved:  assessment.Level != entities.RiskHigh,
		CreatedAt:       s.clock.Now(),
		Notes:           notes,
	}
	_ = transition(&tx.Status, entities.StatusProcessing)
	s.transactions[txID] = tx
	s.txOrder = append(s.txOrder, txID)
	s.mu.Unlock()

	// Suspension point
	receipt, settleErr := callAdapter(ctx, func(ctx context.Context) (*entities.PaymentReceipt, error) {
		return s.settlement.Settle(ctx, entities.SettlementRequest{
			TransactionID: txID,
			From:          from,
			To:            recipient,
			Amount:        amount,
		})
	})

	// Phase 2
	s.mu.Lock()
	if settleErr != nil {
		s.rollbackTransferLocked(ctx, tx, settleErr.Error())
		out := *tx
		s.mu.Unlock()
		metrics.RecordLedgerOperation("send", "failed", 0)
		log.Warn("transfer failed at settlement", "transaction_id", txID, "error", settleErr)
		return &out, apperrors.WrapExternal(settleErr, "settlement", "transfer settlement failed")
	}

	if _, err := s.wallets.CommitHold(ctx, txID); err != nil {
		s.rollbackTransferLocked(ctx, tx, err.Error())
		out := *tx
		s.mu.Unlock()
		log.Error("transfer hold could not be committed", "transaction_id", txID, "error", err)
		return &out, err
	}
	created, err := s.wallets.CreditOrCreate(ctx, recipient, amount)
	if err != nil {
		// Debit is final but the recipient cannot take the funds; refund the sender
		if refundErr := s.wallets.Credit(ctx, from, amount); refundErr != nil {
			log.Error("transfer refund failed", "transaction_id", txID, "error", refundErr)
		}
		tx.FailureReason = err.Error()
		_ = transition(&tx.Status, entities.StatusFailed)
		out := *tx
		s.mu.Unlock()
		metrics.RecordLedgerOperation("send", "failed", 0)
		return &out, err
	}

	completedAt := s.clock.Now()
	tx.CompletedAt = &completedAt
	tx.SettlementRef = receipt.ExternalID
	_ = transition(&tx.Status, entities.StatusCompleted)
	s.wallets.Mutate(from, func(w *entities.Wallet) {
		w.TotalSpent = saturatingAdd(w.TotalSpent, amount)
		w.LastActivity = completedAt
	})
	out := *tx
	s.mu.Unlock()

	metrics.RecordLedgerOperation("send", "completed", amount)
	log.Info("transfer completed",
		"transaction_id", txID,
		"to", recipient,
		"amount", amount,
		"risk_level", assessment.Level,
		"recipient_wallet_created", created,
	)

	if assessment.Level != entities.RiskLow {
		severity := entities.SeverityMedium
		if assessment.Level == entities.RiskHigh {
			severity = entities.SeverityHigh
		}
		s.raise(ctx, from, entities.SafetyAlert{
			Type:     entities.AlertTransferRisk,
			Severity: severity,
			Message:  fmt.Sprintf("Large transfer of %d units to %s", amount, recipient),
			Metadata: map[string]string{
				"transaction_id": txID,
				"risk_points":    fmt.Sprintf("%d", assessment.Total),
			},
		})
	}
	return &out, nil
}

// rollbackTransferLocked releases the hold and marks tx failed. Callers hold s.mu.
func (s *Service) rollbackTransferLocked(ctx context.Context, tx *entities.PaymentTransaction, reason string) {
	if _, err := s.wallets.ReleaseHold(ctx, tx.ID); err != nil {
		s.logger.CtxError(ctx, "failed to release hold", "transaction_id", tx.ID, "error", err)
	}
	tx.FailureReason = reason
	_ = transition(&tx.Status, entities.StatusFailed)
}

func saturatingAdd(a, b uint64) uint64 {
	if a+b < a {
		return ^uint64(0)
	}
	return a + b
}
