package ledger

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
)

const maxAccountNickname = 32

// LinkPaymentAccount attaches an external account. Only a masked identifier is kept.
func (s *Service) LinkPaymentAccount(ctx context.Context, principal entities.Principal, method entities.PaymentMethod, identifier, nickname string) (*entities.LinkedAccount, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, apperrors.NewValidationErrorf("unsupported account type %q", method)
	}
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.NewValidationError("account identifier is required")
	}
	if utf8.RuneCountInString(nickname) > maxAccountNickname {
		return nil, apperrors.NewValidationErrorf("account nickname must be at most %d characters", maxAccountNickname)
	}

	s.mu.Lock()
	acct := &entities.LinkedAccount{
		ID:          "acc_" + uuid.NewString(),
		AccountType: method,
		Identifier:  MaskIdentifier(identifier),
		Nickname:    nickname,
		IsVerified:  true,
		AddedAt:     s.clock.Now(),
	}
	s.linked[principal] = append(s.linked[principal], acct)
	out := *acct
	s.mu.Unlock()

	s.logger.CtxInfo(ctx, "payment account linked", "principal", principal, "account_type", method, "identifier", out.Identifier)
	return &out, nil
}

// MaskIdentifier keeps only the last four characters
func MaskIdentifier(identifier string) string {
	runes := []rune(identifier)
	if len(runes) <= 4 {
		return "****"
	}
	return "****" + string(runes[len(runes)-4:])
}

func (s *Service) GetLinkedAccounts(ctx context.Context, principal entities.Principal) ([]entities.LinkedAccount, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := s.linked[principal]
	out := make([]entities.LinkedAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, *a)
	}
	return out, nil
}

// GetBalance reads the wallet under the ledger lock so an in-flight commit is never half visible
func (s *Service) GetBalance(ctx context.Context, principal entities.Principal) (*entities.Balance, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	w, err := s.wallets.GetWallet(ctx, principal)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	return &entities.Balance{
		Available: w.Balance,
		Held:      w.Held,
		Total:     w.Balance + w.Held,
	}, nil
}

// GetTransactionHistory returns transfers where the caller is sender or recipient, newest first
func (s *Service) GetTransactionHistory(ctx context.Context, principal entities.Principal) ([]entities.PaymentTransaction, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.PaymentTransaction, 0)
	for i := len(s.txOrder) - 1; i >= 0; i-- {
		tx := s.transactions[s.txOrder[i]]
		if tx.From == principal || tx.To == principal.String() {
			out = append(out, *tx)
		}
	}
	return out, nil
}

// GetTransaction returns one transfer visible to the caller
func (s *Service) GetTransaction(ctx context.Context, principal entities.Principal, txID string) (*entities.PaymentTransaction, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, ok := s.transactions[txID]
	if !ok || (tx.From != principal && tx.To != principal.String()) {
		return nil, apperrors.NewNotFoundError("transaction")
	}
	out := *tx
	return &out, nil
}
