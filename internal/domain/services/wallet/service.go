// Package wallet owns wallet records and the reservation arena. Balance changes go
// through Hold/CommitHold/ReleaseHold and Credit so the ledger can suspend on an
// external call without another operation spending the same funds.
package wallet

import (
	"context"
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const (
	DefaultDailyLimit       uint64 = 1_000_000_000
	DefaultWarningThreshold uint64 = 500_000_000
	DefaultCoolingOffPeriod        = time.Hour

	MaxDailyLimit       uint64 = 100_000_000_000
	MaxCoolingOffPeriod        = 24 * time.Hour
	MaxNicknameLength          = 32
)

// TrustSource seeds a new wallet's trust score from the identity store
type TrustSource interface {
	TrustScore(principal entities.Principal) uint8
}

// StatsRecorder is notified after a wallet is stored
type StatsRecorder interface {
	RecordWalletCreated()
}

type Service struct {
	mu      sync.RWMutex
	wallets map[entities.Principal]*entities.Wallet
	holds   map[string]*entities.Reservation

	trust  TrustSource
	stats  StatsRecorder
	clock  clock.Clock
	logger *logger.Logger
}

func NewService(trust TrustSource, stats StatsRecorder, clk clock.Clock, log *logger.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{
		wallets: make(map[entities.Principal]*entities.Wallet),
		holds:   make(map[string]*entities.Reservation),
		trust:   trust,
		stats:   stats,
		clock:   clk,
		logger:  log,
	}
}

// CreateWallet creates the caller's wallet. A principal has at most one.
func (s *Service) CreateWallet(ctx context.Context, principal entities.Principal, nickname *string) (*entities.Wallet, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	if nickname != nil && utf8.RuneCountInString(*nickname) > MaxNicknameLength {
		return nil, apperrors.NewValidationErrorf("nickname must be at most %d characters", MaxNicknameLength)
	}

	s.mu.Lock()
	if _, exists := s.wallets[principal]; exists {
		s.mu.Unlock()
		return nil, apperrors.NewConflictError("wallet already exists")
	}
	w := s.newWalletLocked(principal, nickname)
	out := w.Clone()
	s.mu.Unlock()

	if s.stats != nil {
		s.stats.RecordWalletCreated()
	}
	s.logger.CtxInfo(ctx, "wallet created", "principal", principal, "trust_score", w.TrustScore)
	return out, nil
}

func (s *Service) newWalletLocked(principal entities.Principal, nickname *string) *entities.Wallet {
	now := s.clock.Now()
	trust := uint8(50)
	if s.trust != nil {
		trust = s.trust.TrustScore(principal)
	}
	var nick *string
	if nickname != nil {
		n := *nickname
		nick = &n
	}
	w := &entities.Wallet{
		Principal:    principal,
		Nickname:     nick,
		TrustScore:   trust,
		SafetyRating: entities.SafetySafe,
		SpendingPolicy: entities.SpendingPolicy{
			DailyLimit:           DefaultDailyLimit,
			WarningThreshold:     DefaultWarningThreshold,
			CoolingOffPeriod:     DefaultCoolingOffPeriod,
			EmotionalStateTotals: make(map[entities.EmotionalTag]uint64),
		},
		EmergencyContacts: []entities.Principal{},
		PrivacySettings:   entities.DefaultPrivacySettings(),
		CreatedAt:         now,
		LastActivity:      now,
	}
	s.wallets[principal] = w
	return w
}

func (s *Service) GetWallet(ctx context.Context, principal entities.Principal) (*entities.Wallet, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.wallets[principal]
	if !ok {
		return nil, apperrors.NewNotFoundError("wallet")
	}
	return w.Clone(), nil
}

// Exists reports whether principal has a wallet
func (s *Service) Exists(principal entities.Principal) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.wallets[principal]
	return ok
}

// UpdatePolicy validates every supplied field before applying any of them
func (s *Service) UpdatePolicy(ctx context.Context, principal entities.Principal, upd entities.PolicyUpdate) (*entities.Wallet, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[principal]
	if !ok {
		return nil, apperrors.NewNotFoundError("wallet")
	}

	if err := validatePolicyUpdate(w.SpendingPolicy, upd); err != nil {
		return nil, err
	}

	if upd.DailyLimit != nil {
		w.SpendingPolicy.DailyLimit = *upd.DailyLimit
	}
	if upd.WarningThreshold != nil {
		w.SpendingPolicy.WarningThreshold = *upd.WarningThreshold
	}
	if upd.CoolingOffPeriod != nil {
		w.SpendingPolicy.CoolingOffPeriod = *upd.CoolingOffPeriod
	}
	if upd.Nickname != nil {
		n := *upd.Nickname
		w.Nickname = &n
	}
	w.LastActivity = s.clock.Now()

	s.logger.CtxInfo(ctx, "spending policy updated",
		"principal", principal,
		"daily_limit", w.SpendingPolicy.DailyLimit,
		"warning_threshold", w.SpendingPolicy.WarningThreshold,
	)
	return w.Clone(), nil
}

func validatePolicyUpdate(current entities.SpendingPolicy, upd entities.PolicyUpdate) error {
	daily := current.DailyLimit
	if upd.DailyLimit != nil {
		if *upd.DailyLimit > MaxDailyLimit {
			return apperrors.NewValidationErrorf("daily limit cannot exceed %d", MaxDailyLimit)
		}
		daily = *upd.DailyLimit
	}
	warning := current.WarningThreshold
	if upd.WarningThreshold != nil {
		warning = *upd.WarningThreshold
	}
	if warning > daily {
		return apperrors.NewValidationError("warning threshold cannot exceed daily limit")
	}
	if upd.CoolingOffPeriod != nil && (*upd.CoolingOffPeriod < 0 || *upd.CoolingOffPeriod > MaxCoolingOffPeriod) {
		return apperrors.NewValidationErrorf("cooling off period must be between 0 and %s", MaxCoolingOffPeriod)
	}
	if upd.Nickname != nil && utf8.RuneCountInString(*upd.Nickname) > MaxNicknameLength {
		return apperrors.NewValidationErrorf("nickname must be at most %d characters", MaxNicknameLength)
	}
	return nil
}

func (s *Service) UpdatePrivacySettings(ctx context.Context, principal entities.Principal, settings entities.PrivacySettings) (*entities.Wallet, error) {
	if err := entities.RequireCaller(principal); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[principal]
	if !ok {
		return nil, apperrors.NewNotFoundError("wallet")
	}
	w.PrivacySettings = settings
	w.LastActivity = s.clock.Now()
	return w.Clone(), nil
}

// AddEmergencyContact adds contact to owner's set. Re-adding is a no-op.
func (s *Service) AddEmergencyContact(ctx context.Context, owner, contact entities.Principal) (*entities.Wallet, error) {
	if err := entities.RequireCaller(owner); err != nil {
		return nil, err
	}
	if contact.IsAnonymous() {
		return nil, apperrors.NewValidationError("emergency contact must be a real principal")
	}
	if contact == owner {
		return nil, apperrors.NewValidationError("cannot add yourself as an emergency contact")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[owner]
	if !ok {
		return nil, apperrors.NewNotFoundError("wallet")
	}
	if !w.HasEmergencyContact(contact) {
		w.EmergencyContacts = append(w.EmergencyContacts, contact)
		w.LastActivity = s.clock.Now()
		s.logger.CtxInfo(ctx, "emergency contact added", "principal", owner, "contact", contact)
	}
	return w.Clone(), nil
}

// Hold moves amount from available balance into a reservation keyed by txID
func (s *Service) Hold(ctx context.Context, principal entities.Principal, txID string, amount uint64) (*entities.Reservation, error) {
	if amount == 0 {
		return nil, apperrors.NewValidationError("amount must be greater than zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.holds[txID]; dup {
		return nil, apperrors.NewConflictError("reservation already exists for transaction")
	}
	w, ok := s.wallets[principal]
	if !ok {
		return nil, apperrors.NewNotFoundError("wallet")
	}
	if w.Balance < amount {
		return nil, apperrors.NewInsufficientFundsError(amount, w.Balance)
	}

	w.Balance -= amount
	w.Held += amount
	r := &entities.Reservation{
		TransactionID: txID,
		Principal:     principal,
		Amount:        amount,
		CreatedAt:     s.clock.Now(),
	}
	s.holds[txID] = r
	metrics.OpenReservationsGauge.Inc()

	s.logger.CtxInfo(ctx, "funds held", "principal", principal, "transaction_id", txID, "amount", amount)
	c := *r
	return &c, nil
}

// CommitHold makes a reservation's debit final
func (s *Service) CommitHold(ctx context.Context, txID string) (*entities.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, w, err := s.takeHoldLocked(txID)
	if err != nil {
		return nil, err
	}
	w.Held -= r.Amount
	w.LastActivity = s.clock.Now()

	s.logger.CtxInfo(ctx, "hold committed", "principal", r.Principal, "transaction_id", txID, "amount", r.Amount)
	return r, nil
}

// ReleaseHold returns a reservation's funds to the available balance
func (s *Service) ReleaseHold(ctx context.Context, txID string) (*entities.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, w, err := s.takeHoldLocked(txID)
	if err != nil {
		return nil, err
	}
	w.Held -= r.Amount
	w.Balance += r.Amount

	s.logger.CtxInfo(ctx, "hold released", "principal", r.Principal, "transaction_id", txID, "amount", r.Amount)
	return r, nil
}

func (s *Service) takeHoldLocked(txID string) (*entities.Reservation, *entities.Wallet, error) {
	r, ok := s.holds[txID]
	if !ok {
		return nil, nil, apperrors.NewNotFoundError("reservation")
	}
	w, ok := s.wallets[r.Principal]
	if !ok {
		return nil, nil, apperrors.NewInternalError("reservation references a missing wallet")
	}
	delete(s.holds, txID)
	metrics.OpenReservationsGauge.Dec()
	return r, w, nil
}

// OpenHolds returns the number of outstanding reservations
func (s *Service) OpenHolds() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.holds)
}

// Credit adds amount to an existing wallet
func (s *Service) Credit(ctx context.Context, principal entities.Principal, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[principal]
	if !ok {
		return apperrors.NewNotFoundError("wallet")
	}
	return s.creditLocked(w, amount)
}

// CreditOrCreate credits principal, creating a default wallet first when none exists.
// created reports whether a wallet was created.
func (s *Service) CreditOrCreate(ctx context.Context, principal entities.Principal, amount uint64) (created bool, err error) {
	s.mu.Lock()
	w, ok := s.wallets[principal]
	if !ok {
		w = s.newWalletLocked(principal, nil)
		created = true
	}
	err = s.creditLocked(w, amount)
	s.mu.Unlock()

	if created {
		if s.stats != nil {
			s.stats.RecordWalletCreated()
		}
		s.logger.CtxInfo(ctx, "wallet created on first receipt", "principal", principal)
	}
	return created, err
}

func (s *Service) creditLocked(w *entities.Wallet, amount uint64) error {
	if amount > math.MaxUint64-w.Balance-w.Held {
		return apperrors.NewValidationError("credit would overflow wallet balance")
	}
	w.Balance += amount
	w.LastActivity = s.clock.Now()
	return nil
}

// Mutate applies fn to principal's wallet under the store lock. It reports false
// when the principal has no wallet. fn must not change Balance or Held.
func (s *Service) Mutate(principal entities.Principal, fn func(w *entities.Wallet)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[principal]
	if !ok {
		return false
	}
	balance, held := w.Balance, w.Held
	fn(w)
	w.Balance, w.Held = balance, held
	return true
}
