// Package ledger moves money. Every balance change that spans an external call uses
// the two-phase protocol: funds are held (or the deposit reference claimed) before the
// call, and after it returns the hold is either committed or released. No store lock
// is held while an adapter runs.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	"github.com/cafe-connect/trust_ledger/pkg/idempotency"
	"github.com/cafe-connect/trust_ledger/pkg/logger"
)

// PaymentAdapter collects deposits from an external network. Implementations must be
// idempotent per ExternalRef.
type PaymentAdapter interface {
	Submit(ctx context.Context, req entities.DepositSubmission) (*entities.PaymentReceipt, error)
}

// SettlementAdapter confirms wallet-to-wallet transfers with the settlement network
type SettlementAdapter interface {
	Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error)
}

// WalletStore is the subset of the wallet service the ledger drives
type WalletStore interface {
	Exists(principal entities.Principal) bool
	GetWallet(ctx context.Context, principal entities.Principal) (*entities.Wallet, error)
	Hold(ctx context.Context, principal entities.Principal, txID string, amount uint64) (*entities.Reservation, error)
	CommitHold(ctx context.Context, txID string) (*entities.Reservation, error)
	ReleaseHold(ctx context.Context, txID string) (*entities.Reservation, error)
	Credit(ctx context.Context, principal entities.Principal, amount uint64) error
	CreditOrCreate(ctx context.Context, principal entities.Principal, amount uint64) (bool, error)
	Mutate(principal entities.Principal, fn func(w *entities.Wallet)) bool
}

// AlertRaiser appends safety alerts
type AlertRaiser interface {
	Raise(ctx context.Context, owner entities.Principal, alert entities.SafetyAlert) (*entities.SafetyAlert, error)
}

// CircleDirectory finds owners who granted member a permission in their inner circle
type CircleDirectory interface {
	OwnersGranting(member entities.Principal, perm entities.Permission) []entities.Principal
}

// StatsRecorder is notified after a spend has been committed
type StatsRecorder interface {
	RecordTransaction(scamPrevented bool)
}

type Config struct {
	// DefaultConversionRate is used only when a payment receipt carries no rate
	DefaultConversionRate decimal.Decimal
	// ClaimTTL bounds how long a deposit reference stays claimed in the shared store
	ClaimTTL time.Duration
	// DefaultHistoryLimit caps spending history when the caller gives no limit
	DefaultHistoryLimit int
	// LimitWindow is the rolling window used for daily limit checks
	LimitWindow time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultConversionRate: decimal.NewFromInt(100),
		ClaimTTL:              idempotency.DefaultTTL,
		DefaultHistoryLimit:   50,
		LimitWindow:           24 * time.Hour,
	}
}

// Dependencies groups the collaborators of the ledger
type Dependencies struct {
	Wallets    WalletStore
	Alerts     AlertRaiser
	Circles    CircleDirectory
	Stats      StatsRecorder
	Payments   PaymentAdapter
	Settlement SettlementAdapter
	Claims     idempotency.Store
	Clock      clock.Clock
	Logger     *logger.Logger
}

type Service struct {
	mu sync.RWMutex

	transactions   map[string]*entities.PaymentTransaction
	txOrder        []string
	deposits       map[string]*entities.DepositRequest
	depositByRef   map[string]string
	depositsByUser map[entities.Principal][]string
	spending       map[entities.Principal][]*entities.SpendingRecord
	linked         map[entities.Principal][]*entities.LinkedAccount

	wallets    WalletStore
	alerts     AlertRaiser
	circles    CircleDirectory
	stats      StatsRecorder
	payments   PaymentAdapter
	settlement SettlementAdapter
	claims     idempotency.Store
	clock      clock.Clock
	logger     *logger.Logger
	cfg        Config
}

func NewService(deps Dependencies, cfg Config) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Claims == nil {
		deps.Claims = idempotency.NewMemoryStore()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if !cfg.DefaultConversionRate.IsPositive() {
		cfg.DefaultConversionRate = DefaultConfig().DefaultConversionRate
	}
	if cfg.DefaultHistoryLimit <= 0 {
		cfg.DefaultHistoryLimit = DefaultConfig().DefaultHistoryLimit
	}
	if cfg.LimitWindow <= 0 {
		cfg.LimitWindow = DefaultConfig().LimitWindow
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = DefaultConfig().ClaimTTL
	}
	return &Service{
		transactions:   make(map[string]*entities.PaymentTransaction),
		deposits:       make(map[string]*entities.DepositRequest),
		depositByRef:   make(map[string]string),
		depositsByUser: make(map[entities.Principal][]string),
		spending:       make(map[entities.Principal][]*entities.SpendingRecord),
		linked:         make(map[entities.Principal][]*entities.LinkedAccount),
		wallets:        deps.Wallets,
		alerts:         deps.Alerts,
		circles:        deps.Circles,
		stats:          deps.Stats,
		payments:       deps.Payments,
		settlement:     deps.Settlement,
		claims:         deps.Claims,
		clock:          deps.Clock,
		logger:         deps.Logger,
		cfg:            cfg,
	}
}

// transition moves tx along the state machine; callers hold s.mu
func transition(current *entities.TransactionStatus, to entities.TransactionStatus) error {
	if !current.CanTransition(to) {
		return fmt.Errorf("illegal status transition %s -> %s", *current, to)
	}
	*current = to
	return nil
}

// callAdapter runs fn and turns a panic into an error so holds are always resolved
func callAdapter(ctx context.Context, fn func(context.Context) (*entities.PaymentReceipt, error)) (receipt *entities.PaymentReceipt, err error) {
	defer func() {
		if r := recover(); r != nil {
			receipt = nil
			err = fmt.Errorf("adapter panic: %v", r)
		}
	}()
	receipt, err = fn(ctx)
	if err == nil && receipt == nil {
		err = fmt.Errorf("adapter returned no receipt")
	}
	return receipt, err
}

func (s *Service) raise(ctx context.Context, owner entities.Principal, alert entities.SafetyAlert) {
	if s.alerts == nil {
		return
	}
	if _, err := s.alerts.Raise(ctx, owner, alert); err != nil {
		s.logger.CtxError(ctx, "failed to raise safety alert", "owner", owner, "type", alert.Type, "error", err)
	}
}
