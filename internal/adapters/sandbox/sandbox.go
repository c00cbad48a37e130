// Package sandbox is an in-process payment network for local runs and tests. It
// accepts every request except references carrying the decline prefix.
package sandbox

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
	apperrors "github.com/cafe-connect/trust_ledger/pkg/errors"
)

// DeclinePrefix makes the sandbox reject a deposit ref or transaction id
const DeclinePrefix = "decline"

type Config struct {
	Rate    decimal.Decimal
	Latency time.Duration
}

type Network struct {
	config Config
	clock  clock.Clock
	logger *zap.Logger

	mu       sync.Mutex
	receipts map[string]*entities.PaymentReceipt
}

func New(config Config, clk clock.Clock, logger *zap.Logger) *Network {
	if clk == nil {
		clk = clock.System{}
	}
	return &Network{
		config:   config,
		clock:    clk,
		logger:   logger,
		receipts: make(map[string]*entities.PaymentReceipt),
	}
}

// Submit returns the same receipt for a repeated external reference
func (n *Network) Submit(ctx context.Context, req entities.DepositSubmission) (*entities.PaymentReceipt, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	if strings.HasPrefix(req.ExternalRef, DeclinePrefix) {
		return nil, apperrors.NewValidationErrorf("payment %s declined by sandbox", req.ExternalRef)
	}
	key := "deposit:" + string(req.Method) + ":" + req.ExternalRef
	return n.receipt(key, "sbx_pay_", req.Amount, n.config.Rate), nil
}

func (n *Network) Settle(ctx context.Context, req entities.SettlementRequest) (*entities.PaymentReceipt, error) {
	if err := n.wait(ctx); err != nil {
		return nil, err
	}
	if strings.HasPrefix(req.TransactionID, DeclinePrefix) {
		return nil, apperrors.NewValidationErrorf("settlement %s declined by sandbox", req.TransactionID)
	}
	return n.receipt("settle:"+req.TransactionID, "sbx_stl_", decimal.NewFromBigInt(new(big.Int).SetUint64(req.Amount), 0), decimal.Zero), nil
}

func (n *Network) receipt(key, prefix string, amount, rate decimal.Decimal) *entities.PaymentReceipt {
	n.mu.Lock()
	defer n.mu.Unlock()

	r, ok := n.receipts[key]
	if !ok {
		r = &entities.PaymentReceipt{
			ExternalID: prefix + uuid.NewString(),
			Amount:     amount,
			Rate:       rate,
			SettledAt:  n.clock.Now(),
		}
		n.receipts[key] = r
		if n.logger != nil {
			n.logger.Debug("sandbox receipt issued", zap.String("key", key), zap.String("external_id", r.ExternalID))
		}
	}
	out := *r
	return &out
}

func (n *Network) wait(ctx context.Context) error {
	if n.config.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(n.config.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
