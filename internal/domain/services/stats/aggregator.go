// Package stats keeps platform-wide counters. Callers record an event only after
// the state change it describes has been committed.
package stats

import (
	"sync"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/clock"
)

type Aggregator struct {
	mu    sync.Mutex
	stats entities.WalletStats
	clock clock.Clock
}

func NewAggregator(clk clock.Clock) *Aggregator {
	if clk == nil {
		clk = clock.System{}
	}
	return &Aggregator{
		clock: clk,
		stats: entities.WalletStats{LastUpdated: clk.Now()},
	}
}

func (a *Aggregator) RecordWalletCreated() {
	a.update(func(s *entities.WalletStats) { s.TotalWallets++ })
}

// RecordTransaction counts a committed spend or transfer; scamPrevented marks a high-risk flagged one
func (a *Aggregator) RecordTransaction(scamPrevented bool) {
	a.update(func(s *entities.WalletStats) {
		s.TotalTransactions++
		if scamPrevented {
			s.ScamsPrevented++
		}
	})
}

func (a *Aggregator) RecordTrustConnection() {
	a.update(func(s *entities.WalletStats) { s.TotalTrustConnections++ })
}

func (a *Aggregator) RecordAlert() {
	a.update(func(s *entities.WalletStats) { s.TotalAlerts++ })
}

// Snapshot returns a copy of the current counters
func (a *Aggregator) Snapshot() entities.WalletStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

func (a *Aggregator) update(fn func(*entities.WalletStats)) {
	a.mu.Lock()
	fn(&a.stats)
	now := a.clock.Now()
	if now.After(a.stats.LastUpdated) {
		a.stats.LastUpdated = now
	}
	a.mu.Unlock()
}
