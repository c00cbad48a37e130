package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cafe-connect/trust_ledger/pkg/clock"
)

func TestAggregatorCounts(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	clk.Step = time.Second
	agg := NewAggregator(clk)
	start := agg.Snapshot().LastUpdated

	agg.RecordWalletCreated()
	agg.RecordTransaction(false)
	agg.RecordTransaction(true)
	agg.RecordTrustConnection()
	agg.RecordAlert()

	s := agg.Snapshot()
	assert.Equal(t, uint64(1), s.TotalWallets)
	assert.Equal(t, uint64(2), s.TotalTransactions)
	assert.Equal(t, uint64(1), s.ScamsPrevented)
	assert.Equal(t, uint64(1), s.TotalTrustConnections)
	assert.Equal(t, uint64(1), s.TotalAlerts)
	assert.True(t, s.LastUpdated.After(start))
}

func TestAggregatorConcurrentIncrements(t *testing.T) {
	agg := NewAggregator(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			agg.RecordTransaction(true)
		}()
	}
	wg.Wait()

	s := agg.Snapshot()
	assert.Equal(t, uint64(50), s.TotalTransactions)
	assert.Equal(t, uint64(50), s.ScamsPrevented)
}

func TestSnapshotIsACopy(t *testing.T) {
	agg := NewAggregator(nil)
	snap := agg.Snapshot()
	snap.TotalWallets = 100

	assert.Equal(t, uint64(0), agg.Snapshot().TotalWallets)
}
