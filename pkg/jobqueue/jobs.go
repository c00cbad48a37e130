package jobqueue

import (
	"context"

	"github.com/cafe-connect/trust_ledger/internal/domain/entities"
	"github.com/cafe-connect/trust_ledger/pkg/metrics"
)

const StatsPublisherJobName = "publish_wallet_stats"

// StatsSource is satisfied by the stats aggregator
type StatsSource interface {
	Snapshot() entities.WalletStats
}

// StatsPublisherJob copies the platform counters into prometheus gauges
func StatsPublisherJob(schedule string, source StatsSource) ScheduledJob {
	return ScheduledJob{
		Name:     StatsPublisherJobName,
		Schedule: schedule,
		Handler: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			metrics.PublishWalletStats(source.Snapshot().Counters())
			return nil
		},
	}
}
