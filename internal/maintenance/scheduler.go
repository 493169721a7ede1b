package maintenance

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const partitionInterval = 24 * time.Hour

// Scheduler drives the maintenance jobs on their own tickers until the
// context is cancelled.
type Scheduler struct {
	partitions      *PartitionManager
	rollups         *RollupJob
	rollupInterval  time.Duration
	refreshInterval time.Duration
	logger          *zap.Logger
}

// NewScheduler returns the scheduler.
func NewScheduler(partitions *PartitionManager, rollups *RollupJob, rollupInterval, refreshInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		partitions:      partitions,
		rollups:         rollups,
		rollupInterval:  rollupInterval,
		refreshInterval: refreshInterval,
		logger:          logger,
	}
}

// Run executes each job at its interval. Job failures are logged and
// retried at the next tick; they never stop the scheduler.
func (s *Scheduler) Run(ctx context.Context) error {
	rollupTicker := time.NewTicker(s.rollupInterval)
	defer rollupTicker.Stop()
	refreshTicker := time.NewTicker(s.refreshInterval)
	defer refreshTicker.Stop()
	partitionTicker := time.NewTicker(partitionInterval)
	defer partitionTicker.Stop()

	for {
		select {
		case <-rollupTicker.C:
			if err := s.rollups.RollupHourlyStats(ctx); err != nil {
				s.logger.Error("hourly rollup failed", zap.Error(err))
			}
		case <-refreshTicker.C:
			if err := s.rollups.RefreshPerformanceSummary(ctx); err != nil {
				s.logger.Error("performance summary refresh failed", zap.Error(err))
			}
		case <-partitionTicker.C:
			if err := s.partitions.EnsureUpcoming(ctx); err != nil {
				s.logger.Error("partition provisioning failed", zap.Error(err))
			}
			if err := s.partitions.DropExpired(ctx); err != nil {
				s.logger.Error("partition retention failed", zap.Error(err))
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
