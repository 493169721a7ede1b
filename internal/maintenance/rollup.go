package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// rollupLookback covers late flushes: every run recomputes the last few
// hour buckets, and the upsert makes that idempotent.
const rollupLookback = 3 * time.Hour

// RollupJob maintains the hourly stats tables and the materialized 24h
// performance summary.
type RollupJob struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewRollupJob returns the job.
func NewRollupJob(db *pgxpool.Pool, logger *zap.Logger) *RollupJob {
	return &RollupJob{db: db, logger: logger}
}

// RollupHourlyStats recomputes the recent hour buckets for both device
// classes from the cold store.
func (j *RollupJob) RollupHourlyStats(ctx context.Context) error {
	now := time.Now().UTC()
	from := now.Add(-rollupLookback).Truncate(time.Hour)

	const vehicleSQL = `
		INSERT INTO vehicle_hourly_stats
			(vehicle_id, hour_bucket, reading_count, kwh_delivered_dc, avg_soc, min_soc, max_soc, avg_battery_temp)
		SELECT vehicle_id,
		       date_trunc('hour', recorded_at),
		       COUNT(*),
		       SUM(kwh_delivered_dc),
		       round(AVG(soc), 2),
		       MIN(soc),
		       MAX(soc),
		       round(AVG(battery_temp), 2)
		FROM vehicle_readings
		WHERE recorded_at >= $1 AND recorded_at < $2
		GROUP BY vehicle_id, date_trunc('hour', recorded_at)
		ON CONFLICT (vehicle_id, hour_bucket) DO UPDATE SET
			reading_count = EXCLUDED.reading_count,
			kwh_delivered_dc = EXCLUDED.kwh_delivered_dc,
			avg_soc = EXCLUDED.avg_soc,
			min_soc = EXCLUDED.min_soc,
			max_soc = EXCLUDED.max_soc,
			avg_battery_temp = EXCLUDED.avg_battery_temp
	`
	if _, err := j.db.Exec(ctx, vehicleSQL, from, now); err != nil {
		return fmt.Errorf("maintenance: vehicle rollup: %w", err)
	}

	const meterSQL = `
		INSERT INTO meter_hourly_stats
			(meter_id, hour_bucket, reading_count, kwh_consumed_ac, avg_voltage, min_voltage, max_voltage)
		SELECT meter_id,
		       date_trunc('hour', recorded_at),
		       COUNT(*),
		       SUM(kwh_consumed_ac),
		       round(AVG(voltage), 2),
		       MIN(voltage),
		       MAX(voltage)
		FROM meter_readings
		WHERE recorded_at >= $1 AND recorded_at < $2
		GROUP BY meter_id, date_trunc('hour', recorded_at)
		ON CONFLICT (meter_id, hour_bucket) DO UPDATE SET
			reading_count = EXCLUDED.reading_count,
			kwh_consumed_ac = EXCLUDED.kwh_consumed_ac,
			avg_voltage = EXCLUDED.avg_voltage,
			min_voltage = EXCLUDED.min_voltage,
			max_voltage = EXCLUDED.max_voltage
	`
	if _, err := j.db.Exec(ctx, meterSQL, from, now); err != nil {
		return fmt.Errorf("maintenance: meter rollup: %w", err)
	}

	j.logger.Debug("hourly rollup complete",
		zap.Time("from", from), zap.Time("to", now))
	return nil
}

// RefreshPerformanceSummary rebuilds the materialized 24h view without
// blocking readers.
func (j *RollupJob) RefreshPerformanceSummary(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY vehicle_performance_24h`); err != nil {
		return fmt.Errorf("maintenance: refresh performance summary: %w", err)
	}
	return nil
}
