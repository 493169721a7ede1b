package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"gridpulse/internal/models"
)

// AnalyticsRepository serves the read contracts: point lookups against the
// current tables, time-ranged scans against the reading partitions, and
// rollup aggregations.
type AnalyticsRepository struct {
	db *pgxpool.Pool
}

// NewAnalyticsRepository returns the repository.
func NewAnalyticsRepository(db *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// VehicleStatus is a primary-key point lookup. Unknown devices yield
// (nil, nil) so dashboards see null rather than an error.
func (r *AnalyticsRepository) VehicleStatus(ctx context.Context, vehicleID string) (*models.VehicleCurrent, error) {
	const query = `
		SELECT vehicle_id, soc, kwh_delivered_dc, battery_temp, last_seen_at, updated_at
		FROM vehicle_current
		WHERE vehicle_id = $1
	`
	var cur models.VehicleCurrent
	err := r.db.QueryRow(ctx, query, vehicleID).Scan(
		&cur.VehicleID, &cur.Soc, &cur.KwhDeliveredDc, &cur.BatteryTemp, &cur.LastSeenAt, &cur.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vehicle status: %w", err)
	}
	return &cur, nil
}

// MeterStatus is the meter counterpart of VehicleStatus.
func (r *AnalyticsRepository) MeterStatus(ctx context.Context, meterID string) (*models.MeterCurrent, error) {
	const query = `
		SELECT meter_id, kwh_consumed_ac, voltage, last_seen_at, updated_at
		FROM meter_current
		WHERE meter_id = $1
	`
	var cur models.MeterCurrent
	err := r.db.QueryRow(ctx, query, meterID).Scan(
		&cur.MeterID, &cur.KwhConsumedAc, &cur.Voltage, &cur.LastSeenAt, &cur.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("meter status: %w", err)
	}
	return &cur, nil
}

// VehicleHistory scans the reading partitions for one vehicle within
// [from, to), newest first. The bounded range keeps partition pruning
// effective; callers must not pass an open range.
func (r *AnalyticsRepository) VehicleHistory(ctx context.Context, vehicleID string, from, to time.Time, limit int) ([]models.VehicleReading, error) {
	const query = `
		SELECT id, vehicle_id, soc, kwh_delivered_dc, battery_temp, recorded_at, ingested_at
		FROM vehicle_readings
		WHERE vehicle_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, vehicleID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("vehicle history: %w", err)
	}
	defer rows.Close()

	out := make([]models.VehicleReading, 0)
	for rows.Next() {
		var rec models.VehicleReading
		if err := rows.Scan(&rec.ID, &rec.VehicleID, &rec.Soc, &rec.KwhDeliveredDc,
			&rec.BatteryTemp, &rec.RecordedAt, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("vehicle history scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MeterHistory is the meter counterpart of VehicleHistory.
func (r *AnalyticsRepository) MeterHistory(ctx context.Context, meterID string, from, to time.Time, limit int) ([]models.MeterReading, error) {
	const query = `
		SELECT id, meter_id, kwh_consumed_ac, voltage, recorded_at, ingested_at
		FROM meter_readings
		WHERE meter_id = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at DESC
		LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, meterID, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("meter history: %w", err)
	}
	defer rows.Close()

	out := make([]models.MeterReading, 0)
	for rows.Next() {
		var rec models.MeterReading
		if err := rows.Scan(&rec.ID, &rec.MeterID, &rec.KwhConsumedAc, &rec.Voltage,
			&rec.RecordedAt, &rec.IngestedAt); err != nil {
			return nil, fmt.Errorf("meter history scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// VehicleFleetSummary aggregates the vehicle rollup table per hour over
// [from, to).
func (r *AnalyticsRepository) VehicleFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error) {
	const query = `
		SELECT hour_bucket, COUNT(DISTINCT vehicle_id), SUM(reading_count)::bigint, SUM(kwh_delivered_dc)
		FROM vehicle_hourly_stats
		WHERE hour_bucket >= $1 AND hour_bucket < $2
		GROUP BY hour_bucket
		ORDER BY hour_bucket
	`
	return r.fleetSummary(ctx, query, from, to)
}

// MeterFleetSummary aggregates the meter rollup table per hour over
// [from, to).
func (r *AnalyticsRepository) MeterFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error) {
	const query = `
		SELECT hour_bucket, COUNT(DISTINCT meter_id), SUM(reading_count)::bigint, SUM(kwh_consumed_ac)
		FROM meter_hourly_stats
		WHERE hour_bucket >= $1 AND hour_bucket < $2
		GROUP BY hour_bucket
		ORDER BY hour_bucket
	`
	return r.fleetSummary(ctx, query, from, to)
}

func (r *AnalyticsRepository) fleetSummary(ctx context.Context, query string, from, to time.Time) ([]models.FleetHourlySummary, error) {
	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("fleet summary: %w", err)
	}
	defer rows.Close()

	out := make([]models.FleetHourlySummary, 0)
	for rows.Next() {
		var row models.FleetHourlySummary
		if err := rows.Scan(&row.HourBucket, &row.DeviceCount, &row.ReadingCount, &row.TotalKwh); err != nil {
			return nil, fmt.Errorf("fleet summary scan: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SumVehicleDelivered totals kwh_delivered_dc for one vehicle over
// [from, to).
func (r *AnalyticsRepository) SumVehicleDelivered(ctx context.Context, vehicleID string, from, to time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(kwh_delivered_dc), 0)
		FROM vehicle_readings
		WHERE vehicle_id = $1 AND recorded_at >= $2 AND recorded_at < $3
	`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, vehicleID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum vehicle delivered: %w", err)
	}
	return total, nil
}

// SumMeterConsumed totals kwh_consumed_ac for one meter over [from, to).
func (r *AnalyticsRepository) SumMeterConsumed(ctx context.Context, meterID string, from, to time.Time) (decimal.Decimal, error) {
	const query = `
		SELECT COALESCE(SUM(kwh_consumed_ac), 0)
		FROM meter_readings
		WHERE meter_id = $1 AND recorded_at >= $2 AND recorded_at < $3
	`
	var total decimal.Decimal
	if err := r.db.QueryRow(ctx, query, meterID, from, to).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum meter consumed: %w", err)
	}
	return total, nil
}

// MaterializedPerformance reads the 15-minute summary for one vehicle.
// ErrNotLinked when the vehicle is absent from the view.
func (r *AnalyticsRepository) MaterializedPerformance(ctx context.Context, vehicleID string) (*models.VehiclePerformance, error) {
	const query = `
		SELECT vehicle_id, meter_id, kwh_delivered_dc, kwh_consumed_ac, efficiency_pct, computed_at
		FROM vehicle_performance_24h
		WHERE vehicle_id = $1
	`
	var perf models.VehiclePerformance
	err := r.db.QueryRow(ctx, query, vehicleID).Scan(
		&perf.VehicleID, &perf.MeterID, &perf.KwhDeliveredDc, &perf.KwhConsumedAc,
		&perf.EfficiencyPct, &perf.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("materialized performance: %w", err)
	}
	return &perf, nil
}
