// Package repository persists telemetry through pgx against the partitioned
// schema.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gridpulse/internal/models"
)

// VehicleRepository owns the vehicle write path: one transaction per batch,
// covering the append-only history insert and the latest-wins current
// upsert.
type VehicleRepository struct {
	db *pgxpool.Pool
}

// NewVehicleRepository returns the repository.
func NewVehicleRepository(db *pgxpool.Pool) *VehicleRepository {
	return &VehicleRepository{db: db}
}

// IngestBatch writes the batch atomically: every record becomes a history
// row and the current table reflects the newest recorded_at per vehicle, or
// nothing is written at all. An empty batch starts no transaction.
func (r *VehicleRepository) IngestBatch(ctx context.Context, batch []models.VehicleReading) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("vehicle batch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	historySQL := `
		INSERT INTO vehicle_readings (vehicle_id, soc, kwh_delivered_dc, battery_temp, recorded_at)
		VALUES ` + valuesClause(len(batch), 5)
	historyArgs := make([]interface{}, 0, len(batch)*5)
	for _, rec := range batch {
		historyArgs = append(historyArgs, rec.VehicleID, rec.Soc, rec.KwhDeliveredDc, rec.BatteryTemp, rec.RecordedAt)
	}
	if _, err := tx.Exec(ctx, historySQL, historyArgs...); err != nil {
		return fmt.Errorf("vehicle batch: history insert: %w", err)
	}

	latest := latestPerDevice(batch,
		func(r models.VehicleReading) string { return r.VehicleID },
		func(r models.VehicleReading) time.Time { return r.RecordedAt })

	currentSQL := `
		INSERT INTO vehicle_current (vehicle_id, soc, kwh_delivered_dc, battery_temp, last_seen_at)
		VALUES ` + valuesClause(len(latest), 5) + `
		ON CONFLICT (vehicle_id) DO UPDATE SET
			soc = EXCLUDED.soc,
			kwh_delivered_dc = EXCLUDED.kwh_delivered_dc,
			battery_temp = EXCLUDED.battery_temp,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = now()
		WHERE vehicle_current.last_seen_at < EXCLUDED.last_seen_at`
	currentArgs := make([]interface{}, 0, len(latest)*5)
	for _, rec := range latest {
		currentArgs = append(currentArgs, rec.VehicleID, rec.Soc, rec.KwhDeliveredDc, rec.BatteryTemp, rec.RecordedAt)
	}
	if _, err := tx.Exec(ctx, currentSQL, currentArgs...); err != nil {
		return fmt.Errorf("vehicle batch: current upsert: %w", err)
	}

	return tx.Commit(ctx)
}
