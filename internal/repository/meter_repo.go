package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"gridpulse/internal/models"
)

// MeterRepository owns the meter write path. The shape mirrors the vehicle
// repository; the two device classes stay separate on purpose because their
// schemas differ.
type MeterRepository struct {
	db *pgxpool.Pool
}

// NewMeterRepository returns the repository.
func NewMeterRepository(db *pgxpool.Pool) *MeterRepository {
	return &MeterRepository{db: db}
}

// IngestBatch writes the batch atomically into meter_readings and
// meter_current. An empty batch starts no transaction.
func (r *MeterRepository) IngestBatch(ctx context.Context, batch []models.MeterReading) error {
	if len(batch) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("meter batch: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	historySQL := `
		INSERT INTO meter_readings (meter_id, kwh_consumed_ac, voltage, recorded_at)
		VALUES ` + valuesClause(len(batch), 4)
	historyArgs := make([]interface{}, 0, len(batch)*4)
	for _, rec := range batch {
		historyArgs = append(historyArgs, rec.MeterID, rec.KwhConsumedAc, rec.Voltage, rec.RecordedAt)
	}
	if _, err := tx.Exec(ctx, historySQL, historyArgs...); err != nil {
		return fmt.Errorf("meter batch: history insert: %w", err)
	}

	latest := latestPerDevice(batch,
		func(r models.MeterReading) string { return r.MeterID },
		func(r models.MeterReading) time.Time { return r.RecordedAt })

	currentSQL := `
		INSERT INTO meter_current (meter_id, kwh_consumed_ac, voltage, last_seen_at)
		VALUES ` + valuesClause(len(latest), 4) + `
		ON CONFLICT (meter_id) DO UPDATE SET
			kwh_consumed_ac = EXCLUDED.kwh_consumed_ac,
			voltage = EXCLUDED.voltage,
			last_seen_at = EXCLUDED.last_seen_at,
			updated_at = now()
		WHERE meter_current.last_seen_at < EXCLUDED.last_seen_at`
	currentArgs := make([]interface{}, 0, len(latest)*4)
	for _, rec := range latest {
		currentArgs = append(currentArgs, rec.MeterID, rec.KwhConsumedAc, rec.Voltage, rec.RecordedAt)
	}
	if _, err := tx.Exec(ctx, currentSQL, currentArgs...); err != nil {
		return fmt.Errorf("meter batch: current upsert: %w", err)
	}

	return tx.Commit(ctx)
}
