package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gridpulse/internal/models"
)

// ErrNotLinked is returned when a vehicle has no current meter link.
var ErrNotLinked = errors.New("repository: vehicle is not linked to a meter")

// LinkRepository manages vehicle-to-meter associations.
type LinkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository returns the repository.
func NewLinkRepository(db *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: db}
}

// Get resolves the current link for a vehicle.
func (r *LinkRepository) Get(ctx context.Context, vehicleID string) (*models.VehicleMeterLink, error) {
	const query = `
		SELECT vehicle_id, meter_id, linked_at
		FROM vehicle_meter_links
		WHERE vehicle_id = $1
	`
	var link models.VehicleMeterLink
	err := r.db.QueryRow(ctx, query, vehicleID).Scan(&link.VehicleID, &link.MeterID, &link.LinkedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("link get: %w", err)
	}
	return &link, nil
}

// Put creates or moves the link for a vehicle. Both devices must already
// have current rows; the foreign keys enforce it.
func (r *LinkRepository) Put(ctx context.Context, vehicleID, meterID string) error {
	const query = `
		INSERT INTO vehicle_meter_links (vehicle_id, meter_id, linked_at)
		VALUES ($1, $2, now())
		ON CONFLICT (vehicle_id) DO UPDATE SET
			meter_id = EXCLUDED.meter_id,
			linked_at = now()
	`
	if _, err := r.db.Exec(ctx, query, vehicleID, meterID); err != nil {
		return fmt.Errorf("link put: %w", err)
	}
	return nil
}

// Delete removes the link for a vehicle if one exists.
func (r *LinkRepository) Delete(ctx context.Context, vehicleID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM vehicle_meter_links WHERE vehicle_id = $1`, vehicleID); err != nil {
		return fmt.Errorf("link delete: %w", err)
	}
	return nil
}
