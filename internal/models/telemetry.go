// Package models defines the persisted telemetry entities.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleReading is one telemetry sample from one vehicle.
type VehicleReading struct {
	ID             int64           `db:"id" json:"id"`
	VehicleID      string          `db:"vehicle_id" json:"vehicle_id"`
	Soc            decimal.Decimal `db:"soc" json:"soc"`
	KwhDeliveredDc decimal.Decimal `db:"kwh_delivered_dc" json:"kwh_delivered_dc"`
	BatteryTemp    decimal.Decimal `db:"battery_temp" json:"battery_temp"`
	RecordedAt     time.Time       `db:"recorded_at" json:"recorded_at"`
	IngestedAt     time.Time       `db:"ingested_at" json:"ingested_at"`
}

// MeterReading is one telemetry sample from one smart meter.
type MeterReading struct {
	ID            int64           `db:"id" json:"id"`
	MeterID       string          `db:"meter_id" json:"meter_id"`
	KwhConsumedAc decimal.Decimal `db:"kwh_consumed_ac" json:"kwh_consumed_ac"`
	Voltage       decimal.Decimal `db:"voltage" json:"voltage"`
	RecordedAt    time.Time       `db:"recorded_at" json:"recorded_at"`
	IngestedAt    time.Time       `db:"ingested_at" json:"ingested_at"`
}

// VehicleCurrent is the latest persisted state of one vehicle. LastSeenAt is
// the greatest recorded_at ever written for the vehicle.
type VehicleCurrent struct {
	VehicleID      string          `db:"vehicle_id" json:"vehicle_id"`
	Soc            decimal.Decimal `db:"soc" json:"soc"`
	KwhDeliveredDc decimal.Decimal `db:"kwh_delivered_dc" json:"kwh_delivered_dc"`
	BatteryTemp    decimal.Decimal `db:"battery_temp" json:"battery_temp"`
	LastSeenAt     time.Time       `db:"last_seen_at" json:"last_seen_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// MeterCurrent is the latest persisted state of one meter.
type MeterCurrent struct {
	MeterID       string          `db:"meter_id" json:"meter_id"`
	KwhConsumedAc decimal.Decimal `db:"kwh_consumed_ac" json:"kwh_consumed_ac"`
	Voltage       decimal.Decimal `db:"voltage" json:"voltage"`
	LastSeenAt    time.Time       `db:"last_seen_at" json:"last_seen_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// VehicleMeterLink associates a vehicle with the meter at its charging
// station. A vehicle has at most one link.
type VehicleMeterLink struct {
	VehicleID string    `db:"vehicle_id" json:"vehicle_id"`
	MeterID   string    `db:"meter_id" json:"meter_id"`
	LinkedAt  time.Time `db:"linked_at" json:"linked_at"`
}
