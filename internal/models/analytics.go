package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// VehicleHourlyStats is one per-vehicle per-hour rollup row.
type VehicleHourlyStats struct {
	VehicleID      string          `db:"vehicle_id" json:"vehicle_id"`
	HourBucket     time.Time       `db:"hour_bucket" json:"hour_bucket"`
	ReadingCount   int64           `db:"reading_count" json:"reading_count"`
	KwhDeliveredDc decimal.Decimal `db:"kwh_delivered_dc" json:"kwh_delivered_dc"`
	AvgSoc         decimal.Decimal `db:"avg_soc" json:"avg_soc"`
	MinSoc         decimal.Decimal `db:"min_soc" json:"min_soc"`
	MaxSoc         decimal.Decimal `db:"max_soc" json:"max_soc"`
	AvgBatteryTemp decimal.Decimal `db:"avg_battery_temp" json:"avg_battery_temp"`
}

// MeterHourlyStats is one per-meter per-hour rollup row.
type MeterHourlyStats struct {
	MeterID       string          `db:"meter_id" json:"meter_id"`
	HourBucket    time.Time       `db:"hour_bucket" json:"hour_bucket"`
	ReadingCount  int64           `db:"reading_count" json:"reading_count"`
	KwhConsumedAc decimal.Decimal `db:"kwh_consumed_ac" json:"kwh_consumed_ac"`
	AvgVoltage    decimal.Decimal `db:"avg_voltage" json:"avg_voltage"`
	MinVoltage    decimal.Decimal `db:"min_voltage" json:"min_voltage"`
	MaxVoltage    decimal.Decimal `db:"max_voltage" json:"max_voltage"`
}

// FleetHourlySummary is one hour of fleet-wide aggregates for one device
// class.
type FleetHourlySummary struct {
	HourBucket   time.Time       `db:"hour_bucket" json:"hour_bucket"`
	DeviceCount  int64           `db:"device_count" json:"device_count"`
	ReadingCount int64           `db:"reading_count" json:"reading_count"`
	TotalKwh     decimal.Decimal `db:"total_kwh" json:"total_kwh"`
}

// VehiclePerformance is the 24h charging performance of one linked vehicle.
type VehiclePerformance struct {
	VehicleID      string          `json:"vehicle_id"`
	MeterID        string          `json:"meter_id"`
	KwhDeliveredDc decimal.Decimal `json:"kwh_delivered_dc"`
	KwhConsumedAc  decimal.Decimal `json:"kwh_consumed_ac"`
	EfficiencyPct  decimal.Decimal `json:"efficiency_pct"`
	ComputedAt     time.Time       `json:"computed_at"`
}
