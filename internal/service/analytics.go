// Package service implements the read-side contracts on top of the
// repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridpulse/internal/models"
	"gridpulse/internal/repository"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
	performanceWindow   = 24 * time.Hour
)

// AnalyticsStore is the read surface the service needs from the analytics
// repository.
type AnalyticsStore interface {
	VehicleStatus(ctx context.Context, vehicleID string) (*models.VehicleCurrent, error)
	MeterStatus(ctx context.Context, meterID string) (*models.MeterCurrent, error)
	VehicleHistory(ctx context.Context, vehicleID string, from, to time.Time, limit int) ([]models.VehicleReading, error)
	MeterHistory(ctx context.Context, meterID string, from, to time.Time, limit int) ([]models.MeterReading, error)
	VehicleFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error)
	MeterFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error)
	SumVehicleDelivered(ctx context.Context, vehicleID string, from, to time.Time) (decimal.Decimal, error)
	SumMeterConsumed(ctx context.Context, meterID string, from, to time.Time) (decimal.Decimal, error)
	MaterializedPerformance(ctx context.Context, vehicleID string) (*models.VehiclePerformance, error)
}

// LinkStore resolves and manages vehicle-to-meter links.
type LinkStore interface {
	Get(ctx context.Context, vehicleID string) (*models.VehicleMeterLink, error)
	Put(ctx context.Context, vehicleID, meterID string) error
	Delete(ctx context.Context, vehicleID string) error
}

// AnalyticsService serves the five read contracts.
type AnalyticsService struct {
	store  AnalyticsStore
	links  LinkStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService returns the service.
func NewAnalyticsService(store AnalyticsStore, links LinkStore, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:  store,
		links:  links,
		logger: logger,
		now:    time.Now,
	}
}

// VehicleStatus returns the latest state, or nil for an unknown vehicle.
func (s *AnalyticsService) VehicleStatus(ctx context.Context, vehicleID string) (*models.VehicleCurrent, error) {
	return s.store.VehicleStatus(ctx, vehicleID)
}

// MeterStatus returns the latest state, or nil for an unknown meter.
func (s *AnalyticsService) MeterStatus(ctx context.Context, meterID string) (*models.MeterCurrent, error) {
	return s.store.MeterStatus(ctx, meterID)
}

// VehicleHistory returns readings in [from, to), newest first.
func (s *AnalyticsService) VehicleHistory(ctx context.Context, vehicleID string, from, to time.Time, limit int) ([]models.VehicleReading, error) {
	return s.store.VehicleHistory(ctx, vehicleID, from, to, clampLimit(limit))
}

// MeterHistory returns readings in [from, to), newest first.
func (s *AnalyticsService) MeterHistory(ctx context.Context, meterID string, from, to time.Time, limit int) ([]models.MeterReading, error) {
	return s.store.MeterHistory(ctx, meterID, from, to, clampLimit(limit))
}

// VehicleFleetSummary aggregates vehicle rollups per hour over [from, to).
func (s *AnalyticsService) VehicleFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error) {
	return s.store.VehicleFleetSummary(ctx, from, to)
}

// MeterFleetSummary aggregates meter rollups per hour over [from, to).
func (s *AnalyticsService) MeterFleetSummary(ctx context.Context, from, to time.Time) ([]models.FleetHourlySummary, error) {
	return s.store.MeterFleetSummary(ctx, from, to)
}

// VehicleDashboard24h returns the last-24h vehicle rollups.
func (s *AnalyticsService) VehicleDashboard24h(ctx context.Context) ([]models.FleetHourlySummary, error) {
	now := s.now().UTC()
	return s.store.VehicleFleetSummary(ctx, now.Add(-performanceWindow), now.Add(time.Hour))
}

// MeterDashboard24h returns the last-24h meter rollups.
func (s *AnalyticsService) MeterDashboard24h(ctx context.Context) ([]models.FleetHourlySummary, error) {
	now := s.now().UTC()
	return s.store.MeterFleetSummary(ctx, now.Add(-performanceWindow), now.Add(time.Hour))
}

// VehiclePerformance resolves the 24h charging performance for a linked
// vehicle. The materialized summary is preferred; live forces a recompute
// against the reading tables. repository.ErrNotLinked surfaces unchanged.
func (s *AnalyticsService) VehiclePerformance(ctx context.Context, vehicleID string, live bool) (*models.VehiclePerformance, error) {
	if !live {
		perf, err := s.store.MaterializedPerformance(ctx, vehicleID)
		if err == nil {
			return perf, nil
		}
		if !errors.Is(err, repository.ErrNotLinked) {
			return nil, err
		}
		// A link created after the last refresh is absent from the view;
		// fall through to the live computation before reporting not-found.
	}

	link, err := s.links.Get(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	from := now.Add(-performanceWindow)

	dc, err := s.store.SumVehicleDelivered(ctx, link.VehicleID, from, now)
	if err != nil {
		return nil, err
	}
	ac, err := s.store.SumMeterConsumed(ctx, link.MeterID, from, now)
	if err != nil {
		return nil, err
	}

	return &models.VehiclePerformance{
		VehicleID:      link.VehicleID,
		MeterID:        link.MeterID,
		KwhDeliveredDc: dc,
		KwhConsumedAc:  ac,
		EfficiencyPct:  Efficiency(dc, ac),
		ComputedAt:     now,
	}, nil
}

// Link associates a vehicle with the meter at its charging station.
func (s *AnalyticsService) Link(ctx context.Context, vehicleID, meterID string) error {
	if vehicleID == "" || meterID == "" {
		return fmt.Errorf("service: vehicle and meter ids required")
	}
	return s.links.Put(ctx, vehicleID, meterID)
}

// Unlink removes the vehicle's current link.
func (s *AnalyticsService) Unlink(ctx context.Context, vehicleID string) error {
	return s.links.Delete(ctx, vehicleID)
}

// Efficiency is 100 * dc / ac rounded to two places, and 0 when nothing was
// consumed.
func Efficiency(dc, ac decimal.Decimal) decimal.Decimal {
	if ac.IsZero() {
		return decimal.Zero
	}
	return dc.Mul(decimal.NewFromInt(100)).Div(ac).Round(2)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}
