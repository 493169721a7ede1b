package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"gridpulse/internal/models"
	"gridpulse/internal/repository"
	"gridpulse/internal/service"
)

type stubStore struct {
	service.AnalyticsStore
	vehicleCurrent *models.VehicleCurrent
	history        []models.VehicleReading
	historyFrom    time.Time
	historyTo      time.Time
	historyLimit   int
	materialized   *models.VehiclePerformance
}

func (s *stubStore) VehicleStatus(_ context.Context, _ string) (*models.VehicleCurrent, error) {
	return s.vehicleCurrent, nil
}

func (s *stubStore) VehicleHistory(_ context.Context, _ string, from, to time.Time, limit int) ([]models.VehicleReading, error) {
	s.historyFrom, s.historyTo, s.historyLimit = from, to, limit
	return s.history, nil
}

func (s *stubStore) MaterializedPerformance(_ context.Context, _ string) (*models.VehiclePerformance, error) {
	if s.materialized == nil {
		return nil, repository.ErrNotLinked
	}
	return s.materialized, nil
}

type stubLinks struct{}

func (stubLinks) Get(_ context.Context, _ string) (*models.VehicleMeterLink, error) {
	return nil, repository.ErrNotLinked
}
func (stubLinks) Put(_ context.Context, _, _ string) error { return nil }
func (stubLinks) Delete(_ context.Context, _ string) error { return nil }

func newAnalyticsHandler(store *stubStore) *AnalyticsHandler {
	svc := service.NewAnalyticsService(store, stubLinks{}, zap.NewNop())
	return NewAnalyticsHandler(svc, zap.NewNop())
}

func getWithID(h http.HandlerFunc, pattern, url string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestVehicleStatusUnknownDeviceReturnsNull(t *testing.T) {
	h := newAnalyticsHandler(&stubStore{})

	rec := getWithID(h.VehicleStatus, "GET /api/v1/vehicles/{id}/status", "/api/v1/vehicles/V404/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null\n", rec.Body.String())
}

func TestVehicleStatusKnownDevice(t *testing.T) {
	h := newAnalyticsHandler(&stubStore{vehicleCurrent: &models.VehicleCurrent{
		VehicleID:  "V001",
		Soc:        decimal.RequireFromString("80.5"),
		LastSeenAt: time.Date(2026, 8, 6, 10, 0, 30, 0, time.UTC),
	}})

	rec := getWithID(h.VehicleStatus, "GET /api/v1/vehicles/{id}/status", "/api/v1/vehicles/V001/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"V001"`)
	assert.Contains(t, rec.Body.String(), `"80.5"`)
}

func TestVehicleHistoryRequiresTimeRange(t *testing.T) {
	h := newAnalyticsHandler(&stubStore{})

	rec := getWithID(h.VehicleHistory, "GET /api/v1/vehicles/{id}/history", "/api/v1/vehicles/V001/history")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getWithID(h.VehicleHistory, "GET /api/v1/vehicles/{id}/history",
		"/api/v1/vehicles/V001/history?from=2026-08-06T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getWithID(h.VehicleHistory, "GET /api/v1/vehicles/{id}/history",
		"/api/v1/vehicles/V001/history?from=notatime&to=2026-08-06T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVehicleHistoryEmptyWindowIsEmptyListNot404(t *testing.T) {
	store := &stubStore{history: []models.VehicleReading{}}
	h := newAnalyticsHandler(store)

	rec := getWithID(h.VehicleHistory, "GET /api/v1/vehicles/{id}/history",
		"/api/v1/vehicles/V001/history?from=2026-08-06T00:00:00Z&to=2026-08-06T00:00:00Z")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestVehicleHistoryPassesRangeAndLimit(t *testing.T) {
	store := &stubStore{}
	h := newAnalyticsHandler(store)

	getWithID(h.VehicleHistory, "GET /api/v1/vehicles/{id}/history",
		"/api/v1/vehicles/V001/history?from=2026-08-01T00:00:00Z&to=2026-08-06T00:00:00Z&limit=25")

	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), store.historyFrom)
	assert.Equal(t, time.Date(2026, 8, 6, 0, 0, 0, 0, time.UTC), store.historyTo)
	assert.Equal(t, 25, store.historyLimit)
}

func TestVehiclePerformanceUnlinkedReturns404(t *testing.T) {
	h := newAnalyticsHandler(&stubStore{})

	rec := getWithID(h.VehiclePerformance, "GET /api/v1/vehicles/{id}/performance",
		"/api/v1/vehicles/V404/performance")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVehiclePerformanceFromMaterializedSummary(t *testing.T) {
	h := newAnalyticsHandler(&stubStore{materialized: &models.VehiclePerformance{
		VehicleID:     "V001",
		MeterID:       "M001",
		EfficiencyPct: decimal.RequireFromString("91.25"),
	}})

	rec := getWithID(h.VehiclePerformance, "GET /api/v1/vehicles/{id}/performance",
		"/api/v1/vehicles/V001/performance")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"91.25"`)
}
