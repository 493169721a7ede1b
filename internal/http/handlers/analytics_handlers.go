package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"gridpulse/internal/repository"
	"gridpulse/internal/service"
)

// AnalyticsHandler serves the read contracts.
type AnalyticsHandler struct {
	service *service.AnalyticsService
	logger  *zap.Logger
}

// NewAnalyticsHandler returns the handler.
func NewAnalyticsHandler(service *service.AnalyticsService, logger *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, logger: logger}
}

// VehicleStatus handles GET /api/v1/vehicles/{id}/status. Unknown devices
// answer null so dashboards stay stable.
func (h *AnalyticsHandler) VehicleStatus(w http.ResponseWriter, r *http.Request) {
	cur, err := h.service.VehicleStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "vehicle status", err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

// MeterStatus handles GET /api/v1/meters/{id}/status.
func (h *AnalyticsHandler) MeterStatus(w http.ResponseWriter, r *http.Request) {
	cur, err := h.service.MeterStatus(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, "meter status", err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

// VehicleHistory handles GET /api/v1/vehicles/{id}/history?from&to&limit.
func (h *AnalyticsHandler) VehicleHistory(w http.ResponseWriter, r *http.Request) {
	from, to, ok := timeRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required RFC 3339 instants")
		return
	}
	readings, err := h.service.VehicleHistory(r.Context(), r.PathValue("id"), from, to, limitParam(r))
	if err != nil {
		h.fail(w, "vehicle history", err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// MeterHistory handles GET /api/v1/meters/{id}/history?from&to&limit.
func (h *AnalyticsHandler) MeterHistory(w http.ResponseWriter, r *http.Request) {
	from, to, ok := timeRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required RFC 3339 instants")
		return
	}
	readings, err := h.service.MeterHistory(r.Context(), r.PathValue("id"), from, to, limitParam(r))
	if err != nil {
		h.fail(w, "meter history", err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// VehicleFleetSummary handles GET /api/v1/fleet/vehicles/summary?from&to.
func (h *AnalyticsHandler) VehicleFleetSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := timeRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required RFC 3339 instants")
		return
	}
	rows, err := h.service.VehicleFleetSummary(r.Context(), from, to)
	if err != nil {
		h.fail(w, "vehicle fleet summary", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// MeterFleetSummary handles GET /api/v1/fleet/meters/summary?from&to.
func (h *AnalyticsHandler) MeterFleetSummary(w http.ResponseWriter, r *http.Request) {
	from, to, ok := timeRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required RFC 3339 instants")
		return
	}
	rows, err := h.service.MeterFleetSummary(r.Context(), from, to)
	if err != nil {
		h.fail(w, "meter fleet summary", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// VehicleDashboard handles GET /api/v1/fleet/vehicles/dashboard.
func (h *AnalyticsHandler) VehicleDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.VehicleDashboard24h(r.Context())
	if err != nil {
		h.fail(w, "vehicle dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// MeterDashboard handles GET /api/v1/fleet/meters/dashboard.
func (h *AnalyticsHandler) MeterDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.MeterDashboard24h(r.Context())
	if err != nil {
		h.fail(w, "meter dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// VehiclePerformance handles GET /api/v1/vehicles/{id}/performance.
// source=live forces a recompute against the reading tables instead of the
// materialized summary. Unlinked vehicles answer 404.
func (h *AnalyticsHandler) VehiclePerformance(w http.ResponseWriter, r *http.Request) {
	live := r.URL.Query().Get("source") == "live"
	perf, err := h.service.VehiclePerformance(r.Context(), r.PathValue("id"), live)
	if errors.Is(err, repository.ErrNotLinked) {
		writeError(w, http.StatusNotFound, "vehicle is not linked to a meter")
		return
	}
	if err != nil {
		h.fail(w, "vehicle performance", err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

type linkRequest struct {
	MeterID string `json:"meter_id"`
}

// PutLink handles PUT /api/v1/vehicles/{id}/link.
func (h *AnalyticsHandler) PutLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MeterID == "" {
		writeError(w, http.StatusBadRequest, "meter_id is required")
		return
	}
	if err := h.service.Link(r.Context(), r.PathValue("id"), req.MeterID); err != nil {
		h.fail(w, "link vehicle", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// DeleteLink handles DELETE /api/v1/vehicles/{id}/link.
func (h *AnalyticsHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Unlink(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, "unlink vehicle", err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *AnalyticsHandler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error("analytics query failed", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusInternalServerError, "query failed")
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
