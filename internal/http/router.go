package httpserver

import (
	"net/http"

	"gridpulse/internal/http/handlers"
	"gridpulse/internal/http/middleware"
)

// Routes groups the handlers the router mounts.
type Routes struct {
	Ingest       *handlers.IngestHandler
	BufferStatus *handlers.BufferStatusHandler
	Analytics    *handlers.AnalyticsHandler
	Health       *handlers.HealthHandler
}

// NewRouter mounts all endpoints. When jwtSecret is non-empty the analytics
// endpoints require a bearer token; ingestion stays open for devices.
func NewRouter(routes Routes, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/v1/telemetry", routes.Ingest)
	mux.HandleFunc("GET /api/v1/telemetry/buffer", routes.BufferStatus.Depths)
	mux.HandleFunc("GET /health", routes.Health.ServeHTTP)

	reads := http.NewServeMux()
	reads.HandleFunc("GET /api/v1/vehicles/{id}/status", routes.Analytics.VehicleStatus)
	reads.HandleFunc("GET /api/v1/meters/{id}/status", routes.Analytics.MeterStatus)
	reads.HandleFunc("GET /api/v1/vehicles/{id}/history", routes.Analytics.VehicleHistory)
	reads.HandleFunc("GET /api/v1/meters/{id}/history", routes.Analytics.MeterHistory)
	reads.HandleFunc("GET /api/v1/fleet/vehicles/summary", routes.Analytics.VehicleFleetSummary)
	reads.HandleFunc("GET /api/v1/fleet/meters/summary", routes.Analytics.MeterFleetSummary)
	reads.HandleFunc("GET /api/v1/fleet/vehicles/dashboard", routes.Analytics.VehicleDashboard)
	reads.HandleFunc("GET /api/v1/fleet/meters/dashboard", routes.Analytics.MeterDashboard)
	reads.HandleFunc("GET /api/v1/vehicles/{id}/performance", routes.Analytics.VehiclePerformance)
	reads.HandleFunc("PUT /api/v1/vehicles/{id}/link", routes.Analytics.PutLink)
	reads.HandleFunc("DELETE /api/v1/vehicles/{id}/link", routes.Analytics.DeleteLink)

	var readsHandler http.Handler = reads
	if jwtSecret != "" {
		readsHandler = middleware.Auth(jwtSecret)(reads)
	}
	mux.Handle("/api/v1/", readsHandler)

	return middleware.RequestID(mux)
}
