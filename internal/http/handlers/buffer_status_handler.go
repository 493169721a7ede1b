package handlers

import (
	"net/http"

	"gridpulse/internal/ingest"
)

// BufferStatusHandler exposes per-class buffer depth, the operator's
// backpressure signal.
type BufferStatusHandler struct {
	pipeline *ingest.Pipeline
}

// NewBufferStatusHandler returns the handler.
func NewBufferStatusHandler(pipeline *ingest.Pipeline) *BufferStatusHandler {
	return &BufferStatusHandler{pipeline: pipeline}
}

// Depths handles GET /api/v1/telemetry/buffer.
func (h *BufferStatusHandler) Depths(w http.ResponseWriter, _ *http.Request) {
	vehicles, meters := h.pipeline.Depths()
	writeJSON(w, http.StatusOK, map[string]int{
		"vehicles": vehicles,
		"meters":   meters,
	})
}
