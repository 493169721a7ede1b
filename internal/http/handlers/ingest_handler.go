package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gridpulse/internal/ingest"
)

const maxBodyBytes = 1 << 20

// IngestHandler accepts telemetry envelopes. A 202 means staged for the
// write path, not persisted.
type IngestHandler struct {
	service *ingest.Service
	logger  *zap.Logger
}

// NewIngestHandler returns the handler.
func NewIngestHandler(service *ingest.Service, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{service: service, logger: logger}
}

// ServeHTTP handles POST /api/v1/telemetry.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	env, err := ingest.DecodeEnvelope(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload exceeds 1 MiB")
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"errors": []ingest.FieldError{{Field: "body", Message: err.Error()}},
		})
		return
	}

	result, err := h.service.Accept(r.Context(), env)
	switch {
	case errors.Is(err, ingest.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "device rate limit exceeded")
	case err != nil:
		writeValidationError(w, err)
	default:
		writeJSON(w, http.StatusAccepted, result)
	}
}

func writeValidationError(w http.ResponseWriter, err error) {
	var vErr *ingest.ValidationError
	if errors.As(err, &vErr) {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": vErr.Fields})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
