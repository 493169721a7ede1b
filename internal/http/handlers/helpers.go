// Package handlers implements the HTTP endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// timeRange extracts the mandatory from/to query parameters. History and
// summary queries without a bounded range are rejected so partition pruning
// stays effective.
func timeRange(r *http.Request) (from, to time.Time, ok bool) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, false
	}
	from, err := time.Parse(time.RFC3339, fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err = time.Parse(time.RFC3339, toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
