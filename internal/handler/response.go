package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/andres10976/slotwatch/internal/service/marketplace"
	"github.com/andres10976/slotwatch/internal/service/monitor"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeValidationError(w http.ResponseWriter, verr *monitor.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":   "configuration is incomplete",
		"reasons": verr.Reasons,
	})
}

// writeUpstreamError maps a marketplace failure to a gateway status.
func writeUpstreamError(w http.ResponseWriter, err error, what string) {
	switch {
	case errors.Is(err, marketplace.ErrRateLimited), errors.Is(err, marketplace.ErrRateLimitExhausted):
		writeError(w, http.StatusTooManyRequests, what+": marketplace rate limit")
	case errors.Is(err, marketplace.ErrNotFound):
		writeError(w, http.StatusNotFound, what+": not found")
	default:
		writeError(w, http.StatusBadGateway, what+": marketplace unavailable")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
