package health

import (
	"encoding/json"
	"net/http"
)

// LivenessHandler always answers 200 with {"status":"alive"}. It checks no
// dependency: a broken sink must not get the process restarted.
func (h *Health) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	}
}

// ReadinessHandler answers 200 when every checker passes and 503 otherwise,
// with the per-checker results in the body.
func (h *Health) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := h.Check(r.Context())

		status := http.StatusOK
		if result.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	// Encode response (ignore error - if encoding fails, empty response is sent)
	_ = json.NewEncoder(w).Encode(body)
}
