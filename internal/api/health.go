package api

import (
	"context"
	"net/http"
)

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status    string `json:"status"`
	Fragments int    `json:"fragments"`
	LLMReady  bool   `json:"llm_ready"`
}

// HealthFunc gathers the readiness report; the wiring layer supplies
// one that checks the store and the model key.
type HealthFunc func(ctx context.Context) HealthStatus

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, HealthStatus{Status: "ok"})
		return
	}
	status := s.health(r.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
