package http

import (
	"context"
	"net/http"
)

type statusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// handleHealth is a liveness check; it never touches dependencies.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

// handleReady pings the ledger backend when one was configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger == nil {
		writeJSON(w, r, http.StatusOK, statusResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := s.pinger.Ping(ctx); err != nil {
		s.logger.Warn("Readiness check failed", "error", err)
		writeJSON(w, r, http.StatusServiceUnavailable, statusResponse{Status: "not_ready", Error: "ledger unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse{Status: "ready"})
}
