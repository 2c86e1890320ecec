package server

import (
	"net/http"

	"github.com/me/timingbelt/pkg/model"
)

// handleStats returns aggregated cycle statistics.
// GET /api/v1/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.stats == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUnavailableError("statistics"))
		return
	}
	respondOK(w, reqID, s.stats.Snapshot())
}

// handleResetStats zeroes the counters and returns the fresh snapshot.
// DELETE /api/v1/stats
func (s *Server) handleResetStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.stats == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUnavailableError("statistics"))
		return
	}
	s.stats.Reset()
	s.logger.Info("statistics reset", "request_id", reqID)
	respondOK(w, reqID, s.stats.Snapshot())
}
