package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/me/timingbelt/pkg/model"
)

// handleSSEStats streams statistics snapshots via Server-Sent Events.
// A snapshot is sent on connect, then whenever the counters change; quiet
// intervals get a heartbeat comment.
// GET /api/v1/sse/stats
func (s *Server) handleSSEStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.stats == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUnavailableError("statistics"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Set headers for SSE.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	last := s.stats.Snapshot()
	if err := sendSSEEvent(w, flusher, "init", last); err != nil {
		s.logger.Debug("sse client disconnected", "request_id", reqID, "error", err)
		return
	}

	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			cur := s.stats.Snapshot()
			if statsChanged(last, cur) {
				if err := sendSSEEvent(w, flusher, "stats", cur); err != nil {
					s.logger.Debug("sse client disconnected", "request_id", reqID)
					return
				}
				last = cur
				continue
			}
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func statsChanged(a, b model.Stats) bool {
	return a.RenderCycles != b.RenderCycles || a.IdleCycles != b.IdleCycles ||
		a.State != b.State || a.JobsRemaining != b.JobsRemaining
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
