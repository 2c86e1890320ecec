package server

import (
	"net/http"
	"runtime"
	"time"
)

// Version is reported by /health.
const Version = "0.1.0"

type healthResponse struct {
	Status    string          `json:"status"`
	Version   string          `json:"version"`
	GoVersion string          `json:"go_version"`
	Uptime    string          `json:"uptime"`
	SessionID string          `json:"session_id"`
	State     string          `json:"state"`
	Store     string          `json:"store"`
	Recorder  *recorderHealth `json:"recorder,omitempty"`
}

type recorderHealth struct {
	Recorded int64 `json:"recorded"`
	Dropped  int64 `json:"dropped"`
	Failed   int64 `json:"failed"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	resp := healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Store:     "disabled",
	}
	if err := s.do(r, func() {
		tb := s.harness.Belt()
		resp.SessionID = tb.SessionID()
		resp.State = string(tb.State())
	}); err != nil {
		resp.Status = "degraded"
		resp.State = "stopped"
	}
	if s.store != nil {
		resp.Store = "sqlite"
	}
	if s.recorder != nil {
		resp.Recorder = &recorderHealth{
			Recorded: s.recorder.Recorded(),
			Dropped:  s.recorder.Dropped(),
			Failed:   s.recorder.Failed(),
		}
	}
	respondOK(w, reqID, resp)
}
