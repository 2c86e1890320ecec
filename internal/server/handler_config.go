package server

import (
	"net/http"

	"github.com/me/timingbelt/pkg/model"
)

// handleGetConfig returns the live belt settings.
// GET /api/v1/config
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var settings model.Settings
	if err := s.do(r, func() { settings = s.harness.Belt().Settings() }); err != nil {
		respondHarnessError(w, reqID, "config", "", err)
		return
	}
	respondOK(w, reqID, settings)
}

// handleUpdateConfig applies a partial settings update.
// PUT /api/v1/config
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var patch model.SettingsPatch
	if !decodeBody(w, r, reqID, &patch) {
		return
	}
	if errs := patch.Validate(); len(errs) > 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid settings", errs...))
		return
	}

	var settings model.Settings
	var applyErr error
	err := s.do(r, func() {
		tb := s.harness.Belt()
		if patch.IntervalMS != nil {
			if applyErr = tb.SetInterval(patch.Interval()); applyErr != nil {
				return
			}
		}
		if patch.MaxCyclesPerSecond != nil {
			if applyErr = tb.SetMaxCyclesPerSecond(*patch.MaxCyclesPerSecond); applyErr != nil {
				return
			}
		}
		if patch.Governor != nil {
			tb.SetGovernor(*patch.Governor)
		}
		if patch.BurstIdle != nil {
			tb.SetBurstIdle(*patch.BurstIdle)
		}
		if patch.Autorender != nil {
			tb.SetAutorender(*patch.Autorender)
		}
		settings = tb.Settings()
	})
	if err != nil {
		respondHarnessError(w, reqID, "config", "", err)
		return
	}
	if applyErr != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError(applyErr.Error()))
		return
	}

	s.logger.Info("settings updated",
		"interval", settings.Interval,
		"governor", settings.Governor,
		"burst_idle", settings.BurstIdle,
		"max_cycles_per_second", settings.MaxCyclesPerSecond,
		"autorender", settings.Autorender,
	)
	respondOK(w, reqID, settings)
}
