package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/me/timingbelt/pkg/model"
)

// handleListJobs lists queued and recently finished jobs.
// GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var list []model.JobInfo
	if err := s.do(r, func() { list = s.harness.Jobs() }); err != nil {
		respondHarnessError(w, reqID, "job", "", err)
		return
	}
	respondOK(w, reqID, list)
}

// handleCreateJob queues a synthetic job.
// POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.JobRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid job", errs...))
		return
	}

	var info model.JobInfo
	var queueErr error
	if err := s.do(r, func() { info, queueErr = s.harness.QueueJob(req) }); err != nil {
		queueErr = err
	}
	if queueErr != nil {
		respondHarnessError(w, reqID, "job", "", queueErr)
		return
	}
	respondCreated(w, reqID, info)
}

// handleGetJob returns one job.
// GET /api/v1/jobs/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var info model.JobInfo
	var getErr error
	if err := s.do(r, func() { info, getErr = s.harness.Job(id) }); err != nil {
		getErr = err
	}
	if getErr != nil {
		respondHarnessError(w, reqID, "job", id, getErr)
		return
	}
	respondOK(w, reqID, info)
}

// handleCancelJob cancels a queued job.
// DELETE /api/v1/jobs/{id}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var info model.JobInfo
	var cancelErr error
	if err := s.do(r, func() { info, cancelErr = s.harness.CancelJob(id) }); err != nil {
		cancelErr = err
	}
	if cancelErr != nil {
		respondHarnessError(w, reqID, "job", id, cancelErr)
		return
	}
	s.logger.Info("job cancelled", "job_id", id)
	respondOK(w, reqID, info)
}
