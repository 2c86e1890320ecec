package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/me/timingbelt/pkg/model"
)

// handleListCycles lists recorded cycle traces, newest first.
// GET /api/v1/cycles?kind=render|idle&session=ses_x&limit=20&offset=0
func (s *Server) handleListCycles(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	if s.store == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUnavailableError("trace store"))
		return
	}

	opts, fieldErrs := parseListOptions(r)
	if len(fieldErrs) > 0 {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid query", fieldErrs...))
		return
	}

	cycles, total, err := s.store.ListCycles(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if cycles == nil {
		cycles = []*model.CycleTrace{}
	}
	respondList(w, reqID, cycles, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(cycles) < total,
	})
}

// handleGetCycle returns one recorded trace.
// GET /api/v1/cycles/{id}
func (s *Server) handleGetCycle(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if s.store == nil {
		respondError(w, reqID, http.StatusServiceUnavailable, model.NewUnavailableError("trace store"))
		return
	}

	tr, err := s.store.GetCycle(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if tr == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("cycle", id))
		return
	}
	respondOK(w, reqID, tr)
}

func parseListOptions(r *http.Request) (model.ListOptions, []model.FieldError) {
	q := r.URL.Query()
	opts := model.DefaultListOptions()
	var errs []model.FieldError

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "limit", Message: "must be an integer"})
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, model.FieldError{Field: "offset", Message: "must be an integer"})
		}
		opts.Offset = n
	}
	if v := q.Get("kind"); v != "" {
		opts.Kind = model.CycleKind(v)
		if !opts.Kind.Valid() {
			errs = append(errs, model.FieldError{Field: "kind", Message: "must be render or idle"})
		}
	}
	opts.Session = q.Get("session")
	opts.Clamp()
	return opts, errs
}
