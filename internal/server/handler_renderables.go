package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/me/timingbelt/internal/demo"
	"github.com/me/timingbelt/pkg/model"
)

// handleListRenderables lists renderables in belt order.
// GET /api/v1/renderables
func (s *Server) handleListRenderables(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var list []model.RenderableInfo
	if err := s.do(r, func() { list = s.harness.Renderables() }); err != nil {
		respondHarnessError(w, reqID, "renderable", "", err)
		return
	}
	respondOK(w, reqID, list)
}

// handleCreateRenderable adds a renderable. Omitted flags default to false.
// POST /api/v1/renderables
func (s *Server) handleCreateRenderable(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req model.RenderableRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}
	spec := demo.Spec{Name: req.Name}
	if req.NeedsTick != nil {
		spec.NeedsTick = *req.NeedsTick
	}
	if req.NeedsPaint != nil {
		spec.NeedsPaint = *req.NeedsPaint
	}
	if req.NeedsRender != nil {
		spec.NeedsRender = *req.NeedsRender
	}

	var info model.RenderableInfo
	var addErr error
	if err := s.do(r, func() { info, addErr = s.harness.AddRenderable(spec) }); err != nil {
		respondHarnessError(w, reqID, "renderable", "", err)
		return
	}
	if addErr != nil {
		respondHarnessError(w, reqID, "renderable", "", addErr)
		return
	}
	respondCreated(w, reqID, info)
}

// handleGetRenderable returns one renderable.
// GET /api/v1/renderables/{id}
func (s *Server) handleGetRenderable(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var info model.RenderableInfo
	var getErr error
	if err := s.do(r, func() { info, getErr = s.harness.Renderable(id) }); err != nil {
		getErr = err
	}
	if getErr != nil {
		respondHarnessError(w, reqID, "renderable", id, getErr)
		return
	}
	respondOK(w, reqID, info)
}

// handleUpdateRenderable changes a renderable's name or flags.
// PUT /api/v1/renderables/{id}
func (s *Server) handleUpdateRenderable(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req model.RenderableRequest
	if !decodeBody(w, r, reqID, &req) {
		return
	}

	var info model.RenderableInfo
	var updErr error
	if err := s.do(r, func() { info, updErr = s.harness.UpdateRenderable(id, req) }); err != nil {
		updErr = err
	}
	if updErr != nil {
		respondHarnessError(w, reqID, "renderable", id, updErr)
		return
	}
	respondOK(w, reqID, info)
}

// handleDeleteRenderable removes and unmounts a renderable.
// DELETE /api/v1/renderables/{id}
func (s *Server) handleDeleteRenderable(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var info model.RenderableInfo
	var delErr error
	if err := s.do(r, func() { info, delErr = s.harness.RemoveRenderable(id) }); err != nil {
		delErr = err
	}
	if delErr != nil {
		respondHarnessError(w, reqID, "renderable", id, delErr)
		return
	}
	respondOK(w, reqID, info)
}

// handleScheduleRenderableUpdate makes a renderable request a frame.
// POST /api/v1/renderables/{id}/update
func (s *Server) handleScheduleRenderableUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var schedErr error
	if err := s.do(r, func() { schedErr = s.harness.ScheduleUpdate(id) }); err != nil {
		schedErr = err
	}
	if schedErr != nil {
		respondHarnessError(w, reqID, "renderable", id, schedErr)
		return
	}
	respondOK(w, reqID, map[string]string{"id": id, "status": "update_scheduled"})
}
