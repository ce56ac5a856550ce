package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
)

// ============================================================
// Phases
// ============================================================

type reorderRequest struct {
	PhaseIDs []string `json:"phase_ids"`
}

type progressRequest struct {
	Progress *int `json:"progress"`
}

func phasesHook(d *Deps, r *http.Request) (*service.PhasesHook, *service.Recorder) {
	deps, rec := d.hookDeps()
	status := domain.PhaseStatus(r.URL.Query().Get("status"))
	return service.NewPhasesHook(deps, guard.FromContext(r.Context()), chi.URLParam(r, "projectId"), status), rec
}

func writePhases(w http.ResponseWriter, status int, h *service.PhasesHook, rec *service.Recorder) {
	writeJSON(w, status, listResponse[domain.Phase, domain.PhaseStats]{
		Data:          h.Items(),
		Stats:         h.Stats(),
		Notifications: rec.Notifications(),
	})
}

func listPhasesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/projects/{projectId}/phases")
		defer span.End()

		if s := domain.PhaseStatus(r.URL.Query().Get("status")); s != "" && !s.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		h, rec := phasesHook(d, r)
		if !h.Fetch(ctx) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusOK, h, rec)
	}
}

func createPhaseHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/projects/{projectId}/phases")
		defer span.End()

		var in domain.PhaseInput
		if !decodeJSON(w, r, &in) {
			return
		}
		h, rec := phasesHook(d, r)
		if !h.Create(ctx, in) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusCreated, h, rec)
	}
}

func reorderPhasesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/projects/{projectId}/phases/order")
		defer span.End()

		var req reorderRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		h, rec := phasesHook(d, r)
		if !h.Reorder(ctx, req.PhaseIDs) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusOK, h, rec)
	}
}

func updatePhaseHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/projects/{projectId}/phases/{phaseId}")
		defer span.End()

		var update domain.PhaseUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		h, rec := phasesHook(d, r)
		if !h.Update(ctx, chi.URLParam(r, "phaseId"), update) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusOK, h, rec)
	}
}

func phaseProgressHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/projects/{projectId}/phases/{phaseId}/progress")
		defer span.End()

		var req progressRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Progress == nil {
			writeError(w, http.StatusBadRequest, "progress is required")
			return
		}
		h, rec := phasesHook(d, r)
		if !h.UpdateProgress(ctx, chi.URLParam(r, "phaseId"), *req.Progress) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusOK, h, rec)
	}
}

func deletePhaseHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/projects/{projectId}/phases/{phaseId}")
		defer span.End()

		h, rec := phasesHook(d, r)
		if !h.Delete(ctx, chi.URLParam(r, "phaseId")) {
			writeHookFailure(w, h, rec)
			return
		}
		writePhases(w, http.StatusOK, h, rec)
	}
}
