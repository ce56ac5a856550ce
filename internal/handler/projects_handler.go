package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Projects
// ============================================================

func listProjectsHandler(svc *service.ProjectsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/projects")
		defer span.End()

		status := domain.ProjectStatus(r.URL.Query().Get("status"))
		projects, err := svc.List(ctx, guard.FromContext(ctx), status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if projects == nil {
			projects = []domain.Project{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": projects, "total": len(projects)})
	}
}

func createProjectHandler(svc *service.ProjectsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/projects")
		defer span.End()

		var in domain.ProjectInput
		if !decodeJSON(w, r, &in) {
			return
		}
		project, err := svc.Create(ctx, guard.FromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, project)
	}
}

func getProjectHandler(svc *service.ProjectsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/projects/{projectId}")
		defer span.End()

		project, err := svc.Get(ctx, guard.FromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

func updateProjectHandler(svc *service.ProjectsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/projects/{projectId}")
		defer span.End()

		var update domain.ProjectUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		project, err := svc.Update(ctx, guard.FromContext(ctx), chi.URLParam(r, "projectId"), update)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

func deleteProjectHandler(svc *service.ProjectsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/projects/{projectId}")
		defer span.End()

		projectID := chi.URLParam(r, "projectId")
		if err := svc.Delete(ctx, guard.FromContext(ctx), projectID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Project deleted", ID: projectID})
	}
}
