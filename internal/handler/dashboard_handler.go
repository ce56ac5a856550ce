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
// Dashboard & configuration
// ============================================================

// dashboardHandler composes the caller's dashboard. ?project_id= picks a
// project other than the caller's own.
func dashboardHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		deps, rec := d.hookDeps()
		h := service.NewDashboardHook(deps, guard.FromContext(ctx), r.URL.Query().Get("project_id"))
		if !h.Fetch(ctx) {
			writeHookFailure(w, h, rec)
			return
		}
		writeJSON(w, http.StatusOK, itemResponse[*domain.DashboardView]{Data: h.View(), Notifications: rec.Notifications()})
	}
}

func getGlobalConfigHandler(dash *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard-config")
		defer span.End()

		cfg, err := dash.MergedConfig(ctx, nil)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

func getProjectConfigHandler(projects *service.ProjectsService, dash *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/projects/{projectId}/dashboard-config")
		defer span.End()

		projectID := chi.URLParam(r, "projectId")
		if _, err := projects.Get(ctx, guard.FromContext(ctx), projectID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		cfg, err := dash.MergedConfig(ctx, &projectID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// putConfigHandler saves the project-scoped config when scoped is true,
// otherwise the global one.
func putConfigHandler(dash *service.DashboardService, scoped bool, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT dashboard-config")
		defer span.End()

		var cfg domain.DashboardConfig
		if !decodeJSON(w, r, &cfg) {
			return
		}

		var projectID *string
		if scoped {
			id := chi.URLParam(r, "projectId")
			projectID = &id
		}
		saved, err := dash.SaveConfig(ctx, guard.FromContext(ctx), projectID, cfg)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
