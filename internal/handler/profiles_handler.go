package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
)

// ============================================================
// Profiles (admin)
// ============================================================

func profilesHook(d *Deps, r *http.Request) (*service.ProfilesHook, *service.Recorder) {
	deps, rec := d.hookDeps()
	role := domain.Role(r.URL.Query().Get("role"))
	return service.NewProfilesHook(deps, guard.FromContext(r.Context()), role), rec
}

func writeProfiles(w http.ResponseWriter, h *service.ProfilesHook, rec *service.Recorder) {
	writeJSON(w, http.StatusOK, listResponse[domain.Profile, domain.ProfileStats]{
		Data:          h.Items(),
		Stats:         h.Stats(),
		Notifications: rec.Notifications(),
	})
}

func listProfilesHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/profiles")
		defer span.End()

		h, rec := profilesHook(d, r)
		if !h.Fetch(ctx) {
			writeHookFailure(w, h, rec)
			return
		}
		writeProfiles(w, h, rec)
	}
}

func updateProfileHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profiles/{profileId}")
		defer span.End()

		var update domain.ProfileUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		h, rec := profilesHook(d, r)
		if !h.Update(ctx, chi.URLParam(r, "profileId"), update) {
			writeHookFailure(w, h, rec)
			return
		}
		writeProfiles(w, h, rec)
	}
}

func deleteProfileHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/profiles/{profileId}")
		defer span.End()

		h, rec := profilesHook(d, r)
		if !h.Delete(ctx, chi.URLParam(r, "profileId")) {
			writeHookFailure(w, h, rec)
			return
		}
		writeProfiles(w, h, rec)
	}
}
