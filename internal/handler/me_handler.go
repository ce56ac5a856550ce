package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Current identity
// ============================================================

type meResponse struct {
	Identity *guard.Identity `json:"identity"`
	Profile  *domain.Profile `json:"profile"`
}

func getMeHandler(d *Deps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/me")
		defer span.End()

		id := guard.FromContext(ctx)
		resp := meResponse{Identity: id}
		if id.HasProfile() {
			profile, err := d.Store.GetProfile(ctx, id.ProfileID)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}
			resp.Profile = profile
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func updateMeHandler(d *Deps, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/me")
		defer span.End()

		id := guard.FromContext(ctx)
		if !id.HasProfile() {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}

		var update domain.ProfileUpdate
		if !decodeJSON(w, r, &update) {
			return
		}

		deps, rec := d.hookDeps()
		h := service.NewProfilesHook(deps, id, "")
		if !h.Update(ctx, id.ProfileID, update) {
			writeHookFailure(w, h, rec)
			return
		}

		profile, _ := h.Item(id.ProfileID)
		logger.Info("profile updated by owner", zap.String("profile_id", id.ProfileID))
		writeJSON(w, http.StatusOK, itemResponse[domain.Profile]{Data: profile, Notifications: rec.Notifications()})
	}
}
