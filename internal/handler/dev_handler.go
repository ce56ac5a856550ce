package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Dev Tools Handlers
// ============================================================

// devTokenHandler exchanges email and password for an access token on the
// memory backend.
func devTokenHandler(tokens DevSignIn, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dev/token")
		defer span.End()

		var req domain.TokenRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		resp, err := tokens.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
