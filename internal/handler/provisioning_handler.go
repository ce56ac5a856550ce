package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Provisioning function (POST /functions/v1/create-user)
// ============================================================

// setProvisioningCORS applies the permissive headers every provisioning
// response carries, including errors.
func setProvisioningCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type, idempotency-key")
}

func provisioningPreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setProvisioningCORS(w)
		w.WriteHeader(http.StatusOK)
	}
}

func provisioningMethodNotAllowedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setProvisioningCORS(w)
		w.Header().Set("Allow", "OPTIONS, POST")
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func provisioningHandler(svc *service.ProvisioningService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /functions/v1/create-user")
		defer span.End()
		setProvisioningCORS(w)

		caller, err := svc.Authorize(ctx, guard.BearerToken(r))
		if err != nil {
			writeProvisioningError(w, err, logger)
			return
		}

		var req domain.CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := svc.CreateUser(ctx, caller, r.Header.Get("Idempotency-Key"), req)
		if err != nil {
			writeProvisioningError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// writeProvisioningError keeps the function's contract: only 400, 401, 403
// and 500 are answered.
func writeProvisioningError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var validation *domain.ErrValidation
	var conflict *domain.ErrConflict
	var unauthorized *domain.ErrUnauthorized
	var forbidden *domain.ErrForbidden

	switch {
	case errors.As(err, &unauthorized):
		writeError(w, http.StatusUnauthorized, unauthorized.Error())
	case errors.As(err, &forbidden):
		writeError(w, http.StatusForbidden, service.MsgAdminRequired)
	case errors.As(err, &validation):
		logger.Debug("provisioning: request rejected", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &conflict):
		logger.Debug("provisioning: request rejected", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, conflict.Error())
	default:
		logger.Error("provisioning: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
	}
}
