package handler

import (
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
)

// ============================================================
// Payment schedules
// ============================================================

func paymentsHook(d *Deps, r *http.Request) (*service.PaymentsHook, *service.Recorder) {
	deps, rec := d.hookDeps()
	status := domain.PaymentStatus(r.URL.Query().Get("status"))
	return service.NewPaymentsHook(deps, guard.FromContext(r.Context()), chi.URLParam(r, "projectId"), status), rec
}

func writePayments(w http.ResponseWriter, status int, h *service.PaymentsHook, rec *service.Recorder) {
	writeJSON(w, status, listResponse[domain.PaymentSchedule, domain.PaymentStats]{
		Data:          h.Items(),
		Stats:         h.Stats(),
		Notifications: rec.Notifications(),
	})
}

func listPaymentsHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/projects/{projectId}/payments")
		defer span.End()

		if s := domain.PaymentStatus(r.URL.Query().Get("status")); s != "" && !s.Valid() {
			writeError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		h, rec := paymentsHook(d, r)
		if !h.Fetch(ctx) {
			writeHookFailure(w, h, rec)
			return
		}
		writePayments(w, http.StatusOK, h, rec)
	}
}

func createPaymentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/projects/{projectId}/payments")
		defer span.End()

		var in domain.PaymentInput
		if !decodeJSON(w, r, &in) {
			return
		}
		h, rec := paymentsHook(d, r)
		if !h.Create(ctx, in) {
			writeHookFailure(w, h, rec)
			return
		}
		writePayments(w, http.StatusCreated, h, rec)
	}
}

func updatePaymentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/projects/{projectId}/payments/{paymentId}")
		defer span.End()

		var update domain.PaymentUpdate
		if !decodeJSON(w, r, &update) {
			return
		}
		h, rec := paymentsHook(d, r)
		if !h.Update(ctx, chi.URLParam(r, "paymentId"), update) {
			writeHookFailure(w, h, rec)
			return
		}
		writePayments(w, http.StatusOK, h, rec)
	}
}

func markPaidHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/projects/{projectId}/payments/{paymentId}/paid")
		defer span.End()

		h, rec := paymentsHook(d, r)
		if !h.MarkPaid(ctx, chi.URLParam(r, "paymentId")) {
			writeHookFailure(w, h, rec)
			return
		}
		writePayments(w, http.StatusOK, h, rec)
	}
}

func deletePaymentHandler(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/projects/{projectId}/payments/{paymentId}")
		defer span.End()

		h, rec := paymentsHook(d, r)
		if !h.Delete(ctx, chi.URLParam(r, "paymentId")) {
			writeHookFailure(w, h, rec)
			return
		}
		writePayments(w, http.StatusOK, h, rec)
	}
}
