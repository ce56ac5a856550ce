package service

import (
	"context"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/port"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var hookTracer = otel.Tracer("service/hooks")

// PaymentsHook owns the payment schedule of one project for one caller.
type PaymentsHook struct {
	state[domain.PaymentSchedule]
	base

	store     port.PaymentStore
	projects  port.ProjectStore
	dashboard *DashboardService
	projectID string
	status    domain.PaymentStatus
	now       func() time.Time
}

// NewPaymentsHook creates a hook scoped to projectID, optionally filtered by status.
func NewPaymentsHook(deps HookDeps, caller *guard.Identity, projectID string, status domain.PaymentStatus) *PaymentsHook {
	return &PaymentsHook{
		base:      newBase("payments", deps, caller),
		store:     deps.Store,
		projects:  deps.Store,
		dashboard: deps.Dashboard,
		projectID: projectID,
		status:    status,
		now:       time.Now,
	}
}

// Fetch loads the payments ordered by due date, latest first.
func (h *PaymentsHook) Fetch(ctx context.Context) bool {
	ctx, span := hookTracer.Start(ctx, "PaymentsHook.Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("project_id", h.projectID))

	h.begin()
	items, err := h.load(ctx)
	if err != nil {
		h.fail(h.report(ctx, "load payments", err), err)
		return false
	}
	h.succeed(items)
	return true
}

func (h *PaymentsHook) load(ctx context.Context) ([]domain.PaymentSchedule, error) {
	if _, err := authorizeProject(ctx, h.projects, h.caller, h.projectID); err != nil {
		return nil, err
	}
	if !h.caller.IsStaff() && h.dashboard != nil {
		visible, err := h.dashboard.PaymentsVisible(ctx, h.projectID)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, &domain.ErrForbidden{Action: "view payments"}
		}
	}
	items, err := h.store.ListPayments(ctx, domain.PaymentFilter{ProjectID: h.projectID, Status: h.status})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.PaymentSchedule{}
	}
	return items, nil
}

// Create adds a payment to the hook's project, then refetches.
func (h *PaymentsHook) Create(ctx context.Context, in domain.PaymentInput) bool {
	ctx, span := hookTracer.Start(ctx, "PaymentsHook.Create")
	defer span.End()

	h.begin()
	in.ProjectID = h.projectID
	err := requireStaff(h.caller, "create payments")
	if err == nil {
		err = in.Validate()
	}
	if err == nil {
		_, err = h.store.CreatePayment(ctx, in)
	}
	return h.afterMutation(ctx, "create payment", "Payment created", err)
}

// Update changes one payment, then refetches.
func (h *PaymentsHook) Update(ctx context.Context, paymentID string, update domain.PaymentUpdate) bool {
	ctx, span := hookTracer.Start(ctx, "PaymentsHook.Update")
	defer span.End()

	h.begin()
	err := h.checkMutation(ctx, paymentID, "update payments")
	if err == nil {
		err = update.Validate()
	}
	if err == nil {
		_, err = h.store.UpdatePayment(ctx, paymentID, update)
	}
	return h.afterMutation(ctx, "update payment", "Payment updated", err)
}

// MarkPaid settles a payment today.
func (h *PaymentsHook) MarkPaid(ctx context.Context, paymentID string) bool {
	ctx, span := hookTracer.Start(ctx, "PaymentsHook.MarkPaid")
	defer span.End()

	h.begin()
	err := h.checkMutation(ctx, paymentID, "update payments")
	if err == nil {
		_, err = h.store.UpdatePayment(ctx, paymentID, domain.MarkPaidUpdate(h.now().UTC()))
	}
	return h.afterMutation(ctx, "mark payment as paid", "Payment marked as paid", err)
}

// Delete removes a payment, then refetches.
func (h *PaymentsHook) Delete(ctx context.Context, paymentID string) bool {
	ctx, span := hookTracer.Start(ctx, "PaymentsHook.Delete")
	defer span.End()

	h.begin()
	err := h.checkMutation(ctx, paymentID, "delete payments")
	if err == nil {
		err = h.store.DeletePayment(ctx, paymentID)
	}
	return h.afterMutation(ctx, "delete payment", "Payment deleted", err)
}

// Item returns a held payment by id.
func (h *PaymentsHook) Item(paymentID string) (domain.PaymentSchedule, bool) {
	return lo.Find(h.Items(), func(p domain.PaymentSchedule) bool { return p.ID == paymentID })
}

// Stats derives counts and sums from the held payments.
func (h *PaymentsHook) Stats() domain.PaymentStats {
	return domain.ComputePaymentStats(h.Items())
}

// checkMutation enforces the staff rule and that the payment belongs to the project.
func (h *PaymentsHook) checkMutation(ctx context.Context, paymentID, action string) error {
	if err := requireStaff(h.caller, action); err != nil {
		return err
	}
	if !h.isLoaded() {
		items, err := h.load(ctx)
		if err != nil {
			return err
		}
		h.succeed(items)
		h.begin()
	}
	if _, ok := h.Item(paymentID); !ok {
		return &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	return nil
}

func (h *PaymentsHook) afterMutation(ctx context.Context, action, done string, err error) bool {
	if err != nil {
		h.fail(h.report(ctx, action, err), err)
		return false
	}
	h.success(ctx, done)
	return h.Fetch(ctx)
}
