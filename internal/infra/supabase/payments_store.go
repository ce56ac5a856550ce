package supabase

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// PaymentStore implementation
// ============================================================

func (c *Client) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPayments")
	defer span.End()

	path := "payment_schedules?select=*&order=due_date.desc"
	if filter.ProjectID != "" {
		path += "&" + eq("project_id", filter.ProjectID)
	}
	if filter.Status != "" {
		path += "&" + eq("status", string(filter.Status))
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, external("supabase", err)
	}
	return decodeRows[domain.PaymentSchedule](body, "payment_schedules")
}

func (c *Client) CreatePayment(ctx context.Context, in domain.PaymentInput) (*domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePayment")
	defer span.End()

	body, err := c.doPost(ctx, "payment_schedules", in)
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.PaymentSchedule](body, "payment_schedules")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrExternalService{Service: "supabase", Err: errEmptyInsert}
	}
	return p, nil
}

func (c *Client) UpdatePayment(ctx context.Context, paymentID string, update domain.PaymentUpdate) (*domain.PaymentSchedule, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePayment")
	defer span.End()

	body, err := c.doPatch(ctx, "payment_schedules?"+eq("id", paymentID), update.Fields())
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.PaymentSchedule](body, "payment_schedules")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	return p, nil
}

func (c *Client) DeletePayment(ctx context.Context, paymentID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeletePayment")
	defer span.End()

	return external("supabase", c.doDelete(ctx, "payment_schedules?"+eq("id", paymentID)))
}

// MarkOverdue flips every pending payment due before day in a single PATCH.
func (c *Client) MarkOverdue(ctx context.Context, day time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.MarkOverdue")
	defer span.End()

	path := "payment_schedules?" + eq("status", string(domain.PaymentPending)) +
		"&due_date=lt." + day.UTC().Format(domain.DateLayout)
	body, err := c.doPatch(ctx, path, map[string]any{"status": domain.PaymentOverdue})
	if err != nil {
		return 0, external("supabase", err)
	}
	rows, err := decodeRows[domain.PaymentSchedule](body, "payment_schedules")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
