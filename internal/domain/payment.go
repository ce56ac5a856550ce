package domain

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// ============================================================
// Payment schedules
// ============================================================

// PaymentStatus is the state of a scheduled payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// DateLayout is the layout of date-only columns (due_date, paid_date).
const DateLayout = "2006-01-02"

// PaymentSchedule is one installment of a project (table "payment_schedules").
type PaymentSchedule struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Amount      float64       `json:"amount"`
	DueDate     string        `json:"due_date"`
	PaidDate    *string       `json:"paid_date,omitempty"`
	Status      PaymentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// PaymentFilter narrows a payment listing. An empty ProjectID lists all payments.
type PaymentFilter struct {
	ProjectID string
	Status    PaymentStatus
}

// PaymentInput is the body for payment creation.
type PaymentInput struct {
	ProjectID   string        `json:"project_id"`
	Name        string        `json:"name"`
	Description *string       `json:"description,omitempty"`
	Amount      float64       `json:"amount"`
	DueDate     string        `json:"due_date"`
	Status      PaymentStatus `json:"status,omitempty"`
}

// Validate checks required fields and normalizes defaults.
func (in *PaymentInput) Validate() error {
	if in.ProjectID == "" {
		return &ErrValidation{Field: "project_id", Message: "is required"}
	}
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "is required"}
	}
	if in.Amount < 0 {
		return &ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if _, err := time.Parse(DateLayout, in.DueDate); err != nil {
		return &ErrValidation{Field: "due_date", Message: "must be a YYYY-MM-DD date"}
	}
	if in.Status == "" {
		in.Status = PaymentPending
	}
	if !in.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown status " + string(in.Status)}
	}
	return nil
}

// PaymentUpdate carries the mutable payment fields.
type PaymentUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Amount      *float64       `json:"amount,omitempty"`
	DueDate     *string        `json:"due_date,omitempty"`
	PaidDate    *string        `json:"paid_date,omitempty"`
	Status      *PaymentStatus `json:"status,omitempty"`
}

// Validate rejects unknown statuses and malformed dates.
func (u *PaymentUpdate) Validate() error {
	if u.Status != nil && !u.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown status " + string(*u.Status)}
	}
	if u.Amount != nil && *u.Amount < 0 {
		return &ErrValidation{Field: "amount", Message: "must not be negative"}
	}
	if u.DueDate != nil {
		if _, err := time.Parse(DateLayout, *u.DueDate); err != nil {
			return &ErrValidation{Field: "due_date", Message: "must be a YYYY-MM-DD date"}
		}
	}
	return nil
}

// Fields returns the column map for a PATCH.
func (u PaymentUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Amount != nil {
		fields["amount"] = *u.Amount
	}
	if u.DueDate != nil {
		fields["due_date"] = *u.DueDate
	}
	if u.PaidDate != nil {
		fields["paid_date"] = *u.PaidDate
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	return fields
}

// Apply copies the update onto p.
func (u PaymentUpdate) Apply(p *PaymentSchedule) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	if u.Amount != nil {
		p.Amount = *u.Amount
	}
	if u.DueDate != nil {
		p.DueDate = *u.DueDate
	}
	if u.PaidDate != nil {
		p.PaidDate = u.PaidDate
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
}

// MarkPaidUpdate builds the update that settles a payment on the given day.
func MarkPaidUpdate(day time.Time) PaymentUpdate {
	status := PaymentPaid
	paid := day.Format(DateLayout)
	return PaymentUpdate{Status: &status, PaidDate: &paid}
}

// IsPastDue reports whether a pending payment's due date is before day.
func (p PaymentSchedule) IsPastDue(day time.Time) bool {
	if p.Status != PaymentPending {
		return false
	}
	due, err := time.Parse(DateLayout, p.DueDate)
	if err != nil {
		return false
	}
	return due.Before(truncateDay(day))
}

// SortPaymentsByDueDesc orders payments by due date, latest first.
// Dates share one layout, so string order is date order.
func SortPaymentsByDueDesc(payments []PaymentSchedule) {
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DueDate > payments[j].DueDate
	})
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PaymentStats holds counts and amount sums per status.
type PaymentStats struct {
	Total           int     `json:"total"`
	Pending         int     `json:"pending"`
	Paid            int     `json:"paid"`
	Overdue         int     `json:"overdue"`
	Cancelled       int     `json:"cancelled"`
	TotalAmount     float64 `json:"total_amount"`
	PaidAmount      float64 `json:"paid_amount"`
	PendingAmount   float64 `json:"pending_amount"`
	OverdueAmount   float64 `json:"overdue_amount"`
	CancelledAmount float64 `json:"cancelled_amount"`
}

// ComputePaymentStats derives counts and sums from the in-memory collection.
func ComputePaymentStats(payments []PaymentSchedule) PaymentStats {
	byStatus := lo.GroupBy(payments, func(p PaymentSchedule) PaymentStatus { return p.Status })
	sum := func(s PaymentStatus) float64 {
		return lo.SumBy(byStatus[s], func(p PaymentSchedule) float64 { return p.Amount })
	}
	return PaymentStats{
		Total:           len(payments),
		Pending:         len(byStatus[PaymentPending]),
		Paid:            len(byStatus[PaymentPaid]),
		Overdue:         len(byStatus[PaymentOverdue]),
		Cancelled:       len(byStatus[PaymentCancelled]),
		TotalAmount:     lo.SumBy(payments, func(p PaymentSchedule) float64 { return p.Amount }),
		PaidAmount:      sum(PaymentPaid),
		PendingAmount:   sum(PaymentPending),
		OverdueAmount:   sum(PaymentOverdue),
		CancelledAmount: sum(PaymentCancelled),
	}
}
