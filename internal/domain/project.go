package domain

import "time"

// ============================================================
// Projects
// ============================================================

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning  ProjectStatus = "planning"
	ProjectActive    ProjectStatus = "active"
	ProjectOnHold    ProjectStatus = "on_hold"
	ProjectCompleted ProjectStatus = "completed"
	ProjectCancelled ProjectStatus = "cancelled"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled:
		return true
	}
	return false
}

// StatusColor maps a project status to the dashboard color token.
// Unknown statuses fall through to gray.
func StatusColor(s ProjectStatus) string {
	switch s {
	case ProjectPlanning:
		return "blue"
	case ProjectActive:
		return "green"
	case ProjectOnHold:
		return "yellow"
	case ProjectCompleted:
		return "gray"
	case ProjectCancelled:
		return "red"
	default:
		return "gray"
	}
}

// Project is owned by a single profile (table "projects").
// Phases and Payments are only populated by embedding reads.
type Project struct {
	ID                  string            `json:"id"`
	ProfileID           string            `json:"profile_id"`
	Name                string            `json:"name"`
	Description         *string           `json:"description,omitempty"`
	Status              ProjectStatus     `json:"status"`
	ProgressPercentage  int               `json:"progress_percentage"`
	StartDate           *string           `json:"start_date,omitempty"`
	EstimatedCompletion *string           `json:"estimated_completion,omitempty"`
	TotalAmount         *float64          `json:"total_amount,omitempty"`
	MonthlySavings      *float64          `json:"monthly_savings,omitempty"`
	AnnualROIPercentage *float64          `json:"annual_roi_percentage,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
	Phases              []Phase           `json:"phases,omitempty"`
	Payments            []PaymentSchedule `json:"payment_schedules,omitempty"`
}

// ProjectFilter narrows a project listing. An empty ProfileID lists all projects.
type ProjectFilter struct {
	ProfileID string
	Status    ProjectStatus
}

// ProjectInput is the body for project creation.
type ProjectInput struct {
	ProfileID           string        `json:"profile_id"`
	Name                string        `json:"name"`
	Description         *string       `json:"description,omitempty"`
	Status              ProjectStatus `json:"status,omitempty"`
	ProgressPercentage  int           `json:"progress_percentage"`
	StartDate           *string       `json:"start_date,omitempty"`
	EstimatedCompletion *string       `json:"estimated_completion,omitempty"`
	TotalAmount         *float64      `json:"total_amount,omitempty"`
	MonthlySavings      *float64      `json:"monthly_savings,omitempty"`
	AnnualROIPercentage *float64      `json:"annual_roi_percentage,omitempty"`
}

// Validate checks required fields and normalizes defaults.
func (in *ProjectInput) Validate() error {
	if in.ProfileID == "" {
		return &ErrValidation{Field: "profile_id", Message: "is required"}
	}
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "is required"}
	}
	if in.Status == "" {
		in.Status = ProjectPlanning
	}
	if !in.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown status " + string(in.Status)}
	}
	in.ProgressPercentage = ClampProgress(in.ProgressPercentage)
	return nil
}

// ProjectUpdate carries the mutable project fields.
type ProjectUpdate struct {
	Name                *string        `json:"name,omitempty"`
	Description         *string        `json:"description,omitempty"`
	Status              *ProjectStatus `json:"status,omitempty"`
	ProgressPercentage  *int           `json:"progress_percentage,omitempty"`
	StartDate           *string        `json:"start_date,omitempty"`
	EstimatedCompletion *string        `json:"estimated_completion,omitempty"`
	TotalAmount         *float64       `json:"total_amount,omitempty"`
	MonthlySavings      *float64       `json:"monthly_savings,omitempty"`
	AnnualROIPercentage *float64       `json:"annual_roi_percentage,omitempty"`
}

// Validate rejects unknown statuses and clamps progress.
func (u *ProjectUpdate) Validate() error {
	if u.Status != nil && !u.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown status " + string(*u.Status)}
	}
	if u.ProgressPercentage != nil {
		p := ClampProgress(*u.ProgressPercentage)
		u.ProgressPercentage = &p
	}
	return nil
}

// Fields returns the column map for a PATCH.
func (u ProjectUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.ProgressPercentage != nil {
		fields["progress_percentage"] = *u.ProgressPercentage
	}
	if u.StartDate != nil {
		fields["start_date"] = *u.StartDate
	}
	if u.EstimatedCompletion != nil {
		fields["estimated_completion"] = *u.EstimatedCompletion
	}
	if u.TotalAmount != nil {
		fields["total_amount"] = *u.TotalAmount
	}
	if u.MonthlySavings != nil {
		fields["monthly_savings"] = *u.MonthlySavings
	}
	if u.AnnualROIPercentage != nil {
		fields["annual_roi_percentage"] = *u.AnnualROIPercentage
	}
	return fields
}

// Apply copies the update onto p.
func (u ProjectUpdate) Apply(p *Project) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = u.Description
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.ProgressPercentage != nil {
		p.ProgressPercentage = *u.ProgressPercentage
	}
	if u.StartDate != nil {
		p.StartDate = u.StartDate
	}
	if u.EstimatedCompletion != nil {
		p.EstimatedCompletion = u.EstimatedCompletion
	}
	if u.TotalAmount != nil {
		p.TotalAmount = u.TotalAmount
	}
	if u.MonthlySavings != nil {
		p.MonthlySavings = u.MonthlySavings
	}
	if u.AnnualROIPercentage != nil {
		p.AnnualROIPercentage = u.AnnualROIPercentage
	}
}

// ROISummary is the investment view shown on the dashboard.
type ROISummary struct {
	TotalInvestment     float64  `json:"total_investment"`
	MonthlySavings      float64  `json:"monthly_savings"`
	AnnualROIPercentage float64  `json:"annual_roi_percentage"`
	PaybackMonths       *float64 `json:"payback_months,omitempty"`
}

// ComputeROI derives the ROI summary from a project's financial fields.
// PaybackMonths is nil when there are no monthly savings.
func ComputeROI(p *Project) ROISummary {
	var s ROISummary
	if p.TotalAmount != nil {
		s.TotalInvestment = *p.TotalAmount
	}
	if p.MonthlySavings != nil {
		s.MonthlySavings = *p.MonthlySavings
	}
	if p.AnnualROIPercentage != nil {
		s.AnnualROIPercentage = *p.AnnualROIPercentage
	}
	if s.MonthlySavings > 0 {
		months := s.TotalInvestment / s.MonthlySavings
		s.PaybackMonths = &months
	}
	return s
}
