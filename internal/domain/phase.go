package domain

import (
	"sort"
	"time"

	"github.com/samber/lo"
)

// ============================================================
// Phases
// ============================================================

// PhaseStatus is the state of a single project phase.
type PhaseStatus string

const (
	PhaseNotStarted PhaseStatus = "not_started"
	PhaseInProgress PhaseStatus = "in_progress"
	PhaseCompleted  PhaseStatus = "completed"
	PhaseBlocked    PhaseStatus = "blocked"
)

// Valid reports whether s is a known phase status.
func (s PhaseStatus) Valid() bool {
	switch s {
	case PhaseNotStarted, PhaseInProgress, PhaseCompleted, PhaseBlocked:
		return true
	}
	return false
}

// ClampProgress bounds a progress percentage to [0,100].
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Phase is an ordered unit of project work (table "phases").
type Phase struct {
	ID                 string      `json:"id"`
	ProjectID          string      `json:"project_id"`
	Name               string      `json:"name"`
	Description        *string     `json:"description,omitempty"`
	OrderIndex         int         `json:"order_index"`
	Status             PhaseStatus `json:"status"`
	ProgressPercentage int         `json:"progress_percentage"`
	StartDate          *string     `json:"start_date,omitempty"`
	EndDate            *string     `json:"end_date,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// PhaseFilter narrows a phase listing.
type PhaseFilter struct {
	ProjectID string
	Status    PhaseStatus
}

// PhaseInput is the body for phase creation.
// A zero OrderIndex means "append after the last phase".
type PhaseInput struct {
	ProjectID          string      `json:"project_id"`
	Name               string      `json:"name"`
	Description        *string     `json:"description,omitempty"`
	OrderIndex         int         `json:"order_index"`
	Status             PhaseStatus `json:"status,omitempty"`
	ProgressPercentage int         `json:"progress_percentage"`
	StartDate          *string     `json:"start_date,omitempty"`
	EndDate            *string     `json:"end_date,omitempty"`
}

// Validate checks required fields and normalizes defaults.
func (in *PhaseInput) Validate() error {
	if in.ProjectID == "" {
		return &ErrValidation{Field: "project_id", Message: "is required"}
	}
	if in.Name == "" {
		return &ErrValidation{Field: "name", Message: "is required"}
	}
	if in.Status == "" {
		in.Status = PhaseNotStarted
	}
	if !in.Status.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown status " + string(in.Status)}
	}
	in.ProgressPercentage = ClampProgress(in.ProgressPercentage)
	return nil
}

// PhaseUpdate carries the mutable phase fields.
type PhaseUpdate struct {
	Name               *string      `json:"name,omitempty"`
	Description        *string      `json:"description,omitempty"`
	Status             *PhaseStatus `json:"status,omitempty"`
	ProgressPercentage *int         `json:"progress_percentage,omitempty"`
	StartDate          *string      `json:"start_date,omitempty"`
	EndDate            *string      `json:"end_date,omitempty"`
}

// Validate rejects unknown statuses and clamps progress.
func (u *PhaseUpdate) Validate() error {
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
func (u PhaseUpdate) Fields() map[string]any {
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
	if u.EndDate != nil {
		fields["end_date"] = *u.EndDate
	}
	return fields
}

// Apply copies the update onto p.
func (u PhaseUpdate) Apply(p *Phase) {
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
	if u.EndDate != nil {
		p.EndDate = u.EndDate
	}
}

// ProgressUpdate builds the update for a progress change. The value is clamped;
// 100 completes the phase and any other positive value starts a not-started one.
func ProgressUpdate(current PhaseStatus, progress int) PhaseUpdate {
	p := ClampProgress(progress)
	u := PhaseUpdate{ProgressPercentage: &p}
	switch {
	case p == 100:
		s := PhaseCompleted
		u.Status = &s
	case p > 0 && current == PhaseNotStarted:
		s := PhaseInProgress
		u.Status = &s
	}
	return u
}

// SortPhases orders phases by OrderIndex ascending, in place.
func SortPhases(phases []Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		return phases[i].OrderIndex < phases[j].OrderIndex
	})
}

// Reindex returns a copy of phases with OrderIndex rewritten to 1..N in slice order.
func Reindex(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	for i, p := range phases {
		p.OrderIndex = i + 1
		out[i] = p
	}
	return out
}

// NextOrderIndex returns the index that appends after the highest existing one.
func NextOrderIndex(phases []Phase) int {
	if len(phases) == 0 {
		return 1
	}
	return lo.MaxBy(phases, func(a, b Phase) bool { return a.OrderIndex > b.OrderIndex }).OrderIndex + 1
}

// PhaseStats summarizes phase progress.
type PhaseStats struct {
	Total           int     `json:"total"`
	NotStarted      int     `json:"not_started"`
	InProgress      int     `json:"in_progress"`
	Completed       int     `json:"completed"`
	Blocked         int     `json:"blocked"`
	AverageProgress float64 `json:"average_progress"`
}

// ComputePhaseStats derives counts per status and the mean progress.
func ComputePhaseStats(phases []Phase) PhaseStats {
	byStatus := func(s PhaseStatus) int {
		return lo.CountBy(phases, func(p Phase) bool { return p.Status == s })
	}
	stats := PhaseStats{
		Total:      len(phases),
		NotStarted: byStatus(PhaseNotStarted),
		InProgress: byStatus(PhaseInProgress),
		Completed:  byStatus(PhaseCompleted),
		Blocked:    byStatus(PhaseBlocked),
	}
	if len(phases) > 0 {
		total := lo.SumBy(phases, func(p Phase) int { return p.ProgressPercentage })
		stats.AverageProgress = float64(total) / float64(len(phases))
	}
	return stats
}
