package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// PhaseStore implementation
// ============================================================

func (c *Client) ListPhases(ctx context.Context, filter domain.PhaseFilter) ([]domain.Phase, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListPhases")
	defer span.End()

	path := "phases?select=*&order=order_index.asc"
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
	return decodeRows[domain.Phase](body, "phases")
}

func (c *Client) CreatePhase(ctx context.Context, in domain.PhaseInput) (*domain.Phase, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreatePhase")
	defer span.End()

	body, err := c.doPost(ctx, "phases", in)
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Phase](body, "phases")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrExternalService{Service: "supabase", Err: errEmptyInsert}
	}
	return p, nil
}

func (c *Client) UpdatePhase(ctx context.Context, phaseID string, update domain.PhaseUpdate) (*domain.Phase, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdatePhase")
	defer span.End()

	body, err := c.doPatch(ctx, "phases?"+eq("id", phaseID), update.Fields())
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Phase](body, "phases")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "phase", ID: phaseID}
	}
	return p, nil
}

func (c *Client) DeletePhase(ctx context.Context, phaseID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeletePhase")
	defer span.End()

	return external("supabase", c.doDelete(ctx, "phases?"+eq("id", phaseID)))
}

// ReorderPhases writes every order_index in one transaction through the
// reorder_phases function (migrations/001_reorder_phases.sql).
func (c *Client) ReorderPhases(ctx context.Context, projectID string, phaseIDs []string) error {
	ctx, span := tracer.Start(ctx, "Supabase.ReorderPhases")
	defer span.End()

	_, err := c.doRPC(ctx, "reorder_phases", map[string]any{
		"p_project_id": projectID,
		"p_phase_ids":  phaseIDs,
	})
	if statusOf(err) == http.StatusBadRequest {
		return &domain.ErrValidation{Field: "phase_ids", Message: "must list every phase of the project exactly once"}
	}
	return external("supabase", err)
}
