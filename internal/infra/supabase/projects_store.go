package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// ProjectStore implementation
// ============================================================

const projectEmbed = "select=*,phases(*),payment_schedules(*)"

// FindProjectForProfile returns the profile's most recent project with its
// phases (by order_index) and payments (latest due date first).
func (c *Client) FindProjectForProfile(ctx context.Context, profileID string) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindProjectForProfile")
	defer span.End()

	path := "projects?" + projectEmbed + "&" + eq("profile_id", profileID) + "&order=created_at.desc&limit=1"
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Project](body, "projects")
	if err != nil || p == nil {
		return p, err
	}
	domain.SortPhases(p.Phases)
	domain.SortPaymentsByDueDesc(p.Payments)
	return p, nil
}

func (c *Client) ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProjects")
	defer span.End()

	path := "projects?select=*&order=created_at.desc"
	if filter.ProfileID != "" {
		path += "&" + eq("profile_id", filter.ProfileID)
	}
	if filter.Status != "" {
		path += "&" + eq("status", string(filter.Status))
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, external("supabase", err)
	}
	return decodeRows[domain.Project](body, "projects")
}

func (c *Client) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProject")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "projects?"+projectEmbed+"&"+eq("id", projectID)+"&limit=1")
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Project](body, "projects")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	domain.SortPhases(p.Phases)
	domain.SortPaymentsByDueDesc(p.Payments)
	return p, nil
}

func (c *Client) CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProject")
	defer span.End()

	body, err := c.doPost(ctx, "projects", in)
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Project](body, "projects")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrExternalService{Service: "supabase", Err: errEmptyInsert}
	}
	return p, nil
}

func (c *Client) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProject")
	defer span.End()

	body, err := c.doPatch(ctx, "projects?"+eq("id", projectID), update.Fields())
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Project](body, "projects")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	return p, nil
}

func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProject")
	defer span.End()

	return external("supabase", c.doDelete(ctx, "projects?"+eq("id", projectID)))
}
