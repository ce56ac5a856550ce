package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// DashboardConfigStore implementation
// ============================================================

func (c *Client) GetDashboardConfig(ctx context.Context, projectID *string) (*domain.DashboardConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetDashboardConfig")
	defer span.End()

	path := "dashboard_configs?select=*&limit=1&"
	if projectID == nil {
		path += "project_id=is.null"
	} else {
		path += eq("project_id", *projectID)
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, external("supabase", err)
	}
	return decodeFirst[domain.DashboardConfig](body, "dashboard_configs")
}

// UpsertDashboardConfig updates the existing row for the config's scope or inserts one.
func (c *Client) UpsertDashboardConfig(ctx context.Context, cfg domain.DashboardConfig) (*domain.DashboardConfig, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertDashboardConfig")
	defer span.End()

	existing, err := c.GetDashboardConfig(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	row := map[string]any{
		"project_id":    cfg.ProjectID,
		"widgets":       cfg.Widgets,
		"branding":      cfg.Branding,
		"permissions":   cfg.Permissions,
		"notifications": cfg.Notifications,
	}

	var body []byte
	if existing != nil {
		body, err = c.doPatch(ctx, "dashboard_configs?"+eq("id", existing.ID), row)
	} else {
		body, err = c.doPost(ctx, "dashboard_configs", row)
	}
	if err != nil {
		return nil, external("supabase", err)
	}
	saved, err := decodeFirst[domain.DashboardConfig](body, "dashboard_configs")
	if err != nil {
		return nil, err
	}
	if saved == nil {
		return &cfg, nil
	}
	return saved, nil
}
