package service

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
)

// DashboardHook holds the composed dashboard of one caller.
type DashboardHook struct {
	state[domain.DashboardView]
	base

	svc       *DashboardService
	projectID string
}

// NewDashboardHook creates a hook for the caller's dashboard. projectID may be
// empty to use the caller's own project.
func NewDashboardHook(deps HookDeps, caller *guard.Identity, projectID string) *DashboardHook {
	return &DashboardHook{
		base:      newBase("dashboard", deps, caller),
		svc:       deps.Dashboard,
		projectID: projectID,
	}
}

// Fetch composes the dashboard. No project is a successful empty view.
func (h *DashboardHook) Fetch(ctx context.Context) bool {
	ctx, span := hookTracer.Start(ctx, "DashboardHook.Fetch")
	defer span.End()

	h.begin()
	view, err := h.svc.Compose(ctx, h.caller, h.projectID)
	if err != nil {
		h.fail(h.report(ctx, "load dashboard", err), err)
		return false
	}
	h.succeed([]domain.DashboardView{*view})
	return true
}

// Refresh recomposes the dashboard; it is the retry action after a failure.
func (h *DashboardHook) Refresh(ctx context.Context) bool {
	return h.Fetch(ctx)
}

// View returns the held dashboard, or nil before a successful fetch.
func (h *DashboardHook) View() *domain.DashboardView {
	items := h.Items()
	if len(items) == 0 {
		return nil
	}
	return &items[0]
}
