package service

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/port"
)

// ============================================================
// Access rules shared by hooks and services
// ============================================================

// requireStaff allows admins and team members.
func requireStaff(caller *guard.Identity, action string) error {
	if !caller.IsStaff() {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// requireAdmin allows admins only.
func requireAdmin(caller *guard.Identity, action string) error {
	if !caller.IsAdmin() {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// authorizeProject lets staff see any project and clients only their own.
func authorizeProject(ctx context.Context, projects port.ProjectStore, caller *guard.Identity, projectID string) (*domain.Project, error) {
	if caller == nil {
		return nil, &domain.ErrUnauthorized{}
	}
	p, err := projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && p.ProfileID != caller.ProfileID {
		// Indistinguishable from a missing project.
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	return p, nil
}
