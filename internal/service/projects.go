package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var projTracer = otel.Tracer("service/projects")

// ProjectsService manages projects. Staff see every project; clients only their own.
type ProjectsService struct {
	store     port.Store
	dashboard *DashboardService
	logger    *zap.Logger
}

// NewProjectsService creates the service.
func NewProjectsService(store port.Store, dashboard *DashboardService, logger *zap.Logger) *ProjectsService {
	return &ProjectsService{store: store, dashboard: dashboard, logger: logger}
}

func (s *ProjectsService) List(ctx context.Context, caller *guard.Identity, status domain.ProjectStatus) ([]domain.Project, error) {
	ctx, span := projTracer.Start(ctx, "ProjectsService.List")
	defer span.End()

	if status != "" && !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown status " + string(status)}
	}
	filter := domain.ProjectFilter{Status: status}
	if !caller.IsStaff() {
		filter.ProfileID = caller.ProfileID
	}
	return s.store.ListProjects(ctx, filter)
}

// Get returns the project with phases and payments embedded. Payments are
// dropped for clients when the payments widget is hidden.
func (s *ProjectsService) Get(ctx context.Context, caller *guard.Identity, projectID string) (*domain.Project, error) {
	ctx, span := projTracer.Start(ctx, "ProjectsService.Get")
	defer span.End()

	p, err := authorizeProject(ctx, s.store, caller, projectID)
	if err != nil {
		return nil, err
	}
	if !caller.IsStaff() && s.dashboard != nil {
		visible, err := s.dashboard.PaymentsVisible(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if !visible {
			p.Payments = nil
		}
	}
	return p, nil
}

func (s *ProjectsService) Create(ctx context.Context, caller *guard.Identity, in domain.ProjectInput) (*domain.Project, error) {
	ctx, span := projTracer.Start(ctx, "ProjectsService.Create")
	defer span.End()

	if err := requireStaff(caller, "create projects"); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetProfile(ctx, in.ProfileID); err != nil {
		return nil, err
	}
	p, err := s.store.CreateProject(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info("project created", zap.String("project_id", p.ID), zap.String("profile_id", p.ProfileID))
	return p, nil
}

func (s *ProjectsService) Update(ctx context.Context, caller *guard.Identity, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	ctx, span := projTracer.Start(ctx, "ProjectsService.Update")
	defer span.End()

	if err := requireStaff(caller, "update projects"); err != nil {
		return nil, err
	}
	if err := update.Validate(); err != nil {
		return nil, err
	}
	if len(update.Fields()) == 0 {
		return nil, &domain.ErrValidation{Message: "No fields to update"}
	}
	return s.store.UpdateProject(ctx, projectID, update)
}

func (s *ProjectsService) Delete(ctx context.Context, caller *guard.Identity, projectID string) error {
	ctx, span := projTracer.Start(ctx, "ProjectsService.Delete")
	defer span.End()

	if err := requireAdmin(caller, "delete projects"); err != nil {
		return err
	}
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.logger.Info("project deleted", zap.String("project_id", projectID), zap.String("by", callerID(caller)))
	return nil
}
