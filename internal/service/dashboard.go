package service

import (
	"context"
	"fmt"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var dashTracer = otel.Tracer("service/dashboard")

// NoProjectMessage is shown when a profile has no project yet.
const NoProjectMessage = "No project found"

// ConfigEntry is one cached dashboard_configs lookup. A nil Config records
// that the row does not exist.
type ConfigEntry struct {
	Config *domain.DashboardConfig `json:"config"`
}

// DashboardService composes the dashboard view and manages its configuration.
type DashboardService struct {
	projects port.ProjectStore
	profiles port.ProfileStore
	configs  port.DashboardConfigStore
	cache    port.Cache[ConfigEntry]
	defaults domain.DashboardConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDashboardService creates the service. defaults is the bottom layer of
// every merged configuration.
func NewDashboardService(
	store port.Store,
	cache port.Cache[ConfigEntry],
	defaults domain.DashboardConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		projects: store,
		profiles: store,
		configs:  store,
		cache:    cache,
		defaults: defaults,
		metrics:  metrics,
		logger:   logger,
	}
}

// Compose builds the caller's dashboard. With an empty projectID the caller's
// own most recent project is used; staff may name any project.
func (s *DashboardService) Compose(ctx context.Context, caller *guard.Identity, projectID string) (*domain.DashboardView, error) {
	ctx, span := dashTracer.Start(ctx, "DashboardService.Compose")
	defer span.End()

	if !caller.HasProfile() {
		return nil, &domain.ErrForbidden{Action: "view dashboard without a profile"}
	}
	profile, err := s.profiles.GetProfile(ctx, caller.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var project *domain.Project
	if projectID != "" {
		project, err = authorizeProject(ctx, s.projects, caller, projectID)
	} else {
		project, err = s.projects.FindProjectForProfile(ctx, profile.ID)
	}
	if err != nil {
		return nil, err
	}

	if project == nil {
		cfg, err := s.MergedConfig(ctx, nil)
		if err != nil {
			return nil, err
		}
		return &domain.DashboardView{
			Empty:   true,
			Message: NoProjectMessage,
			Profile: profile,
			Config:  cfg,
		}, nil
	}

	cfg, err := s.MergedConfig(ctx, &project.ID)
	if err != nil {
		return nil, err
	}
	return BuildView(profile, project, cfg), nil
}

// BuildView applies widget gating to a loaded project.
func BuildView(profile *domain.Profile, project *domain.Project, cfg domain.DashboardConfig) *domain.DashboardView {
	view := &domain.DashboardView{
		Profile:     profile,
		StatusColor: domain.StatusColor(project.Status),
		Config:      cfg,
	}

	names := []string{
		domain.WidgetOverview, domain.WidgetPhases, domain.WidgetPayments, domain.WidgetROI,
		domain.WidgetTimeline, domain.WidgetTeam, domain.WidgetTasks,
	}
	for _, name := range names {
		view.Widgets = append(view.Widgets, domain.WidgetView{Name: name, Visible: cfg.WidgetEnabled(name)})
	}

	p := *project
	p.Phases, p.Payments = nil, nil
	view.Project = &p

	phases := append([]domain.Phase(nil), project.Phases...)
	domain.SortPhases(phases)
	if cfg.WidgetEnabled(domain.WidgetPhases) || cfg.WidgetEnabled(domain.WidgetTimeline) {
		view.Phases = phases
		stats := domain.ComputePhaseStats(phases)
		view.PhaseStats = &stats
	}

	if cfg.WidgetEnabled(domain.WidgetPayments) {
		payments := append([]domain.PaymentSchedule(nil), project.Payments...)
		domain.SortPaymentsByDueDesc(payments)
		view.Payments = payments
		stats := domain.ComputePaymentStats(payments)
		view.PaymentStats = &stats
	}

	if cfg.WidgetEnabled(domain.WidgetROI) {
		roi := domain.ComputeROI(project)
		view.ROI = &roi
	}
	return view
}

// MergedConfig returns default <- global <- project for projectID (nil means
// global only). Both scopes are read concurrently.
func (s *DashboardService) MergedConfig(ctx context.Context, projectID *string) (domain.DashboardConfig, error) {
	ctx, span := dashTracer.Start(ctx, "DashboardService.MergedConfig")
	defer span.End()

	var global, scoped *domain.DashboardConfig
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		global, err = s.config(gctx, nil)
		return err
	})
	if projectID != nil {
		g.Go(func() error {
			var err error
			scoped, err = s.config(gctx, projectID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DashboardConfig{}, fmt.Errorf("load dashboard config: %w", err)
	}
	return domain.MergeDashboardConfig(s.defaults, global, scoped), nil
}

// PaymentsVisible reports whether clients of the project may see payments.
func (s *DashboardService) PaymentsVisible(ctx context.Context, projectID string) (bool, error) {
	cfg, err := s.MergedConfig(ctx, &projectID)
	if err != nil {
		return false, err
	}
	return cfg.WidgetEnabled(domain.WidgetPayments), nil
}

// SaveConfig stores the configuration of one scope (staff only) and drops its
// cache entry. A nil projectID saves the global configuration (admin only).
func (s *DashboardService) SaveConfig(ctx context.Context, caller *guard.Identity, projectID *string, cfg domain.DashboardConfig) (*domain.DashboardConfig, error) {
	ctx, span := dashTracer.Start(ctx, "DashboardService.SaveConfig")
	defer span.End()

	if projectID == nil {
		if err := requireAdmin(caller, "edit the global dashboard config"); err != nil {
			return nil, err
		}
	} else {
		if err := requireStaff(caller, "edit dashboard config"); err != nil {
			return nil, err
		}
		if _, err := s.projects.GetProject(ctx, *projectID); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.ProjectID = projectID
	saved, err := s.configs.UpsertDashboardConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("save dashboard config: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(configCacheKey(projectID))
	}
	s.logger.Info("dashboard config saved",
		zap.String("scope", configCacheKey(projectID)),
		zap.String("caller", callerID(caller)),
	)
	return saved, nil
}

func (s *DashboardService) config(ctx context.Context, projectID *string) (*domain.DashboardConfig, error) {
	key := configCacheKey(projectID)
	if s.cache != nil {
		if e, ok := s.cache.Get(key); ok {
			s.metrics.IncrCacheHit("dashboard_config")
			return e.Config, nil
		}
		s.metrics.IncrCacheMiss("dashboard_config")
	}

	cfg, err := s.configs.GetDashboardConfig(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(key, ConfigEntry{Config: cfg})
	}
	return cfg, nil
}

func configCacheKey(projectID *string) string {
	if projectID == nil {
		return "dashcfg:global"
	}
	return "dashcfg:" + *projectID
}
