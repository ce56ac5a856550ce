package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/infra/cache"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// env is a seeded in-memory portal: one admin, one team member, one client
// owning one project.
type env struct {
	store    *memstore.Store
	metrics  *observability.Metrics
	recorder *service.Recorder
	deps     service.HookDeps
	admin    *guard.Identity
	team     *guard.Identity
	client   *guard.Identity
	other    *guard.Identity
	project  *domain.Project
}

func identityOf(p domain.Profile) *guard.Identity {
	return &guard.Identity{UserID: p.UserID, Email: p.Email, ProfileID: p.ID, FullName: p.FullName, Role: p.Role}
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	store := memstore.New("secret", time.Hour, zap.NewNop())
	profiles, err := store.Seed(ctx,
		memstore.SeedUser{Email: "admin@x.io", Password: "pw", FullName: "Ada Admin", Role: domain.RoleAdmin},
		memstore.SeedUser{Email: "team@x.io", Password: "pw", FullName: "Tim Team", Role: domain.RoleTeamMember},
		memstore.SeedUser{Email: "client@x.io", Password: "pw", FullName: "Cleo Client", Role: domain.RoleClient},
		memstore.SeedUser{Email: "other@x.io", Password: "pw", FullName: "Otto Other", Role: domain.RoleClient},
	)
	require.NoError(t, err)

	total, savings, roi := 24000.0, 2000.0, 40.0
	project, err := store.CreateProject(ctx, domain.ProjectInput{
		ProfileID: profiles[2].ID, Name: "ERP rollout", Status: domain.ProjectActive, ProgressPercentage: 35,
		TotalAmount: &total, MonthlySavings: &savings, AnnualROIPercentage: &roi,
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	cfgCache := cache.New[service.ConfigEntry](time.Minute)
	t.Cleanup(cfgCache.Close)
	dash := service.NewDashboardService(store, cfgCache, domain.DefaultDashboardConfig(), metrics, zap.NewNop())
	recorder := service.NewRecorder(service.NewLogNotifier(metrics, zap.NewNop()))

	return &env{
		store:    store,
		metrics:  metrics,
		recorder: recorder,
		deps: service.HookDeps{
			Store: store, Dashboard: dash, Notifier: recorder, Metrics: metrics, Logger: zap.NewNop(),
		},
		admin:   identityOf(profiles[0]),
		team:    identityOf(profiles[1]),
		client:  identityOf(profiles[2]),
		other:   identityOf(profiles[3]),
		project: project,
	}
}

func (e *env) addPhases(t *testing.T, names ...string) []domain.Phase {
	t.Helper()
	var out []domain.Phase
	for i, n := range names {
		p, err := e.store.CreatePhase(context.Background(), domain.PhaseInput{
			ProjectID: e.project.ID, Name: n, OrderIndex: (i + 1) * 10, Status: domain.PhaseNotStarted,
		})
		require.NoError(t, err)
		out = append(out, *p)
	}
	return out
}

func (e *env) addPayment(t *testing.T, name string, amount float64, due string, status domain.PaymentStatus) domain.PaymentSchedule {
	t.Helper()
	p, err := e.store.CreatePayment(context.Background(), domain.PaymentInput{
		ProjectID: e.project.ID, Name: name, Amount: amount, DueDate: due, Status: status,
	})
	require.NoError(t, err)
	return *p
}
