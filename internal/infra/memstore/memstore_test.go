package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T) (*memstore.Store, domain.Profile) {
	t.Helper()
	s := memstore.New("test-secret", time.Hour, zap.NewNop())
	profiles, err := s.Seed(context.Background(), memstore.SeedUser{
		Email: "client@example.com", Password: "pw", FullName: "Client One", Role: domain.RoleClient,
	})
	require.NoError(t, err)
	return s, profiles[0]
}

func TestSignInAndVerify(t *testing.T) {
	s, profile := newStore(t)
	ctx := context.Background()

	tok, err := s.SignIn(ctx, "Client@Example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	u, err := s.VerifyToken(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, profile.UserID, u.ID)

	_, err = s.SignIn(ctx, "client@example.com", "wrong")
	var unauth *domain.ErrUnauthorized
	assert.ErrorAs(t, err, &unauth)

	_, err = s.VerifyToken(ctx, "not-a-token")
	assert.ErrorAs(t, err, &unauth)
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	s, _ := newStore(t)
	_, err := s.CreateUser(context.Background(), domain.CreateUserParams{Email: "client@example.com", Password: "x"})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestDeleteUser_CascadesProfile(t *testing.T) {
	s, profile := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteUser(ctx, profile.UserID))
	p, err := s.GetProfileByUserID(ctx, profile.UserID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestFindProjectForProfile_EmbedsOrdered(t *testing.T) {
	s, profile := newStore(t)
	ctx := context.Background()

	none, err := s.FindProjectForProfile(ctx, profile.ID)
	require.NoError(t, err)
	assert.Nil(t, none)

	proj, err := s.CreateProject(ctx, domain.ProjectInput{ProfileID: profile.ID, Name: "Rollout", Status: domain.ProjectActive})
	require.NoError(t, err)
	for i, name := range []string{"Build", "Discover"} {
		_, err := s.CreatePhase(ctx, domain.PhaseInput{ProjectID: proj.ID, Name: name, OrderIndex: 2 - i, Status: domain.PhaseNotStarted})
		require.NoError(t, err)
	}
	for _, due := range []string{"2026-01-01", "2026-06-01"} {
		_, err := s.CreatePayment(ctx, domain.PaymentInput{ProjectID: proj.ID, Name: due, Amount: 1, DueDate: due, Status: domain.PaymentPending})
		require.NoError(t, err)
	}

	got, err := s.FindProjectForProfile(ctx, profile.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Phases, 2)
	assert.Equal(t, "Discover", got.Phases[0].Name)
	require.Len(t, got.Payments, 2)
	assert.Equal(t, "2026-06-01", got.Payments[0].DueDate)
}

func TestReorderPhases_AllOrNothing(t *testing.T) {
	s, profile := newStore(t)
	ctx := context.Background()

	proj, err := s.CreateProject(ctx, domain.ProjectInput{ProfileID: profile.ID, Name: "P", Status: domain.ProjectPlanning})
	require.NoError(t, err)
	var ids []string
	for i := 1; i <= 3; i++ {
		ph, err := s.CreatePhase(ctx, domain.PhaseInput{ProjectID: proj.ID, Name: "ph", OrderIndex: i, Status: domain.PhaseNotStarted})
		require.NoError(t, err)
		ids = append(ids, ph.ID)
	}

	err = s.ReorderPhases(ctx, proj.ID, []string{ids[2], ids[0]})
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)

	phases, _ := s.ListPhases(ctx, domain.PhaseFilter{ProjectID: proj.ID})
	assert.Equal(t, ids, []string{phases[0].ID, phases[1].ID, phases[2].ID}, "failed reorder leaves rows untouched")

	other, err := s.CreateProject(ctx, domain.ProjectInput{ProfileID: profile.ID, Name: "Q", Status: domain.ProjectPlanning})
	require.NoError(t, err)
	foreign, err := s.CreatePhase(ctx, domain.PhaseInput{ProjectID: other.ID, Name: "elsewhere", OrderIndex: 1, Status: domain.PhaseNotStarted})
	require.NoError(t, err)
	err = s.ReorderPhases(ctx, proj.ID, []string{ids[2], foreign.ID, ids[1]})
	require.ErrorAs(t, err, &verr, "a foreign id with the right count is rejected")
	phases, _ = s.ListPhases(ctx, domain.PhaseFilter{ProjectID: proj.ID})
	assert.Equal(t, []int{1, 2, 3}, []int{phases[0].OrderIndex, phases[1].OrderIndex, phases[2].OrderIndex})

	require.NoError(t, s.ReorderPhases(ctx, proj.ID, []string{ids[2], ids[0], ids[1]}))
	phases, _ = s.ListPhases(ctx, domain.PhaseFilter{ProjectID: proj.ID})
	assert.Equal(t, []string{ids[2], ids[0], ids[1]}, []string{phases[0].ID, phases[1].ID, phases[2].ID})
	for i, p := range phases {
		assert.Equal(t, i+1, p.OrderIndex)
	}
}

func TestMarkOverdue(t *testing.T) {
	s, profile := newStore(t)
	ctx := context.Background()

	proj, err := s.CreateProject(ctx, domain.ProjectInput{ProfileID: profile.ID, Name: "P", Status: domain.ProjectActive})
	require.NoError(t, err)
	for _, in := range []domain.PaymentInput{
		{ProjectID: proj.ID, Name: "late", Amount: 1, DueDate: "2026-01-01", Status: domain.PaymentPending},
		{ProjectID: proj.ID, Name: "paid", Amount: 1, DueDate: "2026-01-01", Status: domain.PaymentPaid},
		{ProjectID: proj.ID, Name: "future", Amount: 1, DueDate: "2026-12-01", Status: domain.PaymentPending},
	} {
		_, err := s.CreatePayment(ctx, in)
		require.NoError(t, err)
	}

	n, err := s.MarkOverdue(ctx, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	overdue, _ := s.ListPayments(ctx, domain.PaymentFilter{ProjectID: proj.ID, Status: domain.PaymentOverdue})
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].Name)
}

func TestDashboardConfigUpsert(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	cfg, err := s.GetDashboardConfig(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, cfg)

	first, err := s.UpsertDashboardConfig(ctx, domain.DashboardConfig{Widgets: []string{domain.WidgetOverview}})
	require.NoError(t, err)
	second, err := s.UpsertDashboardConfig(ctx, domain.DashboardConfig{Widgets: []string{domain.WidgetROI}})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetDashboardConfig(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.WidgetROI}, got.Widgets)
}
