package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProjects_ListScopesClients(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := service.NewProjectsService(e.store, e.deps.Dashboard, zap.NewNop())

	_, err := svc.Create(ctx, e.team, domain.ProjectInput{ProfileID: e.other.ProfileID, Name: "Second"})
	require.NoError(t, err)

	all, err := svc.List(ctx, e.team, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(ctx, e.client, "")
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, e.project.ID, own[0].ID)

	_, err = svc.List(ctx, e.team, "archived")
	var verr *domain.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestProjects_GetStripsHiddenPayments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.addPayment(t, "Deposit", 1000, "2026-01-15", domain.PaymentPaid)
	svc := service.NewProjectsService(e.store, e.deps.Dashboard, zap.NewNop())

	_, err := e.deps.Dashboard.SaveConfig(ctx, e.team, &e.project.ID, domain.DashboardConfig{
		Permissions: &domain.Permissions{ViewPayments: false},
	})
	require.NoError(t, err)

	forClient, err := svc.Get(ctx, e.client, e.project.ID)
	require.NoError(t, err)
	assert.Empty(t, forClient.Payments)

	forStaff, err := svc.Get(ctx, e.team, e.project.ID)
	require.NoError(t, err)
	assert.Len(t, forStaff.Payments, 1)
}

func TestProjects_MutationRoles(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := service.NewProjectsService(e.store, e.deps.Dashboard, zap.NewNop())
	var forbidden *domain.ErrForbidden

	name := "Renamed"
	_, err := svc.Update(ctx, e.client, e.project.ID, domain.ProjectUpdate{Name: &name})
	assert.ErrorAs(t, err, &forbidden)

	_, err = svc.Update(ctx, e.team, e.project.ID, domain.ProjectUpdate{})
	var verr *domain.ErrValidation
	assert.ErrorAs(t, err, &verr)

	updated, err := svc.Update(ctx, e.team, e.project.ID, domain.ProjectUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	assert.ErrorAs(t, svc.Delete(ctx, e.team, e.project.ID), &forbidden)
	require.NoError(t, svc.Delete(ctx, e.admin, e.project.ID))

	_, err = svc.Get(ctx, e.admin, e.project.ID)
	var nf *domain.ErrNotFound
	assert.ErrorAs(t, err, &nf)
}
