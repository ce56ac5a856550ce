package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seededStore(t *testing.T) (*memstore.Store, string) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New("secret", time.Hour, zap.NewNop())
	profiles, err := store.Seed(ctx, memstore.SeedUser{Email: "c@x.io", Password: "pw", FullName: "C", Role: domain.RoleClient})
	require.NoError(t, err)
	p, err := store.CreateProject(ctx, domain.ProjectInput{ProfileID: profiles[0].ID, Name: "P", Status: domain.ProjectActive})
	require.NoError(t, err)
	return store, p.ID
}

func TestRun_MarksPastDuePending(t *testing.T) {
	store, projectID := seededStore(t)
	ctx := context.Background()
	for _, in := range []domain.PaymentInput{
		{ProjectID: projectID, Name: "late", Amount: 1, DueDate: "2026-03-01", Status: domain.PaymentPending},
		{ProjectID: projectID, Name: "today", Amount: 1, DueDate: "2026-03-10", Status: domain.PaymentPending},
		{ProjectID: projectID, Name: "paid", Amount: 1, DueDate: "2026-02-01", Status: domain.PaymentPaid},
	} {
		_, err := store.CreatePayment(ctx, in)
		require.NoError(t, err)
	}

	metrics := observability.NewMetrics()
	j := NewOverdueJob(store, "@hourly", metrics, zap.NewNop())
	j.now = func() time.Time { return time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC) }

	n, err := j.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), metrics.GetAdminSnapshot().PaymentsMarkedOverdue)

	overdue, err := store.ListPayments(ctx, domain.PaymentFilter{ProjectID: projectID, Status: domain.PaymentOverdue})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "late", overdue[0].Name)

	n, err = j.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "second sweep finds nothing")
}

type brokenPayments struct {
	*memstore.Store
}

func (brokenPayments) MarkOverdue(context.Context, time.Time) (int, error) {
	return 0, errors.New("store down")
}

func TestRun_PropagatesStoreError(t *testing.T) {
	store, _ := seededStore(t)
	metrics := observability.NewMetrics()
	j := NewOverdueJob(brokenPayments{store}, "@hourly", metrics, zap.NewNop())

	_, err := j.Run(context.Background())
	assert.Error(t, err)
	assert.Zero(t, metrics.GetAdminSnapshot().PaymentsMarkedOverdue)
}

func TestStart_DisabledAndInvalidSchedule(t *testing.T) {
	store, _ := seededStore(t)

	off := NewOverdueJob(store, "", observability.NewMetrics(), zap.NewNop())
	assert.False(t, off.Enabled())
	require.NoError(t, off.Start())
	off.Stop(context.Background())

	bad := NewOverdueJob(store, "every tuesday-ish", observability.NewMetrics(), zap.NewNop())
	assert.Error(t, bad.Start())

	ok := NewOverdueJob(store, "@every 1h", observability.NewMetrics(), zap.NewNop())
	require.NoError(t, ok.Start())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok.Stop(ctx)
}
