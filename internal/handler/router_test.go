package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/handler"
	"github.com/boddenberg/project-portal-go/internal/infra/cache"
	"github.com/boddenberg/project-portal-go/internal/infra/memstore"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/infra/resilience"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	router  http.Handler
	store   *memstore.Store
	metrics *observability.Metrics
	tokens  map[domain.Role]string
	other   string
	project *domain.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()
	store := memstore.New("test-secret", time.Hour, logger)

	profiles, err := store.Seed(ctx,
		memstore.SeedUser{Email: "admin@x.io", Password: "pw", FullName: "Ada Admin", Role: domain.RoleAdmin},
		memstore.SeedUser{Email: "team@x.io", Password: "pw", FullName: "Tim Team", Role: domain.RoleTeamMember},
		memstore.SeedUser{Email: "client@x.io", Password: "pw", FullName: "Cleo Client", Role: domain.RoleClient},
		memstore.SeedUser{Email: "other@x.io", Password: "pw", FullName: "Otto Other", Role: domain.RoleClient},
	)
	require.NoError(t, err)

	project, err := store.CreateProject(ctx, domain.ProjectInput{
		ProfileID: profiles[2].ID, Name: "ERP rollout", Status: domain.ProjectActive,
	})
	require.NoError(t, err)

	metrics := observability.NewMetrics()
	cfgCache := cache.New[service.ConfigEntry](time.Minute)
	idCache := cache.New[guard.CacheEntry](time.Minute)
	idemCache := cache.New[domain.CreateUserResponse](time.Minute)
	t.Cleanup(func() {
		cfgCache.Close()
		idCache.Close()
		idemCache.Close()
	})

	dash := service.NewDashboardService(store, cfgCache, domain.DefaultDashboardConfig(), metrics, logger)
	router := handler.NewRouter(&handler.Deps{
		Store:        store,
		Health:       store,
		Resolver:     guard.NewResolver(store, store, idCache, metrics, logger),
		Dashboard:    dash,
		Projects:     service.NewProjectsService(store, dash, logger),
		Provisioning: service.NewProvisioningService(store, store, idemCache, resilience.Config{}, metrics, logger),
		Notifier:     service.NewLogNotifier(metrics, logger),
		DevTokens:    store,

		AuthEntryPoint:     "/auth",
		CORSAllowedOrigins: []string{"*"},
		Metrics:            metrics,
		Logger:             logger,
	})

	tokens := map[domain.Role]string{}
	for _, p := range profiles[:3] {
		tok, err := store.IssueToken(p.UserID)
		require.NoError(t, err)
		tokens[p.Role] = tok
	}
	other, err := store.IssueToken(profiles[3].UserID)
	require.NoError(t, err)

	return &fixture{router: router, store: store, metrics: metrics, tokens: tokens, other: other, project: project}
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errBody struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

type phasesBody struct {
	Data  []domain.Phase    `json:"data"`
	Stats domain.PhaseStats `json:"stats"`
}

type paymentsBody struct {
	Data          []domain.PaymentSchedule `json:"data"`
	Stats         domain.PaymentStats      `json:"stats"`
	Notifications []service.Notification   `json:"notifications"`
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		rec := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	health := decode[domain.HealthStatus](t, f.do(t, http.MethodGet, "/healthz", "", nil))
	assert.Equal(t, "healthy", health.Status)
}

func TestV1_RequiresIdentity(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errBody](t, rec)
	assert.Equal(t, "/auth?redirect=%2Fv1%2Fdashboard", body.Redirect)

	req := httptest.NewRequest(http.MethodGet, "/v1/dashboard", nil)
	req.Header.Set("Accept", "text/html")
	browser := httptest.NewRecorder()
	f.router.ServeHTTP(browser, req)
	assert.Equal(t, http.StatusFound, browser.Code)

	rec = f.do(t, http.MethodGet, "/v1/dashboard", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMe(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/me", f.tokens[domain.RoleClient], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		Identity guard.Identity `json:"identity"`
		Profile  domain.Profile `json:"profile"`
	}](t, rec)
	assert.Equal(t, domain.RoleClient, me.Profile.Role)

	rec = f.do(t, http.MethodPatch, "/v1/me", f.tokens[domain.RoleClient], map[string]string{"full_name": "Cleo C."})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/me", f.tokens[domain.RoleClient], nil)
	me = decode[struct {
		Identity guard.Identity `json:"identity"`
		Profile  domain.Profile `json:"profile"`
	}](t, rec)
	assert.Equal(t, "Cleo C.", me.Profile.FullName)
	assert.Equal(t, "Cleo C.", me.Identity.FullName, "cached identity refreshed")
	assert.Equal(t, domain.RoleClient, me.Profile.Role, "role is not editable")
}

func TestDashboard_EmptyStateAndOwnProject(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/dashboard", f.other, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	empty := decode[struct {
		Data domain.DashboardView `json:"data"`
	}](t, rec)
	assert.True(t, empty.Data.Empty)
	assert.Equal(t, service.NoProjectMessage, empty.Data.Message)

	rec = f.do(t, http.MethodGet, "/v1/dashboard", f.tokens[domain.RoleClient], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	own := decode[struct {
		Data domain.DashboardView `json:"data"`
	}](t, rec)
	require.NotNil(t, own.Data.Project)
	assert.Equal(t, f.project.ID, own.Data.Project.ID)
}

func TestProjects_RoleGates(t *testing.T) {
	f := newFixture(t)
	base := "/v1/projects/" + f.project.ID

	rec := f.do(t, http.MethodPatch, base, f.tokens[domain.RoleClient], map[string]string{"name": "x"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Access denied", decode[errBody](t, rec).Error)

	rec = f.do(t, http.MethodGet, base, f.other, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "foreign projects are invisible")

	rec = f.do(t, http.MethodPatch, base, f.tokens[domain.RoleTeamMember], map[string]any{"progress_percentage": 180})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, decode[domain.Project](t, rec).ProgressPercentage)

	rec = f.do(t, http.MethodDelete, base, f.tokens[domain.RoleTeamMember], nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, base, f.tokens[domain.RoleAdmin], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPhases_CreateReorderProgress(t *testing.T) {
	f := newFixture(t)
	team := f.tokens[domain.RoleTeamMember]
	base := "/v1/projects/" + f.project.ID + "/phases"

	for _, name := range []string{"Discovery", "Build", "Launch"} {
		rec := f.do(t, http.MethodPost, base, team, map[string]string{"name": name})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	listed := decode[phasesBody](t, f.do(t, http.MethodGet, base, f.tokens[domain.RoleClient], nil))
	require.Len(t, listed.Data, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{listed.Data[0].OrderIndex, listed.Data[1].OrderIndex, listed.Data[2].OrderIndex})

	order := []string{listed.Data[2].ID, listed.Data[0].ID, listed.Data[1].ID}
	rec := f.do(t, http.MethodPut, base+"/order", team, map[string]any{"phase_ids": order})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	reordered := decode[phasesBody](t, rec)
	assert.Equal(t, "Launch", reordered.Data[0].Name)
	assert.Equal(t, 1, reordered.Data[0].OrderIndex)

	rec = f.do(t, http.MethodPut, base+"/order", team, map[string]any{"phase_ids": order[:2]})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, base+"/"+order[0]+"/progress", team, map[string]int{"progress": 150})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	progressed := decode[phasesBody](t, rec)
	assert.Equal(t, 100, progressed.Data[0].ProgressPercentage)
	assert.Equal(t, domain.PhaseCompleted, progressed.Data[0].Status)
	assert.Equal(t, 1, progressed.Stats.Completed)

	rec = f.do(t, http.MethodPut, base+"/"+order[0]+"/progress", team, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, base, f.tokens[domain.RoleClient], map[string]string{"name": "Sneaky"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPayments_LifecycleAndVisibility(t *testing.T) {
	f := newFixture(t)
	team := f.tokens[domain.RoleTeamMember]
	base := "/v1/projects/" + f.project.ID + "/payments"

	rec := f.do(t, http.MethodPost, base, team, map[string]any{"name": "Deposit", "amount": 1000, "due_date": "2026-01-15"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[paymentsBody](t, rec)
	require.Len(t, created.Data, 1)
	require.NotEmpty(t, created.Notifications)
	assert.Equal(t, service.LevelSuccess, created.Notifications[0].Level)

	rec = f.do(t, http.MethodPost, base+"/"+created.Data[0].ID+"/paid", team, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	paid := decode[paymentsBody](t, rec)
	assert.Equal(t, domain.PaymentPaid, paid.Data[0].Status)
	assert.Equal(t, 1000.0, paid.Stats.PaidAmount)

	rec = f.do(t, http.MethodPost, base, team, map[string]any{"name": "Bad", "amount": 1, "due_date": "tomorrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	failed := decode[struct {
		Error         string                 `json:"error"`
		Notifications []service.Notification `json:"notifications"`
	}](t, rec)
	assert.Contains(t, failed.Error, "due_date")
	require.NotEmpty(t, failed.Notifications)
	assert.Equal(t, service.LevelError, failed.Notifications[0].Level)

	rec = f.do(t, http.MethodGet, base, f.tokens[domain.RoleClient], nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/projects/"+f.project.ID+"/dashboard-config", team,
		map[string]any{"permissions": map[string]bool{"viewPayments": false, "viewTimeline": true}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, base, f.tokens[domain.RoleClient], nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = f.do(t, http.MethodGet, base, team, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, base+"?status=late", team, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfiles_AdminOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/profiles", f.tokens[domain.RoleTeamMember], nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/profiles?role=client", f.tokens[domain.RoleAdmin], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[struct {
		Data  []domain.Profile    `json:"data"`
		Stats domain.ProfileStats `json:"stats"`
	}](t, rec)
	assert.Len(t, body.Data, 2)
	assert.Equal(t, 2, body.Stats.Clients)

	rec = f.do(t, http.MethodGet, "/v1/admin/stats", f.tokens[domain.RoleAdmin], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProfiles_DeletedProfileLosesAccess(t *testing.T) {
	f := newFixture(t)
	team := f.tokens[domain.RoleTeamMember]

	rec := f.do(t, http.MethodGet, "/v1/me", team, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[struct {
		Identity guard.Identity `json:"identity"`
	}](t, rec)
	require.Equal(t, domain.RoleTeamMember, me.Identity.Role)

	rec = f.do(t, http.MethodDelete, "/v1/profiles/"+me.Identity.ProfileID, f.tokens[domain.RoleAdmin], nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/v1/projects/"+f.project.ID+"/phases", team, map[string]any{"name": "After removal"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	phases, err := f.store.ListPhases(context.Background(), domain.PhaseFilter{ProjectID: f.project.ID})
	require.NoError(t, err)
	assert.Empty(t, phases)
}

func TestGlobalDashboardConfig_AdminOnly(t *testing.T) {
	f := newFixture(t)
	cfg := map[string]any{"branding": map[string]string{"primaryColor": "#000000"}}

	rec := f.do(t, http.MethodPut, "/v1/dashboard-config", f.tokens[domain.RoleTeamMember], cfg)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/dashboard-config", f.tokens[domain.RoleAdmin], cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	merged := decode[domain.DashboardConfig](t, f.do(t, http.MethodGet, "/v1/dashboard-config", f.tokens[domain.RoleClient], nil))
	assert.Equal(t, "#000000", merged.Branding.PrimaryColor)
}

func TestDevToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/dev/token", "", map[string]string{"email": "team@x.io", "password": "pw"})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decode[domain.TokenResponse](t, rec)
	assert.Equal(t, "bearer", tok.TokenType)

	rec = f.do(t, http.MethodGet, "/v1/me", tok.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/dev/token", "", map[string]string{"email": "team@x.io", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
