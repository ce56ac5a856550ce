package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const createUserPath = "/functions/v1/create-user"

func assertCORS(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "authorization")
}

func TestProvisioning_Preflight(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodOptions, createUserPath, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assertCORS(t, rec)
}

func TestProvisioning_OtherMethodsKeepCORS(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		rec := f.do(t, method, createUserPath, f.tokens[domain.RoleAdmin], nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assertCORS(t, rec)
		assert.Equal(t, "OPTIONS, POST", rec.Header().Get("Allow"))
		assert.Equal(t, "Method not allowed", decode[errBody](t, rec).Error)
	}
}

func TestProvisioning_Contract(t *testing.T) {
	valid := map[string]any{"email": "new@acme.io", "password": "s3cret!", "full_name": "Nina New", "role": "client"}

	tests := []struct {
		name    string
		role    domain.Role
		noToken bool
		body    map[string]any
		status  int
		message string
	}{
		{name: "missing token", noToken: true, body: valid, status: http.StatusUnauthorized, message: service.MsgMissingAuth},
		{name: "non-admin", role: domain.RoleTeamMember, body: valid, status: http.StatusForbidden, message: service.MsgAdminRequired},
		{name: "client caller", role: domain.RoleClient, body: valid, status: http.StatusForbidden, message: service.MsgAdminRequired},
		{
			name:    "missing role",
			role:    domain.RoleAdmin,
			body:    map[string]any{"email": "new@acme.io", "password": "s3cret!", "full_name": "Nina New"},
			status:  http.StatusBadRequest,
			message: "Missing required fields",
		},
		{
			name:    "duplicate email",
			role:    domain.RoleAdmin,
			body:    map[string]any{"email": "team@x.io", "password": "s3cret!", "full_name": "Dup", "role": "client"},
			status:  http.StatusBadRequest,
			message: "A user with this email address has already been registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			token := ""
			if !tt.noToken {
				token = f.tokens[tt.role]
			}
			rec := f.do(t, http.MethodPost, createUserPath, token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assertCORS(t, rec)
			body := decode[errBody](t, rec)
			if tt.message != "" {
				assert.Equal(t, tt.message, body.Error)
			} else {
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestProvisioning_InvalidToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, createUserPath, "forged", map[string]string{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, service.MsgInvalidToken, decode[errBody](t, rec).Error)
}

func TestProvisioning_MalformedBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, createUserPath, strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+f.tokens[domain.RoleAdmin])
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assertCORS(t, rec)
}

func TestProvisioning_CreatesClient(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, createUserPath, f.tokens[domain.RoleAdmin], map[string]any{
		"email": "new@acme.io", "password": "s3cret!", "full_name": "Nina New", "role": "client", "company": "Acme",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[domain.CreateUserResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "new@acme.io", resp.User.Email)
	assert.Equal(t, domain.RoleClient, resp.User.Role)

	rec = f.do(t, http.MethodPost, "/v1/dev/token", "", map[string]string{"email": "new@acme.io", "password": "s3cret!"})
	assert.Equal(t, http.StatusOK, rec.Code, "new user can sign in")
}

func TestProvisioning_IdempotencyKey(t *testing.T) {
	f := newFixture(t)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, createUserPath, strings.NewReader(
			`{"email":"new@acme.io","password":"s3cret!","full_name":"Nina New","role":"team_member"}`))
		req.Header.Set("Authorization", "Bearer "+f.tokens[domain.RoleAdmin])
		req.Header.Set("Idempotency-Key", "abc")
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	first := send()
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := send()
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.Equal(t,
		decode[domain.CreateUserResponse](t, first).User.ID,
		decode[domain.CreateUserResponse](t, second).User.ID)
}

func TestProvisioning_AdminUsersAlias(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/admin/users", f.tokens[domain.RoleTeamMember], map[string]any{
		"email": "new@acme.io", "password": "s3cret!", "full_name": "Nina New", "role": "client",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/admin/users", f.tokens[domain.RoleAdmin], map[string]any{
		"email": "new@acme.io", "password": "s3cret!", "full_name": "Nina New", "role": "client",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[domain.CreateUserResponse](t, rec).Success)
}
