// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the service
// layer from the hosted store, the auth service and the cache.
package port

import (
	"context"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ProfileStore persists profiles (table "profiles").
type ProfileStore interface {
	ListProfiles(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error)
	GetProfile(ctx context.Context, profileID string) (*domain.Profile, error)
	// GetProfileByUserID returns nil, nil when the identity has no profile.
	GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, profileID string, update domain.ProfileUpdate) (*domain.Profile, error)
	DeleteProfile(ctx context.Context, profileID string) error
}

// ProjectStore persists projects (table "projects").
type ProjectStore interface {
	// FindProjectForProfile returns the first project owned by the profile with
	// phases and payment schedules embedded, or nil, nil when there is none.
	FindProjectForProfile(ctx context.Context, profileID string) (*domain.Project, error)
	ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error)
	GetProject(ctx context.Context, projectID string) (*domain.Project, error)
	CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error)
	UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error)
	DeleteProject(ctx context.Context, projectID string) error
}

// PhaseStore persists phases (table "phases").
type PhaseStore interface {
	ListPhases(ctx context.Context, filter domain.PhaseFilter) ([]domain.Phase, error)
	CreatePhase(ctx context.Context, in domain.PhaseInput) (*domain.Phase, error)
	UpdatePhase(ctx context.Context, phaseID string, update domain.PhaseUpdate) (*domain.Phase, error)
	DeletePhase(ctx context.Context, phaseID string) error
	// ReorderPhases assigns order_index 1..N following phaseIDs in a single write.
	ReorderPhases(ctx context.Context, projectID string, phaseIDs []string) error
}

// PaymentStore persists payment schedules (table "payment_schedules").
type PaymentStore interface {
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentSchedule, error)
	CreatePayment(ctx context.Context, in domain.PaymentInput) (*domain.PaymentSchedule, error)
	UpdatePayment(ctx context.Context, paymentID string, update domain.PaymentUpdate) (*domain.PaymentSchedule, error)
	DeletePayment(ctx context.Context, paymentID string) error
	// MarkOverdue flips pending payments due before day to overdue and returns how many changed.
	MarkOverdue(ctx context.Context, day time.Time) (int, error)
}

// DashboardConfigStore persists dashboard configs (table "dashboard_configs").
type DashboardConfigStore interface {
	// GetDashboardConfig returns the config for projectID, or the global config
	// when projectID is nil. Missing configs return nil, nil.
	GetDashboardConfig(ctx context.Context, projectID *string) (*domain.DashboardConfig, error)
	UpsertDashboardConfig(ctx context.Context, cfg domain.DashboardConfig) (*domain.DashboardConfig, error)
}

// ClientStore persists client business records (table "clients").
type ClientStore interface {
	CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error)
}

// Store groups every table the portal touches.
type Store interface {
	ProfileStore
	ProjectStore
	PhaseStore
	PaymentStore
	DashboardConfigStore
	ClientStore
}

// IdentityProvider is the hosted auth service.
type IdentityProvider interface {
	// VerifyToken resolves an access token to its identity.
	VerifyToken(ctx context.Context, token string) (*domain.AuthUser, error)
	CreateUser(ctx context.Context, params domain.CreateUserParams) (*domain.AuthUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
