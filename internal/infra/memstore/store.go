// Package memstore is an in-process implementation of the portal's store and
// identity ports. It backs local development and the handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("memstore")

// Store keeps every table in maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
	projects map[string]domain.Project
	phases   map[string]domain.Phase
	payments map[string]domain.PaymentSchedule
	configs  map[string]domain.DashboardConfig
	clients  map[string]domain.Client
	users    map[string]user

	jwtSecret []byte
	accessTTL time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// New creates an empty store. Tokens are HS256-signed with jwtSecret.
func New(jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *Store {
	return &Store{
		profiles:  make(map[string]domain.Profile),
		projects:  make(map[string]domain.Project),
		phases:    make(map[string]domain.Phase),
		payments:  make(map[string]domain.PaymentSchedule),
		configs:   make(map[string]domain.DashboardConfig),
		clients:   make(map[string]domain.Client),
		users:     make(map[string]user),
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		now:       time.Now,
		logger:    logger,
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ============================================================
// Profiles
// ============================================================

func (s *Store) ListProfiles(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	_, span := tracer.Start(ctx, "Memstore.ListProfiles")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Filter(lo.Values(s.profiles), func(p domain.Profile, _ int) bool {
		return filter.Role == "" || p.Role == filter.Role
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: profileID}
	}
	return &p, nil
}

func (s *Store) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := lo.Find(lo.Values(s.profiles), func(p domain.Profile) bool { return p.UserID == userID })
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	_, span := tracer.Start(ctx, "Memstore.CreateProfile")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.profiles {
		if existing.UserID == profile.UserID || existing.Email == profile.Email {
			return nil, &domain.ErrConflict{Message: "profile already exists for " + profile.Email}
		}
	}

	p := *profile
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.profiles[p.ID] = p
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: profileID}
	}
	update.Apply(&p)
	p.UpdatedAt = s.now().UTC()
	s.profiles[profileID] = p
	return &p, nil
}

func (s *Store) DeleteProfile(ctx context.Context, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.profiles, profileID)
	for id, c := range s.clients {
		if c.ProfileID == profileID {
			delete(s.clients, id)
		}
	}
	return nil
}

// ============================================================
// Projects
// ============================================================

// FindProjectForProfile returns the profile's most recent project with
// phases and payments embedded.
func (s *Store) FindProjectForProfile(ctx context.Context, profileID string) (*domain.Project, error) {
	_, span := tracer.Start(ctx, "Memstore.FindProjectForProfile")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := lo.Filter(lo.Values(s.projects), func(p domain.Project, _ int) bool { return p.ProfileID == profileID })
	if len(owned) == 0 {
		return nil, nil
	}
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].CreatedAt.After(owned[j].CreatedAt) })
	p := s.embed(owned[0])
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := lo.Filter(lo.Values(s.projects), func(p domain.Project, _ int) bool {
		return (filter.ProfileID == "" || p.ProfileID == filter.ProfileID) &&
			(filter.Status == "" || p.Status == filter.Status)
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetProject(ctx context.Context, projectID string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	p = s.embed(p)
	return &p, nil
}

func (s *Store) CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[in.ProfileID]; !ok {
		return nil, &domain.ErrValidation{Field: "profile_id", Message: "unknown profile " + in.ProfileID}
	}
	now := s.now().UTC()
	p := domain.Project{
		ID:                  uuid.NewString(),
		ProfileID:           in.ProfileID,
		Name:                in.Name,
		Description:         in.Description,
		Status:              in.Status,
		ProgressPercentage:  in.ProgressPercentage,
		StartDate:           in.StartDate,
		EstimatedCompletion: in.EstimatedCompletion,
		TotalAmount:         in.TotalAmount,
		MonthlySavings:      in.MonthlySavings,
		AnnualROIPercentage: in.AnnualROIPercentage,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	s.projects[p.ID] = p
	return &p, nil
}

func (s *Store) UpdateProject(ctx context.Context, projectID string, update domain.ProjectUpdate) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.projects[projectID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "project", ID: projectID}
	}
	update.Apply(&p)
	p.UpdatedAt = s.now().UTC()
	s.projects[projectID] = p
	return &p, nil
}

// DeleteProject removes the project and its dependent rows.
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.projects, projectID)
	for id, ph := range s.phases {
		if ph.ProjectID == projectID {
			delete(s.phases, id)
		}
	}
	for id, pay := range s.payments {
		if pay.ProjectID == projectID {
			delete(s.payments, id)
		}
	}
	delete(s.configs, projectID)
	return nil
}

// embed must be called with the lock held.
func (s *Store) embed(p domain.Project) domain.Project {
	p.Phases = s.phasesOf(domain.PhaseFilter{ProjectID: p.ID})
	p.Payments = s.paymentsOf(domain.PaymentFilter{ProjectID: p.ID})
	return p
}

// ============================================================
// Phases
// ============================================================

func (s *Store) ListPhases(ctx context.Context, filter domain.PhaseFilter) ([]domain.Phase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phasesOf(filter), nil
}

func (s *Store) phasesOf(filter domain.PhaseFilter) []domain.Phase {
	out := lo.Filter(lo.Values(s.phases), func(p domain.Phase, _ int) bool {
		return (filter.ProjectID == "" || p.ProjectID == filter.ProjectID) &&
			(filter.Status == "" || p.Status == filter.Status)
	})
	domain.SortPhases(out)
	return out
}

func (s *Store) CreatePhase(ctx context.Context, in domain.PhaseInput) (*domain.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[in.ProjectID]; !ok {
		return nil, &domain.ErrValidation{Field: "project_id", Message: "unknown project " + in.ProjectID}
	}
	p := domain.Phase{
		ID:                 uuid.NewString(),
		ProjectID:          in.ProjectID,
		Name:               in.Name,
		Description:        in.Description,
		OrderIndex:         in.OrderIndex,
		Status:             in.Status,
		ProgressPercentage: in.ProgressPercentage,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		CreatedAt:          s.now().UTC(),
	}
	s.phases[p.ID] = p
	return &p, nil
}

func (s *Store) UpdatePhase(ctx context.Context, phaseID string, update domain.PhaseUpdate) (*domain.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.phases[phaseID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "phase", ID: phaseID}
	}
	update.Apply(&p)
	s.phases[phaseID] = p
	return &p, nil
}

func (s *Store) DeletePhase(ctx context.Context, phaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.phases, phaseID)
	return nil
}

// ReorderPhases validates the full id list before touching any row, so the
// write is all-or-nothing.
func (s *Store) ReorderPhases(ctx context.Context, projectID string, phaseIDs []string) error {
	_, span := tracer.Start(ctx, "Memstore.ReorderPhases")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.phasesOf(domain.PhaseFilter{ProjectID: projectID})
	if len(current) != len(phaseIDs) || len(lo.Uniq(phaseIDs)) != len(phaseIDs) {
		return &domain.ErrValidation{Field: "phase_ids", Message: "must list every phase of the project exactly once"}
	}
	for _, id := range phaseIDs {
		if p, ok := s.phases[id]; !ok || p.ProjectID != projectID {
			return &domain.ErrValidation{Field: "phase_ids", Message: "must list every phase of the project exactly once"}
		}
	}
	for i, id := range phaseIDs {
		p := s.phases[id]
		p.OrderIndex = i + 1
		s.phases[id] = p
	}
	return nil
}

// ============================================================
// Payments
// ============================================================

func (s *Store) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.PaymentSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paymentsOf(filter), nil
}

func (s *Store) paymentsOf(filter domain.PaymentFilter) []domain.PaymentSchedule {
	out := lo.Filter(lo.Values(s.payments), func(p domain.PaymentSchedule, _ int) bool {
		return (filter.ProjectID == "" || p.ProjectID == filter.ProjectID) &&
			(filter.Status == "" || p.Status == filter.Status)
	})
	domain.SortPaymentsByDueDesc(out)
	return out
}

func (s *Store) CreatePayment(ctx context.Context, in domain.PaymentInput) (*domain.PaymentSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[in.ProjectID]; !ok {
		return nil, &domain.ErrValidation{Field: "project_id", Message: "unknown project " + in.ProjectID}
	}
	p := domain.PaymentSchedule{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		Amount:      in.Amount,
		DueDate:     in.DueDate,
		Status:      in.Status,
		CreatedAt:   s.now().UTC(),
	}
	s.payments[p.ID] = p
	return &p, nil
}

func (s *Store) UpdatePayment(ctx context.Context, paymentID string, update domain.PaymentUpdate) (*domain.PaymentSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[paymentID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "payment", ID: paymentID}
	}
	update.Apply(&p)
	s.payments[paymentID] = p
	return &p, nil
}

func (s *Store) DeletePayment(ctx context.Context, paymentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.payments, paymentID)
	return nil
}

func (s *Store) MarkOverdue(ctx context.Context, day time.Time) (int, error) {
	_, span := tracer.Start(ctx, "Memstore.MarkOverdue")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.payments {
		if p.IsPastDue(day) {
			p.Status = domain.PaymentOverdue
			s.payments[id] = p
			n++
		}
	}
	return n, nil
}

// ============================================================
// Dashboard configs & clients
// ============================================================

const globalConfigKey = ""

func configKey(projectID *string) string {
	if projectID == nil {
		return globalConfigKey
	}
	return *projectID
}

func (s *Store) GetDashboardConfig(ctx context.Context, projectID *string) (*domain.DashboardConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cfg, ok := s.configs[configKey(projectID)]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *Store) UpsertDashboardConfig(ctx context.Context, cfg domain.DashboardConfig) (*domain.DashboardConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := configKey(cfg.ProjectID)
	if existing, ok := s.configs[key]; ok {
		cfg.ID = existing.ID
	} else {
		cfg.ID = uuid.NewString()
	}
	now := s.now().UTC()
	cfg.UpdatedAt = &now
	s.configs[key] = cfg
	return &cfg, nil
}

func (s *Store) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	client.ID = uuid.NewString()
	client.CreatedAt = s.now().UTC()
	s.clients[client.ID] = client
	return &client, nil
}

// Clients lists client records of a profile.
func (s *Store) Clients(profileID string) []domain.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Filter(lo.Values(s.clients), func(c domain.Client, _ int) bool { return c.ProfileID == profileID })
}
