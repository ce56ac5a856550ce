package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/infra/observability"
	"github.com/boddenberg/project-portal-go/internal/infra/resilience"
	"github.com/boddenberg/project-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var provTracer = otel.Tracer("service/provisioning")

// Messages of the provisioning wire contract.
const (
	MsgAdminRequired = "Unauthorized: Admin access required"
	MsgMissingAuth   = "Missing authorization header"
	MsgInvalidToken  = "Invalid token"
)

// ProvisioningService creates identities with their profile on behalf of admins.
type ProvisioningService struct {
	idp          port.IdentityProvider
	profiles     port.ProfileStore
	clients      port.ClientStore
	idempotency  port.Cache[domain.CreateUserResponse]
	compensation resilience.Config
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// NewProvisioningService creates the service. idempotency may be nil.
func NewProvisioningService(
	idp port.IdentityProvider,
	store port.Store,
	idempotency port.Cache[domain.CreateUserResponse],
	compensation resilience.Config,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ProvisioningService {
	return &ProvisioningService{
		idp:          idp,
		profiles:     store,
		clients:      store,
		idempotency:  idempotency,
		compensation: compensation,
		metrics:      metrics,
		logger:       logger,
	}
}

// Authorize resolves the bearer token and requires an admin profile.
func (s *ProvisioningService) Authorize(ctx context.Context, token string) (*domain.Profile, error) {
	ctx, span := provTracer.Start(ctx, "Provisioning.Authorize")
	defer span.End()

	if token == "" {
		return nil, &domain.ErrUnauthorized{Message: MsgMissingAuth}
	}
	user, err := s.idp.VerifyToken(ctx, token)
	if err != nil {
		var unauthorized *domain.ErrUnauthorized
		if errors.As(err, &unauthorized) {
			return nil, &domain.ErrUnauthorized{Message: MsgInvalidToken}
		}
		return nil, fmt.Errorf("verify token: %w", err)
	}

	profile, err := s.profiles.GetProfileByUserID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load caller profile: %w", err)
	}
	if profile == nil || profile.Role != domain.RoleAdmin {
		s.logger.Warn("provisioning: non-admin caller rejected", zap.String("user_id", user.ID))
		return nil, &domain.ErrForbidden{Action: "provision users"}
	}
	return profile, nil
}

// CreateUser provisions an identity, its profile and, for clients, a client
// record. A failed profile insert deletes the identity again. A non-empty
// idempotencyKey replays an earlier successful result for the same caller.
func (s *ProvisioningService) CreateUser(ctx context.Context, caller *domain.Profile, idempotencyKey string, req domain.CreateUserRequest) (*domain.CreateUserResponse, error) {
	ctx, span := provTracer.Start(ctx, "Provisioning.CreateUser")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordOperation("provision_user", time.Since(start)) }()

	cacheKey := ""
	if idempotencyKey != "" && s.idempotency != nil {
		cacheKey = "provision:" + caller.UserID + ":" + idempotencyKey
		if prev, ok := s.idempotency.Get(cacheKey); ok {
			s.metrics.IncrProvisioning(observability.ProvisionReplayed)
			s.logger.Info("provisioning: replayed idempotent request",
				zap.String("user_id", prev.User.ID),
			)
			return &prev, nil
		}
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("role", string(req.Role)))

	user, err := s.idp.CreateUser(ctx, domain.CreateUserParams{
		Email:        req.Email,
		Password:     req.Password,
		EmailConfirm: true,
		Metadata:     map[string]any{"full_name": req.FullName},
	})
	if err != nil {
		s.metrics.IncrProvisioning(observability.ProvisionFailed)
		return nil, fmt.Errorf("create identity: %w", err)
	}

	profile, err := s.profiles.CreateProfile(ctx, &domain.Profile{
		UserID:   user.ID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
		Company:  req.Company,
	})
	if err != nil {
		s.compensate(ctx, user.ID, err)
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if req.Role == domain.RoleClient {
		s.createClientRecord(ctx, user.ID, req.Company)
	}

	resp := domain.CreateUserResponse{
		Success: true,
		User: domain.CreatedUser{
			ID:       user.ID,
			Email:    user.Email,
			FullName: profile.FullName,
			Role:     profile.Role,
		},
	}
	if cacheKey != "" {
		s.idempotency.Set(cacheKey, resp)
	}
	s.metrics.IncrProvisioning(observability.ProvisionSuccess)
	s.logger.Info("provisioning: user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(req.Role)),
		zap.String("by", caller.UserID),
	)
	return &resp, nil
}

// compensate deletes the identity whose profile could not be created.
// The delete is retried; it runs even if the request context is gone.
func (s *ProvisioningService) compensate(ctx context.Context, userID string, cause error) {
	s.metrics.IncrProvisioning(observability.ProvisionFailed)
	s.logger.Error("provisioning: profile creation failed, deleting identity",
		zap.String("user_id", userID),
		zap.Error(cause),
	)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err := resilience.RetryWithBackoff(cctx, s.compensation, func() error {
		return s.idp.DeleteUser(cctx, userID)
	})
	if err != nil {
		s.logger.Error("provisioning: compensation failed, identity orphaned",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	s.metrics.IncrProvisioning(observability.ProvisionCompensated)
}

// createClientRecord is best effort: failures are logged, never returned.
func (s *ProvisioningService) createClientRecord(ctx context.Context, userID string, company *string) {
	profile, err := s.profiles.GetProfileByUserID(ctx, userID)
	if err != nil || profile == nil {
		s.logger.Error("provisioning: profile lookup for client record failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	if _, err := s.clients.CreateClient(ctx, domain.Client{ProfileID: profile.ID, CompanyName: company}); err != nil {
		s.logger.Error("provisioning: client record creation failed",
			zap.String("profile_id", profile.ID),
			zap.Error(err),
		)
	}
}
