// Package guard decides whether a caller may see a protected resource and
// adapts that decision to HTTP.
package guard

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"

	"github.com/samber/lo"
)

// Identity is the resolved caller: the auth user plus its profile, if any.
type Identity struct {
	UserID    string      `json:"user_id"`
	Email     string      `json:"email"`
	ProfileID string      `json:"profile_id,omitempty"`
	FullName  string      `json:"full_name,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
}

// HasProfile reports whether the identity resolved to a profile.
func (i *Identity) HasProfile() bool {
	return i != nil && i.ProfileID != ""
}

// IsAdmin reports whether the caller holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == domain.RoleAdmin
}

// IsStaff reports whether the caller is an admin or team member.
func (i *Identity) IsStaff() bool {
	return i != nil && i.Role.IsStaff()
}

// Decision is the outcome of an access check.
type Decision int

const (
	DecisionAllow Decision = iota
	DecisionLoading
	DecisionRedirect
	DecisionDenied
)

func (d Decision) String() string {
	switch d {
	case DecisionAllow:
		return "allow"
	case DecisionLoading:
		return "loading"
	case DecisionRedirect:
		return "redirect"
	case DecisionDenied:
		return "denied"
	}
	return "unknown"
}

// Decide evaluates access. Loading wins over everything; an absent identity
// redirects; a non-empty allow-list must contain the identity's role.
func Decide(loading bool, identity *Identity, allowed []domain.Role) Decision {
	if loading {
		return DecisionLoading
	}
	if identity == nil {
		return DecisionRedirect
	}
	if len(allowed) > 0 && !lo.Contains(allowed, identity.Role) {
		return DecisionDenied
	}
	return DecisionAllow
}

type contextKey string

const (
	identityKey contextKey = "identity"
	loadingKey  contextKey = "identityLoading"
)

// WithIdentity stores the resolved identity on the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by Authenticate, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// withLoading marks that identity resolution could not complete.
func withLoading(ctx context.Context) context.Context {
	return context.WithValue(ctx, loadingKey, true)
}

func loadingFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(loadingKey).(bool)
	return v
}
