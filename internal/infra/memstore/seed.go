package memstore

import (
	"context"
	"fmt"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// SeedUser describes a development account.
type SeedUser struct {
	Email    string
	Password string
	FullName string
	Role     domain.Role
	Company  *string
}

// Seed creates identities and profiles for the given accounts and returns the
// profiles in input order.
func (s *Store) Seed(ctx context.Context, users ...SeedUser) ([]domain.Profile, error) {
	out := make([]domain.Profile, 0, len(users))
	for _, su := range users {
		u, err := s.CreateUser(ctx, domain.CreateUserParams{
			Email:        su.Email,
			Password:     su.Password,
			EmailConfirm: true,
			Metadata:     map[string]any{"full_name": su.FullName, "role": su.Role},
		})
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", su.Email, err)
		}
		p, err := s.CreateProfile(ctx, &domain.Profile{
			UserID:   u.ID,
			Email:    u.Email,
			FullName: su.FullName,
			Role:     su.Role,
			Company:  su.Company,
		})
		if err != nil {
			return nil, fmt.Errorf("seed profile %s: %w", su.Email, err)
		}
		out = append(out, *p)
	}
	return out, nil
}
