package supabase

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// CreateClient inserts the business record of a client profile.
func (c *Client) CreateClient(ctx context.Context, client domain.Client) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateClient")
	defer span.End()

	body, err := c.doPost(ctx, "clients", map[string]any{
		"profile_id":   client.ProfileID,
		"company_name": client.CompanyName,
	})
	if err != nil {
		return nil, external("supabase", err)
	}
	created, err := decodeFirst[domain.Client](body, "clients")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return &client, nil
	}
	return created, nil
}
