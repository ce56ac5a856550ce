package supabase

import (
	"context"
	"net/http"

	"github.com/boddenberg/project-portal-go/internal/domain"
)

// ============================================================
// ProfileStore implementation
// ============================================================

func (c *Client) ListProfiles(ctx context.Context, filter domain.ProfileFilter) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	path := "profiles?select=*&order=created_at.desc"
	if filter.Role != "" {
		path += "&" + eq("role", string(filter.Role))
	}
	body, err := c.doRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, external("supabase", err)
	}
	return decodeRows[domain.Profile](body, "profiles")
}

func (c *Client) GetProfile(ctx context.Context, profileID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "profiles?"+eq("id", profileID)+"&limit=1")
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Profile](body, "profiles")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: profileID}
	}
	return p, nil
}

func (c *Client) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfileByUserID")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "profiles?"+eq("user_id", userID)+"&limit=1")
	if err != nil {
		return nil, external("supabase", err)
	}
	return decodeFirst[domain.Profile](body, "profiles")
}

func (c *Client) CreateProfile(ctx context.Context, profile *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProfile")
	defer span.End()

	row := map[string]any{
		"user_id":   profile.UserID,
		"email":     profile.Email,
		"full_name": profile.FullName,
		"role":      profile.Role,
		"company":   profile.Company,
	}
	if profile.ID != "" {
		row["id"] = profile.ID
	}
	body, err := c.doPost(ctx, "profiles", row)
	if err != nil {
		if statusOf(err) == http.StatusConflict {
			return nil, &domain.ErrConflict{Message: "profile already exists for " + profile.Email}
		}
		return nil, external("supabase", err)
	}
	created, err := decodeFirst[domain.Profile](body, "profiles")
	if err != nil {
		return nil, err
	}
	if created == nil {
		return profile, nil
	}
	return created, nil
}

func (c *Client) UpdateProfile(ctx context.Context, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()

	body, err := c.doPatch(ctx, "profiles?"+eq("id", profileID), update.Fields())
	if err != nil {
		return nil, external("supabase", err)
	}
	p, err := decodeFirst[domain.Profile](body, "profiles")
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: profileID}
	}
	return p, nil
}

func (c *Client) DeleteProfile(ctx context.Context, profileID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProfile")
	defer span.End()

	return external("supabase", c.doDelete(ctx, "profiles?"+eq("id", profileID)))
}
