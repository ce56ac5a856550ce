package service

import (
	"context"

	"github.com/boddenberg/project-portal-go/internal/domain"
	"github.com/boddenberg/project-portal-go/internal/guard"
	"github.com/boddenberg/project-portal-go/internal/port"

	"github.com/samber/lo"
)

// ProfilesHook owns the profile directory. Listing is admin only; owners may
// edit their own profile but never its role.
type ProfilesHook struct {
	state[domain.Profile]
	base

	store      port.ProfileStore
	identities IdentityCache
	role       domain.Role
}

// NewProfilesHook creates a hook optionally filtered by role.
func NewProfilesHook(deps HookDeps, caller *guard.Identity, role domain.Role) *ProfilesHook {
	return &ProfilesHook{
		base:       newBase("profiles", deps, caller),
		store:      deps.Store,
		identities: deps.Identities,
		role:       role,
	}
}

// Fetch lists profiles newest first. Non-admins get a permission error.
func (h *ProfilesHook) Fetch(ctx context.Context) bool {
	ctx, span := hookTracer.Start(ctx, "ProfilesHook.Fetch")
	defer span.End()

	h.begin()
	items, err := h.load(ctx)
	if err != nil {
		h.fail(h.report(ctx, "load profiles", err), err)
		return false
	}
	h.succeed(items)
	return true
}

func (h *ProfilesHook) load(ctx context.Context) ([]domain.Profile, error) {
	if err := requireAdmin(h.caller, "list profiles"); err != nil {
		return nil, err
	}
	if h.role != "" && !h.role.Valid() {
		return nil, &domain.ErrValidation{Field: "role", Message: "unknown role " + string(h.role)}
	}
	items, err := h.store.ListProfiles(ctx, domain.ProfileFilter{Role: h.role})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Profile{}
	}
	return items, nil
}

// Update changes name, company or avatar. Admins refetch the directory;
// owners hold only their own updated profile.
func (h *ProfilesHook) Update(ctx context.Context, profileID string, update domain.ProfileUpdate) bool {
	ctx, span := hookTracer.Start(ctx, "ProfilesHook.Update")
	defer span.End()

	h.begin()
	updated, err := h.update(ctx, profileID, update)
	if err != nil {
		h.fail(h.report(ctx, "update profile", err), err)
		return false
	}
	h.forget(updated.UserID)
	h.success(ctx, "Profile updated")
	if h.caller.IsAdmin() {
		return h.Fetch(ctx)
	}
	h.succeed([]domain.Profile{*updated})
	return true
}

func (h *ProfilesHook) update(ctx context.Context, profileID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if h.caller == nil || (!h.caller.IsAdmin() && h.caller.ProfileID != profileID) {
		return nil, &domain.ErrForbidden{Action: "update profile"}
	}
	if update.Empty() {
		return nil, &domain.ErrValidation{Message: "No fields to update"}
	}
	return h.store.UpdateProfile(ctx, profileID, update)
}

// Delete removes a profile (admin only), then refetches.
func (h *ProfilesHook) Delete(ctx context.Context, profileID string) bool {
	ctx, span := hookTracer.Start(ctx, "ProfilesHook.Delete")
	defer span.End()

	h.begin()
	err := requireAdmin(h.caller, "delete profiles")
	if err == nil && h.caller.ProfileID == profileID {
		err = &domain.ErrValidation{Message: "Admins cannot delete their own profile"}
	}
	var target *domain.Profile
	if err == nil {
		target, err = h.store.GetProfile(ctx, profileID)
	}
	if err == nil {
		err = h.store.DeleteProfile(ctx, profileID)
	}
	if err != nil {
		h.fail(h.report(ctx, "delete profile", err), err)
		return false
	}
	if target != nil {
		h.forget(target.UserID)
	}
	h.success(ctx, "Profile deleted")
	return h.Fetch(ctx)
}

// forget drops the cached identity of a changed profile's user so the next
// request sees the new role.
func (h *ProfilesHook) forget(userID string) {
	if h.identities != nil {
		h.identities.ForgetUser(userID)
	}
}

// Item returns a held profile by id.
func (h *ProfilesHook) Item(profileID string) (domain.Profile, bool) {
	return lo.Find(h.Items(), func(p domain.Profile) bool { return p.ID == profileID })
}

// Stats counts held profiles per role.
func (h *ProfilesHook) Stats() domain.ProfileStats {
	return domain.ComputeProfileStats(h.Items())
}
