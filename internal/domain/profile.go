package domain

import (
	"time"

	"github.com/samber/lo"
)

// ============================================================
// Profiles & roles
// ============================================================

// Role is the application role stored on a profile.
type Role string

const (
	RoleClient     Role = "client"
	RoleTeamMember Role = "team_member"
	RoleAdmin      Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleClient, RoleTeamMember, RoleAdmin}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return lo.Contains(Roles, r)
}

// IsStaff reports whether r may manage project data (admins and team members).
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleTeamMember
}

// Profile is the application-level identity record (table "profiles").
// One profile exists per authenticated identity.
type Profile struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Company   *string   `json:"company,omitempty"`
	Role      Role      `json:"role"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfileFilter narrows a profile listing.
type ProfileFilter struct {
	Role Role
}

// ProfileUpdate carries the fields a profile update may change.
// Role is deliberately absent: it is only set at creation.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	Company   *string `json:"company,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the update carries no fields.
func (u ProfileUpdate) Empty() bool {
	return u.FullName == nil && u.Company == nil && u.AvatarURL == nil
}

// Fields returns the column map for a PATCH.
func (u ProfileUpdate) Fields() map[string]any {
	fields := map[string]any{}
	if u.FullName != nil {
		fields["full_name"] = *u.FullName
	}
	if u.Company != nil {
		fields["company"] = *u.Company
	}
	if u.AvatarURL != nil {
		fields["avatar_url"] = *u.AvatarURL
	}
	return fields
}

// Apply copies the update onto p.
func (u ProfileUpdate) Apply(p *Profile) {
	if u.FullName != nil {
		p.FullName = *u.FullName
	}
	if u.Company != nil {
		p.Company = u.Company
	}
	if u.AvatarURL != nil {
		p.AvatarURL = u.AvatarURL
	}
}

// ProfileStats counts profiles per role.
type ProfileStats struct {
	Total       int `json:"total"`
	Clients     int `json:"clients"`
	TeamMembers int `json:"team_members"`
	Admins      int `json:"admins"`
}

// ComputeProfileStats derives per-role counts from a profile list.
func ComputeProfileStats(profiles []Profile) ProfileStats {
	byRole := func(r Role) int {
		return lo.CountBy(profiles, func(p Profile) bool { return p.Role == r })
	}
	return ProfileStats{
		Total:       len(profiles),
		Clients:     byRole(RoleClient),
		TeamMembers: byRole(RoleTeamMember),
		Admins:      byRole(RoleAdmin),
	}
}

// Client is the business record created for client profiles (table "clients").
type Client struct {
	ID          string    `json:"id"`
	ProfileID   string    `json:"profile_id"`
	CompanyName *string   `json:"company_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
