package domain

import (
	"time"

	"github.com/samber/lo"
)

// ============================================================
// Dashboard configuration & view
// ============================================================

// Widget names understood by the dashboard.
const (
	WidgetOverview = "overview"
	WidgetPhases   = "phases"
	WidgetPayments = "payments"
	WidgetROI      = "roi"
	WidgetTimeline = "timeline"
	WidgetTeam     = "team"
	WidgetTasks    = "tasks"
)

// Branding customizes the dashboard look.
type Branding struct {
	PrimaryColor   string `json:"primaryColor,omitempty" yaml:"primaryColor"`
	WelcomeMessage string `json:"welcomeMessage,omitempty" yaml:"welcomeMessage"`
}

// Permissions gate individual widgets.
type Permissions struct {
	ViewTeam     bool `json:"viewTeam" yaml:"viewTeam"`
	ViewTasks    bool `json:"viewTasks" yaml:"viewTasks"`
	ViewPayments bool `json:"viewPayments" yaml:"viewPayments"`
	ViewTimeline bool `json:"viewTimeline" yaml:"viewTimeline"`
}

// NotificationSettings are stored and returned but not enforced by the API.
type NotificationSettings struct {
	Email      bool `json:"email" yaml:"email"`
	Milestones bool `json:"milestones" yaml:"milestones"`
	Payments   bool `json:"payments" yaml:"payments"`
}

// DashboardConfig is the presentation policy for a project (table "dashboard_configs").
// A nil ProjectID marks the global configuration.
type DashboardConfig struct {
	ID            string                `json:"id,omitempty" yaml:"-"`
	ProjectID     *string               `json:"project_id,omitempty" yaml:"-"`
	Widgets       []string              `json:"widgets" yaml:"widgets"`
	Branding      Branding              `json:"branding" yaml:"branding"`
	Permissions   *Permissions          `json:"permissions,omitempty" yaml:"permissions"`
	Notifications *NotificationSettings `json:"notifications,omitempty" yaml:"notifications"`
	UpdatedAt     *time.Time            `json:"updated_at,omitempty" yaml:"-"`
}

// DefaultDashboardConfig is used when neither a project nor a global config exists.
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Widgets: []string{WidgetOverview, WidgetPhases, WidgetPayments, WidgetROI, WidgetTimeline},
		Branding: Branding{
			PrimaryColor:   "#2563eb",
			WelcomeMessage: "Welcome to your project dashboard",
		},
		Permissions: &Permissions{
			ViewTeam:     false,
			ViewTasks:    false,
			ViewPayments: true,
			ViewTimeline: true,
		},
		Notifications: &NotificationSettings{
			Email:      true,
			Milestones: true,
			Payments:   true,
		},
	}
}

// MergeDashboardConfig overlays the given configs onto base, later ones winning.
// Nil layers are skipped; within a layer only populated sections replace.
func MergeDashboardConfig(base DashboardConfig, layers ...*DashboardConfig) DashboardConfig {
	out := base
	out.Widgets = append([]string(nil), base.Widgets...)
	for _, l := range layers {
		if l == nil {
			continue
		}
		if l.ID != "" {
			out.ID = l.ID
			out.ProjectID = l.ProjectID
			out.UpdatedAt = l.UpdatedAt
		}
		if len(l.Widgets) > 0 {
			out.Widgets = append([]string(nil), l.Widgets...)
		}
		if l.Branding.PrimaryColor != "" {
			out.Branding.PrimaryColor = l.Branding.PrimaryColor
		}
		if l.Branding.WelcomeMessage != "" {
			out.Branding.WelcomeMessage = l.Branding.WelcomeMessage
		}
		if l.Permissions != nil {
			p := *l.Permissions
			out.Permissions = &p
		}
		if l.Notifications != nil {
			n := *l.Notifications
			out.Notifications = &n
		}
	}
	return out
}

// WidgetEnabled reports whether a widget is in the enabled set AND, when the
// widget has a permission flag, that flag is true.
func (c DashboardConfig) WidgetEnabled(name string) bool {
	if !lo.Contains(c.Widgets, name) {
		return false
	}
	perms := Permissions{}
	if c.Permissions != nil {
		perms = *c.Permissions
	}
	switch name {
	case WidgetTeam:
		return perms.ViewTeam
	case WidgetTasks:
		return perms.ViewTasks
	case WidgetPayments:
		return perms.ViewPayments
	case WidgetTimeline:
		return perms.ViewTimeline
	}
	return true
}

// Validate rejects unknown widget names.
func (c DashboardConfig) Validate() error {
	known := []string{WidgetOverview, WidgetPhases, WidgetPayments, WidgetROI, WidgetTimeline, WidgetTeam, WidgetTasks}
	for _, w := range c.Widgets {
		if !lo.Contains(known, w) {
			return &ErrValidation{Field: "widgets", Message: "unknown widget " + w}
		}
	}
	return nil
}

// WidgetView is the rendered state of one widget.
type WidgetView struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

// DashboardView is the composed dashboard for one profile.
// When Empty is true only Profile, Config and Message are set.
type DashboardView struct {
	Empty        bool              `json:"empty"`
	Message      string            `json:"message,omitempty"`
	Profile      *Profile          `json:"profile"`
	Project      *Project          `json:"project,omitempty"`
	StatusColor  string            `json:"status_color,omitempty"`
	Config       DashboardConfig   `json:"config"`
	Widgets      []WidgetView      `json:"widgets"`
	Phases       []Phase           `json:"phases,omitempty"`
	PhaseStats   *PhaseStats       `json:"phase_stats,omitempty"`
	Payments     []PaymentSchedule `json:"payments,omitempty"`
	PaymentStats *PaymentStats     `json:"payment_stats,omitempty"`
	ROI          *ROISummary       `json:"roi,omitempty"`
}
