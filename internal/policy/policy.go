package policy

import (
	"slices"
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// Policy is a read-only view over one office's settings.
type Policy struct {
	settings *domain.OfficeSettings
}

// New wraps settings. A nil settings document behaves as a freshly
// provisioned office with no name or district.
func New(settings *domain.OfficeSettings) Policy {
	if settings == nil {
		settings = domain.NewOfficeSettings("", "", "", "")
	}
	return Policy{settings: settings}
}

// Settings returns the underlying document.
func (p Policy) Settings() *domain.OfficeSettings { return p.settings }

// DefaultPermissions returns the office's default grant for role. Office
// roles missing from the office tables fall back to the platform defaults;
// company roles and constituents always use the built-in sets.
func (p Policy) DefaultPermissions(role domain.Role) domain.PermissionSet {
	sm := p.settings.StaffManagement
	switch role.Family() {
	case domain.FamilyPermanent:
		if set, ok := sm.PermanentStaff.Permissions[role]; ok {
			return set
		}
		return domain.DefaultPermanentPermissions()[role]
	case domain.FamilyTemporary:
		if set, ok := sm.CampaignMode.DefaultPermissions[role]; ok {
			return set
		}
		return domain.DefaultTemporaryPermissions()[role]
	default:
		return domain.BuiltinPermissions(role)
	}
}

func (p Policy) IsTemporaryStaffAllowed() bool {
	return p.settings.StaffManagement.TemporaryStaff.Enabled
}

func (p Policy) RequiresSupervisor() bool {
	return p.settings.WorkflowSettings.TempStaffRestrictions.RequireSupervisor
}

func (p Policy) RequiresApproval() bool {
	return p.settings.StaffManagement.TemporaryStaff.RequireApproval
}

// MaxActiveTemporary is the cap on concurrently active temporary staff.
// Zero or less means no cap.
func (p Policy) MaxActiveTemporary() int {
	return p.settings.WorkflowSettings.TempStaffRestrictions.MaxActiveTemp
}

// MaxDuration is the longest window a temporary grant may span, or zero.
func (p Policy) MaxDuration() time.Duration {
	days := p.settings.StaffManagement.TemporaryStaff.MaxDurationDays
	if days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

func (p Policy) AutoExpire() bool {
	return p.settings.StaffManagement.TemporaryStaff.AutoExpire
}

// CanApprove reports whether role may approve temporary staff admissions.
func (p Policy) CanApprove(role domain.Role) bool {
	return slices.Contains(p.settings.StaffManagement.TemporaryStaff.Approvers, role)
}

// Restrictions returns the limits every temporary principal of this office
// carries in addition to its permission set.
func (p Policy) Restrictions() domain.TemporaryRestrictions {
	return domain.TemporaryRestrictions{
		Permissions: p.settings.WorkflowSettings.TempStaffRestrictions.RestrictedPermissions,
		Channels:    slices.Clone(p.settings.CommunicationDefaults.TempStaffSettings.RestrictedChannels),
	}
}

// ClampWindow bounds w by the maximum duration when auto-expire is on.
func (p Policy) ClampWindow(w domain.EmploymentWindow) domain.EmploymentWindow {
	limit := p.MaxDuration()
	if !p.AutoExpire() || limit == 0 || w.Start.IsZero() {
		return w
	}
	latest := w.Start.Add(limit)
	if w.End == nil || w.End.After(latest) {
		w.End = &latest
	}
	return w
}

// CampaignClosed reports whether campaign roles have lost access at t
// because the campaign window ended and the office auto-expires grants.
func (p Policy) CampaignClosed(t time.Time) bool {
	cm := p.settings.StaffManagement.CampaignMode
	if !p.AutoExpire() || cm.EndDate == nil {
		return false
	}
	return t.After(*cm.EndDate)
}

// WithinMaxDuration reports whether w respects the office's maximum
// temporary duration. Open-ended windows fail when a maximum is set.
func (p Policy) WithinMaxDuration(w domain.EmploymentWindow) bool {
	limit := p.MaxDuration()
	if limit == 0 {
		return true
	}
	if w.End == nil {
		return false
	}
	return !w.End.After(w.Start.Add(limit))
}
