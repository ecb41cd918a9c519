package domain

import (
	"errors"
	"time"
)

// EmploymentWindow bounds when a principal may act. A nil End means open-ended.
type EmploymentWindow struct {
	Start time.Time  `json:"start"`
	End   *time.Time `json:"end,omitempty"`
}

// Started reports whether t is at or after Start.
func (w EmploymentWindow) Started(t time.Time) bool {
	return w.Start.IsZero() || !t.Before(w.Start)
}

// Ended reports whether t is strictly after End.
func (w EmploymentWindow) Ended(t time.Time) bool {
	return w.End != nil && t.After(*w.End)
}

// Contains reports whether t falls within the window.
func (w EmploymentWindow) Contains(t time.Time) bool {
	return w.Started(t) && !w.Ended(t)
}

// TemporaryRestrictions narrow what a temporary principal may do beyond its
// permission set. They are snapshotted from office policy at resolution.
type TemporaryRestrictions struct {
	Permissions PermissionSet `json:"permissions"`
	Channels    []Channel     `json:"channels,omitempty"`
}

// RestrictsChannel reports whether ch is blocked.
func (r TemporaryRestrictions) RestrictsChannel(ch Channel) bool {
	for _, c := range r.Channels {
		if c == ch {
			return true
		}
	}
	return false
}

// Principal is a resolved actor for one request or session. It is built once by
// the resolver and never mutated afterwards.
type Principal struct {
	ID               string
	Role             Role
	OfficeID         string
	RepresentativeID string
	District         string
	Permissions      PermissionSet
	Window           EmploymentWindow
	SupervisorID     string
	Restrictions     TemporaryRestrictions
	ResolvedAt       time.Time
}

var (
	errMissingOffice    = errors.New("role requires an office")
	errUnexpectedOffice = errors.New("company role cannot belong to an office")
	errMissingWindow    = errors.New("role requires an employment window end")
)

// Family returns the role family.
func (p *Principal) Family() RoleFamily {
	return p.Role.Family()
}

// Has reports whether the resolved permission set contains perm.
func (p *Principal) Has(perm Permission) bool {
	return p.Permissions.Has(perm)
}

// ScopeID is the representative id that bounds office-scoped access: the
// principal's own id for a representative, the office representative otherwise.
func (p *Principal) ScopeID() string {
	if p.Role == RoleRepresentative {
		return p.ID
	}
	return p.RepresentativeID
}

// ExpiredAt reports whether a window-bound principal is outside its window at t.
func (p *Principal) ExpiredAt(t time.Time) bool {
	if !p.Role.RequiresWindow() {
		return false
	}
	return !p.Window.Contains(t)
}

// CheckAffiliation verifies that the role family and the office/window fields agree.
func (p *Principal) CheckAffiliation() error {
	if !p.Role.Valid() {
		return ErrInvalidRole
	}
	switch p.Family() {
	case FamilyCompany:
		if p.OfficeID != "" {
			return errUnexpectedOffice
		}
	case FamilyPermanent, FamilyTemporary:
		if p.OfficeID == "" || p.ScopeID() == "" {
			return errMissingOffice
		}
	}
	if p.Role.RequiresWindow() && p.Window.End == nil {
		return errMissingWindow
	}
	return nil
}
