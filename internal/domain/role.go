package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRole is returned when a stored or supplied role is not part of the taxonomy.
var ErrInvalidRole = errors.New("invalid role")

// RoleFamily groups roles that share the same scoping rules.
type RoleFamily int

const (
	FamilyUnknown RoleFamily = iota
	// FamilyCompany roles are platform-operator staff, not attached to any office.
	FamilyCompany
	// FamilyPermanent roles belong to exactly one representative office.
	FamilyPermanent
	// FamilyTemporary roles belong to one office and are bounded by an employment window.
	FamilyTemporary
	// FamilyConstituent is the public, non-staff audience of an office.
	FamilyConstituent
)

func (f RoleFamily) String() string {
	switch f {
	case FamilyCompany:
		return "company"
	case FamilyPermanent:
		return "permanent"
	case FamilyTemporary:
		return "temporary"
	case FamilyConstituent:
		return "constituent"
	default:
		return "unknown"
	}
}

// Role enumerates every role known to the platform.
type Role string

const (
	RoleCompanyAdmin   Role = "company_admin"
	RoleCompanyManager Role = "company_manager"
	RoleCompanySupport Role = "company_support"
	RoleCompanyAnalyst Role = "company_analyst"

	RoleRepresentative         Role = "representative"
	RoleChiefOfStaff           Role = "chief_of_staff"
	RoleCommunicationsDirector Role = "communications_director"
	RoleOfficeAdmin            Role = "office_admin"
	RoleStaffMember            Role = "staff_member"

	RoleCampaignManager      Role = "campaign_manager"
	RoleCampaignCoordinator  Role = "campaign_coordinator"
	RoleFieldOrganizer       Role = "field_organizer"
	RoleVolunteerCoordinator Role = "volunteer_coordinator"
	RoleTempStaff            Role = "temp_staff"
	RoleIntern               Role = "intern"
	RoleVolunteer            Role = "volunteer"

	RoleConstituent Role = "constituent"
)

type roleSpec struct {
	family         RoleFamily
	requiresOffice bool
	requiresWindow bool
	campaign       bool
}

var roleSpecs = map[Role]roleSpec{
	RoleCompanyAdmin:   {family: FamilyCompany},
	RoleCompanyManager: {family: FamilyCompany},
	RoleCompanySupport: {family: FamilyCompany},
	RoleCompanyAnalyst: {family: FamilyCompany},

	RoleRepresentative:         {family: FamilyPermanent, requiresOffice: true},
	RoleChiefOfStaff:           {family: FamilyPermanent, requiresOffice: true},
	RoleCommunicationsDirector: {family: FamilyPermanent, requiresOffice: true},
	RoleOfficeAdmin:            {family: FamilyPermanent, requiresOffice: true},
	RoleStaffMember:            {family: FamilyPermanent, requiresOffice: true},

	RoleCampaignManager:      {family: FamilyTemporary, requiresOffice: true, requiresWindow: true, campaign: true},
	RoleCampaignCoordinator:  {family: FamilyTemporary, requiresOffice: true, requiresWindow: true, campaign: true},
	RoleFieldOrganizer:       {family: FamilyTemporary, requiresOffice: true, requiresWindow: true, campaign: true},
	RoleVolunteerCoordinator: {family: FamilyTemporary, requiresOffice: true, requiresWindow: true, campaign: true},
	RoleTempStaff:            {family: FamilyTemporary, requiresOffice: true, requiresWindow: true},
	RoleIntern:               {family: FamilyTemporary, requiresOffice: true, requiresWindow: true},
	RoleVolunteer:            {family: FamilyTemporary, requiresOffice: true, requiresWindow: true},

	RoleConstituent: {family: FamilyConstituent},
}

// ParseRole validates a raw role name. Family membership is fixed here, so
// callers never inspect the role string itself.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleSpecs[role]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
	return role, nil
}

// Valid reports whether the role is part of the taxonomy.
func (r Role) Valid() bool {
	_, ok := roleSpecs[r]
	return ok
}

// Family returns the role family, FamilyUnknown for unrecognized roles.
func (r Role) Family() RoleFamily {
	return roleSpecs[r].family
}

// RequiresOffice reports whether principals with this role must carry an office id.
func (r Role) RequiresOffice() bool {
	return roleSpecs[r].requiresOffice
}

// RequiresWindow reports whether the role is bounded by an employment window.
func (r Role) RequiresWindow() bool {
	return roleSpecs[r].requiresWindow
}

// IsCampaign reports whether the role only exists while an office runs in campaign mode.
func (r Role) IsCampaign() bool {
	return roleSpecs[r].campaign
}

// FamilyOf is a convenience wrapper over Role.Family.
func FamilyOf(role Role) RoleFamily { return role.Family() }

// RequiresOffice is a convenience wrapper over Role.RequiresOffice.
func RequiresOffice(role Role) bool { return role.RequiresOffice() }

// RequiresWindow is a convenience wrapper over Role.RequiresWindow.
func RequiresWindow(role Role) bool { return role.RequiresWindow() }

// PermanentRoles lists office roles without an employment window, in seniority order.
func PermanentRoles() []Role {
	return []Role{RoleRepresentative, RoleChiefOfStaff, RoleCommunicationsDirector, RoleOfficeAdmin, RoleStaffMember}
}

// TemporaryRoles lists window-bounded office roles.
func TemporaryRoles() []Role {
	return []Role{
		RoleCampaignManager, RoleCampaignCoordinator, RoleFieldOrganizer, RoleVolunteerCoordinator,
		RoleTempStaff, RoleIntern, RoleVolunteer,
	}
}

// EmploymentType describes how a staff member is engaged.
type EmploymentType string

const (
	EmploymentPermanent EmploymentType = "permanent"
	EmploymentTemporary EmploymentType = "temporary"
	EmploymentCampaign  EmploymentType = "campaign"
	EmploymentSeasonal  EmploymentType = "seasonal"
	EmploymentVolunteer EmploymentType = "volunteer"
)
