package domain

import "time"

// TemporaryStaffPolicy governs whether and how temporary staff are admitted.
type TemporaryStaffPolicy struct {
	Enabled         bool   `json:"enabled"`
	MaxDurationDays int    `json:"maxDuration"`
	RequireApproval bool   `json:"requireApproval"`
	Approvers       []Role `json:"approvers"`
	AutoExpire      bool   `json:"autoExpire"`
}

// CampaignMode enables campaign-only roles for a bounded period.
type CampaignMode struct {
	Enabled            bool                   `json:"enabled"`
	StartDate          *time.Time             `json:"startDate,omitempty"`
	EndDate            *time.Time             `json:"endDate,omitempty"`
	SpecialRoles       []Role                 `json:"specialRoles"`
	DefaultPermissions map[Role]PermissionSet `json:"defaultPermissions"`
}

// PermanentStaffPolicy lists the permanent roles an office uses and their defaults.
type PermanentStaffPolicy struct {
	Roles       []Role                 `json:"roles"`
	Permissions map[Role]PermissionSet `json:"permissions"`
}

// StaffManagement is the staffing sub-structure of OfficeSettings.
type StaffManagement struct {
	TemporaryStaff TemporaryStaffPolicy `json:"temporaryStaff"`
	CampaignMode   CampaignMode         `json:"campaignMode"`
	PermanentStaff PermanentStaffPolicy `json:"permanentStaff"`
}

// TempStaffRestrictions limit temporary staff below their role defaults.
type TempStaffRestrictions struct {
	RequireSupervisor     bool          `json:"requireSupervisor"`
	RestrictedPermissions PermissionSet `json:"restrictedPermissions"`
	MaxActiveTemp         int           `json:"maxActiveTemp"`
}

// WorkflowSettings hold approval chains.
type WorkflowSettings struct {
	RequireApproval       bool                  `json:"requireApproval"`
	ApprovalChain         []Role                `json:"approvalChain"`
	NotifyRepresentative  bool                  `json:"notifyRepresentative"`
	TempStaffRestrictions TempStaffRestrictions `json:"tempStaffRestrictions"`
}

// TempStaffCommunication restricts how temporary staff communicate.
type TempStaffCommunication struct {
	RequireReview      bool      `json:"requireReview"`
	Reviewers          []Role    `json:"reviewers"`
	RestrictedChannels []Channel `json:"restrictedChannels"`
}

// CommunicationDefaults hold office-wide composition defaults.
type CommunicationDefaults struct {
	Templates         []string               `json:"templates"`
	Signatures        []string               `json:"signatures"`
	ApprovalThreshold int                    `json:"approvalThreshold"`
	TempStaffSettings TempStaffCommunication `json:"tempStaffSettings"`
}

// OfficeSettings is the per-office policy document. Its id equals the office id.
type OfficeSettings struct {
	EntityBase
	Name                  string                `json:"name"`
	District              string                `json:"district"`
	StaffManagement       StaffManagement       `json:"staffManagement"`
	WorkflowSettings      WorkflowSettings      `json:"workflowSettings"`
	CommunicationDefaults CommunicationDefaults `json:"communicationDefaults"`
	UpdatedBy             string                `json:"updatedBy,omitempty"`
}

// Kind implements Entity.
func (s *OfficeSettings) Kind() EntityType { return EntitySettings }

// Attrs implements Entity.
func (s *OfficeSettings) Attrs() Attrs {
	return s.EntityBase.attrs(s.District)
}

// NewOfficeSettings provisions the settings document for a new office using
// the platform default permission tables.
func NewOfficeSettings(officeID, representativeID, name, district string) *OfficeSettings {
	return &OfficeSettings{
		EntityBase: EntityBase{
			ID:               officeID,
			OfficeID:         officeID,
			RepresentativeID: representativeID,
			Visibility:       VisibilityPrivate,
		},
		Name:     name,
		District: district,
		StaffManagement: StaffManagement{
			TemporaryStaff: TemporaryStaffPolicy{
				Enabled:         true,
				MaxDurationDays: 90,
				RequireApproval: true,
				Approvers:       []Role{RoleRepresentative, RoleChiefOfStaff},
				AutoExpire:      true,
			},
			CampaignMode: CampaignMode{
				SpecialRoles:       []Role{RoleCampaignManager, RoleCampaignCoordinator, RoleFieldOrganizer, RoleVolunteerCoordinator},
				DefaultPermissions: DefaultTemporaryPermissions(),
			},
			PermanentStaff: PermanentStaffPolicy{
				Roles:       PermanentRoles(),
				Permissions: DefaultPermanentPermissions(),
			},
		},
		WorkflowSettings: WorkflowSettings{
			ApprovalChain: []Role{RoleCommunicationsDirector, RoleChiefOfStaff},
			TempStaffRestrictions: TempStaffRestrictions{
				RestrictedPermissions: NewPermissionSet(PermCommunicationsApprove, PermConstituentsExport),
				MaxActiveTemp:         10,
			},
		},
		CommunicationDefaults: CommunicationDefaults{
			TempStaffSettings: TempStaffCommunication{
				RequireReview: true,
				Reviewers:     []Role{RoleCommunicationsDirector},
			},
		},
	}
}
