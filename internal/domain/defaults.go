package domain

var (
	communicationsAll = NewPermissionSet(
		PermCommunicationsCreate, PermCommunicationsEdit, PermCommunicationsDelete,
		PermCommunicationsSend, PermCommunicationsView, PermCommunicationsApprove,
	)
	constituentsAll = NewPermissionSet(PermConstituentsManage, PermConstituentsView, PermConstituentsExport)
	campaignAll     = NewPermissionSet(PermCampaignManage, PermCampaignView, PermCampaignCreateEvents, PermCampaignManageVolunteers)
	staffAll        = NewPermissionSet(PermStaffView, PermStaffInvite, PermStaffRemove, PermStaffManageRoles, PermStaffManageTemp)
	settingsAll     = NewPermissionSet(PermSettingsView, PermSettingsEdit)
	officeAnalytics = NewPermissionSet(PermAnalyticsView, PermAnalyticsExport)
)

// DefaultPermanentPermissions is the platform default table for permanent office roles.
func DefaultPermanentPermissions() map[Role]PermissionSet {
	leadership := communicationsAll.Union(constituentsAll).Union(campaignAll).
		Union(staffAll).Union(settingsAll).Union(officeAnalytics)
	return map[Role]PermissionSet{
		RoleRepresentative: leadership,
		RoleChiefOfStaff:   leadership,
		RoleCommunicationsDirector: communicationsAll.Union(officeAnalytics).Union(NewPermissionSet(
			PermConstituentsView, PermConstituentsExport, PermCampaignView, PermSettingsView, PermStaffView,
		)),
		RoleOfficeAdmin: staffAll.Union(settingsAll).Union(NewPermissionSet(
			PermCommunicationsView, PermConstituentsView, PermAnalyticsView,
		)),
		RoleStaffMember: NewPermissionSet(
			PermCommunicationsCreate, PermCommunicationsEdit, PermCommunicationsView, PermCommunicationsSend,
			PermConstituentsView, PermCampaignView, PermSettingsView,
		),
	}
}

// DefaultTemporaryPermissions is the platform default table for temporary and campaign roles.
func DefaultTemporaryPermissions() map[Role]PermissionSet {
	return map[Role]PermissionSet{
		RoleCampaignManager: campaignAll.Union(NewPermissionSet(
			PermCommunicationsCreate, PermCommunicationsEdit, PermCommunicationsView, PermCommunicationsSend,
			PermConstituentsView, PermStaffView, PermStaffManageTemp, PermAnalyticsView,
		)),
		RoleCampaignCoordinator: NewPermissionSet(
			PermCommunicationsCreate, PermCommunicationsEdit, PermCommunicationsView,
			PermCampaignView, PermCampaignCreateEvents, PermConstituentsView,
		),
		RoleFieldOrganizer: NewPermissionSet(
			PermCommunicationsCreate, PermCommunicationsView, PermCampaignView, PermCampaignCreateEvents, PermConstituentsView,
		),
		RoleVolunteerCoordinator: NewPermissionSet(PermCommunicationsView, PermCampaignView, PermCampaignManageVolunteers),
		RoleTempStaff: NewPermissionSet(
			PermCommunicationsCreate, PermCommunicationsEdit, PermCommunicationsView, PermCommunicationsSend, PermConstituentsView,
		),
		RoleIntern:    NewPermissionSet(PermCommunicationsCreate, PermCommunicationsView, PermConstituentsView),
		RoleVolunteer: NewPermissionSet(PermCommunicationsView, PermCampaignView),
	}
}

// BuiltinPermissions returns defaults for roles not governed by an office:
// company roles and constituents. Office roles return an empty set.
func BuiltinPermissions(role Role) PermissionSet {
	switch role {
	case RoleCompanyAdmin:
		return FullPermissionSet()
	case RoleCompanyManager:
		return NewPermissionSet(PermAnalyticsView, PermAnalyticsExport, PermAnalyticsManage, PermSettingsView, PermSettingsEdit)
	case RoleCompanySupport:
		return NewPermissionSet(PermSettingsView)
	case RoleCompanyAnalyst:
		return NewPermissionSet(PermAnalyticsView, PermAnalyticsExport)
	case RoleConstituent:
		return NewPermissionSet(PermCommunicationsView, PermCommunicationsCreate, PermConstituentsView)
	default:
		return 0
	}
}
