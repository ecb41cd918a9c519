package access

import "github.com/spec-kit/constituent-access/internal/domain"

// Operation is a verb a principal performs on an entity type.
type Operation string

const (
	OpGet         Operation = "get"
	OpQuery       Operation = "query"
	OpCreate      Operation = "create"
	OpUpdate      Operation = "update"
	OpDelete      Operation = "delete"
	OpSend        Operation = "send"
	OpApprove     Operation = "approve"
	OpExport      Operation = "export"
	OpManageStaff Operation = "manage_staff"
	OpAdmit       Operation = "admit"
)

// IsRead reports whether the operation never mutates storage.
func (o Operation) IsRead() bool {
	switch o {
	case OpGet, OpQuery, OpExport:
		return true
	}
	return false
}

type ruleKey struct {
	kind domain.EntityType
	op   Operation
}

// requiredPermissions maps every supported (entity, operation) pair to exactly
// one token. Pairs missing from the table are not supported by any role.
var requiredPermissions = map[ruleKey]domain.Permission{
	{domain.EntityCommunications, OpGet}:     domain.PermCommunicationsView,
	{domain.EntityCommunications, OpQuery}:   domain.PermCommunicationsView,
	{domain.EntityCommunications, OpCreate}:  domain.PermCommunicationsCreate,
	{domain.EntityCommunications, OpUpdate}:  domain.PermCommunicationsEdit,
	{domain.EntityCommunications, OpDelete}:  domain.PermCommunicationsDelete,
	{domain.EntityCommunications, OpSend}:    domain.PermCommunicationsSend,
	{domain.EntityCommunications, OpApprove}: domain.PermCommunicationsApprove,

	{domain.EntityConstituentGroups, OpGet}:    domain.PermConstituentsView,
	{domain.EntityConstituentGroups, OpQuery}:  domain.PermConstituentsView,
	{domain.EntityConstituentGroups, OpCreate}: domain.PermConstituentsManage,
	{domain.EntityConstituentGroups, OpUpdate}: domain.PermConstituentsManage,
	{domain.EntityConstituentGroups, OpDelete}: domain.PermConstituentsManage,
	{domain.EntityConstituentGroups, OpExport}: domain.PermConstituentsExport,

	{domain.EntityAnalytics, OpGet}:    domain.PermAnalyticsView,
	{domain.EntityAnalytics, OpQuery}:  domain.PermAnalyticsView,
	{domain.EntityAnalytics, OpCreate}: domain.PermAnalyticsManage,
	{domain.EntityAnalytics, OpUpdate}: domain.PermAnalyticsManage,
	{domain.EntityAnalytics, OpDelete}: domain.PermAnalyticsManage,
	{domain.EntityAnalytics, OpExport}: domain.PermAnalyticsExport,

	{domain.EntitySettings, OpGet}:         domain.PermSettingsView,
	{domain.EntitySettings, OpQuery}:       domain.PermSettingsView,
	{domain.EntitySettings, OpCreate}:      domain.PermSettingsEdit,
	{domain.EntitySettings, OpUpdate}:      domain.PermSettingsEdit,
	{domain.EntitySettings, OpManageStaff}: domain.PermStaffManageRoles,

	{domain.EntityUsers, OpGet}:    domain.PermStaffView,
	{domain.EntityUsers, OpQuery}:  domain.PermStaffView,
	{domain.EntityUsers, OpCreate}: domain.PermStaffInvite,
	{domain.EntityUsers, OpUpdate}: domain.PermStaffManageRoles,
	{domain.EntityUsers, OpDelete}: domain.PermStaffRemove,
	{domain.EntityUsers, OpAdmit}:  domain.PermStaffManageTemp,
}

// RequiredPermission returns the token an operation on kind requires.
func RequiredPermission(kind domain.EntityType, op Operation) (domain.Permission, bool) {
	perm, ok := requiredPermissions[ruleKey{kind, op}]
	return perm, ok
}
