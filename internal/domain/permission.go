package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/bits"
	"sort"
	"strings"
)

// ErrUnknownPermission is returned when a token is not part of the vocabulary.
var ErrUnknownPermission = errors.New("unknown permission")

// Permission is an atomic capability token from a closed vocabulary.
type Permission uint8

const (
	PermCommunicationsCreate Permission = iota + 1
	PermCommunicationsEdit
	PermCommunicationsDelete
	PermCommunicationsSend
	PermCommunicationsView
	PermCommunicationsApprove

	PermConstituentsManage
	PermConstituentsView
	PermConstituentsExport

	PermCampaignManage
	PermCampaignView
	PermCampaignCreateEvents
	PermCampaignManageVolunteers

	PermAnalyticsView
	PermAnalyticsExport
	PermAnalyticsManage

	PermStaffView
	PermStaffInvite
	PermStaffRemove
	PermStaffManageRoles
	PermStaffManageTemp

	PermSettingsView
	PermSettingsEdit

	permissionSentinel
)

var permissionNames = [...]string{
	PermCommunicationsCreate:  "communications.create",
	PermCommunicationsEdit:    "communications.edit",
	PermCommunicationsDelete:  "communications.delete",
	PermCommunicationsSend:    "communications.send",
	PermCommunicationsView:    "communications.view",
	PermCommunicationsApprove: "communications.approve",

	PermConstituentsManage: "constituents.manage",
	PermConstituentsView:   "constituents.view",
	PermConstituentsExport: "constituents.export",

	PermCampaignManage:           "campaign.manage",
	PermCampaignView:             "campaign.view",
	PermCampaignCreateEvents:     "campaign.create_events",
	PermCampaignManageVolunteers: "campaign.manage_volunteers",

	PermAnalyticsView:   "analytics.view",
	PermAnalyticsExport: "analytics.export",
	PermAnalyticsManage: "analytics.manage",

	PermStaffView:        "staff.view",
	PermStaffInvite:      "staff.invite",
	PermStaffRemove:      "staff.remove",
	PermStaffManageRoles: "staff.manage_roles",
	PermStaffManageTemp:  "staff.manage_temp",

	PermSettingsView: "settings.view",
	PermSettingsEdit: "settings.edit",
}

var permissionsByName = func() map[string]Permission {
	out := make(map[string]Permission, len(permissionNames))
	for i, name := range permissionNames {
		if name != "" {
			out[name] = Permission(i)
		}
	}
	return out
}()

// ParsePermission resolves a token name into the vocabulary.
func ParsePermission(raw string) (Permission, error) {
	perm, ok := permissionsByName[strings.TrimSpace(raw)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPermission, raw)
	}
	return perm, nil
}

// AllPermissions returns every token in the vocabulary.
func AllPermissions() []Permission {
	out := make([]Permission, 0, int(permissionSentinel)-1)
	for p := Permission(1); p < permissionSentinel; p++ {
		out = append(out, p)
	}
	return out
}

// Valid reports whether the permission belongs to the vocabulary.
func (p Permission) Valid() bool {
	return p > 0 && p < permissionSentinel
}

func (p Permission) String() string {
	if !p.Valid() {
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
	return permissionNames[p]
}

// MarshalText encodes the token name.
func (p Permission) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPermission, uint8(p))
	}
	return []byte(permissionNames[p]), nil
}

// UnmarshalText decodes a token name.
func (p *Permission) UnmarshalText(text []byte) error {
	parsed, err := ParsePermission(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// PermissionSet is a bitset over the permission vocabulary. The zero value is empty.
type PermissionSet uint64

// NewPermissionSet builds a set from the given tokens.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s = s.With(p)
	}
	return s
}

// FullPermissionSet contains every token.
func FullPermissionSet() PermissionSet {
	return NewPermissionSet(AllPermissions()...)
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	if !p.Valid() {
		return false
	}
	return s&(1<<p) != 0
}

// With returns the set including p.
func (s PermissionSet) With(p Permission) PermissionSet {
	if !p.Valid() {
		return s
	}
	return s | 1<<p
}

// Without returns the set excluding p.
func (s PermissionSet) Without(p Permission) PermissionSet {
	if !p.Valid() {
		return s
	}
	return s &^ (1 << p)
}

// Union returns s ∪ other.
func (s PermissionSet) Union(other PermissionSet) PermissionSet { return s | other }

// Minus returns s \ other.
func (s PermissionSet) Minus(other PermissionSet) PermissionSet { return s &^ other }

// Len returns the number of tokens in the set.
func (s PermissionSet) Len() int { return bits.OnesCount64(uint64(s)) }

// IsEmpty reports whether the set has no tokens.
func (s PermissionSet) IsEmpty() bool { return s == 0 }

// Tokens lists members in vocabulary order.
func (s PermissionSet) Tokens() []Permission {
	out := make([]Permission, 0, s.Len())
	for p := Permission(1); p < permissionSentinel; p++ {
		if s.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Names lists member token names, sorted.
func (s PermissionSet) Names() []string {
	tokens := s.Tokens()
	out := make([]string, len(tokens))
	for i, p := range tokens {
		out[i] = p.String()
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a list of token names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes a list of token names, rejecting unknown tokens.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	var set PermissionSet
	for _, name := range names {
		p, err := ParsePermission(name)
		if err != nil {
			return err
		}
		set = set.With(p)
	}
	*s = set
	return nil
}
