package domain

import "time"

// Employment captures the engagement window of an office staff member.
type Employment struct {
	Start      time.Time  `json:"startDate"`
	End        *time.Time `json:"endDate,omitempty"`
	Supervisor string     `json:"supervisor,omitempty"`
	Department string     `json:"department,omitempty"`
	Title      string     `json:"title,omitempty"`
	Campaign   string     `json:"campaign,omitempty"`
}

// UserProfile is the stored record behind an authenticated identity. Role and
// permission values are kept raw and only interpreted during principal resolution.
type UserProfile struct {
	EntityBase
	Email              string         `json:"email"`
	DisplayName        string         `json:"displayName"`
	Role               string         `json:"role"`
	EmploymentType     EmploymentType `json:"employmentType,omitempty"`
	District           string         `json:"district,omitempty"`
	Permissions        []string       `json:"permissions"`
	RevokedPermissions []string       `json:"revokedPermissions,omitempty"`
	Employment         *Employment    `json:"employment,omitempty"`
	GrantedBy          string         `json:"grantedBy,omitempty"`
}

// Kind implements Entity.
func (u *UserProfile) Kind() EntityType { return EntityUsers }

// Attrs implements Entity.
func (u *UserProfile) Attrs() Attrs {
	a := u.EntityBase.attrs(u.District)
	a[FieldRole] = u.Role
	a[FieldEmploymentType] = string(u.EmploymentType)
	return a
}

// ActiveAt reports whether the employment window contains t. Profiles
// without an employment record are treated as active.
func (u *UserProfile) ActiveAt(t time.Time) bool {
	if u.Employment == nil {
		return true
	}
	return EmploymentWindow{Start: u.Employment.Start, End: u.Employment.End}.Contains(t)
}
