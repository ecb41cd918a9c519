package dto

import (
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// InviteStaffRequest payload.
type InviteStaffRequest struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
	Department  string   `json:"department"`
	Title       string   `json:"title"`
}

// AdmitStaffRequest payload for temporary and campaign grants.
type AdmitStaffRequest struct {
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name"`
	Role         string    `json:"role"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	SupervisorID string    `json:"supervisor_id"`
	Campaign     string    `json:"campaign"`
	Permissions  []string  `json:"permissions"`
}

// PermissionChangeRequest payload.
type PermissionChangeRequest struct {
	Grant  []string `json:"grant"`
	Revoke []string `json:"revoke"`
}

// StaffResponse is the public view of a staff profile.
type StaffResponse struct {
	ID                 string             `json:"id"`
	Email              string             `json:"email"`
	DisplayName        string             `json:"display_name"`
	Role               string             `json:"role"`
	EmploymentType     string             `json:"employment_type,omitempty"`
	OfficeID           string             `json:"office_id,omitempty"`
	Permissions        []string           `json:"permissions"`
	RevokedPermissions []string           `json:"revoked_permissions,omitempty"`
	Employment         *domain.Employment `json:"employment,omitempty"`
	GrantedBy          string             `json:"granted_by,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// PrincipalResponse describes the caller as resolved for this request.
type PrincipalResponse struct {
	ID               string                `json:"id"`
	Role             domain.Role           `json:"role"`
	Family           string                `json:"family"`
	OfficeID         string                `json:"office_id,omitempty"`
	RepresentativeID string                `json:"representative_id,omitempty"`
	District         string                `json:"district,omitempty"`
	Permissions      []string              `json:"permissions"`
	WindowStart      *time.Time            `json:"window_start,omitempty"`
	WindowEnd        *time.Time            `json:"window_end,omitempty"`
	SupervisorID     string                `json:"supervisor_id,omitempty"`
	Restrictions     *RestrictionsResponse `json:"restrictions,omitempty"`
}

// RestrictionsResponse lists the limits on a temporary principal.
type RestrictionsResponse struct {
	Permissions []string         `json:"permissions"`
	Channels    []domain.Channel `json:"channels"`
}
