package dto

import "github.com/spec-kit/constituent-access/internal/domain"

// ProvisionOfficeRequest payload. Office principals may omit the ids.
type ProvisionOfficeRequest struct {
	OfficeID         string `json:"office_id"`
	RepresentativeID string `json:"representative_id"`
	Name             string `json:"name"`
	District         string `json:"district"`
}

// UpdateSettingsRequest payload; omitted sections are unchanged.
type UpdateSettingsRequest struct {
	Name                  *string                       `json:"name"`
	District              *string                       `json:"district"`
	WorkflowSettings      *domain.WorkflowSettings      `json:"workflowSettings"`
	CommunicationDefaults *domain.CommunicationDefaults `json:"communicationDefaults"`
}
