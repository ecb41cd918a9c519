package dto

import (
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// CreateCommunicationRequest payload.
type CreateCommunicationRequest struct {
	Type             domain.CommunicationType     `json:"type"`
	Channel          domain.Channel               `json:"channel"`
	Subject          string                       `json:"subject"`
	Content          string                       `json:"content"`
	RecipientID      string                       `json:"recipient_id"`
	RecipientGroupID string                       `json:"recipient_group_id"`
	Visibility       domain.Visibility            `json:"visibility"`
	Metadata         domain.CommunicationMetadata `json:"metadata"`
}

// UpdateCommunicationRequest payload; omitted fields are unchanged.
type UpdateCommunicationRequest struct {
	Subject    *string                       `json:"subject"`
	Content    *string                       `json:"content"`
	Channel    *domain.Channel               `json:"channel"`
	Visibility *domain.Visibility            `json:"visibility"`
	Metadata   *domain.CommunicationMetadata `json:"metadata"`
}

// ScheduleRequest payload.
type ScheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// InboundRequest payload for constituent messages.
type InboundRequest struct {
	Channel domain.Channel `json:"channel"`
	Subject string         `json:"subject"`
	Content string         `json:"content"`
}

// CommunicationResponse is the public view of a communication.
type CommunicationResponse struct {
	ID               string                       `json:"id"`
	OfficeID         string                       `json:"office_id,omitempty"`
	SenderID         string                       `json:"sender_id"`
	SenderRole       domain.Role                  `json:"sender_role"`
	RecipientID      string                       `json:"recipient_id,omitempty"`
	RecipientGroupID string                       `json:"recipient_group_id,omitempty"`
	Type             domain.CommunicationType     `json:"type"`
	Direction        domain.Direction             `json:"direction"`
	Channel          domain.Channel               `json:"channel"`
	Subject          string                       `json:"subject"`
	Content          string                       `json:"content"`
	Status           domain.CommunicationStatus   `json:"status"`
	Visibility       domain.Visibility            `json:"visibility"`
	ScheduledFor     *time.Time                   `json:"scheduled_for,omitempty"`
	SentAt           *time.Time                   `json:"sent_at,omitempty"`
	ApprovedBy       string                       `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time                   `json:"approved_at,omitempty"`
	Metadata         domain.CommunicationMetadata `json:"metadata"`
	Stats            domain.CommunicationStats    `json:"analytics"`
	Version          int64                        `json:"version"`
	CreatedAt        time.Time                    `json:"created_at"`
	UpdatedAt        time.Time                    `json:"updated_at"`
}
