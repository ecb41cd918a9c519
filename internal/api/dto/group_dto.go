package dto

import "github.com/spec-kit/constituent-access/internal/domain"

// GroupRequest payload for creating and updating groups.
type GroupRequest struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Type        domain.GroupType     `json:"type"`
	Visibility  domain.Visibility    `json:"visibility"`
	Settings    domain.GroupSettings `json:"settings"`
	Metadata    domain.GroupMetadata `json:"metadata"`
	Members     []string             `json:"members"`
	Moderators  []string             `json:"moderators"`
}

// MemberRequest payload.
type MemberRequest struct {
	MemberID string `json:"member_id"`
}
