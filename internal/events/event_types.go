package events

import (
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventEntityCreated   EventType = "entity_created"
	EventEntityUpdated   EventType = "entity_updated"
	EventEntityDeleted   EventType = "entity_deleted"
	EventAccessDenied    EventType = "access_denied"
	EventSettingsChanged EventType = "settings_changed"
	EventStaffAdmitted   EventType = "staff_admitted"
)

// Actor identifies the principal behind an event.
type Actor struct {
	ID       string      `json:"id"`
	Role     domain.Role `json:"role"`
	OfficeID string      `json:"office_id,omitempty"`
}

// ActorOf builds an Actor from a principal. A nil principal yields an anonymous actor.
func ActorOf(p *domain.Principal) Actor {
	if p == nil {
		return Actor{}
	}
	return Actor{ID: p.ID, Role: p.Role, OfficeID: p.OfficeID}
}

// Event is an audit record emitted by the gateway and services.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Entity    domain.EntityType `json:"entity"`
	EntityID  string            `json:"entity_id,omitempty"`
	OfficeID  string            `json:"office_id,omitempty"`
	Actor     Actor             `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   interface{}       `json:"payload,omitempty"`
}

// EntityChangedPayload accompanies created, updated and deleted events.
type EntityChangedPayload struct {
	Operation string `json:"operation"`
	Version   int64  `json:"version"`
}

// AccessDeniedPayload accompanies access_denied events.
type AccessDeniedPayload struct {
	Operation  string `json:"operation"`
	Reason     string `json:"reason"`
	Permission string `json:"permission,omitempty"`
}

// SettingsChangedPayload accompanies settings_changed events.
type SettingsChangedPayload struct {
	Section string `json:"section"`
}

// StaffAdmittedPayload accompanies staff_admitted events.
type StaffAdmittedPayload struct {
	Role         domain.Role `json:"role"`
	SupervisorID string      `json:"supervisor_id,omitempty"`
	End          time.Time   `json:"end"`
}
