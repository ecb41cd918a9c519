package domain

import "time"

// EntityType names a document collection.
type EntityType string

const (
	EntityUsers             EntityType = "users"
	EntityCommunications    EntityType = "communications"
	EntityConstituentGroups EntityType = "constituentGroups"
	EntityAnalytics         EntityType = "analytics"
	EntitySettings          EntityType = "settings"
)

// Valid reports whether the entity type is a known collection.
func (t EntityType) Valid() bool {
	switch t {
	case EntityUsers, EntityCommunications, EntityConstituentGroups, EntityAnalytics, EntitySettings:
		return true
	}
	return false
}

// Visibility controls who outside the owning office may read an entity.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityGroup   Visibility = "group"
)

// Filterable attribute names shared by scope predicates, caller filters and storage.
const (
	FieldID               = "id"
	FieldOfficeID         = "officeId"
	FieldRepresentativeID = "representativeId"
	FieldVisibility       = "visibility"
	FieldDistrict         = "district"
	FieldStatus           = "status"
	FieldChannel          = "channel"
	FieldDirection        = "direction"
	FieldType             = "type"
	FieldPeriod           = "period"
	FieldRole             = "role"
	FieldSenderID         = "senderId"
	FieldEmploymentType   = "employmentType"
	FieldCreatedAt        = "createdAt"
	FieldUpdatedAt        = "updatedAt"
	FieldScheduledFor     = "scheduledFor"
)

// TimeAttrLayout is fixed width so formatted instants sort lexically.
const TimeAttrLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTimeAttr renders t for use as an attribute value.
func FormatTimeAttr(t time.Time) string {
	return t.UTC().Format(TimeAttrLayout)
}

// Attrs is the flat set of filterable attributes of an entity instance.
type Attrs map[string]string

// Get returns the attribute value or "".
func (a Attrs) Get(field string) string {
	if a == nil {
		return ""
	}
	return a[field]
}

// EntityBase carries the scoping and audit fields every document has.
type EntityBase struct {
	ID               string     `json:"id"`
	OfficeID         string     `json:"officeId,omitempty"`
	RepresentativeID string     `json:"representativeId,omitempty"`
	Visibility       Visibility `json:"visibility,omitempty"`
	Version          int64      `json:"version"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Base exposes the embedded base for stamping.
func (b *EntityBase) Base() *EntityBase { return b }

func (b *EntityBase) attrs(district string) Attrs {
	return Attrs{
		FieldID:               b.ID,
		FieldOfficeID:         b.OfficeID,
		FieldRepresentativeID: b.RepresentativeID,
		FieldVisibility:       string(b.Visibility),
		FieldDistrict:         district,
	}
}

// Entity is implemented by pointer types stored through the gateway.
type Entity interface {
	Kind() EntityType
	Base() *EntityBase
	Attrs() Attrs
}
