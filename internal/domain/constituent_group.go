package domain

// GroupType classifies how a constituent group was formed.
type GroupType string

const (
	GroupGeographic  GroupType = "geographic"
	GroupDemographic GroupType = "demographic"
	GroupInterest    GroupType = "interest"
	GroupCustom      GroupType = "custom"
)

// GroupSettings controls participation in a group.
type GroupSettings struct {
	AllowMemberPosts  bool `json:"allowMemberPosts"`
	RequireModeration bool `json:"requireModeration"`
}

// GroupMetadata holds descriptive fields.
type GroupMetadata struct {
	Tags     []string `json:"tags"`
	Category string   `json:"category,omitempty"`
	District string   `json:"district,omitempty"`
	Precinct string   `json:"precinct,omitempty"`
}

// ConstituentGroup is an audience segment owned by one office.
type ConstituentGroup struct {
	EntityBase
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        GroupType     `json:"type"`
	Members     []string      `json:"members"`
	Moderators  []string      `json:"moderators"`
	Settings    GroupSettings `json:"settings"`
	Metadata    GroupMetadata `json:"metadata"`
}

// Kind implements Entity.
func (g *ConstituentGroup) Kind() EntityType { return EntityConstituentGroups }

// Attrs implements Entity.
func (g *ConstituentGroup) Attrs() Attrs {
	a := g.EntityBase.attrs(g.Metadata.District)
	a[FieldType] = string(g.Type)
	return a
}

// HasMember reports whether uid belongs to the group.
func (g *ConstituentGroup) HasMember(uid string) bool {
	for _, m := range g.Members {
		if m == uid {
			return true
		}
	}
	return false
}
