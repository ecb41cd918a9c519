package query

import "github.com/spec-kit/constituent-access/internal/domain"

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Options control ordering and paging of a query.
type Options struct {
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

var sortable = map[string]bool{
	domain.FieldID:               true,
	domain.FieldOfficeID:         true,
	domain.FieldRepresentativeID: true,
	domain.FieldVisibility:       true,
	domain.FieldDistrict:         true,
	domain.FieldStatus:           true,
	domain.FieldChannel:          true,
	domain.FieldDirection:        true,
	domain.FieldType:             true,
	domain.FieldPeriod:           true,
	domain.FieldRole:             true,
	domain.FieldSenderID:         true,
	domain.FieldEmploymentType:   true,
	domain.FieldCreatedAt:        true,
	domain.FieldUpdatedAt:        true,
	domain.FieldScheduledFor:     true,
}

// Normalize applies defaults: newest first by createdAt, DefaultLimit rows,
// limits capped at MaxLimit and negative offsets reset to zero. OrderBy must
// name a filterable attribute; anything else sorts by createdAt.
func (o Options) Normalize() Options {
	switch {
	case o.OrderBy == "":
		o.OrderBy = domain.FieldCreatedAt
		o.Desc = true
	case !sortable[o.OrderBy]:
		o.OrderBy = domain.FieldCreatedAt
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
