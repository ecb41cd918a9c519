package testfixtures

import (
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
)

const (
	OfficeID         = "office-o"
	RepresentativeID = "rep-r"
	OtherOfficeID    = "office-x"
	OtherRepID       = "rep-x"
)

// Representative returns the representative of OfficeID with default permissions.
func Representative() *domain.Principal {
	return &domain.Principal{
		ID:               RepresentativeID,
		Role:             domain.RoleRepresentative,
		OfficeID:         OfficeID,
		RepresentativeID: RepresentativeID,
		Permissions:      domain.DefaultPermanentPermissions()[domain.RoleRepresentative],
		ResolvedAt:       Epoch,
	}
}

// Staff returns a permanent staff principal of OfficeID.
func Staff(id string, role domain.Role) *domain.Principal {
	return &domain.Principal{
		ID:               id,
		Role:             role,
		OfficeID:         OfficeID,
		RepresentativeID: RepresentativeID,
		Permissions:      domain.DefaultPermanentPermissions()[role],
		ResolvedAt:       Epoch,
	}
}

// Temporary returns a temporary principal of OfficeID employed from Day(1)
// through the end of Day(days).
func Temporary(id string, role domain.Role, days int) *domain.Principal {
	end := EndOfDay(days)
	return &domain.Principal{
		ID:               id,
		Role:             role,
		OfficeID:         OfficeID,
		RepresentativeID: RepresentativeID,
		Permissions:      domain.DefaultTemporaryPermissions()[role],
		Window:           domain.EmploymentWindow{Start: Day(1), End: &end},
		SupervisorID:     RepresentativeID,
		ResolvedAt:       Epoch,
	}
}

// Constituent returns a constituent of RepresentativeID living in district.
func Constituent(id, district string) *domain.Principal {
	return &domain.Principal{
		ID:               id,
		Role:             domain.RoleConstituent,
		OfficeID:         OfficeID,
		RepresentativeID: RepresentativeID,
		District:         district,
		Permissions:      domain.BuiltinPermissions(domain.RoleConstituent),
		ResolvedAt:       Epoch,
	}
}

// Company returns a platform-operator principal.
func Company(id string, role domain.Role) *domain.Principal {
	return &domain.Principal{
		ID:          id,
		Role:        role,
		Permissions: domain.BuiltinPermissions(role),
		ResolvedAt:  Epoch,
	}
}

// Communication returns a draft email owned by OfficeID.
func Communication(id string, at time.Time) *domain.Communication {
	return &domain.Communication{
		EntityBase: domain.EntityBase{
			ID:               id,
			OfficeID:         OfficeID,
			RepresentativeID: RepresentativeID,
			Visibility:       domain.VisibilityPrivate,
			CreatedAt:        at,
			UpdatedAt:        at,
		},
		SenderID:  RepresentativeID,
		Type:      domain.CommunicationBroadcast,
		Direction: domain.DirectionOutbound,
		Channel:   domain.ChannelEmail,
		Subject:   "Town hall",
		Content:   "Join us on Thursday.",
		Status:    domain.CommunicationDraft,
	}
}
