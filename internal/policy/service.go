package policy

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
)

// Invalidator drops cached settings after a mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, officeID string)
}

// ServiceDeps wires a Service. Settings and Users are required.
type ServiceDeps struct {
	Settings    *store.Gateway[*domain.OfficeSettings]
	Users       *store.Gateway[*domain.UserProfile]
	Invalidator Invalidator
	Dispatcher  events.Dispatcher
	Now         func() time.Time
	Logger      *zap.Logger
}

// Service reads and mutates office policy on behalf of a principal. Every
// call goes through the entity gateways, so the caller's scope and tokens
// apply. Mutations affect principals resolved afterwards only.
type Service struct {
	deps   ServiceDeps
	logger *zap.Logger
}

// NewService constructs a policy service.
func NewService(deps ServiceDeps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{deps: deps, logger: observability.OrNop(deps.Logger).With(zap.String("component", "policy"))}
}

// Get returns the policy of officeID as visible to p.
func (s *Service) Get(ctx context.Context, p *domain.Principal, officeID string) (Policy, error) {
	settings, err := s.deps.Settings.Get(ctx, p, officeID)
	if err != nil {
		return Policy{}, err
	}
	return New(settings), nil
}

// profileQuery runs a user query, either directly or inside a transaction.
type profileQuery func(filter query.Predicate, opts query.Options) ([]*domain.UserProfile, error)

func (s *Service) direct(ctx context.Context, p *domain.Principal) profileQuery {
	return func(filter query.Predicate, opts query.Options) ([]*domain.UserProfile, error) {
		return s.deps.Users.Query(ctx, p, filter, opts)
	}
}

// ActiveTemporaryCount counts temporary-role profiles of officeID whose
// employment window contains now.
func (s *Service) ActiveTemporaryCount(ctx context.Context, p *domain.Principal, officeID string) (int, error) {
	active, err := s.activeTemporary(s.direct(ctx, p), officeID)
	return len(active), err
}

// ActiveTemporaryStaff lists the temporary-role profiles active now.
func (s *Service) ActiveTemporaryStaff(ctx context.Context, p *domain.Principal, officeID string) ([]*domain.UserProfile, error) {
	return s.activeTemporary(s.direct(ctx, p), officeID)
}

func (s *Service) activeTemporary(q profileQuery, officeID string) ([]*domain.UserProfile, error) {
	profiles, err := temporaryProfiles(q, officeID)
	if err != nil {
		return nil, err
	}
	now := s.deps.Now()
	out := make([]*domain.UserProfile, 0, len(profiles))
	for _, profile := range profiles {
		if profile.ActiveAt(now) {
			out = append(out, profile)
		}
	}
	return out, nil
}

// CanAdmitTemporaryStaff reports whether temporary staff are allowed and
// the active count is below the office cap.
func (s *Service) CanAdmitTemporaryStaff(ctx context.Context, p *domain.Principal, officeID string) (bool, error) {
	pol, err := s.Get(ctx, p, officeID)
	if err != nil {
		return false, err
	}
	return s.Admissible(ctx, p, pol)
}

// Admissible is CanAdmitTemporaryStaff for an already loaded policy.
func (s *Service) Admissible(ctx context.Context, p *domain.Principal, pol Policy) (bool, error) {
	return s.admissible(s.direct(ctx, p), pol)
}

// AdmissibleIn is Admissible evaluated inside t. An admission inserted in
// the same transaction commits only if the active set it counted is still
// current.
func (s *Service) AdmissibleIn(t *store.Txn[*domain.UserProfile], pol Policy) (bool, error) {
	return s.admissible(t.Query, pol)
}

func (s *Service) admissible(q profileQuery, pol Policy) (bool, error) {
	if !pol.IsTemporaryStaffAllowed() {
		return false, nil
	}
	limit := pol.MaxActiveTemporary()
	if limit <= 0 {
		return true, nil
	}
	active, err := s.activeTemporary(q, pol.Settings().ID)
	if err != nil {
		return false, err
	}
	return len(active) < limit, nil
}

// Update applies fn to the office settings. It requires settings.edit.
func (s *Service) Update(ctx context.Context, p *domain.Principal, officeID string, fn func(*domain.OfficeSettings) error) (*domain.OfficeSettings, error) {
	return s.mutate(ctx, p, access.OpUpdate, officeID, "settings", fn)
}

// UpdateStaffing applies fn to the staffing sub-structure only. It requires
// staff.manage_roles.
func (s *Service) UpdateStaffing(ctx context.Context, p *domain.Principal, officeID string, fn func(*domain.StaffManagement) error) (*domain.OfficeSettings, error) {
	return s.mutate(ctx, p, access.OpManageStaff, officeID, "staffManagement", func(settings *domain.OfficeSettings) error {
		staffing := settings.StaffManagement
		if err := fn(&staffing); err != nil {
			return err
		}
		settings.StaffManagement = staffing
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, p *domain.Principal, op access.Operation, officeID, section string, fn func(*domain.OfficeSettings) error) (*domain.OfficeSettings, error) {
	updated, err := s.deps.Settings.Mutate(ctx, p, op, officeID, func(settings *domain.OfficeSettings) error {
		if err := fn(settings); err != nil {
			return err
		}
		settings.UpdatedBy = p.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.deps.Invalidator != nil {
		s.deps.Invalidator.Invalidate(ctx, officeID)
	}
	s.logger.Info("office settings changed",
		zap.String("office_id", officeID),
		zap.String("section", section),
		zap.String("principal_id", p.ID),
	)
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventSettingsChanged,
		Entity:    domain.EntitySettings,
		EntityID:  officeID,
		OfficeID:  officeID,
		Actor:     events.ActorOf(p),
		Timestamp: s.deps.Now().UTC(),
		Payload:   events.SettingsChangedPayload{Section: section},
	})
	return updated, nil
}

func temporaryProfiles(q profileQuery, officeID string) ([]*domain.UserProfile, error) {
	roles := domain.TemporaryRoles()
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	filter := query.Eq(domain.FieldOfficeID, officeID).And(query.In(domain.FieldRole, names...))

	var out []*domain.UserProfile
	for offset := 0; ; offset += query.MaxLimit {
		page, err := q(filter, query.Options{Limit: query.MaxLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < query.MaxLimit {
			return out, nil
		}
	}
}

func (s *Service) publish(ctx context.Context, evt events.Event) {
	if s.deps.Dispatcher == nil {
		return
	}
	if err := s.deps.Dispatcher.Publish(ctx, evt); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}
