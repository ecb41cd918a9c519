package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	apperrors "github.com/spec-kit/constituent-access/pkg/util/errorutil"
)

// StaffService manages office staff profiles: invitations, temporary
// admissions, permission changes and removal.
type StaffService struct {
	users      *store.Gateway[*domain.UserProfile]
	policies   policy.Source
	policy     *policy.Service
	dispatcher events.Dispatcher
	now        func() time.Time
	logger     *zap.Logger
}

// StaffDependencies encapsulates collaborators required for staff management.
type StaffDependencies struct {
	Users         *store.Gateway[*domain.UserProfile]
	Policies      policy.Source
	PolicyService *policy.Service
	Dispatcher    events.Dispatcher
	Now           func() time.Time
	Logger        *zap.Logger
}

// InviteInput describes a permanent staff member. UserID is the identity
// provider subject the profile is keyed by.
type InviteInput struct {
	UserID      string
	Email       string
	DisplayName string
	Role        string
	Permissions []string
	Department  string
	Title       string
}

// AdmitInput describes a temporary or campaign grant.
type AdmitInput struct {
	UserID       string
	Email        string
	DisplayName  string
	Role         string
	Start        time.Time
	End          time.Time
	SupervisorID string
	Campaign     string
	Permissions  []string
}

// PermissionChange grants and revokes tokens on a profile.
type PermissionChange struct {
	Grant  []string
	Revoke []string
}

// NewStaffService constructs the service.
func NewStaffService(deps StaffDependencies) *StaffService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &StaffService{
		users:      deps.Users,
		policies:   deps.Policies,
		policy:     deps.PolicyService,
		dispatcher: deps.Dispatcher,
		now:        deps.Now,
		logger:     observability.OrNop(deps.Logger).With(zap.String("component", "staff")),
	}
}

// InviteStaff creates a permanent staff profile in p's office.
func (s *StaffService) InviteStaff(ctx context.Context, p *domain.Principal, in InviteInput) (*domain.UserProfile, error) {
	role, err := s.validateIdentity(in.UserID, in.Email, in.Role)
	if err != nil {
		return nil, err
	}
	if role.Family() != domain.FamilyPermanent || role == domain.RoleRepresentative {
		return nil, apperrors.NewValidationError("role cannot be invited as permanent staff", map[string]any{"role": role})
	}
	pol, err := s.officePolicy(ctx, p)
	if err != nil {
		return nil, err
	}
	perms, err := s.grantableForRole(p, pol, role, in.Permissions)
	if err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		EntityBase:     domain.EntityBase{ID: in.UserID},
		Email:          strings.TrimSpace(in.Email),
		DisplayName:    strings.TrimSpace(in.DisplayName),
		Role:           string(role),
		EmploymentType: domain.EmploymentPermanent,
		District:       p.District,
		Permissions:    perms.Names(),
		Employment: &domain.Employment{
			Start:      s.now().UTC(),
			Department: in.Department,
			Title:      in.Title,
		},
		GrantedBy: p.ID,
	}
	created, err := s.users.CreateAs(ctx, p, access.OpCreate, profile)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staff invited", zap.String("user_id", created.ID), zap.String("role", created.Role), zap.String("principal_id", p.ID))
	return created, nil
}

// AdmitTemporaryStaff grants a window-bounded role under the office's
// temporary staff policy. The policy must allow temporary staff and the window
// must respect the maximum duration. Where approval is required, p must be an
// approver. The active cap is counted in the same transaction as the insert.
func (s *StaffService) AdmitTemporaryStaff(ctx context.Context, p *domain.Principal, in AdmitInput) (*domain.UserProfile, error) {
	role, err := s.validateIdentity(in.UserID, in.Email, in.Role)
	if err != nil {
		return nil, err
	}
	if role.Family() != domain.FamilyTemporary {
		return nil, apperrors.NewValidationError("role is not a temporary role", map[string]any{"role": role})
	}

	pol, err := s.officePolicy(ctx, p)
	if err != nil {
		return nil, err
	}
	if role.IsCampaign() && !pol.Settings().StaffManagement.CampaignMode.Enabled {
		return nil, apperrors.NewConflict("campaign mode is not enabled", map[string]any{"role": role})
	}
	if pol.RequiresApproval() && !pol.CanApprove(p.Role) {
		return nil, apperrors.NewForbidden("role cannot approve temporary staff")
	}
	start := in.Start
	if start.IsZero() {
		start = s.now()
	}
	if in.End.IsZero() || !in.End.After(start) {
		return nil, apperrors.NewValidationError("end date must be after start date", nil)
	}
	end := in.End.UTC()
	window := domain.EmploymentWindow{Start: start.UTC(), End: &end}
	if !pol.WithinMaxDuration(window) {
		return nil, apperrors.NewValidationError("window exceeds the maximum temporary duration", map[string]any{
			"max_days": pol.Settings().StaffManagement.TemporaryStaff.MaxDurationDays,
		})
	}

	supervisor := in.SupervisorID
	if supervisor == "" && p.Family() == domain.FamilyPermanent {
		supervisor = p.ID
	}
	if supervisor == "" && pol.RequiresSupervisor() {
		return nil, apperrors.NewValidationError("a supervisor is required", nil)
	}

	perms, err := s.grantableForRole(p, pol, role, in.Permissions)
	if err != nil {
		return nil, err
	}

	profile := &domain.UserProfile{
		EntityBase:     domain.EntityBase{ID: in.UserID},
		Email:          strings.TrimSpace(in.Email),
		DisplayName:    strings.TrimSpace(in.DisplayName),
		Role:           string(role),
		EmploymentType: employmentTypeOf(role),
		District:       pol.Settings().District,
		Permissions:    perms.Names(),
		Employment: &domain.Employment{
			Start:      window.Start,
			End:        window.End,
			Supervisor: supervisor,
			Campaign:   in.Campaign,
		},
		GrantedBy: p.ID,
	}
	var created *domain.UserProfile
	err = s.users.RunTransaction(ctx, p, func(t *store.Txn[*domain.UserProfile]) error {
		ok, err := s.policy.AdmissibleIn(t, pol)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewConflict("temporary staff cannot be admitted", map[string]any{
				"enabled": pol.IsTemporaryStaffAllowed(),
				"max":     pol.MaxActiveTemporary(),
			})
		}
		created, err = t.CreateAs(access.OpAdmit, profile)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("temporary staff admitted",
		zap.String("user_id", created.ID),
		zap.String("role", created.Role),
		zap.Time("end", end),
		zap.String("principal_id", p.ID),
	)
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStaffAdmitted,
		Entity:    domain.EntityUsers,
		EntityID:  created.ID,
		OfficeID:  created.OfficeID,
		Actor:     events.ActorOf(p),
		Timestamp: s.now().UTC(),
		Payload:   events.StaffAdmittedPayload{Role: role, SupervisorID: supervisor, End: end},
	})
	return created, nil
}

// EndTemporaryAccess closes a temporary grant now. The profile stays for
// audit; the resolver rejects it from the next request on.
func (s *StaffService) EndTemporaryAccess(ctx context.Context, p *domain.Principal, userID string) (*domain.UserProfile, error) {
	return s.users.Mutate(ctx, p, access.OpAdmit, userID, func(u *domain.UserProfile) error {
		role, err := domain.ParseRole(u.Role)
		if err != nil || role.Family() != domain.FamilyTemporary || u.Employment == nil {
			return apperrors.NewConflict("profile is not a temporary grant", map[string]any{"user_id": userID})
		}
		now := s.now().UTC()
		if u.Employment.End != nil && u.Employment.End.Before(now) {
			return nil
		}
		u.Employment.End = &now
		return nil
	})
}

// UpdatePermissions grants and revokes explicit tokens on a staff profile.
// A principal cannot grant tokens it does not hold itself, and cannot change
// its own grants.
func (s *StaffService) UpdatePermissions(ctx context.Context, p *domain.Principal, userID string, change PermissionChange) (*domain.UserProfile, error) {
	if userID == p.ID {
		return nil, apperrors.NewForbidden("cannot change own permissions")
	}
	grant, err := s.grantable(p, change.Grant)
	if err != nil {
		return nil, err
	}
	revoke, err := parsePermissions(change.Revoke)
	if err != nil {
		return nil, err
	}
	return s.users.Update(ctx, p, userID, func(u *domain.UserProfile) error {
		if u.Role == string(domain.RoleRepresentative) {
			return apperrors.NewForbidden("representative permissions cannot be changed")
		}
		current, _ := parsePermissions(u.Permissions)
		revoked, _ := parsePermissions(u.RevokedPermissions)
		current = current.Union(grant).Minus(revoke)
		revoked = revoked.Minus(grant).Union(revoke)
		u.Permissions = current.Names()
		u.RevokedPermissions = revoked.Names()
		u.GrantedBy = p.ID
		return nil
	})
}

// RemoveStaff deletes a staff profile. The representative and p itself
// cannot be removed.
func (s *StaffService) RemoveStaff(ctx context.Context, p *domain.Principal, userID string) error {
	if userID == p.ID {
		return apperrors.NewForbidden("cannot remove yourself")
	}
	if userID == p.ScopeID() {
		return apperrors.NewForbidden("the representative cannot be removed")
	}
	if err := s.users.Delete(ctx, p, userID); err != nil {
		return err
	}
	s.logger.Info("staff removed", zap.String("user_id", userID), zap.String("principal_id", p.ID))
	return nil
}

func (s *StaffService) GetStaff(ctx context.Context, p *domain.Principal, userID string) (*domain.UserProfile, error) {
	return s.users.Get(ctx, p, userID)
}

// ListStaff lists profiles in p's office, optionally narrowed to one role.
func (s *StaffService) ListStaff(ctx context.Context, p *domain.Principal, role string, opts query.Options) ([]*domain.UserProfile, error) {
	filter := query.All()
	if role != "" {
		parsed, err := domain.ParseRole(role)
		if err != nil {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
		}
		filter = query.Eq(domain.FieldRole, string(parsed))
	}
	return s.users.Query(ctx, p, filter, opts)
}

// ListActiveTemporary lists temporary grants of p's office that are active now.
func (s *StaffService) ListActiveTemporary(ctx context.Context, p *domain.Principal) ([]*domain.UserProfile, error) {
	return s.policy.ActiveTemporaryStaff(ctx, p, p.OfficeID)
}

func (s *StaffService) validateIdentity(userID, email, rawRole string) (domain.Role, error) {
	if strings.TrimSpace(userID) == "" {
		return "", apperrors.NewValidationError("user id is required", nil)
	}
	if !strings.Contains(email, "@") {
		return "", apperrors.NewValidationError("a valid email is required", nil)
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return "", apperrors.NewValidationError("unknown role", map[string]any{"role": rawRole})
	}
	return role, nil
}

// officePolicy loads p's office policy; an office without settings cannot
// take on staff.
func (s *StaffService) officePolicy(ctx context.Context, p *domain.Principal) (policy.Policy, error) {
	pol, err := s.policies.ForOffice(ctx, p.OfficeID)
	if errors.Is(err, policy.ErrOfficeNotProvisioned) {
		return policy.Policy{}, apperrors.NewConflict("office settings are not provisioned", map[string]any{"office_id": p.OfficeID})
	}
	return pol, err
}

// grantable parses raw tokens and rejects any p does not hold.
func (s *StaffService) grantable(p *domain.Principal, raw []string) (domain.PermissionSet, error) {
	set, err := parsePermissions(raw)
	if err != nil {
		return 0, err
	}
	return set, checkHeld(p, set)
}

// grantableForRole is grantable for a new member: the member's effective set,
// role defaults included, must be held by p.
func (s *StaffService) grantableForRole(p *domain.Principal, pol policy.Policy, role domain.Role, raw []string) (domain.PermissionSet, error) {
	set, err := parsePermissions(raw)
	if err != nil {
		return 0, err
	}
	return set, checkHeld(p, pol.DefaultPermissions(role).Union(set))
}

func checkHeld(p *domain.Principal, set domain.PermissionSet) error {
	if missing := set.Minus(p.Permissions); !missing.IsEmpty() {
		return apperrors.NewForbidden("cannot grant permissions you do not hold: " + strings.Join(missing.Names(), ", "))
	}
	return nil
}

func (s *StaffService) publish(ctx context.Context, evt events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, evt); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}

func parsePermissions(raw []string) (domain.PermissionSet, error) {
	var set domain.PermissionSet
	for _, token := range raw {
		perm, err := domain.ParsePermission(token)
		if err != nil {
			return 0, apperrors.NewValidationError("unknown permission", map[string]any{"permission": token})
		}
		set = set.With(perm)
	}
	return set, nil
}

func employmentTypeOf(role domain.Role) domain.EmploymentType {
	switch {
	case role.IsCampaign():
		return domain.EmploymentCampaign
	case role == domain.RoleVolunteer:
		return domain.EmploymentVolunteer
	default:
		return domain.EmploymentTemporary
	}
}
