package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/repository"
	"github.com/spec-kit/constituent-access/internal/store"
)

// Identity is what the identity provider vouches for: an id and an
// optional role claim.
type Identity struct {
	ID       string
	RoleHint string
}

// ResolverDeps wires a Resolver. Profiles and Policies are required.
type ResolverDeps struct {
	Profiles repository.ProfileRepository
	Policies policy.Source
	Now      func() time.Time
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Resolver turns an authenticated identity into a Principal. It only reads;
// the returned Principal is never mutated afterwards.
type Resolver struct {
	profiles repository.ProfileRepository
	policies policy.Source
	now      func() time.Time
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewResolver constructs a Resolver.
func NewResolver(deps ResolverDeps) *Resolver {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Resolver{
		profiles: deps.Profiles,
		policies: deps.Policies,
		now:      deps.Now,
		logger:   observability.OrNop(deps.Logger).With(zap.String("component", "resolver")),
		metrics:  deps.Metrics,
	}
}

// Resolve builds the Principal for id. Failures that mean "no session" are
// *ResolutionError; store failures are returned as they are.
func (r *Resolver) Resolve(ctx context.Context, id Identity) (*domain.Principal, error) {
	p, err := r.resolve(ctx, id)
	if err != nil {
		var re *ResolutionError
		if errors.As(err, &re) {
			r.metrics.RecordResolutionFailure(re.Kind.String())
			r.logger.Info("principal resolution failed",
				zap.String("principal_id", id.ID),
				zap.String("kind", re.Kind.String()),
				zap.Error(re.Err),
			)
		}
		return nil, err
	}
	return p, nil
}

func (r *Resolver) resolve(ctx context.Context, id Identity) (*domain.Principal, error) {
	if id.ID == "" {
		return nil, resolutionError(ProfileNotFound, "", errors.New("empty identity"))
	}
	profile, err := r.profiles.GetByID(ctx, id.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, resolutionError(ProfileNotFound, id.ID, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", id.ID, err)
	}

	role, err := domain.ParseRole(profile.Role)
	if err != nil {
		return nil, resolutionError(InvalidAffiliation, id.ID, err)
	}
	if id.RoleHint != "" && id.RoleHint != string(role) {
		return nil, resolutionError(InvalidAffiliation, id.ID, fmt.Errorf("role claim %q does not match profile role %q", id.RoleHint, role))
	}

	now := r.now()
	p := &domain.Principal{
		ID:               id.ID,
		Role:             role,
		OfficeID:         profile.OfficeID,
		RepresentativeID: profile.RepresentativeID,
		District:         profile.District,
		ResolvedAt:       now,
	}
	if role == domain.RoleRepresentative {
		p.RepresentativeID = id.ID
	}

	pol := policy.New(nil)
	if role.RequiresOffice() {
		if p.OfficeID == "" {
			return nil, resolutionError(InvalidAffiliation, id.ID, errors.New("office role without office"))
		}
		loaded, err := r.policies.ForOffice(ctx, p.OfficeID)
		switch {
		case errors.Is(err, policy.ErrOfficeNotProvisioned) && role == domain.RoleRepresentative:
			// The representative resolves on platform defaults so it can
			// provision its own office.
		case errors.Is(err, policy.ErrOfficeNotProvisioned):
			return nil, resolutionError(InvalidAffiliation, id.ID, err)
		case err != nil:
			return nil, fmt.Errorf("load policy for office %s: %w", p.OfficeID, err)
		default:
			pol = loaded
			officeRep := pol.Settings().RepresentativeID
			if p.RepresentativeID == "" {
				p.RepresentativeID = officeRep
			}
			if officeRep != "" && p.ScopeID() != officeRep {
				return nil, resolutionError(InvalidAffiliation, id.ID, errors.New("representative does not match office"))
			}
		}
	}

	if profile.Employment != nil {
		p.Window = domain.EmploymentWindow{Start: profile.Employment.Start, End: profile.Employment.End}
		p.SupervisorID = profile.Employment.Supervisor
	}

	if role.RequiresWindow() {
		if profile.Employment == nil {
			return nil, resolutionError(InvalidAffiliation, id.ID, errors.New("temporary role without employment window"))
		}
		p.Window = pol.ClampWindow(p.Window)
		if !p.Window.Started(now) {
			return nil, resolutionError(AccessNotStarted, id.ID, nil)
		}
		if p.Window.Ended(now) {
			return nil, resolutionError(AccessExpired, id.ID, nil)
		}
		if role.IsCampaign() && pol.CampaignClosed(now) {
			return nil, resolutionError(AccessExpired, id.ID, errors.New("campaign window closed"))
		}
		if pol.RequiresSupervisor() && p.SupervisorID == "" {
			return nil, resolutionError(MissingSupervisor, id.ID, nil)
		}
		p.Restrictions = pol.Restrictions()
	}

	p.Permissions = r.permissions(id.ID, pol.DefaultPermissions(role), profile)

	if err := p.CheckAffiliation(); err != nil {
		return nil, resolutionError(InvalidAffiliation, id.ID, err)
	}
	return p, nil
}

// permissions applies explicit grants and then explicit revocations to the
// role defaults. A token both granted and revoked ends up revoked.
func (r *Resolver) permissions(id string, defaults domain.PermissionSet, profile *domain.UserProfile) domain.PermissionSet {
	grants := r.parseTokens(id, "grant", profile.Permissions)
	revoked := r.parseTokens(id, "revoke", profile.RevokedPermissions)
	return defaults.Union(grants).Minus(revoked)
}

func (r *Resolver) parseTokens(id, kind string, raw []string) domain.PermissionSet {
	var set domain.PermissionSet
	for _, token := range raw {
		perm, err := domain.ParsePermission(token)
		if err != nil {
			r.logger.Warn("ignoring unknown permission token",
				zap.String("principal_id", id),
				zap.String("kind", kind),
				zap.String("token", token),
			)
			continue
		}
		set = set.With(perm)
	}
	return set
}
