package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/policy"
	"github.com/spec-kit/constituent-access/internal/store"
	"github.com/spec-kit/constituent-access/internal/testfixtures"
)

type stubProfiles map[string]*domain.UserProfile

func (s stubProfiles) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	p, ok := s[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return p, nil
}

type failingProfiles struct{ err error }

func (f failingProfiles) GetByID(context.Context, string) (*domain.UserProfile, error) {
	return nil, f.err
}

type resolverHarness struct {
	clock    *testfixtures.Clock
	profiles stubProfiles
	settings *domain.OfficeSettings
	metrics  *observability.Metrics
	resolver *Resolver
}

func newResolverHarness(t *testing.T) *resolverHarness {
	t.Helper()
	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	h := &resolverHarness{
		clock:    testfixtures.NewClock(testfixtures.Day(1)),
		profiles: stubProfiles{},
		settings: domain.NewOfficeSettings(testfixtures.OfficeID, testfixtures.RepresentativeID, "Office O", "5"),
		metrics:  metrics,
	}
	h.resolver = NewResolver(ResolverDeps{
		Profiles: h.profiles,
		Policies: policy.Static{testfixtures.OfficeID: h.settings},
		Now:      h.clock.NowFunc(),
		Logger:   zaptest.NewLogger(t),
		Metrics:  metrics,
	})
	return h
}

func officeProfile(id string, role domain.Role) *domain.UserProfile {
	return &domain.UserProfile{
		EntityBase: domain.EntityBase{ID: id, OfficeID: testfixtures.OfficeID, RepresentativeID: testfixtures.RepresentativeID},
		Role:       string(role),
	}
}

func temporaryProfile(id string, role domain.Role, startDay, endDay int) *domain.UserProfile {
	p := officeProfile(id, role)
	end := testfixtures.EndOfDay(endDay)
	p.Employment = &domain.Employment{Start: testfixtures.Day(startDay), End: &end, Supervisor: testfixtures.RepresentativeID}
	p.EmploymentType = domain.EmploymentVolunteer
	return p
}

func expectKind(t *testing.T, err error, kind ResolutionKind) {
	t.Helper()
	if !errors.Is(err, ErrResolution) || KindOf(err) != kind {
		t.Fatalf("expected %s, got %v", kind, err)
	}
}

func TestResolve_VolunteerWindowExpires(t *testing.T) {
	h := newResolverHarness(t)
	h.profiles["v-1"] = temporaryProfile("v-1", domain.RoleVolunteer, 1, 30)
	ctx := context.Background()

	for _, at := range []time.Time{testfixtures.Day(1), testfixtures.Day(15), testfixtures.EndOfDay(30)} {
		h.clock.Set(at)
		p, err := h.resolver.Resolve(ctx, Identity{ID: "v-1"})
		if err != nil {
			t.Fatalf("resolve at %v: %v", at, err)
		}
		if p.Role != domain.RoleVolunteer || p.SupervisorID != testfixtures.RepresentativeID || !p.ResolvedAt.Equal(at) {
			t.Fatalf("unexpected principal %+v", p)
		}
	}

	h.clock.Set(testfixtures.Day(31))
	p, err := h.resolver.Resolve(ctx, Identity{ID: "v-1"})
	if p != nil {
		t.Fatalf("expired resolution must not yield a principal")
	}
	expectKind(t, err, AccessExpired)
	if got := testutil.ToFloat64(h.metrics.ResolutionFailures.WithLabelValues("access_expired")); got != 1 {
		t.Fatalf("expected one recorded failure, got %v", got)
	}
}

func TestResolve_NotStarted(t *testing.T) {
	h := newResolverHarness(t)
	h.profiles["t-1"] = temporaryProfile("t-1", domain.RoleTempStaff, 5, 30)

	_, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-1"})
	expectKind(t, err, AccessNotStarted)
}

func TestResolve_ProfileNotFound(t *testing.T) {
	h := newResolverHarness(t)

	_, err := h.resolver.Resolve(context.Background(), Identity{ID: "ghost"})
	expectKind(t, err, ProfileNotFound)
}

func TestResolve_StoreFailureIsNotResolutionError(t *testing.T) {
	unavailable := store.Unavailable("get", context.DeadlineExceeded)
	r := NewResolver(ResolverDeps{
		Profiles: failingProfiles{err: unavailable},
		Policies: policy.Static{},
		Logger:   zaptest.NewLogger(t),
	})

	_, err := r.Resolve(context.Background(), Identity{ID: "u-1"})
	if !errors.Is(err, store.ErrStoreUnavailable) || errors.Is(err, ErrResolution) {
		t.Fatalf("expected raw store error, got %v", err)
	}
}

func TestResolve_InvalidAffiliation(t *testing.T) {
	cases := map[string]func(h *resolverHarness) Identity{
		"unknown role": func(h *resolverHarness) Identity {
			h.profiles["u"] = officeProfile("u", "superuser")
			return Identity{ID: "u"}
		},
		"permanent role without office": func(h *resolverHarness) Identity {
			p := officeProfile("u", domain.RoleStaffMember)
			p.OfficeID = ""
			h.profiles["u"] = p
			return Identity{ID: "u"}
		},
		"company role with office": func(h *resolverHarness) Identity {
			h.profiles["u"] = officeProfile("u", domain.RoleCompanyAdmin)
			return Identity{ID: "u"}
		},
		"role claim mismatch": func(h *resolverHarness) Identity {
			h.profiles["u"] = officeProfile("u", domain.RoleStaffMember)
			return Identity{ID: "u", RoleHint: string(domain.RoleChiefOfStaff)}
		},
		"office not provisioned": func(h *resolverHarness) Identity {
			p := officeProfile("u", domain.RoleStaffMember)
			p.OfficeID = testfixtures.OtherOfficeID
			h.profiles["u"] = p
			return Identity{ID: "u"}
		},
		"representative of another office": func(h *resolverHarness) Identity {
			p := officeProfile("u", domain.RoleStaffMember)
			p.RepresentativeID = testfixtures.OtherRepID
			h.profiles["u"] = p
			return Identity{ID: "u"}
		},
		"temporary role without window": func(h *resolverHarness) Identity {
			h.profiles["u"] = officeProfile("u", domain.RoleIntern)
			return Identity{ID: "u"}
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			h := newResolverHarness(t)
			_, err := h.resolver.Resolve(context.Background(), setup(h))
			expectKind(t, err, InvalidAffiliation)
		})
	}
}

func TestResolve_RepresentativeScope(t *testing.T) {
	h := newResolverHarness(t)
	rep := officeProfile(testfixtures.RepresentativeID, domain.RoleRepresentative)
	rep.RepresentativeID = ""
	h.profiles[testfixtures.RepresentativeID] = rep

	p, err := h.resolver.Resolve(context.Background(), Identity{ID: testfixtures.RepresentativeID, RoleHint: "representative"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.ScopeID() != testfixtures.RepresentativeID || !p.Has(domain.PermSettingsEdit) {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestResolve_RepresentativeOfUnprovisionedOffice(t *testing.T) {
	h := newResolverHarness(t)
	rep := officeProfile(testfixtures.OtherRepID, domain.RoleRepresentative)
	rep.OfficeID, rep.RepresentativeID = testfixtures.OtherOfficeID, ""
	h.profiles[testfixtures.OtherRepID] = rep

	p, err := h.resolver.Resolve(context.Background(), Identity{ID: testfixtures.OtherRepID})
	if err != nil {
		t.Fatalf("representative must resolve before its office is provisioned, got %v", err)
	}
	if p.OfficeID != testfixtures.OtherOfficeID || p.ScopeID() != testfixtures.OtherRepID {
		t.Fatalf("unexpected principal %+v", p)
	}
	if !p.Has(domain.PermSettingsEdit) {
		t.Fatalf("expected platform representative defaults, got %v", p.Permissions.Names())
	}

	chief := officeProfile("c-1", domain.RoleChiefOfStaff)
	chief.OfficeID, chief.RepresentativeID = testfixtures.OtherOfficeID, testfixtures.OtherRepID
	h.profiles["c-1"] = chief
	_, err = h.resolver.Resolve(context.Background(), Identity{ID: "c-1"})
	expectKind(t, err, InvalidAffiliation)
}

func TestResolve_OverridesAndRevocations(t *testing.T) {
	h := newResolverHarness(t)
	profile := officeProfile("s-1", domain.RoleStaffMember)
	profile.Permissions = []string{"communications.approve", "not.a.token"}
	profile.RevokedPermissions = []string{"communications.send", "communications.approve"}
	h.profiles["s-1"] = profile
	h.settings.StaffManagement.PermanentStaff.Permissions[domain.RoleStaffMember] =
		domain.DefaultPermanentPermissions()[domain.RoleStaffMember].With(domain.PermConstituentsExport)

	p, err := h.resolver.Resolve(context.Background(), Identity{ID: "s-1"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if p.Has(domain.PermCommunicationsSend) {
		t.Fatalf("revocation must remove a default token")
	}
	if p.Has(domain.PermCommunicationsApprove) {
		t.Fatalf("revocation must win over an explicit grant")
	}
	if !p.Has(domain.PermConstituentsExport) || !p.Has(domain.PermCommunicationsCreate) {
		t.Fatalf("office defaults must apply, got %v", p.Permissions.Names())
	}

	profile.RevokedPermissions = nil
	p, err = h.resolver.Resolve(context.Background(), Identity{ID: "s-1"})
	if err != nil || !p.Has(domain.PermCommunicationsApprove) {
		t.Fatalf("explicit grant must add a token, got %v %v", p, err)
	}
}

func TestResolve_SupervisorRequirement(t *testing.T) {
	h := newResolverHarness(t)
	h.settings.WorkflowSettings.TempStaffRestrictions.RequireSupervisor = true
	orphan := temporaryProfile("t-1", domain.RoleTempStaff, 1, 30)
	orphan.Employment.Supervisor = ""
	h.profiles["t-1"] = orphan
	h.profiles["t-2"] = temporaryProfile("t-2", domain.RoleTempStaff, 1, 30)

	_, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-1"})
	expectKind(t, err, MissingSupervisor)

	p, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-2"})
	if err != nil || p.SupervisorID != testfixtures.RepresentativeID {
		t.Fatalf("expected supervised principal, got %v %v", p, err)
	}
}

func TestResolve_RestrictionsSnapshot(t *testing.T) {
	h := newResolverHarness(t)
	h.settings.CommunicationDefaults.TempStaffSettings.RestrictedChannels = []domain.Channel{domain.ChannelSMS}
	h.profiles["t-1"] = temporaryProfile("t-1", domain.RoleTempStaff, 1, 30)

	p, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-1"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	h.settings.CommunicationDefaults.TempStaffSettings.RestrictedChannels[0] = domain.ChannelEmail

	if !p.Restrictions.RestrictsChannel(domain.ChannelSMS) || p.Restrictions.RestrictsChannel(domain.ChannelEmail) {
		t.Fatalf("resolved restrictions must not follow later policy changes, got %v", p.Restrictions.Channels)
	}
	if !p.Restrictions.Permissions.Has(domain.PermCommunicationsApprove) {
		t.Fatalf("expected restricted permissions from policy")
	}
}

func TestResolve_MaxDurationClamp(t *testing.T) {
	h := newResolverHarness(t)
	h.profiles["t-1"] = temporaryProfile("t-1", domain.RoleTempStaff, 1, 200)

	h.clock.Set(testfixtures.Day(90))
	p, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-1"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if want := testfixtures.Day(91); !p.Window.End.Equal(want) {
		t.Fatalf("expected window clamped to %v, got %v", want, p.Window.End)
	}

	h.clock.Set(testfixtures.Day(100))
	_, err = h.resolver.Resolve(context.Background(), Identity{ID: "t-1"})
	expectKind(t, err, AccessExpired)
}

func TestResolve_CampaignWindowClosed(t *testing.T) {
	h := newResolverHarness(t)
	end := testfixtures.EndOfDay(10)
	h.settings.StaffManagement.CampaignMode.Enabled = true
	h.settings.StaffManagement.CampaignMode.EndDate = &end
	h.profiles["cm-1"] = temporaryProfile("cm-1", domain.RoleCampaignManager, 1, 30)
	h.profiles["t-1"] = temporaryProfile("t-1", domain.RoleTempStaff, 1, 30)

	h.clock.Set(testfixtures.Day(11))
	_, err := h.resolver.Resolve(context.Background(), Identity{ID: "cm-1"})
	expectKind(t, err, AccessExpired)

	if _, err := h.resolver.Resolve(context.Background(), Identity{ID: "t-1"}); err != nil {
		t.Fatalf("non-campaign temporary role must not follow the campaign window: %v", err)
	}
}

func TestResolve_ConstituentAndCompany(t *testing.T) {
	h := newResolverHarness(t)
	h.profiles["k-1"] = &domain.UserProfile{
		EntityBase: domain.EntityBase{ID: "k-1", RepresentativeID: testfixtures.RepresentativeID},
		Role:       string(domain.RoleConstituent),
		District:   "5",
	}
	h.profiles["a-1"] = &domain.UserProfile{
		EntityBase: domain.EntityBase{ID: "a-1"},
		Role:       string(domain.RoleCompanyAnalyst),
	}

	k, err := h.resolver.Resolve(context.Background(), Identity{ID: "k-1"})
	if err != nil {
		t.Fatalf("Resolve constituent: %v", err)
	}
	if k.District != "5" || k.RepresentativeID != testfixtures.RepresentativeID || k.Has(domain.PermCommunicationsSend) {
		t.Fatalf("unexpected constituent %+v", k)
	}

	a, err := h.resolver.Resolve(context.Background(), Identity{ID: "a-1"})
	if err != nil {
		t.Fatalf("Resolve company: %v", err)
	}
	if !a.Has(domain.PermAnalyticsView) || a.Has(domain.PermSettingsEdit) {
		t.Fatalf("unexpected company permissions %v", a.Permissions.Names())
	}
}
