package access

import (
	"errors"
	"testing"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/testfixtures"
)

func newTestEvaluator(clock *testfixtures.Clock) *Evaluator {
	return NewEvaluator(clock.NowFunc())
}

func officeComm() domain.Attrs {
	return testfixtures.Communication("c-1", testfixtures.Epoch).Attrs()
}

func foreignComm() domain.Attrs {
	c := testfixtures.Communication("c-2", testfixtures.Epoch)
	c.OfficeID = testfixtures.OtherOfficeID
	c.RepresentativeID = testfixtures.OtherRepID
	return c.Attrs()
}

func TestEvaluate_ChiefOfStaffCreatesCommunication(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(3)))
	chief := testfixtures.Staff("chief-c", domain.RoleChiefOfStaff)

	if !chief.Has(domain.PermCommunicationsSend) {
		t.Fatalf("chief of staff defaults must include communications.send")
	}

	d := ev.Evaluate(chief, domain.EntityCommunications, OpCreate, officeComm())
	if d.Effect != Allow {
		t.Fatalf("expected allow, got %s (%s)", d.Effect, d.Reason)
	}
}

func TestEvaluate_OutOfScopeDeniedRegardlessOfPermissions(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(3)))

	principals := []*domain.Principal{
		testfixtures.Representative(),
		testfixtures.Staff("chief-c", domain.RoleChiefOfStaff),
		testfixtures.Staff("s-1", domain.RoleStaffMember),
		testfixtures.Temporary("t-1", domain.RoleCampaignManager, 30),
	}
	kinds := []domain.EntityType{
		domain.EntityCommunications, domain.EntityConstituentGroups, domain.EntityAnalytics,
		domain.EntitySettings, domain.EntityUsers,
	}
	foreign := domain.Attrs{
		domain.FieldOfficeID:         testfixtures.OtherOfficeID,
		domain.FieldRepresentativeID: testfixtures.OtherRepID,
	}

	for _, p := range principals {
		p.Permissions = domain.FullPermissionSet()
		for _, kind := range kinds {
			d := ev.Evaluate(p, kind, OpGet, foreign)
			if d.Allowed() {
				t.Fatalf("%s reading foreign %s must be denied", p.Role, kind)
			}
			if d.Reason != ReasonNoMatchingRule {
				t.Fatalf("%s reading foreign %s: expected no_matching_rule, got %s", p.Role, kind, d.Reason)
			}
		}
	}
}

func TestEvaluate_TokenAndScopeAreIndependent(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(3)))

	withToken := testfixtures.Staff("s-1", domain.RoleStaffMember)
	withToken.Permissions = withToken.Permissions.With(domain.PermCommunicationsApprove)
	withoutToken := testfixtures.Staff("s-2", domain.RoleStaffMember)

	cases := []struct {
		name   string
		p      *domain.Principal
		attrs  domain.Attrs
		effect Effect
		reason Reason
	}{
		{"in scope with token", withToken, officeComm(), Allow, ReasonNone},
		{"in scope without token", withoutToken, officeComm(), Deny, ReasonInsufficientPermission},
		{"out of scope with token", withToken, foreignComm(), Deny, ReasonNoMatchingRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := ev.Evaluate(tc.p, domain.EntityCommunications, OpApprove, tc.attrs)
			if d.Effect != tc.effect || d.Reason != tc.reason {
				t.Fatalf("expected %s/%s, got %s/%s", tc.effect, tc.reason, d.Effect, d.Reason)
			}
			if d.Permission != domain.PermCommunicationsApprove {
				t.Fatalf("expected decision to name communications.approve, got %s", d.Permission)
			}
		})
	}
}

func TestEvaluate_ExpiredTemporaryPrincipal(t *testing.T) {
	clock := testfixtures.NewClock(testfixtures.Day(30))
	ev := newTestEvaluator(clock)
	volunteer := testfixtures.Temporary("v-1", domain.RoleVolunteer, 30)

	if d := ev.Evaluate(volunteer, domain.EntityCommunications, OpQuery, nil); !d.Allowed() {
		t.Fatalf("volunteer must be active on day 30, got %s", d.Reason)
	}

	clock.Set(testfixtures.Day(31))
	d := ev.Evaluate(volunteer, domain.EntityCommunications, OpQuery, nil)
	if d.Allowed() || d.Reason != ReasonExpired {
		t.Fatalf("expected expired on day 31, got %s/%s", d.Effect, d.Reason)
	}
	if !d.Scope.IsNone() {
		t.Fatalf("denied decision must carry an empty scope")
	}
}

func TestEvaluate_AffiliationMismatchIsExpired(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))

	noOffice := testfixtures.Staff("s-1", domain.RoleStaffMember)
	noOffice.OfficeID = ""
	companyInOffice := testfixtures.Company("a-1", domain.RoleCompanyAdmin)
	companyInOffice.OfficeID = testfixtures.OfficeID
	noWindow := testfixtures.Temporary("t-1", domain.RoleTempStaff, 10)
	noWindow.Window.End = nil

	for _, p := range []*domain.Principal{nil, noOffice, companyInOffice, noWindow} {
		d := ev.Evaluate(p, domain.EntityCommunications, OpQuery, nil)
		if d.Reason != ReasonExpired {
			t.Fatalf("expected expired for %+v, got %s", p, d.Reason)
		}
	}
}

func TestEvaluate_TemporaryRestrictions(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(2)))
	temp := testfixtures.Temporary("t-1", domain.RoleTempStaff, 30)
	temp.Restrictions = domain.TemporaryRestrictions{
		Permissions: domain.NewPermissionSet(domain.PermCommunicationsApprove),
		Channels:    []domain.Channel{domain.ChannelSMS},
	}
	temp.Permissions = temp.Permissions.With(domain.PermCommunicationsApprove)

	email := testfixtures.Communication("c-1", testfixtures.Epoch)
	sms := testfixtures.Communication("c-2", testfixtures.Epoch)
	sms.Channel = domain.ChannelSMS

	if d := ev.Evaluate(temp, domain.EntityCommunications, OpSend, email.Attrs()); d.Effect != Allow {
		t.Fatalf("temp staff may send email, got %s", d.Reason)
	}
	if d := ev.Evaluate(temp, domain.EntityCommunications, OpSend, sms.Attrs()); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("temp staff must not send sms, got %s/%s", d.Effect, d.Reason)
	}
	if d := ev.Evaluate(temp, domain.EntityCommunications, OpGet, sms.Attrs()); d.Effect != Allow {
		t.Fatalf("channel restriction must not block reads, got %s", d.Reason)
	}
	if d := ev.Evaluate(temp, domain.EntityCommunications, OpApprove, email.Attrs()); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("restricted permission must deny approve, got %s/%s", d.Effect, d.Reason)
	}

	permanent := testfixtures.Staff("s-1", domain.RoleStaffMember)
	permanent.Restrictions = temp.Restrictions
	if d := ev.Evaluate(permanent, domain.EntityCommunications, OpSend, sms.Attrs()); d.Effect != Allow {
		t.Fatalf("restrictions apply to temporary roles only, got %s", d.Reason)
	}
}

func TestEvaluate_ConstituentQueryScope(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))
	k := testfixtures.Constituent("k-1", "5")

	d := ev.Evaluate(k, domain.EntityCommunications, OpQuery, nil)
	if d.Effect != AllowWithPredicate {
		t.Fatalf("expected predicate, got %s/%s", d.Effect, d.Reason)
	}

	own := func(vis, district string) domain.Attrs {
		return domain.Attrs{
			domain.FieldVisibility:       vis,
			domain.FieldDistrict:         district,
			domain.FieldRepresentativeID: testfixtures.RepresentativeID,
		}
	}
	public5 := own("public", "5")
	public7 := own("public", "7")
	private5 := own("private", "5")
	if !d.Scope.Matches(public5) || d.Scope.Matches(public7) || d.Scope.Matches(private5) {
		t.Fatalf("unexpected constituent scope %s", d.Scope)
	}

	broadened := d.Scope.And(query.Eq(domain.FieldDistrict, "7"))
	if !broadened.IsNone() {
		t.Fatalf("a district 7 filter must not broaden a district 5 scope, got %s", broadened)
	}

	if d := ev.Evaluate(k, domain.EntityCommunications, OpGet, private5); d.Reason != ReasonNoMatchingRule {
		t.Fatalf("private record must be out of scope, got %s", d.Reason)
	}
	if d := ev.Evaluate(k, domain.EntitySettings, OpQuery, nil); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("constituent must not read settings, got %s", d.Reason)
	}

	foreign := domain.Attrs{
		domain.FieldVisibility:       "public",
		domain.FieldDistrict:         "5",
		domain.FieldRepresentativeID: testfixtures.OtherRepID,
	}
	if d.Scope.Matches(foreign) {
		t.Fatalf("public record of another representative in the same district must be out of scope")
	}
	if d := ev.Evaluate(k, domain.EntityCommunications, OpGet, foreign); d.Reason != ReasonNoMatchingRule {
		t.Fatalf("expected another office's public record to be denied, got %s", d.Reason)
	}

	nowhere := testfixtures.Constituent("k-2", "")
	if d := ev.Evaluate(nowhere, domain.EntityCommunications, OpQuery, nil); !d.Allowed() || !d.Scope.IsNone() {
		t.Fatalf("constituent without a district reaches nothing, got %s %s", d.Effect, d.Scope)
	}
}

func TestEvaluate_ConstituentWrites(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))
	k := testfixtures.Constituent("k-1", "5")

	inbound := testfixtures.Communication("c-1", testfixtures.Epoch)
	inbound.Direction = domain.DirectionInbound
	if d := ev.Evaluate(k, domain.EntityCommunications, OpCreate, inbound.Attrs()); d.Effect != Allow {
		t.Fatalf("inbound message to own representative must be allowed, got %s", d.Reason)
	}

	elsewhere := testfixtures.Communication("c-2", testfixtures.Epoch)
	elsewhere.Direction = domain.DirectionInbound
	elsewhere.RepresentativeID = testfixtures.OtherRepID
	if d := ev.Evaluate(k, domain.EntityCommunications, OpCreate, elsewhere.Attrs()); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("message to another representative must be denied, got %s", d.Reason)
	}

	outbound := testfixtures.Communication("c-3", testfixtures.Epoch)
	if d := ev.Evaluate(k, domain.EntityCommunications, OpCreate, outbound.Attrs()); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("outbound create must be denied, got %s", d.Reason)
	}

	for _, op := range []Operation{OpUpdate, OpDelete, OpSend} {
		if d := ev.Evaluate(k, domain.EntityCommunications, op, inbound.Attrs()); d.Reason != ReasonInsufficientPermission {
			t.Fatalf("%s must be denied for constituents, got %s", op, d.Reason)
		}
	}
	if d := ev.Evaluate(k, domain.EntityConstituentGroups, OpCreate, nil); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("group create must be denied for constituents, got %s", d.Reason)
	}
}

func TestEvaluate_CompanyRoles(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))
	analyst := testfixtures.Company("an-1", domain.RoleCompanyAnalyst)
	manager := testfixtures.Company("m-1", domain.RoleCompanyManager)
	admin := testfixtures.Company("a-1", domain.RoleCompanyAdmin)
	support := testfixtures.Company("s-1", domain.RoleCompanySupport)

	d := ev.Evaluate(analyst, domain.EntityAnalytics, OpQuery, nil)
	if d.Effect != AllowWithPredicate || !d.Scope.IsAll() {
		t.Fatalf("analyst must read analytics platform-wide, got %s %s", d.Effect, d.Scope)
	}
	if d := ev.Evaluate(analyst, domain.EntityAnalytics, OpGet, foreignComm()); d.Effect != Allow {
		t.Fatalf("company reads are not office scoped, got %s", d.Reason)
	}
	if d := ev.Evaluate(analyst, domain.EntityAnalytics, OpCreate, nil); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("analyst writes must be denied, got %s", d.Reason)
	}
	if d := ev.Evaluate(analyst, domain.EntitySettings, OpQuery, nil); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("analyst lacks settings.view, got %s", d.Reason)
	}

	support.Permissions = support.Permissions.With(domain.PermSettingsEdit)
	if d := ev.Evaluate(support, domain.EntitySettings, OpUpdate, nil); d.Reason != ReasonInsufficientPermission {
		t.Fatalf("support writes require an elevated company role, got %s", d.Reason)
	}
	if d := ev.Evaluate(manager, domain.EntitySettings, OpUpdate, officeComm()); d.Effect != Allow {
		t.Fatalf("manager may edit settings, got %s", d.Reason)
	}
	if d := ev.Evaluate(admin, domain.EntityCommunications, OpQuery, nil); d.Reason != ReasonNoMatchingRule {
		t.Fatalf("company roles have no communications rule, got %s", d.Reason)
	}
}

func TestEvaluate_RepresentativeScope(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))
	rep := testfixtures.Representative()

	d := ev.Evaluate(rep, domain.EntityConstituentGroups, OpQuery, nil)
	want := domain.Attrs{domain.FieldOfficeID: testfixtures.OfficeID, domain.FieldRepresentativeID: rep.ID}
	if !d.Scope.Matches(want) {
		t.Fatalf("representative scope must cover own office, got %s", d.Scope)
	}
	if d.Rule != "representative" {
		t.Fatalf("expected representative rule, got %s", d.Rule)
	}
}

func TestEvaluate_UnsupportedOperation(t *testing.T) {
	ev := newTestEvaluator(testfixtures.NewClock(testfixtures.Day(1)))
	d := ev.Evaluate(testfixtures.Representative(), domain.EntitySettings, OpDelete, nil)
	if d.Reason != ReasonNoMatchingRule {
		t.Fatalf("settings are never deleted, got %s", d.Reason)
	}
}

func TestDecisionErr(t *testing.T) {
	d := deny(ReasonInsufficientPermission, "staff")
	err := d.Err(domain.EntityCommunications, OpSend)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if ReasonOf(err) != ReasonInsufficientPermission {
		t.Fatalf("expected reason to survive wrapping")
	}
	if (Decision{Effect: Allow}).Err(domain.EntityCommunications, OpSend) != nil {
		t.Fatalf("allowed decision must not produce an error")
	}
}
