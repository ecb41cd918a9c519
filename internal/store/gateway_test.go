package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/persistence/memory"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
	"github.com/spec-kit/constituent-access/internal/testfixtures"
)

type harness struct {
	mem    *memory.Store
	clock  *testfixtures.Clock
	comms  *store.Gateway[*domain.Communication]
	events []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{mem: memory.New(), clock: testfixtures.NewClock(testfixtures.Day(2))}
	dispatcher := events.NewInMemoryDispatcher()
	record := func(_ context.Context, e events.Event) error {
		h.events = append(h.events, e)
		return nil
	}
	for _, et := range []events.EventType{events.EventEntityCreated, events.EventEntityUpdated, events.EventEntityDeleted, events.EventAccessDenied} {
		dispatcher.Subscribe(et, record)
	}
	h.comms = store.NewGateway(store.Deps{
		Store:      h.mem,
		Evaluator:  access.NewEvaluator(h.clock.NowFunc()),
		Dispatcher: dispatcher,
		Logger:     zaptest.NewLogger(t),
		Now:        h.clock.NowFunc(),
	}, func() *domain.Communication { return &domain.Communication{} })
	return h
}

func (h *harness) countEvents(t events.EventType) int {
	n := 0
	for _, e := range h.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func draft(subject string) *domain.Communication {
	return &domain.Communication{
		Type:      domain.CommunicationBroadcast,
		Direction: domain.DirectionOutbound,
		Channel:   domain.ChannelEmail,
		Subject:   subject,
		Status:    domain.CommunicationDraft,
	}
}

func otherRepresentative() *domain.Principal {
	p := testfixtures.Representative()
	p.ID = testfixtures.OtherRepID
	p.RepresentativeID = testfixtures.OtherRepID
	p.OfficeID = testfixtures.OtherOfficeID
	return p
}

func TestGateway_CreateStampsServerSide(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rep := testfixtures.Representative()

	c := draft("hello")
	forged := time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC)
	c.CreatedAt, c.UpdatedAt, c.Version = forged, forged, 42

	created, err := h.comms.Create(ctx, rep, c)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !created.CreatedAt.Equal(h.clock.Now()) || !created.UpdatedAt.Equal(h.clock.Now()) {
		t.Fatalf("caller timestamps must be ignored, got %s/%s", created.CreatedAt, created.UpdatedAt)
	}
	if created.Version != 1 || created.ID == "" {
		t.Fatalf("expected version 1 with an id, got %+v", created.EntityBase)
	}
	if created.OfficeID != testfixtures.OfficeID || created.RepresentativeID != rep.ID {
		t.Fatalf("scope must be stamped from the principal, got %s/%s", created.OfficeID, created.RepresentativeID)
	}

	stored, err := h.comms.Get(ctx, rep, created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.Subject != "hello" || !stored.CreatedAt.Equal(h.clock.Now()) {
		t.Fatalf("unexpected stored entity %+v", stored)
	}
	if h.countEvents(events.EventEntityCreated) != 1 {
		t.Fatalf("expected one created event")
	}
}

func TestGateway_DeniedCreateNeverReachesStorage(t *testing.T) {
	h := newHarness(t)
	volunteer := testfixtures.Temporary("v-1", domain.RoleVolunteer, 30)

	_, err := h.comms.Create(context.Background(), volunteer, draft("nope"))
	if !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if access.ReasonOf(err) != access.ReasonInsufficientPermission {
		t.Fatalf("expected insufficient permission, got %s", access.ReasonOf(err))
	}
	if h.mem.Len(domain.EntityCommunications) != 0 {
		t.Fatalf("denied create must not write")
	}
	if h.countEvents(events.EventAccessDenied) != 1 {
		t.Fatalf("expected one access_denied event, got %d", h.countEvents(events.EventAccessDenied))
	}
}

func TestGateway_GetOutOfScopeIsDeniedNotMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	foreign, err := h.comms.Create(ctx, otherRepresentative(), draft("theirs"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	chief := testfixtures.Staff("chief-c", domain.RoleChiefOfStaff)
	chief.Permissions = domain.FullPermissionSet()
	if _, err := h.comms.Get(ctx, chief, foreign.ID); !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if _, err := h.comms.Get(ctx, chief, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGateway_QueryIsSubsetOfUnscoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rep := testfixtures.Representative()

	mk := func(p *domain.Principal, vis domain.Visibility, district string) {
		c := draft("x")
		c.Visibility = vis
		c.Metadata.Location = &domain.Location{District: district}
		if _, err := h.comms.Create(ctx, p, c); err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
	}
	mk(rep, domain.VisibilityPublic, "5")
	mk(rep, domain.VisibilityPublic, "5")
	mk(rep, domain.VisibilityPrivate, "5")
	mk(rep, domain.VisibilityPublic, "7")
	mk(otherRepresentative(), domain.VisibilityPrivate, "5")

	all, err := h.mem.Query(ctx, domain.EntityCommunications, query.All(), query.Options{})
	if err != nil {
		t.Fatalf("unscoped query: %v", err)
	}
	unscoped := map[string]bool{}
	for _, r := range all {
		unscoped[r.ID] = true
	}

	k := testfixtures.Constituent("k-1", "5")
	got, err := h.comms.Query(ctx, k, query.All(), query.Options{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 public district 5 records, got %d", len(got))
	}
	for _, c := range got {
		if !unscoped[c.ID] || c.Visibility != domain.VisibilityPublic || c.District() != "5" {
			t.Fatalf("record %s escaped the constituent scope", c.ID)
		}
	}

	widened, err := h.comms.Query(ctx, k, query.Eq(domain.FieldDistrict, "7"), query.Options{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(widened) != 0 {
		t.Fatalf("a district 7 filter must yield nothing for a district 5 constituent, got %d", len(widened))
	}

	repView, err := h.comms.Query(ctx, rep, query.All(), query.Options{})
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if len(repView) != 4 {
		t.Fatalf("representative should see 4 own records, got %d", len(repView))
	}
	n, err := h.comms.Count(ctx, rep, query.Eq(domain.FieldVisibility, string(domain.VisibilityPublic)))
	if err != nil || n != 3 {
		t.Fatalf("expected 3 public records in office, got %d (%v)", n, err)
	}
}

func TestGateway_UpdateRestampsAndPinsScope(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rep := testfixtures.Representative()

	created, err := h.comms.Create(ctx, rep, draft("v1"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	createdAt := created.CreatedAt
	h.clock.Advance(time.Hour)

	updated, err := h.comms.Update(ctx, rep, created.ID, func(c *domain.Communication) error {
		c.Subject = "v2"
		c.OfficeID = testfixtures.OtherOfficeID
		c.CreatedAt = time.Time{}
		return nil
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Subject != "v2" || updated.Version != 2 {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if !updated.CreatedAt.Equal(createdAt) || !updated.UpdatedAt.Equal(h.clock.Now()) {
		t.Fatalf("timestamps not stamped server-side: %s/%s", updated.CreatedAt, updated.UpdatedAt)
	}
	if updated.OfficeID != testfixtures.OfficeID {
		t.Fatalf("office id must be immutable, got %s", updated.OfficeID)
	}

	validation := errors.New("subject required")
	_, err = h.comms.Update(ctx, rep, created.ID, func(*domain.Communication) error { return validation })
	if !errors.Is(err, validation) {
		t.Fatalf("mutation error must pass through, got %v", err)
	}
}

func TestGateway_UpdateReevaluatesModifiedEntity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	temp := testfixtures.Temporary("t-1", domain.RoleTempStaff, 30)
	temp.Restrictions.Channels = []domain.Channel{domain.ChannelSMS}

	created, err := h.comms.Create(ctx, temp, draft("email only"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	_, err = h.comms.Update(ctx, temp, created.ID, func(c *domain.Communication) error {
		c.Channel = domain.ChannelSMS
		return nil
	})
	if access.ReasonOf(err) != access.ReasonInsufficientPermission {
		t.Fatalf("switching to a restricted channel must be denied, got %v", err)
	}
	stored, err := h.comms.Get(ctx, temp, created.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if stored.Channel != domain.ChannelEmail || stored.Version != 1 {
		t.Fatalf("denied update must not be applied, got %s v%d", stored.Channel, stored.Version)
	}
}

func TestGateway_ReplaceStaleVersionConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rep := testfixtures.Representative()

	created, err := h.comms.Create(ctx, rep, draft("v1"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	first, _ := h.comms.Get(ctx, rep, created.ID)
	second, _ := h.comms.Get(ctx, rep, created.ID)

	first.Subject = "first"
	if _, err := h.comms.Replace(ctx, rep, first); err != nil {
		t.Fatalf("first Replace returned error: %v", err)
	}
	second.Subject = "second"
	_, err = h.comms.Replace(ctx, rep, second)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("conflict must be distinct from denial")
	}
}

func TestGateway_BatchIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	staff := testfixtures.Staff("s-1", domain.RoleStaffMember)

	existing, err := h.comms.Create(ctx, staff, draft("keep"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	err = h.comms.BatchWrite(ctx, staff, []store.BatchOp[*domain.Communication]{
		{Kind: store.BatchCreate, Entity: draft("one")},
		{Kind: store.BatchCreate, Entity: draft("two")},
		{Kind: store.BatchDelete, ID: existing.ID},
	})
	if !errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("staff member cannot delete; expected denial, got %v", err)
	}
	if n := h.mem.Len(domain.EntityCommunications); n != 1 {
		t.Fatalf("no batch op may be applied, store has %d records", n)
	}

	foreign, err := h.comms.Create(ctx, otherRepresentative(), draft("theirs"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	foreign.Subject = "hijack"
	err = h.comms.BatchWrite(ctx, staff, []store.BatchOp[*domain.Communication]{
		{Kind: store.BatchCreate, Entity: draft("three")},
		{Kind: store.BatchUpdate, Entity: foreign},
	})
	if access.ReasonOf(err) != access.ReasonNoMatchingRule {
		t.Fatalf("expected out-of-scope denial inside the batch, got %v", err)
	}
	if n := h.mem.Len(domain.EntityCommunications); n != 2 {
		t.Fatalf("first op must be rolled back, store has %d records", n)
	}

	err = h.comms.BatchWrite(ctx, staff, []store.BatchOp[*domain.Communication]{
		{Kind: store.BatchCreate, Entity: draft("four")},
		{Kind: store.BatchCreate, Entity: draft("five")},
	})
	if err != nil {
		t.Fatalf("BatchWrite returned error: %v", err)
	}
	if n := h.mem.Len(domain.EntityCommunications); n != 4 {
		t.Fatalf("expected 4 records, got %d", n)
	}
}

func TestGateway_RunTransactionDoesNotRetryConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rep := testfixtures.Representative()

	created, err := h.comms.Create(ctx, rep, draft("v1"))
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	calls := 0
	err = h.comms.RunTransaction(ctx, rep, func(tx *store.Txn[*domain.Communication]) error {
		calls++
		if _, err := tx.Get(created.ID); err != nil {
			return err
		}
		if _, err := h.comms.Update(ctx, rep, created.ID, func(c *domain.Communication) error {
			c.Subject = "concurrent"
			return nil
		}); err != nil {
			return err
		}
		_, err := tx.Create(draft("side effect"))
		return err
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("transaction function must run once, ran %d times", calls)
	}
	if n := h.mem.Len(domain.EntityCommunications); n != 1 {
		t.Fatalf("conflicting transaction must not commit, store has %d", n)
	}
}

func TestGateway_TimeoutIsUnavailableNotDenied(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := h.comms.Query(ctx, testfixtures.Representative(), query.All(), query.Options{})
	if !errors.Is(err, store.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if errors.Is(err, access.ErrAccessDenied) {
		t.Fatalf("timeouts must never surface as denials")
	}
}
