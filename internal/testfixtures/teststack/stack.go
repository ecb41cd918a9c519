// Package teststack assembles gateways over the in-memory store for tests
// that need more than one entity type.
package teststack

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/persistence/memory"
	"github.com/spec-kit/constituent-access/internal/store"
	"github.com/spec-kit/constituent-access/internal/testfixtures"
)

// Stack holds one gateway per collection, all sharing a store, clock and dispatcher.
type Stack struct {
	Mem        *memory.Store
	Clock      *testfixtures.Clock
	Dispatcher events.Dispatcher
	Deps       store.Deps

	Users          *store.Gateway[*domain.UserProfile]
	Settings       *store.Gateway[*domain.OfficeSettings]
	Communications *store.Gateway[*domain.Communication]
	Groups         *store.Gateway[*domain.ConstituentGroup]
	Analytics      *store.Gateway[*domain.Analytics]

	mu     sync.Mutex
	events []events.Event
}

// New builds a stack whose clock starts at testfixtures.Day(2).
func New(t *testing.T) *Stack {
	t.Helper()
	s := &Stack{
		Mem:        memory.New(),
		Clock:      testfixtures.NewClock(testfixtures.Day(2)),
		Dispatcher: events.NewInMemoryDispatcher(),
	}
	record := func(_ context.Context, e events.Event) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.events = append(s.events, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventEntityCreated, events.EventEntityUpdated, events.EventEntityDeleted,
		events.EventAccessDenied, events.EventSettingsChanged, events.EventStaffAdmitted,
	} {
		s.Dispatcher.Subscribe(et, record)
	}

	s.Deps = store.Deps{
		Store:      s.Mem,
		Evaluator:  access.NewEvaluator(s.Clock.NowFunc()),
		Dispatcher: s.Dispatcher,
		Logger:     zaptest.NewLogger(t),
		Now:        s.Clock.NowFunc(),
	}
	s.Users = store.NewGateway(s.Deps, func() *domain.UserProfile { return &domain.UserProfile{} })
	s.Settings = store.NewGateway(s.Deps, func() *domain.OfficeSettings { return &domain.OfficeSettings{} })
	s.Communications = store.NewGateway(s.Deps, func() *domain.Communication { return &domain.Communication{} })
	s.Groups = store.NewGateway(s.Deps, func() *domain.ConstituentGroup { return &domain.ConstituentGroup{} })
	s.Analytics = store.NewGateway(s.Deps, func() *domain.Analytics { return &domain.Analytics{} })
	return s
}

// Put writes e directly to the store, bypassing access evaluation. Version
// defaults to 1 and timestamps to the clock.
func (s *Stack) Put(t *testing.T, e domain.Entity) {
	t.Helper()
	b := e.Base()
	if b.Version == 0 {
		b.Version = 1
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.Clock.Now()
		b.UpdatedAt = b.CreatedAt
	}
	body, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal %s: %v", e.Kind(), err)
	}
	rec := store.Record{
		Collection: e.Kind(),
		ID:         b.ID,
		Attrs:      e.Attrs(),
		Body:       body,
		Version:    b.Version,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
	err = s.Mem.RunTransaction(context.Background(), func(ctx context.Context, tx store.Tx) error {
		return tx.Insert(ctx, rec)
	})
	if err != nil {
		t.Fatalf("put %s %s: %v", e.Kind(), b.ID, err)
	}
}

// Provision stores default settings for testfixtures.OfficeID and returns them.
func (s *Stack) Provision(t *testing.T) *domain.OfficeSettings {
	t.Helper()
	settings := domain.NewOfficeSettings(testfixtures.OfficeID, testfixtures.RepresentativeID, "Office O", "5")
	s.Put(t, settings)
	return settings
}

// Events returns the events of type et published so far.
func (s *Stack) Events(et events.EventType) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}
