package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/observability"
	"github.com/spec-kit/constituent-access/internal/query"
)

// Deps wires a gateway to its collaborators. Store and Evaluator are required.
type Deps struct {
	Store      DocumentStore
	Evaluator  *access.Evaluator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// Now stamps createdAt/updatedAt. Defaults to time.Now.
	Now func() time.Time
	// Timeout applies to calls whose context has no deadline. Zero disables it.
	Timeout time.Duration
	// NewID generates ids for entities created without one. Defaults to uuid.NewString.
	NewID func() string
}

// Gateway performs create/read/update/delete/query/batch/transaction
// operations on one entity type. Every call is evaluated before storage is
// touched; a denial surfaces as *access.DeniedError.
type Gateway[E domain.Entity] struct {
	kind      domain.EntityType
	deps      Deps
	newEntity func() E
	logger    *zap.Logger
}

// NewGateway builds a gateway for the entity type produced by newEntity.
func NewGateway[E domain.Entity](deps Deps, newEntity func() E) *Gateway[E] {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	kind := newEntity().Kind()
	return &Gateway[E]{
		kind:      kind,
		deps:      deps,
		newEntity: newEntity,
		logger:    observability.OrNop(deps.Logger).With(zap.String("entity", string(kind))),
	}
}

// Kind returns the collection this gateway serves.
func (g *Gateway[E]) Kind() domain.EntityType { return g.kind }

// Scope returns the predicate p's queries over this collection are confined to.
func (g *Gateway[E]) Scope(p *domain.Principal) query.Predicate {
	return g.deps.Evaluator.Scope(p, g.kind)
}

// Create stores a new entity. Id, scope fields and visibility are filled from
// the principal when empty; timestamps and version are always set here.
func (g *Gateway[E]) Create(ctx context.Context, p *domain.Principal, e E) (E, error) {
	return g.CreateAs(ctx, p, access.OpCreate, e)
}

// CreateAs is Create evaluated under a different write operation, such as admit.
func (g *Gateway[E]) CreateAs(ctx context.Context, p *domain.Principal, op access.Operation, e E) (E, error) {
	var zero E
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	rec, err := g.prepareCreate(ctx, p, op, e)
	if err != nil {
		return zero, err
	}
	err = g.deps.Store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, rec)
	})
	if err != nil {
		return zero, g.storeErr(op, err)
	}
	g.publish(ctx, g.changed(events.EventEntityCreated, p, op, e.Base()))
	return e, nil
}

// Get reads one entity. A type-level check runs before the read and an
// instance check after it, so out-of-scope records are reported as denied,
// never as missing.
func (g *Gateway[E]) Get(ctx context.Context, p *domain.Principal, id string) (E, error) {
	var zero E
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	if _, err := g.authorize(ctx, p, access.OpGet, nil); err != nil {
		return zero, err
	}
	rec, err := g.deps.Store.Get(ctx, g.kind, id)
	if err != nil {
		return zero, g.storeErr(access.OpGet, err)
	}
	e, err := g.decode(rec)
	if err != nil {
		return zero, err
	}
	if _, err := g.authorize(ctx, p, access.OpGet, e.Attrs()); err != nil {
		return zero, err
	}
	return e, nil
}

// Update applies fn to the current stored entity under op update.
func (g *Gateway[E]) Update(ctx context.Context, p *domain.Principal, id string, fn func(E) error) (E, error) {
	return g.Mutate(ctx, p, access.OpUpdate, id, fn)
}

// Mutate reads, checks, modifies and writes back one entity inside a
// transaction. The check runs against both the stored and the modified
// entity. Id, scope fields and createdAt cannot be changed by fn.
func (g *Gateway[E]) Mutate(ctx context.Context, p *domain.Principal, op access.Operation, id string, fn func(E) error) (E, error) {
	var out E
	err := g.inTxn(ctx, p, op, func(t *Txn[E]) error {
		var err error
		out, err = t.Mutate(op, id, fn)
		return err
	})
	return out, err
}

// Replace overwrites the stored entity with e, provided e's version is still
// the stored version. A stale version fails with ErrConflict.
func (g *Gateway[E]) Replace(ctx context.Context, p *domain.Principal, e E) (E, error) {
	var out E
	err := g.inTxn(ctx, p, access.OpUpdate, func(t *Txn[E]) error {
		var err error
		out, err = t.Replace(e)
		return err
	})
	return out, err
}

// Delete removes one entity.
func (g *Gateway[E]) Delete(ctx context.Context, p *domain.Principal, id string) error {
	return g.inTxn(ctx, p, access.OpDelete, func(t *Txn[E]) error {
		return t.Delete(id)
	})
}

// Query returns entities in p's scope that also satisfy filter. The filter
// is conjoined with the scope, so it can only narrow the result.
func (g *Gateway[E]) Query(ctx context.Context, p *domain.Principal, filter query.Predicate, opts query.Options) ([]E, error) {
	return g.QueryAs(ctx, p, access.OpQuery, filter, opts)
}

// QueryAs is Query evaluated under a different read operation, such as export.
func (g *Gateway[E]) QueryAs(ctx context.Context, p *domain.Principal, op access.Operation, filter query.Predicate, opts query.Options) ([]E, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	d, err := g.authorize(ctx, p, op, nil)
	if err != nil {
		return nil, err
	}
	pred := d.Scope.And(filter)
	if pred.IsNone() {
		return []E{}, nil
	}
	recs, err := g.deps.Store.Query(ctx, g.kind, pred, opts.Normalize())
	if err != nil {
		return nil, g.storeErr(op, err)
	}
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		if !pred.Matches(rec.Attrs) {
			continue
		}
		e, err := g.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Count returns how many entities in p's scope satisfy filter.
func (g *Gateway[E]) Count(ctx context.Context, p *domain.Principal, filter query.Predicate) (int, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	d, err := g.authorize(ctx, p, access.OpQuery, nil)
	if err != nil {
		return 0, err
	}
	pred := d.Scope.And(filter)
	if pred.IsNone() {
		return 0, nil
	}
	n, err := g.deps.Store.Count(ctx, g.kind, pred)
	if err != nil {
		return 0, g.storeErr(access.OpQuery, err)
	}
	return n, nil
}

// BatchKind selects what a BatchOp does.
type BatchKind int

const (
	BatchCreate BatchKind = iota
	BatchUpdate
	BatchDelete
)

func (k BatchKind) operation() access.Operation {
	switch k {
	case BatchCreate:
		return access.OpCreate
	case BatchDelete:
		return access.OpDelete
	default:
		return access.OpUpdate
	}
}

// BatchOp is one write in a batch. Update replaces the stored entity with
// Entity under the same version rules as Replace; Delete uses ID.
type BatchOp[E domain.Entity] struct {
	Kind   BatchKind
	Entity E
	ID     string
}

// BatchWrite applies ops all-or-nothing. Every op is checked at type level
// (and creates at instance level) before the transaction starts; the rest
// are checked inside it, and any denial rolls the whole batch back.
func (g *Gateway[E]) BatchWrite(ctx context.Context, p *domain.Principal, ops []BatchOp[E]) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	for _, op := range ops {
		var instance domain.Attrs
		if op.Kind == BatchCreate {
			g.stamp(p, op.Entity.Base())
			instance = op.Entity.Attrs()
		}
		if _, err := g.authorize(ctx, p, op.Kind.operation(), instance); err != nil {
			return err
		}
	}

	return g.RunTransaction(ctx, p, func(t *Txn[E]) error {
		for i, op := range ops {
			var err error
			switch op.Kind {
			case BatchCreate:
				_, err = t.Create(op.Entity)
			case BatchUpdate:
				_, err = t.Replace(op.Entity)
			case BatchDelete:
				err = t.Delete(op.ID)
			default:
				err = fmt.Errorf("batch op %d: unknown kind %d", i, op.Kind)
			}
			if err != nil {
				return fmt.Errorf("batch op %d: %w", i, err)
			}
		}
		return nil
	})
}

// RunTransaction runs fn in one store transaction. Writes made through the
// Txn are committed together; any error, including a denial, discards them.
// ErrConflict is returned to the caller and never retried here.
func (g *Gateway[E]) RunTransaction(ctx context.Context, p *domain.Principal, fn func(t *Txn[E]) error) error {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var pending []events.Event
	err := g.deps.Store.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		t := &Txn[E]{g: g, p: p, ctx: ctx, tx: tx}
		if err := fn(t); err != nil {
			return abortError{err}
		}
		pending = t.events
		return nil
	})
	if err != nil {
		return g.storeErr(access.OpUpdate, err)
	}
	for _, evt := range pending {
		g.publish(ctx, evt)
	}
	return nil
}

func (g *Gateway[E]) inTxn(ctx context.Context, p *domain.Principal, op access.Operation, fn func(t *Txn[E]) error) error {
	if _, err := g.authorize(ctx, p, op, nil); err != nil {
		return err
	}
	return g.RunTransaction(ctx, p, fn)
}

func (g *Gateway[E]) authorize(ctx context.Context, p *domain.Principal, op access.Operation, instance domain.Attrs) (access.Decision, error) {
	d := g.deps.Evaluator.Evaluate(p, g.kind, op, instance)
	g.deps.Metrics.RecordDecision(string(g.kind), string(op), d.Effect.String(), d.Reason.String())
	if d.Allowed() {
		return d, nil
	}

	actor := events.ActorOf(p)
	g.logger.Debug("access denied",
		zap.String("principal_id", actor.ID),
		zap.String("role", string(actor.Role)),
		zap.String("operation", string(op)),
		zap.String("reason", d.Reason.String()),
		zap.String("rule", d.Rule),
	)
	perm := ""
	if d.Permission.Valid() {
		perm = d.Permission.String()
	}
	evt := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccessDenied,
		Entity:    g.kind,
		EntityID:  instance.Get(domain.FieldID),
		OfficeID:  instance.Get(domain.FieldOfficeID),
		Actor:     actor,
		Timestamp: g.deps.Now().UTC(),
		Payload: events.AccessDeniedPayload{
			Operation:  string(op),
			Reason:     d.Reason.String(),
			Permission: perm,
		},
	}
	g.publish(ctx, evt)
	return d, d.Err(g.kind, op)
}

func (g *Gateway[E]) stamp(p *domain.Principal, b *domain.EntityBase) {
	if b.ID == "" {
		b.ID = g.deps.NewID()
	}
	if p != nil && p.Family() != domain.FamilyCompany {
		if b.OfficeID == "" {
			b.OfficeID = p.OfficeID
		}
		if b.RepresentativeID == "" {
			b.RepresentativeID = p.ScopeID()
		}
	}
	if b.Visibility == "" {
		b.Visibility = domain.VisibilityPrivate
	}
	now := g.deps.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Version = 1
}

func (g *Gateway[E]) prepareCreate(ctx context.Context, p *domain.Principal, op access.Operation, e E) (Record, error) {
	g.stamp(p, e.Base())
	if _, err := g.authorize(ctx, p, op, e.Attrs()); err != nil {
		return Record{}, err
	}
	return g.encode(e)
}

func (g *Gateway[E]) encode(e E) (Record, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", g.kind, err)
	}
	b := e.Base()
	return Record{
		Collection: g.kind,
		ID:         b.ID,
		Attrs:      e.Attrs(),
		Body:       body,
		Version:    b.Version,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}, nil
}

func (g *Gateway[E]) decode(rec Record) (E, error) {
	e := g.newEntity()
	if err := json.Unmarshal(rec.Body, e); err != nil {
		var zero E
		return zero, fmt.Errorf("decode %s %s: %w", g.kind, rec.ID, err)
	}
	b := e.Base()
	b.ID = rec.ID
	b.Version = rec.Version
	b.CreatedAt = rec.CreatedAt
	b.UpdatedAt = rec.UpdatedAt
	return e, nil
}

func (g *Gateway[E]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.deps.Timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.deps.Timeout)
}

// storeErr classifies and records a failed store call. Denials and errors
// raised inside a transaction function pass through untouched; the latter
// were already classified where they occurred.
func (g *Gateway[E]) storeErr(op access.Operation, err error) error {
	var abort abortError
	if errors.As(err, &abort) {
		return abort.err
	}
	if errors.Is(err, access.ErrAccessDenied) {
		return err
	}
	err = ClassifyContextError(string(op), err)
	class := ErrorClass(err)
	g.deps.Metrics.RecordStoreError(string(g.kind), string(op), class)
	switch class {
	case "not_found", "already_exists", "conflict":
		g.logger.Debug("store rejected operation", zap.String("operation", string(op)), zap.String("class", class), zap.Error(err))
	case "unavailable":
		g.logger.Warn("store unavailable", zap.String("operation", string(op)), zap.Error(err))
	default:
		g.logger.Error("store failure", zap.String("operation", string(op)), zap.Error(err))
	}
	return err
}

func (g *Gateway[E]) changed(t events.EventType, p *domain.Principal, op access.Operation, b *domain.EntityBase) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      t,
		Entity:    g.kind,
		EntityID:  b.ID,
		OfficeID:  b.OfficeID,
		Actor:     events.ActorOf(p),
		Timestamp: g.deps.Now().UTC(),
		Payload:   events.EntityChangedPayload{Operation: string(op), Version: b.Version},
	}
}

func (g *Gateway[E]) publish(ctx context.Context, evt events.Event) {
	if g.deps.Dispatcher == nil {
		return
	}
	if err := g.deps.Dispatcher.Publish(ctx, evt); err != nil {
		g.logger.Warn("event handler failed", zap.String("event", string(evt.Type)), zap.Error(err))
	}
}

// abortError marks an error returned by a transaction function.
type abortError struct{ err error }

func (a abortError) Error() string { return a.err.Error() }
func (a abortError) Unwrap() error { return a.err }
