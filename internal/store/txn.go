package store

import (
	"context"
	"fmt"

	"github.com/spec-kit/constituent-access/internal/access"
	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/events"
	"github.com/spec-kit/constituent-access/internal/query"
)

// Txn is the gateway view of an open transaction. Each method is evaluated
// exactly like its Gateway counterpart.
type Txn[E domain.Entity] struct {
	g      *Gateway[E]
	p      *domain.Principal
	ctx    context.Context
	tx     Tx
	events []events.Event
}

// Context returns the transaction context.
func (t *Txn[E]) Context() context.Context { return t.ctx }

// Get reads one entity within the transaction.
func (t *Txn[E]) Get(id string) (E, error) {
	var zero E
	current, _, err := t.load(access.OpGet, id)
	if err != nil {
		return zero, err
	}
	return current, nil
}

// Create inserts a new entity within the transaction.
func (t *Txn[E]) Create(e E) (E, error) {
	return t.CreateAs(access.OpCreate, e)
}

// CreateAs is Create authorized under op.
func (t *Txn[E]) CreateAs(op access.Operation, e E) (E, error) {
	var zero E
	rec, err := t.g.prepareCreate(t.ctx, t.p, op, e)
	if err != nil {
		return zero, err
	}
	if err := t.tx.Insert(t.ctx, rec); err != nil {
		return zero, t.g.storeErr(op, err)
	}
	t.events = append(t.events, t.g.changed(events.EventEntityCreated, t.p, op, e.Base()))
	return e, nil
}

// Query is Gateway.Query within the transaction. The read takes part in
// conflict detection, so a concurrent change to the matched set aborts one
// of the transactions.
func (t *Txn[E]) Query(filter query.Predicate, opts query.Options) ([]E, error) {
	d, err := t.g.authorize(t.ctx, t.p, access.OpQuery, nil)
	if err != nil {
		return nil, err
	}
	pred := d.Scope.And(filter)
	if pred.IsNone() {
		return []E{}, nil
	}
	recs, err := t.tx.Query(t.ctx, t.g.kind, pred, opts.Normalize())
	if err != nil {
		return nil, t.g.storeErr(access.OpQuery, err)
	}
	out := make([]E, 0, len(recs))
	for _, rec := range recs {
		if !pred.Matches(rec.Attrs) {
			continue
		}
		e, err := t.g.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Mutate applies fn to a fresh copy of the stored entity under op.
func (t *Txn[E]) Mutate(op access.Operation, id string, fn func(E) error) (E, error) {
	return t.write(op, id, func(_ E, rec Record) (E, error) {
		next, err := t.g.decode(rec)
		if err != nil {
			return next, err
		}
		if err := fn(next); err != nil {
			return next, err
		}
		return next, nil
	})
}

// Replace overwrites the stored entity with e when e's version matches.
func (t *Txn[E]) Replace(e E) (E, error) {
	expected := e.Base().Version
	return t.write(access.OpUpdate, e.Base().ID, func(_ E, rec Record) (E, error) {
		if expected != rec.Version {
			err := fmt.Errorf("%s %s: have version %d, stored %d: %w", t.g.kind, rec.ID, expected, rec.Version, ErrConflict)
			return e, t.g.storeErr(access.OpUpdate, err)
		}
		return e, nil
	})
}

// Delete removes one entity within the transaction.
func (t *Txn[E]) Delete(id string) error {
	current, rec, err := t.load(access.OpDelete, id)
	if err != nil {
		return err
	}
	if err := t.tx.Delete(t.ctx, t.g.kind, id, rec.Version); err != nil {
		return t.g.storeErr(access.OpDelete, err)
	}
	t.events = append(t.events, t.g.changed(events.EventEntityDeleted, t.p, access.OpDelete, current.Base()))
	return nil
}

func (t *Txn[E]) load(op access.Operation, id string) (E, Record, error) {
	var zero E
	if _, err := t.g.authorize(t.ctx, t.p, op, nil); err != nil {
		return zero, Record{}, err
	}
	rec, err := t.tx.Get(t.ctx, t.g.kind, id)
	if err != nil {
		return zero, Record{}, t.g.storeErr(op, err)
	}
	current, err := t.g.decode(rec)
	if err != nil {
		return zero, Record{}, err
	}
	if _, err := t.g.authorize(t.ctx, t.p, op, current.Attrs()); err != nil {
		return zero, Record{}, err
	}
	return current, rec, nil
}

// write loads the stored entity, builds its replacement, pins the immutable
// fields and checks the replacement before the compare-and-swap.
func (t *Txn[E]) write(op access.Operation, id string, build func(current E, rec Record) (E, error)) (E, error) {
	var zero E
	current, rec, err := t.load(op, id)
	if err != nil {
		return zero, err
	}
	next, err := build(current, rec)
	if err != nil {
		return zero, err
	}

	b, cur := next.Base(), current.Base()
	b.ID = cur.ID
	b.OfficeID = cur.OfficeID
	b.RepresentativeID = cur.RepresentativeID
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = t.g.deps.Now().UTC()
	b.Version = rec.Version + 1
	if b.Visibility == "" {
		b.Visibility = cur.Visibility
	}

	if _, err := t.g.authorize(t.ctx, t.p, op, next.Attrs()); err != nil {
		return zero, err
	}
	nrec, err := t.g.encode(next)
	if err != nil {
		return zero, err
	}
	if err := t.tx.Replace(t.ctx, nrec, rec.Version); err != nil {
		return zero, t.g.storeErr(op, err)
	}
	t.events = append(t.events, t.g.changed(events.EventEntityUpdated, t.p, op, b))
	return next, nil
}
