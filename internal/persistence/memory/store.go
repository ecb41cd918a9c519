// Package memory is an in-process DocumentStore. Transactions are optimistic:
// reads record the version they saw and commit fails with store.ErrConflict
// if any of those documents changed in the meantime. Predicate reads record
// the matched set and fail the same way when it changed.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
)

type key struct {
	collection domain.EntityType
	id         string
}

// Store keeps documents in a map guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	docs map[key]store.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{docs: make(map[key]store.Record)}
}

var _ store.DocumentStore = (*Store)(nil)

// Get implements store.DocumentStore.
func (s *Store) Get(ctx context.Context, collection domain.EntityType, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, store.ClassifyContextError("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.docs[key{collection, id}]
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return clone(rec), nil
}

// Query implements store.DocumentStore.
func (s *Store) Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.ClassifyContextError("query", err)
	}
	return page(s.scan(collection, pred), opts), nil
}

func page(matched []store.Record, opts query.Options) []store.Record {
	opts = opts.Normalize()
	sortRecords(matched, opts)

	if opts.Offset >= len(matched) {
		return []store.Record{}
	}
	matched = matched[opts.Offset:]
	if len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched
}

// Count implements store.DocumentStore.
func (s *Store) Count(ctx context.Context, collection domain.EntityType, pred query.Predicate) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, store.ClassifyContextError("count", err)
	}
	return len(s.scan(collection, pred)), nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(collection domain.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.docs {
		if k.collection == collection {
			n++
		}
	}
	return n
}

// RunTransaction implements store.DocumentStore.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return store.ClassifyContextError("begin", err)
	}
	t := &tx{
		s:      s,
		reads:  make(map[key]int64),
		writes: make(map[key]*store.Record),
	}
	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return store.ClassifyContextError("commit", err)
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, seen := range t.reads {
		var have int64
		if rec, ok := s.docs[k]; ok {
			have = rec.Version
		}
		if have != seen {
			return store.ErrConflict
		}
	}
	for _, sc := range t.scans {
		if !sameVersions(sc.seen, s.scanLocked(sc.collection, sc.pred)) {
			return store.ErrConflict
		}
	}
	for _, k := range t.order {
		rec := t.writes[k]
		if rec == nil {
			delete(s.docs, k)
			continue
		}
		s.docs[k] = clone(*rec)
	}
	return nil
}

func (s *Store) scan(collection domain.EntityType, pred query.Predicate) []store.Record {
	if pred.IsNone() {
		return []store.Record{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanLocked(collection, pred)
}

func (s *Store) scanLocked(collection domain.EntityType, pred query.Predicate) []store.Record {
	out := make([]store.Record, 0)
	for k, rec := range s.docs {
		if k.collection == collection && pred.Matches(rec.Attrs) {
			out = append(out, clone(rec))
		}
	}
	return out
}

func versions(recs []store.Record) map[string]int64 {
	out := make(map[string]int64, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec.Version
	}
	return out
}

func sameVersions(seen map[string]int64, now []store.Record) bool {
	if len(seen) != len(now) {
		return false
	}
	for _, rec := range now {
		if v, ok := seen[rec.ID]; !ok || v != rec.Version {
			return false
		}
	}
	return true
}

func sortRecords(recs []store.Record, opts query.Options) {
	less := func(a, b store.Record) int {
		switch opts.OrderBy {
		case domain.FieldUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		case domain.FieldCreatedAt:
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			av, bv := a.Attrs.Get(opts.OrderBy), b.Attrs.Get(opts.OrderBy)
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	sort.SliceStable(recs, func(i, j int) bool {
		c := less(recs[i], recs[j])
		if c == 0 {
			if opts.Desc {
				return recs[i].ID > recs[j].ID
			}
			return recs[i].ID < recs[j].ID
		}
		if opts.Desc {
			return c > 0
		}
		return c < 0
	})
}

func clone(rec store.Record) store.Record {
	out := rec
	if rec.Attrs != nil {
		out.Attrs = make(domain.Attrs, len(rec.Attrs))
		for k, v := range rec.Attrs {
			out.Attrs[k] = v
		}
	}
	out.Body = append([]byte(nil), rec.Body...)
	return out
}

// tx stages writes until commit.
type tx struct {
	s      *Store
	reads  map[key]int64
	scans  []predicateRead
	writes map[key]*store.Record
	order  []key
}

// predicateRead is a Query made in a transaction and the committed versions
// it matched.
type predicateRead struct {
	collection domain.EntityType
	pred       query.Predicate
	seen       map[string]int64
}

// current returns the document as this transaction sees it and remembers the
// committed version for conflict detection.
func (t *tx) current(k key) (store.Record, bool) {
	if staged, ok := t.writes[k]; ok {
		if staged == nil {
			return store.Record{}, false
		}
		return clone(*staged), true
	}
	t.s.mu.RLock()
	rec, ok := t.s.docs[k]
	t.s.mu.RUnlock()
	if _, seen := t.reads[k]; !seen {
		if ok {
			t.reads[k] = rec.Version
		} else {
			t.reads[k] = 0
		}
	}
	if !ok {
		return store.Record{}, false
	}
	return clone(rec), true
}

func (t *tx) stage(k key, rec *store.Record) {
	if _, ok := t.writes[k]; !ok {
		t.order = append(t.order, k)
	}
	t.writes[k] = rec
}

func (t *tx) Get(ctx context.Context, collection domain.EntityType, id string) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return store.Record{}, store.ClassifyContextError("get", err)
	}
	rec, ok := t.current(key{collection, id})
	if !ok {
		return store.Record{}, store.ErrNotFound
	}
	return rec, nil
}

// Query matches committed documents overlaid with this transaction's staged
// writes.
func (t *tx) Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, store.ClassifyContextError("query", err)
	}
	if pred.IsNone() {
		return []store.Record{}, nil
	}
	committed := t.s.scan(collection, pred)
	t.scans = append(t.scans, predicateRead{collection: collection, pred: pred, seen: versions(committed)})

	matched := make([]store.Record, 0, len(committed))
	for _, rec := range committed {
		if _, staged := t.writes[key{collection, rec.ID}]; !staged {
			matched = append(matched, rec)
		}
	}
	for _, k := range t.order {
		if rec := t.writes[k]; k.collection == collection && rec != nil && pred.Matches(rec.Attrs) {
			matched = append(matched, clone(*rec))
		}
	}
	return page(matched, opts), nil
}

func (t *tx) Insert(ctx context.Context, rec store.Record) error {
	if err := ctx.Err(); err != nil {
		return store.ClassifyContextError("insert", err)
	}
	k := key{rec.Collection, rec.ID}
	if _, exists := t.current(k); exists {
		return store.ErrAlreadyExists
	}
	staged := clone(rec)
	t.stage(k, &staged)
	return nil
}

func (t *tx) Replace(ctx context.Context, rec store.Record, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return store.ClassifyContextError("replace", err)
	}
	k := key{rec.Collection, rec.ID}
	cur, ok := t.current(k)
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return store.ErrConflict
	}
	staged := clone(rec)
	t.stage(k, &staged)
	return nil
}

func (t *tx) Delete(ctx context.Context, collection domain.EntityType, id string, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return store.ClassifyContextError("delete", err)
	}
	k := key{collection, id}
	cur, ok := t.current(k)
	if !ok {
		return store.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return store.ErrConflict
	}
	t.stage(k, nil)
	return nil
}
