// Package store defines the document store contract and the generic Entity
// Store Gateway that routes every call through the access evaluator.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrAlreadyExists is returned when inserting an id that is taken.
	ErrAlreadyExists = errors.New("document already exists")

	// ErrConflict signals an optimistic-concurrency failure. Callers re-read
	// the latest state and retry; the gateway never retries on their behalf.
	ErrConflict = errors.New("document version conflict")

	// ErrStoreUnavailable is transient and safe to retry with backoff.
	ErrStoreUnavailable = errors.New("document store unavailable")
)

// Record is the stored form of an entity. Attrs mirror the entity's
// filterable attributes so stores can evaluate predicates without decoding Body.
type Record struct {
	Collection domain.EntityType
	ID         string
	Attrs      domain.Attrs
	Body       []byte
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentStore is the persistence contract behind the gateway. It knows
// nothing about principals.
type DocumentStore interface {
	Get(ctx context.Context, collection domain.EntityType, id string) (Record, error)
	Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]Record, error)
	Count(ctx context.Context, collection domain.EntityType, pred query.Predicate) (int, error)
	// RunTransaction applies every write made through Tx atomically, or none
	// of them when fn returns an error.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is a unit of work. Replace and Delete are compare-and-swap on version
// and fail with ErrConflict when the stored version differs.
//
// Query is a predicate read: two transactions that query the same predicate
// and then write do not both commit on a stale view of the matched set.
type Tx interface {
	Get(ctx context.Context, collection domain.EntityType, id string) (Record, error)
	Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]Record, error)
	Insert(ctx context.Context, rec Record) error
	Replace(ctx context.Context, rec Record, expectedVersion int64) error
	Delete(ctx context.Context, collection domain.EntityType, id string, expectedVersion int64) error
}

// Unavailable wraps err as ErrStoreUnavailable unless it already is one.
func Unavailable(op string, err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// ClassifyContextError maps deadline and cancellation errors to
// ErrStoreUnavailable and leaves other errors untouched.
func ClassifyContextError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(op, err)
	}
	return err
}

// ErrorClass names the store error class for metrics and logs.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
