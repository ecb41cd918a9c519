package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/constituent-access/internal/domain"
	"github.com/spec-kit/constituent-access/internal/query"
	"github.com/spec-kit/constituent-access/internal/store"
)

const documentsTable = "documents"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgBeginner interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// DocumentStore implements store.DocumentStore on a single JSONB table.
// Scope attributes live in their own columns; every other attribute is
// matched through attrs->>'name'.
type DocumentStore struct {
	db      pgBeginner
	builder squirrel.StatementBuilderType
}

var _ store.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore builds a store over a pool, or anything that behaves like one.
func NewDocumentStore(db pgBeginner) *DocumentStore {
	return &DocumentStore{
		db:      db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

var recordColumns = []string{"id", "attrs", "body", "version", "created_at", "updated_at"}

var scopeColumns = map[string]string{
	domain.FieldID:               "id",
	domain.FieldOfficeID:         "office_id",
	domain.FieldRepresentativeID: "representative_id",
	domain.FieldVisibility:       "visibility",
	domain.FieldDistrict:         "district",
}

var attrName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func columnFor(field string) (string, error) {
	if col, ok := scopeColumns[field]; ok {
		return col, nil
	}
	if !attrName.MatchString(field) {
		return "", fmt.Errorf("invalid filter field %q", field)
	}
	return "attrs->>'" + field + "'", nil
}

// orderColumn maps a sort field to a column. Unknown or unsafe names sort by
// creation time.
func orderColumn(field string) string {
	switch field {
	case "", domain.FieldCreatedAt:
		return "created_at"
	case domain.FieldUpdatedAt:
		return "updated_at"
	}
	col, err := columnFor(field)
	if err != nil {
		return "created_at"
	}
	return col
}

func whereClause(collection domain.EntityType, pred query.Predicate) (squirrel.And, error) {
	where := squirrel.And{squirrel.Eq{"collection": string(collection)}}
	for _, c := range pred.Conds {
		col, err := columnFor(c.Field)
		if err != nil {
			return nil, err
		}
		if len(c.Values) == 1 {
			where = append(where, squirrel.Eq{col: c.Values[0]})
		} else {
			where = append(where, squirrel.Eq{col: c.Values})
		}
	}
	return where, nil
}

// Get implements store.DocumentStore.
func (s *DocumentStore) Get(ctx context.Context, collection domain.EntityType, id string) (store.Record, error) {
	return getRecord(ctx, s.db, s.builder, collection, id, false)
}

// Query implements store.DocumentStore.
func (s *DocumentStore) Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]store.Record, error) {
	return queryRecords(ctx, s.db, s.builder, collection, pred, opts)
}

func queryRecords(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]store.Record, error) {
	if pred.IsNone() {
		return []store.Record{}, nil
	}
	where, err := whereClause(collection, pred)
	if err != nil {
		return nil, err
	}
	opts = opts.Normalize()
	dir := "ASC"
	if opts.Desc {
		dir = "DESC"
	}
	stmt, args, err := builder.
		Select(recordColumns...).
		From(documentsTable).
		Where(where).
		OrderBy(orderColumn(opts.OrderBy)+" "+dir, "id "+dir).
		Limit(uint64(opts.Limit)).
		Offset(uint64(opts.Offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query documents sql: %w", err)
	}

	rows, err := exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, mapError("query documents", err)
	}
	defer rows.Close()

	out := make([]store.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, collection)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("iterate documents", err)
	}
	return out, nil
}

// Count implements store.DocumentStore.
func (s *DocumentStore) Count(ctx context.Context, collection domain.EntityType, pred query.Predicate) (int, error) {
	if pred.IsNone() {
		return 0, nil
	}
	where, err := whereClause(collection, pred)
	if err != nil {
		return 0, err
	}
	stmt, args, err := s.builder.Select("COUNT(*)").From(documentsTable).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count documents sql: %w", err)
	}
	var n int64
	if err := s.db.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, mapError("count documents", err)
	}
	return int(n), nil
}

// RunTransaction implements store.DocumentStore. Errors returned by fn roll
// the transaction back and are returned unchanged.
func (s *DocumentStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return mapError("begin", err)
	}
	if err := fn(ctx, &pgTx{tx: tx, builder: s.builder}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, mapError("rollback", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}

type pgTx struct {
	tx      pgx.Tx
	builder squirrel.StatementBuilderType
}

func (t *pgTx) Get(ctx context.Context, collection domain.EntityType, id string) (store.Record, error) {
	return getRecord(ctx, t.tx, t.builder, collection, id, true)
}

// Query takes a transaction-scoped advisory lock keyed by the collection and
// predicate before reading, so transactions reading the same predicate run
// one after another.
func (t *pgTx) Query(ctx context.Context, collection domain.EntityType, pred query.Predicate, opts query.Options) ([]store.Record, error) {
	if pred.IsNone() {
		return []store.Record{}, nil
	}
	stmt, args, err := t.builder.Select().
		Column(squirrel.Expr("pg_advisory_xact_lock(hashtext(?))", string(collection)+":"+pred.String())).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build predicate lock sql: %w", err)
	}
	if _, err := t.tx.Exec(ctx, stmt, args...); err != nil {
		return nil, mapError("lock predicate", err)
	}
	return queryRecords(ctx, t.tx, t.builder, collection, pred, opts)
}

func (t *pgTx) Insert(ctx context.Context, rec store.Record) error {
	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", err)
	}
	stmt, args, err := t.builder.Insert(documentsTable).
		Columns(
			"collection",
			"id",
			"office_id",
			"representative_id",
			"visibility",
			"district",
			"attrs",
			"body",
			"version",
			"created_at",
			"updated_at",
		).
		Values(
			string(rec.Collection),
			rec.ID,
			rec.Attrs.Get(domain.FieldOfficeID),
			rec.Attrs.Get(domain.FieldRepresentativeID),
			rec.Attrs.Get(domain.FieldVisibility),
			rec.Attrs.Get(domain.FieldDistrict),
			attrs,
			rec.Body,
			rec.Version,
			rec.CreatedAt,
			rec.UpdatedAt,
		).
		Suffix("ON CONFLICT (collection, id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert document sql: %w", err)
	}
	tag, err := t.tx.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError("insert document", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("insert %s %s: %w", rec.Collection, rec.ID, store.ErrAlreadyExists)
	}
	return nil
}

func (t *pgTx) Replace(ctx context.Context, rec store.Record, expectedVersion int64) error {
	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", err)
	}
	stmt, args, err := t.builder.Update(documentsTable).
		SetMap(map[string]any{
			"office_id":         rec.Attrs.Get(domain.FieldOfficeID),
			"representative_id": rec.Attrs.Get(domain.FieldRepresentativeID),
			"visibility":        rec.Attrs.Get(domain.FieldVisibility),
			"district":          rec.Attrs.Get(domain.FieldDistrict),
			"attrs":             attrs,
			"body":              rec.Body,
			"version":           rec.Version,
			"updated_at":        rec.UpdatedAt,
		}).
		Where(squirrel.Eq{"collection": string(rec.Collection), "id": rec.ID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build replace document sql: %w", err)
	}
	tag, err := t.tx.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError("replace document", err)
	}
	if tag.RowsAffected() == 0 {
		return t.missOrConflict(ctx, rec.Collection, rec.ID)
	}
	return nil
}

func (t *pgTx) Delete(ctx context.Context, collection domain.EntityType, id string, expectedVersion int64) error {
	stmt, args, err := t.builder.Delete(documentsTable).
		Where(squirrel.Eq{"collection": string(collection), "id": id, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete document sql: %w", err)
	}
	tag, err := t.tx.Exec(ctx, stmt, args...)
	if err != nil {
		return mapError("delete document", err)
	}
	if tag.RowsAffected() == 0 {
		return t.missOrConflict(ctx, collection, id)
	}
	return nil
}

// missOrConflict tells a vanished document from one whose version moved on.
func (t *pgTx) missOrConflict(ctx context.Context, collection domain.EntityType, id string) error {
	stmt, args, err := t.builder.Select("version").From(documentsTable).
		Where(squirrel.Eq{"collection": string(collection), "id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build version sql: %w", err)
	}
	var version int64
	if err := t.tx.QueryRow(ctx, stmt, args...).Scan(&version); err != nil {
		return mapError("read version", err)
	}
	return fmt.Errorf("%s %s at version %d: %w", collection, id, version, store.ErrConflict)
}

func getRecord(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, collection domain.EntityType, id string, forUpdate bool) (store.Record, error) {
	sb := builder.Select(recordColumns...).
		From(documentsTable).
		Where(squirrel.Eq{"collection": string(collection), "id": id}).
		Limit(1)
	if forUpdate {
		sb = sb.Suffix("FOR UPDATE")
	}
	stmt, args, err := sb.ToSql()
	if err != nil {
		return store.Record{}, fmt.Errorf("build get document sql: %w", err)
	}
	return scanRecord(exec.QueryRow(ctx, stmt, args...), collection)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, collection domain.EntityType) (store.Record, error) {
	rec := store.Record{Collection: collection}
	var attrs []byte
	if err := row.Scan(&rec.ID, &attrs, &rec.Body, &rec.Version, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return store.Record{}, mapError("scan document", err)
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attrs); err != nil {
			return store.Record{}, fmt.Errorf("decode attrs of %s %s: %w", collection, rec.ID, err)
		}
	}
	return rec, nil
}

// mapError translates driver failures into store sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || pgconn.Timeout(err) {
		return store.Unavailable(op, err)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return store.Unavailable(op, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return fmt.Errorf("%s: %w: %w", op, store.ErrConflict, err)
		case pgErr.Code == "23505":
			return fmt.Errorf("%s: %w: %w", op, store.ErrAlreadyExists, err)
		case strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" || pgErr.Code == "57P03":
			return store.Unavailable(op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
