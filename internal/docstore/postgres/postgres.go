// Package postgres stores documents as JSONB rows in a single "documents"
// table. Filters use containment (@>), ordering reads top-level keys with ->,
// and the bigserial id doubles as the insertion sequence.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"duque/internal/docstore"
)

const table = "documents"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type docRow struct {
	ID   int64  `db:"id"`
	Body []byte `db:"body"`
}

func (r docRow) document() docstore.Document {
	return docstore.Document{ID: strconv.FormatInt(r.ID, 10), Seq: r.ID, Body: r.Body}
}

// Store is a docstore.Store over Postgres.
type Store struct {
	db      DB
	closeFn func()
}

var _ docstore.Store = (*Store)(nil)

// New wraps an existing pool (or anything that behaves like one).
func New(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, bool, error) {
	n, ok := parseID(id)
	if !ok {
		return docstore.Document{}, false, nil
	}
	query, args, err := psql.Select("id", "body").
		From(table).
		Where(sq.Eq{"collection": collection, "id": n}).
		ToSql()
	if err != nil {
		return docstore.Document{}, false, fmt.Errorf("build get: %w", err)
	}
	return s.one(ctx, collection, query, args)
}

func (s *Store) First(ctx context.Context, q docstore.Query) (docstore.Document, bool, error) {
	q.Limit = 1
	query, args, err := buildSelect(q)
	if err != nil {
		return docstore.Document{}, false, err
	}
	return s.one(ctx, q.Collection, query, args)
}

func (s *Store) List(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	query, args, err := buildSelect(q)
	if err != nil {
		return nil, err
	}
	var rows []docRow
	if err := pgxscan.Select(ctx, s.querier(ctx), &rows, query, args...); err != nil {
		return nil, mapError(err, q.Collection, "list")
	}
	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.document())
	}
	return docs, nil
}

func (s *Store) one(ctx context.Context, collection, query string, args []any) (docstore.Document, bool, error) {
	var row docRow
	if err := pgxscan.Get(ctx, s.querier(ctx), &row, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return docstore.Document{}, false, nil
		}
		return docstore.Document{}, false, mapError(err, collection, "get")
	}
	return row.document(), true, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	query, args, err := psql.Select("count(*)").
		From(table).
		Where(sq.Eq{"collection": collection}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := s.querier(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, mapError(err, collection, "count")
	}
	return n, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode %s document: %w", collection, err)
	}
	query, args, err := psql.Insert(table).
		Columns("collection", "body").
		Values(collection, string(body)).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build insert: %w", err)
	}
	var id int64
	if err := s.querier(ctx).QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return "", mapError(err, collection, "insert")
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *Store) Patch(ctx context.Context, collection, id string, fields map[string]any) error {
	n, ok := parseID(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	patch, err := encodePatch(fields)
	if err != nil {
		return fmt.Errorf("encode %s patch: %w", collection, err)
	}
	query, args, err := psql.Update(table).
		Set("body", sq.Expr("body || ?::jsonb", patch)).
		Where(sq.Eq{"collection": collection, "id": n}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build patch: %w", err)
	}
	tag, err := s.querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, collection, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	n, ok := parseID(id)
	if !ok {
		return fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	query, args, err := psql.Delete(table).
		Where(sq.Eq{"collection": collection, "id": n}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := s.querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return mapError(err, collection, id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	return nil
}

func (s *Store) AddToSet(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error) {
	n, patch, err := prepareArray(collection, id, field, fields)
	if err != nil {
		return false, err
	}
	set := sq.Expr(
		"jsonb_set(body || ?::jsonb, ?::text[], COALESCE(body->?::text, '[]'::jsonb) || jsonb_build_array(?::text))",
		patch, []string{field}, field, value,
	)
	guard := sq.Expr("NOT COALESCE(body->?::text @> jsonb_build_array(?::text), false)", field, value)
	return s.updateArray(ctx, collection, id, n, set, guard)
}

func (s *Store) Pull(ctx context.Context, collection, id, field, value string, fields map[string]any) (bool, error) {
	n, patch, err := prepareArray(collection, id, field, fields)
	if err != nil {
		return false, err
	}
	set := sq.Expr(
		"jsonb_set(body || ?::jsonb, ?::text[], COALESCE((SELECT jsonb_agg(e) FROM jsonb_array_elements(body->?::text) e WHERE e <> to_jsonb(?::text)), '[]'::jsonb))",
		patch, []string{field}, field, value,
	)
	guard := sq.Expr("body->?::text @> jsonb_build_array(?::text)", field, value)
	return s.updateArray(ctx, collection, id, n, set, guard)
}

func prepareArray(collection, id, field string, fields map[string]any) (int64, string, error) {
	if !docstore.ValidField(field) {
		return 0, "", fmt.Errorf("%w: bad array field %s", docstore.ErrInvalidQuery, field)
	}
	n, ok := parseID(id)
	if !ok {
		return 0, "", fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	patch, err := encodePatch(fields)
	if err != nil {
		return 0, "", fmt.Errorf("encode %s patch: %w", collection, err)
	}
	return n, patch, nil
}

// updateArray runs a guarded single-statement array update. Zero affected rows
// means either the guard failed or the document is missing; a probe tells
// them apart.
func (s *Store) updateArray(ctx context.Context, collection, id string, n int64, set, guard sq.Sqlizer) (bool, error) {
	query, args, err := psql.Update(table).
		Set("body", set).
		Where(sq.Eq{"collection": collection, "id": n}).
		Where(guard).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build array update: %w", err)
	}

	tag, err := s.querier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return false, mapError(err, collection, id)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	_, exists, err := s.Get(ctx, collection, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, fmt.Errorf("%s %s: %w", collection, id, docstore.ErrNotFound)
	}
	return false, nil
}

func buildSelect(q docstore.Query) (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	b := psql.Select("id", "body").
		From(table).
		Where(sq.Eq{"collection": q.Collection})

	if len(q.Where) > 0 {
		filter, err := json.Marshal(q.Where)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		b = b.Where("body @> ?::jsonb", string(filter))
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.OrderBy != "" {
		b = b.OrderBy(fmt.Sprintf("body->'%s' %s", q.OrderBy, dir))
	}
	b = b.OrderBy("id " + dir)

	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build select: %w", err)
	}
	return query, args, nil
}

func encodePatch(fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n > 0
}

// mapError converts driver errors for the docstore contract.
// Context errors pass through wrapped so errors.Is still sees them.
func mapError(err error, collection, target string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", collection, target, docstore.ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", collection, target, err)
}
