// Package pgds is the PostgreSQL DataSource backend built on pgx/v5. It
// folds accumulated predicates into parameterized SQL at materialization
// time; nothing touches the database until Count, Get, Paginate, or a
// mutation runs.
package pgds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/model"
)

const uniqueViolation = "23505"

// Source is a PostgreSQL-backed DataSource over one table. Filtering calls
// clone the handle; the pool, mapper, and table are shared across clones.
//
// Row scanning uses pgx struct mapping by column name, so T's fields carry
// db struct tags matching the mapper's column names.
type Source[T any] struct {
	pool   *pgxpool.Pool
	mapper *datasource.Mapper[T]
	table  string
	newRec func() *T
	tracer trace.Tracer

	preds []model.Predicate
	order []model.SortRule
}

// New builds a Source for table using the given mapper. The factory may be
// nil, in which case New yields zero records.
func New[T any](pool *pgxpool.Pool, table string, mapper *datasource.Mapper[T], factory func() *T) *Source[T] {
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	return &Source[T]{
		pool:   pool,
		mapper: mapper,
		table:  table,
		newRec: factory,
		tracer: otel.Tracer("steward/pgds"),
	}
}

func (s *Source[T]) clone() *Source[T] {
	cp := *s
	cp.preds = append([]model.Predicate(nil), s.preds...)
	cp.order = append([]model.SortRule(nil), s.order...)
	return &cp
}

// column resolves a mapper field name to its SQL column.
func (s *Source[T]) column(field string) (string, error) {
	f, ok := s.mapper.Field(field)
	if !ok {
		return "", fmt.Errorf("pgds: unknown field %q on %s", field, s.table)
	}
	if f.Column != "" {
		return f.Column, nil
	}
	return f.Name, nil
}

func (s *Source[T]) columns() []string {
	fields := s.mapper.Fields()
	cols := make([]string, 0, len(fields))
	for _, f := range fields {
		col := f.Column
		if col == "" {
			col = f.Name
		}
		cols = append(cols, col)
	}
	return cols
}

func (s *Source[T]) pkColumn() string {
	f := s.mapper.PKField()
	if f.Column != "" {
		return f.Column
	}
	return f.Name
}

func (s *Source[T]) span(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "pgds."+op,
		trace.WithAttributes(attribute.String("db.sql.table", s.table)))
}

func (s *Source[T]) ListQuery() datasource.DataSource[T] { return s }

func (s *Source[T]) PK(record *T) string { return s.mapper.PKString(record) }

func (s *Source[T]) New() *T { return s.newRec() }

func (s *Source[T]) Search(term string, fields []string) datasource.DataSource[T] {
	pred, ok := datasource.SearchPredicate(term, fields)
	if !ok {
		return s
	}
	return s.Filter(pred)
}

func (s *Source[T]) Sort(rules []model.SortRule, sortable []string) datasource.DataSource[T] {
	allowed := make(map[string]bool, len(sortable))
	for _, f := range sortable {
		allowed[f] = true
	}
	cp := s.clone()
	cp.order = nil
	for _, rule := range rules {
		if allowed[rule.Field] {
			cp.order = append(cp.order, rule)
		}
	}
	return cp
}

func (s *Source[T]) Filter(pred model.Predicate) datasource.DataSource[T] {
	if pred == nil {
		return s
	}
	cp := s.clone()
	cp.preds = append(cp.preds, pred)
	return cp
}

func (s *Source[T]) Count(ctx context.Context) (int, error) {
	ctx, span := s.span(ctx, "count")
	defer span.End()

	where, args, err := buildWhere(s.preds, s.column)
	if err != nil {
		return 0, err
	}
	var n int
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", s.table, where)
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", s.table, err)
	}
	return n, nil
}

func (s *Source[T]) Get(ctx context.Context, pk string) (*T, error) {
	ctx, span := s.span(ctx, "get")
	defer span.End()

	typedPK, err := s.mapper.CastPK(pk)
	if err != nil {
		return nil, model.NotFoundError("record %q not found", pk)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		strings.Join(s.columns(), ", "), s.table, s.pkColumn())
	rows, err := s.pool.Query(ctx, query, typedPK)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.table, err)
	}
	record, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[T])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NotFoundError("record %q not found", pk)
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.table, err)
	}
	return record, nil
}

func (s *Source[T]) Paginate(ctx context.Context, page, pageSize int) (model.Page[*T], error) {
	ctx, span := s.span(ctx, "paginate")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	where, args, err := buildWhere(s.preds, s.column)
	if err != nil {
		return model.Page[*T]{}, err
	}

	var total int
	countQuery := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", s.table, where)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return model.Page[*T]{}, fmt.Errorf("count %s: %w", s.table, err)
	}

	orderBy, err := buildOrderBy(s.order, s.column)
	if err != nil {
		return model.Page[*T]{}, err
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(s.columns(), ", "), s.table, where)
	if orderBy != "" {
		query += " ORDER BY " + orderBy
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return model.Page[*T]{}, fmt.Errorf("select %s: %w", s.table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[T])
	if err != nil {
		return model.Page[*T]{}, fmt.Errorf("scan %s: %w", s.table, err)
	}

	return model.Page[*T]{Rows: records, TotalRows: total, Page: page, PageSize: pageSize}, nil
}

func (s *Source[T]) Create(ctx context.Context, record *T) error {
	ctx, span := s.span(ctx, "create")
	defer span.End()

	cols := s.columns()
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, f := range s.mapper.Fields() {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = f.Get(record)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return model.DuplicateError(err)
		}
		return fmt.Errorf("insert %s: %w", s.table, err)
	}
	return nil
}

func (s *Source[T]) Update(ctx context.Context, record *T) error {
	ctx, span := s.span(ctx, "update")
	defer span.End()

	var sets []string
	var args []any
	for _, f := range s.mapper.Fields() {
		if f.PrimaryKey {
			continue
		}
		col := f.Column
		if col == "" {
			col = f.Name
		}
		args = append(args, f.Get(record))
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	args = append(args, s.mapper.PKField().Get(record))

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		s.table, strings.Join(sets, ", "), s.pkColumn(), len(args))
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return model.DuplicateError(err)
		}
		return fmt.Errorf("update %s: %w", s.table, err)
	}
	if tag.RowsAffected() == 0 {
		return model.NotFoundError("record %q not found", s.mapper.PKString(record))
	}
	return nil
}

// Delete removes the given records inside one transaction; if any primary
// key is missing the transaction rolls back and nothing is deleted.
func (s *Source[T]) Delete(ctx context.Context, pks ...string) error {
	ctx, span := s.span(ctx, "delete")
	defer span.End()

	if len(pks) == 0 {
		return nil
	}
	typed := make([]any, 0, len(pks))
	for _, pk := range pks {
		v, err := s.mapper.CastPK(pk)
		if err != nil {
			return model.NotFoundError("record %q not found", pk)
		}
		typed = append(typed, v)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete %s: %w", s.table, err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf("DELETE FROM %s WHERE %s = ANY($1)", s.table, s.pkColumn())
	tag, err := tx.Exec(ctx, query, typed)
	if err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	if int(tag.RowsAffected()) != len(typed) {
		return model.NotFoundError("delete: %d of %d records not found",
			len(typed)-int(tag.RowsAffected()), len(typed))
	}
	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
