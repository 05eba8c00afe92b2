// Package datasource defines the backend-agnostic query and CRUD contract
// that resources are built on, plus the in-memory reference implementation.
//
// A DataSource is an immutable, chainable query handle: every filter
// operation returns a new value with the accumulated state extended and
// leaves the receiver untouched. Backends fold the accumulated predicate
// nodes into their native dialect when the query materializes (Count, Get,
// Paginate) or mutates (Create, Update, Delete).
package datasource

import (
	"context"
	"strings"
	"time"

	"github.com/veldtlabs/steward/model"
)

// DataSource is the query and CRUD contract over a record type T.
//
// All Apply-style operations (Search, Sort, Filter) are pure with respect
// to the receiver. Mutation is confined to Create, Update, and Delete,
// each committed atomically per call.
type DataSource[T any] interface {
	// ListQuery returns the variant optimized for listing. Backends that
	// join differently for lists override this; the default is the
	// receiver itself.
	ListQuery() DataSource[T]

	// PK returns the canonical string form of the record's primary key.
	PK(record *T) string

	// New constructs an empty record for create flows.
	New() *T

	// Search applies the search term disjunctively across fields. Term
	// prefixes alter semantics: ^ starts-with, $ ends-with, = exact
	// (case-sensitive), @ regex; otherwise case-insensitive contains.
	// An empty term is a no-op.
	Search(term string, fields []string) DataSource[T]

	// Sort resets prior ordering and applies the rules whose field is in
	// sortable, preserving rule order. Unknown fields are ignored.
	Sort(rules []model.SortRule, sortable []string) DataSource[T]

	// Filter conjoins a predicate with the accumulated state.
	Filter(pred model.Predicate) DataSource[T]

	// Count returns the number of rows matching the accumulated state.
	Count(ctx context.Context) (int, error)

	// Get fetches one record by primary key string. Returns an error
	// matching model.ErrNotFound when absent.
	Get(ctx context.Context, pk string) (*T, error)

	// Paginate returns one page of rows plus the total count computed
	// against the same filter chain. Offset is (page-1)*pageSize.
	Paginate(ctx context.Context, page, pageSize int) (model.Page[*T], error)

	// Create inserts the record. Returns an error matching
	// model.ErrDuplicate on uniqueness violations.
	Create(ctx context.Context, record *T) error

	// Update persists changes to an existing record.
	Update(ctx context.Context, record *T) error

	// Delete removes the records with the given primary keys,
	// all-or-nothing within the backend's transactional capability.
	Delete(ctx context.Context, pks ...string) error
}

// Typed filter appliers. These are thin constructors over Filter so
// declarative filters and handlers share one predicate vocabulary. All are
// conjunctive with prior state.

// ApplyStringFilter conjoins a string comparison. Comparisons are
// case-insensitive except exact, which stays case-sensitive.
func ApplyStringFilter[T any](ds DataSource[T], field string, op model.StringOp, value string) DataSource[T] {
	return ds.Filter(model.StringPredicate{
		Field:         field,
		Op:            op,
		Value:         value,
		CaseSensitive: op == model.StringExact,
	})
}

// ApplyNumberFilter conjoins a numeric comparison.
func ApplyNumberFilter[T any](ds DataSource[T], field string, op model.NumberOp, value any) DataSource[T] {
	return ds.Filter(model.NumberPredicate{Field: field, Op: op, Value: value})
}

// ApplyDateFilter conjoins equality on the date component of a field.
func ApplyDateFilter[T any](ds DataSource[T], field string, value time.Time) DataSource[T] {
	return ds.Filter(model.DatePredicate{Field: field, Value: value})
}

// ApplyDateRangeFilter conjoins an inclusive date range; either bound may
// be nil.
func ApplyDateRangeFilter[T any](ds DataSource[T], field string, after, before *time.Time) DataSource[T] {
	return ds.Filter(model.DateRangePredicate{Field: field, After: after, Before: before})
}

// ApplyChoiceFilter conjoins set membership. Coerce maps raw request
// strings to typed values; values it rejects are dropped. When nothing
// survives coercion the receiver is returned unchanged.
func ApplyChoiceFilter[T any](ds DataSource[T], field string, values []string, coerce func(string) (any, bool)) DataSource[T] {
	typed := make([]any, 0, len(values))
	for _, v := range values {
		if coerce == nil {
			typed = append(typed, v)
			continue
		}
		if tv, ok := coerce(v); ok {
			typed = append(typed, tv)
		}
	}
	if len(typed) == 0 {
		return ds
	}
	return ds.Filter(model.InPredicate{Field: field, Values: typed})
}

// ApplyBooleanFilter conjoins a boolean equality.
func ApplyBooleanFilter[T any](ds DataSource[T], field string, value bool) DataSource[T] {
	return ds.Filter(model.BoolPredicate{Field: field, Value: value})
}

// SearchPredicate translates a search term into a disjunctive predicate
// over the given fields, honoring the prefix conventions. ok is false for
// an empty term or empty field list.
func SearchPredicate(term string, fields []string) (model.Predicate, bool) {
	if term == "" || len(fields) == 0 {
		return nil, false
	}

	op := model.StringContains
	caseSensitive := false
	switch {
	case strings.HasPrefix(term, "^"):
		op = model.StringStartsWith
		term = term[1:]
	case strings.HasPrefix(term, "$"):
		op = model.StringEndsWith
		term = term[1:]
	case strings.HasPrefix(term, "="):
		// Exact search is case-sensitive on every backend.
		op = model.StringExact
		caseSensitive = true
		term = term[1:]
	case strings.HasPrefix(term, "@"):
		op = model.StringPattern
		term = term[1:]
	}
	if term == "" {
		return nil, false
	}

	preds := make([]model.Predicate, 0, len(fields))
	for _, field := range fields {
		preds = append(preds, model.StringPredicate{
			Field:         field,
			Op:            op,
			Value:         term,
			CaseSensitive: caseSensitive,
		})
	}
	return model.OrPredicate{Predicates: preds}, true
}
