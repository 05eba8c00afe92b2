package datasource

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/veldtlabs/steward/model"
)

// memoryStore owns the backing slice shared by every Memory handle derived
// from the same root. Handles never mutate rows in place; Create, Update,
// and Delete replace entries under the write lock.
type memoryStore[T any] struct {
	mu   sync.RWMutex
	rows []*T
}

// Memory is the in-memory DataSource used by tests and the demo app. Each
// filtering call clones the handle, so earlier handles keep seeing their
// own accumulated state.
type Memory[T any] struct {
	store  *memoryStore[T]
	mapper *Mapper[T]
	preds  []model.Predicate
	order  []model.SortRule
	newRec func() *T
}

// NewMemory builds a Memory source seeded with rows. The factory constructs
// empty records for create flows; when nil, New returns a zero value.
func NewMemory[T any](mapper *Mapper[T], factory func() *T, rows ...*T) *Memory[T] {
	if factory == nil {
		factory = func() *T { return new(T) }
	}
	store := &memoryStore[T]{rows: append([]*T(nil), rows...)}
	return &Memory[T]{store: store, mapper: mapper, newRec: factory}
}

func (m *Memory[T]) clone() *Memory[T] {
	cp := *m
	cp.preds = append([]model.Predicate(nil), m.preds...)
	cp.order = append([]model.SortRule(nil), m.order...)
	return &cp
}

// Mapper exposes the record accessor, mostly for screens that need field
// metadata.
func (m *Memory[T]) Mapper() *Mapper[T] { return m.mapper }

func (m *Memory[T]) ListQuery() DataSource[T] { return m }

func (m *Memory[T]) PK(record *T) string { return m.mapper.PKString(record) }

func (m *Memory[T]) New() *T { return m.newRec() }

func (m *Memory[T]) Search(term string, fields []string) DataSource[T] {
	pred, ok := SearchPredicate(term, fields)
	if !ok {
		return m
	}
	return m.Filter(pred)
}

func (m *Memory[T]) Sort(rules []model.SortRule, sortable []string) DataSource[T] {
	allowed := make(map[string]bool, len(sortable))
	for _, f := range sortable {
		allowed[f] = true
	}
	cp := m.clone()
	cp.order = nil
	for _, rule := range rules {
		if allowed[rule.Field] {
			cp.order = append(cp.order, rule)
		}
	}
	return cp
}

func (m *Memory[T]) Filter(pred model.Predicate) DataSource[T] {
	if pred == nil {
		return m
	}
	cp := m.clone()
	cp.preds = append(cp.preds, pred)
	return cp
}

func (m *Memory[T]) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	n := 0
	for _, row := range m.store.rows {
		if m.matches(row) {
			n++
		}
	}
	return n, nil
}

func (m *Memory[T]) Get(ctx context.Context, pk string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	for _, row := range m.store.rows {
		if m.mapper.PKString(row) == pk {
			return row, nil
		}
	}
	return nil, model.NotFoundError("record %q not found", pk)
}

func (m *Memory[T]) Paginate(ctx context.Context, page, pageSize int) (model.Page[*T], error) {
	if err := ctx.Err(); err != nil {
		return model.Page[*T]{}, err
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}

	m.store.mu.RLock()
	matched := make([]*T, 0, len(m.store.rows))
	for _, row := range m.store.rows {
		if m.matches(row) {
			matched = append(matched, row)
		}
	}
	m.store.mu.RUnlock()

	m.sortRows(matched)

	total := len(matched)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return model.Page[*T]{
		Rows:      matched[start:end],
		TotalRows: total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

func (m *Memory[T]) Create(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pk := m.mapper.PKString(record)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, row := range m.store.rows {
		if m.mapper.PKString(row) == pk {
			return model.DuplicateError(nil)
		}
	}
	m.store.rows = append(m.store.rows, record)
	return nil
}

func (m *Memory[T]) Update(ctx context.Context, record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pk := m.mapper.PKString(record)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for i, row := range m.store.rows {
		if m.mapper.PKString(row) == pk {
			m.store.rows[i] = record
			return nil
		}
	}
	return model.NotFoundError("record %q not found", pk)
}

// Delete removes all given records or none: it verifies every primary key
// exists before touching the slice.
func (m *Memory[T]) Delete(ctx context.Context, pks ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(pks) == 0 {
		return nil
	}
	want := make(map[string]bool, len(pks))
	for _, pk := range pks {
		want[pk] = true
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	found := 0
	for _, row := range m.store.rows {
		if want[m.mapper.PKString(row)] {
			found++
		}
	}
	if found != len(want) {
		return model.NotFoundError("delete: %d of %d records not found", len(want)-found, len(want))
	}
	kept := m.store.rows[:0]
	for _, row := range m.store.rows {
		if !want[m.mapper.PKString(row)] {
			kept = append(kept, row)
		}
	}
	m.store.rows = kept
	return nil
}

// matches evaluates the accumulated predicate conjunction against one row.
// Unknown fields never match, mirroring how a SQL backend would error out
// rather than silently pass.
func (m *Memory[T]) matches(row *T) bool {
	for _, pred := range m.preds {
		if !m.eval(row, pred) {
			return false
		}
	}
	return true
}

func (m *Memory[T]) eval(row *T, pred model.Predicate) bool {
	switch p := pred.(type) {
	case model.AndPredicate:
		for _, sub := range p.Predicates {
			if !m.eval(row, sub) {
				return false
			}
		}
		return true
	case model.OrPredicate:
		for _, sub := range p.Predicates {
			if m.eval(row, sub) {
				return true
			}
		}
		return false
	case model.StringPredicate:
		v, ok := m.Mapper().Get(row, p.Field)
		if !ok {
			return false
		}
		return evalString(canonicalString(v), p)
	case model.NumberPredicate:
		v, ok := m.Mapper().Get(row, p.Field)
		if !ok {
			return false
		}
		return evalNumber(v, p)
	case model.BoolPredicate:
		v, ok := m.Mapper().Get(row, p.Field)
		if !ok {
			return false
		}
		b, ok := v.(bool)
		return ok && b == p.Value
	case model.DatePredicate:
		t, ok := m.fieldTime(row, p.Field)
		if !ok {
			return false
		}
		return sameDate(t, p.Value)
	case model.DateRangePredicate:
		t, ok := m.fieldTime(row, p.Field)
		if !ok {
			return false
		}
		if p.After != nil && t.Before(*p.After) {
			return false
		}
		if p.Before != nil && t.After(*p.Before) {
			return false
		}
		return true
	case model.InPredicate:
		v, ok := m.Mapper().Get(row, p.Field)
		if !ok {
			return false
		}
		have := canonicalString(v)
		for _, want := range p.Values {
			if canonicalString(want) == have {
				return true
			}
		}
		return false
	}
	return false
}

func (m *Memory[T]) fieldTime(row *T, field string) (time.Time, bool) {
	v, ok := m.Mapper().Get(row, field)
	if !ok {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	}
	return time.Time{}, false
}

func evalString(have string, p model.StringPredicate) bool {
	want := p.Value
	if p.Op == model.StringPattern {
		expr := want
		if !p.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return false
		}
		return re.MatchString(have)
	}
	if !p.CaseSensitive {
		have = strings.ToLower(have)
		want = strings.ToLower(want)
	}
	switch p.Op {
	case model.StringExact:
		return have == want
	case model.StringStartsWith:
		return strings.HasPrefix(have, want)
	case model.StringEndsWith:
		return strings.HasSuffix(have, want)
	case model.StringContains:
		return strings.Contains(have, want)
	}
	return false
}

func evalNumber(have any, p model.NumberPredicate) bool {
	a, ok := toFloat(have)
	if !ok {
		return false
	}
	b, ok := toFloat(p.Value)
	if !ok {
		return false
	}
	switch p.Op {
	case model.NumberEq:
		return a == b
	case model.NumberGt:
		return a > b
	case model.NumberGte:
		return a >= b
	case model.NumberLt:
		return a < b
	case model.NumberLte:
		return a <= b
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	}
	return 0, false
}

// sameDate compares the date components in UTC, ignoring time of day.
func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// sortRows applies the accumulated rules with a stable sort so equal keys
// keep insertion order.
func (m *Memory[T]) sortRows(rows []*T) {
	if len(m.order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, rule := range m.order {
			vi, _ := m.Mapper().Get(rows[i], rule.Field)
			vj, _ := m.Mapper().Get(rows[j], rule.Field)
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if rule.Dir == model.SortDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			switch {
			case ta.Before(tb):
				return -1
			case ta.After(tb):
				return 1
			default:
				return 0
			}
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(canonicalString(a), canonicalString(b))
}
