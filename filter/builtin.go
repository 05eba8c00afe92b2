package filter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/model"
)

// String filters a text field with a selectable operation. Parameters:
// {id}-query and {id}-operation (defaults to contains).
type String struct {
	Ident     string
	Field     string
	LabelText string
}

func (f *String) ID() string    { return f.Ident }
func (f *String) Label() string { return f.LabelText }
func (f *String) ParamNames() []string {
	return []string{param(f.Ident, "query"), param(f.Ident, "operation")}
}

func (f *String) parse(values url.Values) (model.StringPredicate, bool) {
	query := values.Get(param(f.Ident, "query"))
	if query == "" {
		return model.StringPredicate{}, false
	}
	op := model.StringContains
	if raw := values.Get(param(f.Ident, "operation")); raw != "" {
		parsed, ok := model.ParseStringOp(raw)
		if !ok {
			return model.StringPredicate{}, false
		}
		op = parsed
	}
	return model.StringPredicate{
		Field:         f.Field,
		Op:            op,
		Value:         query,
		CaseSensitive: op == model.StringExact,
	}, true
}

func (f *String) IsActive(values url.Values) bool {
	_, ok := f.parse(values)
	return ok
}

func (f *String) Predicate(values url.Values) (model.Predicate, bool) {
	pred, ok := f.parse(values)
	if !ok {
		return nil, false
	}
	return pred, true
}

func (f *String) Indicator(values url.Values) (string, bool) {
	pred, ok := f.parse(values)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s %q", string(pred.Op), pred.Value), true
}

// Number filters a numeric field. Kind selects the parse: integer, float,
// or decimal (validated string, kept verbatim for exact SQL numerics).
// Parameters: {id}-query and {id}-operation (defaults to eq).
type Number struct {
	Ident     string
	Field     string
	LabelText string
	Kind      NumberKind
}

// NumberKind selects the numeric parser of a Number filter.
type NumberKind string

const (
	IntegerKind NumberKind = "integer"
	FloatKind   NumberKind = "float"
	DecimalKind NumberKind = "decimal"
)

func (f *Number) ID() string    { return f.Ident }
func (f *Number) Label() string { return f.LabelText }
func (f *Number) ParamNames() []string {
	return []string{param(f.Ident, "query"), param(f.Ident, "operation")}
}

func (f *Number) parse(values url.Values) (model.NumberPredicate, bool) {
	raw := values.Get(param(f.Ident, "query"))
	if raw == "" {
		return model.NumberPredicate{}, false
	}

	var value any
	switch f.Kind {
	case FloatKind:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.NumberPredicate{}, false
		}
		value = v
	case DecimalKind:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return model.NumberPredicate{}, false
		}
		value = raw
	default:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.NumberPredicate{}, false
		}
		value = v
	}

	op := model.NumberEq
	if rawOp := values.Get(param(f.Ident, "operation")); rawOp != "" {
		parsed, ok := model.ParseNumberOp(rawOp)
		if !ok {
			return model.NumberPredicate{}, false
		}
		op = parsed
	}
	return model.NumberPredicate{Field: f.Field, Op: op, Value: value}, true
}

func (f *Number) IsActive(values url.Values) bool {
	_, ok := f.parse(values)
	return ok
}

func (f *Number) Predicate(values url.Values) (model.Predicate, bool) {
	pred, ok := f.parse(values)
	if !ok {
		return nil, false
	}
	return pred, true
}

func (f *Number) Indicator(values url.Values) (string, bool) {
	pred, ok := f.parse(values)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s %v", string(pred.Op), pred.Value), true
}

// Date filters on the date component of a temporal field. Parameter:
// {id}-query as an ISO date.
type Date struct {
	Ident     string
	Field     string
	LabelText string
}

func (f *Date) ID() string           { return f.Ident }
func (f *Date) Label() string        { return f.LabelText }
func (f *Date) ParamNames() []string { return []string{param(f.Ident, "query")} }

func (f *Date) parse(values url.Values) (time.Time, bool) {
	raw := values.Get(param(f.Ident, "query"))
	if raw == "" {
		return time.Time{}, false
	}
	v, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return v, true
}

func (f *Date) IsActive(values url.Values) bool {
	_, ok := f.parse(values)
	return ok
}

func (f *Date) Predicate(values url.Values) (model.Predicate, bool) {
	v, ok := f.parse(values)
	if !ok {
		return nil, false
	}
	return model.DatePredicate{Field: f.Field, Value: v}, true
}

func (f *Date) Indicator(values url.Values) (string, bool) {
	v, ok := f.parse(values)
	if !ok {
		return "", false
	}
	return v.Format("2006-01-02"), true
}

// DateRange bounds a temporal field inclusively. Parameters: {id}-after
// and {id}-before, either or both.
type DateRange struct {
	Ident     string
	Field     string
	LabelText string
}

func (f *DateRange) ID() string    { return f.Ident }
func (f *DateRange) Label() string { return f.LabelText }
func (f *DateRange) ParamNames() []string {
	return []string{param(f.Ident, "after"), param(f.Ident, "before")}
}

func (f *DateRange) parse(values url.Values) (after, before *time.Time, ok bool) {
	bound := func(name string) (*time.Time, bool) {
		raw := values.Get(param(f.Ident, name))
		if raw == "" {
			return nil, true
		}
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, false
		}
		return &v, true
	}
	after, okA := bound("after")
	before, okB := bound("before")
	if !okA || !okB || (after == nil && before == nil) {
		return nil, nil, false
	}
	return after, before, true
}

func (f *DateRange) IsActive(values url.Values) bool {
	_, _, ok := f.parse(values)
	return ok
}

func (f *DateRange) Predicate(values url.Values) (model.Predicate, bool) {
	after, before, ok := f.parse(values)
	if !ok {
		return nil, false
	}
	return model.DateRangePredicate{Field: f.Field, After: after, Before: before}, true
}

func (f *DateRange) Indicator(values url.Values) (string, bool) {
	after, before, ok := f.parse(values)
	if !ok {
		return "", false
	}
	switch {
	case after != nil && before != nil:
		return fmt.Sprintf("%s to %s", after.Format("2006-01-02"), before.Format("2006-01-02")), true
	case after != nil:
		return "after " + after.Format("2006-01-02"), true
	default:
		return "before " + before.Format("2006-01-02"), true
	}
}

// Choice matches one value out of a declared set. Parameter: {id}-choice;
// values outside the set deactivate the filter. Coerce maps the raw string
// to the backend's value type and may be nil for plain strings.
type Choice struct {
	Ident     string
	Field     string
	LabelText string
	Choices   map[string]string // value -> display label
	Multiple  bool
	Coerce    func(string) (any, bool)
}

func (f *Choice) ID() string           { return f.Ident }
func (f *Choice) Label() string        { return f.LabelText }
func (f *Choice) ParamNames() []string { return []string{param(f.Ident, "choice")} }

func (f *Choice) selected(values url.Values) []string {
	raw := values[param(f.Ident, "choice")]
	if !f.Multiple && len(raw) > 1 {
		raw = raw[:1]
	}
	var out []string
	for _, v := range raw {
		if _, ok := f.Choices[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

func (f *Choice) IsActive(values url.Values) bool {
	return len(f.selected(values)) > 0
}

func (f *Choice) Predicate(values url.Values) (model.Predicate, bool) {
	selected := f.selected(values)
	if len(selected) == 0 {
		return nil, false
	}
	typed := make([]any, 0, len(selected))
	for _, v := range selected {
		if f.Coerce == nil {
			typed = append(typed, v)
			continue
		}
		if tv, ok := f.Coerce(v); ok {
			typed = append(typed, tv)
		}
	}
	if len(typed) == 0 {
		return nil, false
	}
	return model.InPredicate{Field: f.Field, Values: typed}, true
}

func (f *Choice) Indicator(values url.Values) (string, bool) {
	selected := f.selected(values)
	if len(selected) == 0 {
		return "", false
	}
	labels := make([]string, 0, len(selected))
	for _, v := range selected {
		labels = append(labels, f.Choices[v])
	}
	return strings.Join(labels, ", "), true
}

// Boolean filters a flag field. Parameter: {id}-value in {true, false}.
type Boolean struct {
	Ident     string
	Field     string
	LabelText string
}

func (f *Boolean) ID() string           { return f.Ident }
func (f *Boolean) Label() string        { return f.LabelText }
func (f *Boolean) ParamNames() []string { return []string{param(f.Ident, "value")} }

func (f *Boolean) parse(values url.Values) (bool, bool) {
	switch values.Get(param(f.Ident, "value")) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func (f *Boolean) IsActive(values url.Values) bool {
	_, ok := f.parse(values)
	return ok
}

func (f *Boolean) Predicate(values url.Values) (model.Predicate, bool) {
	v, ok := f.parse(values)
	if !ok {
		return nil, false
	}
	return model.BoolPredicate{Field: f.Field, Value: v}, true
}

func (f *Boolean) Indicator(values url.Values) (string, bool) {
	v, ok := f.parse(values)
	if !ok {
		return "", false
	}
	if v {
		return "yes", true
	}
	return "no", true
}

// Search is the namespace-less built-in reading the top-level "search"
// parameter and applying it across the declared searchable fields with the
// prefix conventions.
type Search struct {
	Fields []string
	Param  string // defaults to "search"
}

func (f *Search) paramName() string {
	if f.Param != "" {
		return f.Param
	}
	return "search"
}

func (f *Search) ID() string           { return f.paramName() }
func (f *Search) Label() string        { return "Search" }
func (f *Search) ParamNames() []string { return []string{f.paramName()} }

func (f *Search) Term(values url.Values) string {
	return strings.TrimSpace(values.Get(f.paramName()))
}

func (f *Search) IsActive(values url.Values) bool {
	return f.Term(values) != "" && len(f.Fields) > 0
}

func (f *Search) Predicate(values url.Values) (model.Predicate, bool) {
	if !f.IsActive(values) {
		return nil, false
	}
	return datasource.SearchPredicate(f.Term(values), f.Fields)
}

func (f *Search) Indicator(values url.Values) (string, bool) {
	if !f.IsActive(values) {
		return "", false
	}
	return fmt.Sprintf("%q", f.Term(values)), true
}

// Ordering is the namespace-less built-in reading the repeated top-level
// "ordering" parameter ("-" prefix for descending). It is not a predicate;
// index screens apply it through DataSource.Sort after all filters.
type Ordering struct {
	Sortable []string
	Param    string // defaults to "ordering"
}

func (f *Ordering) paramName() string {
	if f.Param != "" {
		return f.Param
	}
	return "ordering"
}

func (f *Ordering) ParamNames() []string { return []string{f.paramName()} }

// Rules parses the request ordering, restricted to the sortable set.
func (f *Ordering) Rules(values url.Values) []model.SortRule {
	allowed := make(map[string]bool, len(f.Sortable))
	for _, s := range f.Sortable {
		allowed[s] = true
	}
	var out []model.SortRule
	for _, rule := range model.ParseOrdering(values[f.paramName()]) {
		if allowed[rule.Field] {
			out = append(out, rule)
		}
	}
	return out
}
