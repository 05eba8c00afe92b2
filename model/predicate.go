package model

import "time"

// StringOp enumerates string comparison operations.
type StringOp string

const (
	StringExact      StringOp = "exact"
	StringStartsWith StringOp = "startswith"
	StringEndsWith   StringOp = "endswith"
	StringContains   StringOp = "contains"
	StringPattern    StringOp = "pattern"
)

// ParseStringOp validates a request-supplied operation name.
func ParseStringOp(s string) (StringOp, bool) {
	switch StringOp(s) {
	case StringExact, StringStartsWith, StringEndsWith, StringContains, StringPattern:
		return StringOp(s), true
	}
	return "", false
}

// NumberOp enumerates numeric comparison operations.
type NumberOp string

const (
	NumberEq  NumberOp = "eq"
	NumberGt  NumberOp = "gt"
	NumberGte NumberOp = "gte"
	NumberLt  NumberOp = "lt"
	NumberLte NumberOp = "lte"
)

// ParseNumberOp validates a request-supplied operation name.
func ParseNumberOp(s string) (NumberOp, bool) {
	switch NumberOp(s) {
	case NumberEq, NumberGt, NumberGte, NumberLt, NumberLte:
		return NumberOp(s), true
	}
	return "", false
}

// Predicate is a normalized filter node. Data sources accumulate predicates
// and fold them into their native query dialect at materialization time.
// The set of node types is closed.
type Predicate interface{ isPredicate() }

// StringPredicate matches a string field. Comparisons are case-insensitive
// unless CaseSensitive is set; the exact operation defaults to
// case-sensitive on every backend.
type StringPredicate struct {
	Field         string
	Op            StringOp
	Value         string
	CaseSensitive bool
}

// NumberPredicate compares a numeric field. Value may be an int64, float64,
// or a decimal string; backends coerce as needed.
type NumberPredicate struct {
	Field string
	Op    NumberOp
	Value any
}

// DatePredicate matches on the date component of a temporal field.
type DatePredicate struct {
	Field string
	Value time.Time
}

// DateRangePredicate bounds a temporal field. Either bound may be nil;
// both bounds are inclusive.
type DateRangePredicate struct {
	Field  string
	After  *time.Time
	Before *time.Time
}

// InPredicate matches a field against a set of typed values.
type InPredicate struct {
	Field  string
	Values []any
}

// BoolPredicate matches a boolean field.
type BoolPredicate struct {
	Field string
	Value bool
}

// OrPredicate is the disjunction of its children.
type OrPredicate struct{ Predicates []Predicate }

// AndPredicate is the conjunction of its children.
type AndPredicate struct{ Predicates []Predicate }

func (StringPredicate) isPredicate()    {}
func (NumberPredicate) isPredicate()    {}
func (DatePredicate) isPredicate()      {}
func (DateRangePredicate) isPredicate() {}
func (InPredicate) isPredicate()        {}
func (BoolPredicate) isPredicate()      {}
func (OrPredicate) isPredicate()        {}
func (AndPredicate) isPredicate()       {}
