package datasource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veldtlabs/steward/model"
)

// Kind classifies a mapped field for filtering, scanning, and primary key
// casting.
type Kind string

const (
	KindText     Kind = "text"
	KindInteger  Kind = "integer"
	KindFloat    Kind = "float"
	KindNumeric  Kind = "numeric"
	KindBool     Kind = "bool"
	KindDate     Kind = "date"
	KindDateTime Kind = "datetime"
	KindUUID     Kind = "uuid"
)

// Field is one entry of a record's field table: the name the framework
// addresses it by, its kind, and the typed accessors. Column overrides the
// SQL column name for relational backends and defaults to Name.
type Field[T any] struct {
	Name       string
	Column     string
	Kind       Kind
	PrimaryKey bool
	Get        func(*T) any
	Set        func(*T, any) error
}

// Mapper is the record accessor for T: a field table replacing the
// attribute-by-name access dynamic languages get for free. It is built
// once at resource declaration and is immutable afterwards.
type Mapper[T any] struct {
	fields []Field[T]
	index  map[string]int
	pk     int
}

// NewMapper validates the field table and locates the primary key. It
// fails fast on an empty table, duplicate names, missing accessors,
// composite primary keys, or a primary key kind with no string caster.
func NewMapper[T any](fields ...Field[T]) (*Mapper[T], error) {
	if len(fields) == 0 {
		return nil, model.NewConfigError("mapper", "field table is empty")
	}

	m := &Mapper[T]{fields: fields, index: make(map[string]int, len(fields)), pk: -1}
	for i, f := range fields {
		if f.Name == "" {
			return nil, model.NewConfigError("mapper", "field %d has no name", i)
		}
		if _, dup := m.index[f.Name]; dup {
			return nil, model.NewConfigError("mapper", "duplicate field %q", f.Name)
		}
		if f.Get == nil {
			return nil, model.NewConfigError("mapper", "field %q has no getter", f.Name)
		}
		m.index[f.Name] = i

		if !f.PrimaryKey {
			continue
		}
		if m.pk >= 0 {
			return nil, model.NewConfigError("mapper",
				"composite primary key (%q and %q); not supported", fields[m.pk].Name, f.Name)
		}
		switch f.Kind {
		case KindText, KindInteger, KindFloat, KindNumeric, KindUUID:
		default:
			return nil, model.NewConfigError("mapper",
				"primary key %q has kind %q; no string caster", f.Name, f.Kind)
		}
		m.pk = i
	}
	if m.pk < 0 {
		return nil, model.NewConfigError("mapper", "no primary key field declared")
	}
	return m, nil
}

// MustMapper is NewMapper for declaration sites where misconfiguration is
// fatal.
func MustMapper[T any](fields ...Field[T]) *Mapper[T] {
	m, err := NewMapper(fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// Fields returns the field table in declaration order.
func (m *Mapper[T]) Fields() []Field[T] { return m.fields }

// Field looks up a field by name.
func (m *Mapper[T]) Field(name string) (Field[T], bool) {
	i, ok := m.index[name]
	if !ok {
		return Field[T]{}, false
	}
	return m.fields[i], true
}

// Get reads a field value by name. ok is false for unknown fields.
func (m *Mapper[T]) Get(record *T, name string) (any, bool) {
	f, ok := m.Field(name)
	if !ok {
		return nil, false
	}
	return f.Get(record), true
}

// Set writes a field value by name. Unknown fields and fields without a
// setter are errors.
func (m *Mapper[T]) Set(record *T, name string, value any) error {
	f, ok := m.Field(name)
	if !ok {
		return fmt.Errorf("mapper: unknown field %q", name)
	}
	if f.Set == nil {
		return fmt.Errorf("mapper: field %q is read-only", name)
	}
	return f.Set(record, value)
}

// PKField returns the primary key field.
func (m *Mapper[T]) PKField() Field[T] { return m.fields[m.pk] }

// PKString returns the canonical string form of the record's primary key.
func (m *Mapper[T]) PKString(record *T) string {
	return canonicalString(m.fields[m.pk].Get(record))
}

// CastPK converts a primary key string back to the typed value expected by
// the backend, per the primary key's kind.
func (m *Mapper[T]) CastPK(s string) (any, error) {
	switch m.fields[m.pk].Kind {
	case KindText:
		return s, nil
	case KindInteger:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mapper: cast pk %q: %w", s, err)
		}
		return v, nil
	case KindFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("mapper: cast pk %q: %w", s, err)
		}
		return v, nil
	case KindNumeric:
		// Numerics travel as validated decimal strings to avoid float
		// precision loss; the SQL driver binds them as-is.
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("mapper: cast pk %q: %w", s, err)
		}
		return s, nil
	case KindUUID:
		v, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("mapper: cast pk %q: %w", s, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("mapper: primary key kind %q has no caster", m.fields[m.pk].Kind)
}

// canonicalString renders any supported field value in its canonical
// string form (the form PKString and indicators use).
func canonicalString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return t.Format(time.RFC3339)
	case uuid.UUID:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}
