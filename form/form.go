// Package form defines the form contract screens drive plus a minimal
// concrete implementation. The framework does not ship a widget catalog;
// it only needs binding, validation, and population so FormScreen can stay
// agnostic of how fields are rendered.
package form

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Form is what FormScreen works against. Implementations bind incoming
// request data or an existing record, validate on submit, and write the
// cleaned values back onto a record.
type Form interface {
	// Fields returns the declared fields in order, for rendering.
	Fields() []*Field

	// Field looks a field up by name.
	Field(name string) (*Field, bool)

	// BindRequest populates field values from submitted form data.
	BindRequest(r *http.Request) error

	// BindRecord populates field values from an existing record through
	// the accessor.
	BindRecord(get func(field string) (any, bool))

	// Validate runs parsing and validators; reports whether the form is
	// clean. Field errors accumulate on the fields.
	Validate(ctx context.Context) bool

	// Populate writes the cleaned values onto a record through the
	// accessor. Call only after Validate returned true.
	Populate(set func(field string, value any) error) error
}

// FieldKind selects the parser for a field.
type FieldKind string

const (
	Text     FieldKind = "text"
	TextArea FieldKind = "textarea"
	Integer  FieldKind = "integer"
	Float    FieldKind = "float"
	Checkbox FieldKind = "checkbox"
	Date     FieldKind = "date"
	DateTime FieldKind = "datetime"
	Select   FieldKind = "select"
	Hidden   FieldKind = "hidden"
)

// Choice is one option of a Select field.
type Choice struct {
	Value string
	Label string
}

// Validator checks a parsed value. A non-nil error becomes a field error.
type Validator func(value any) error

// Field is a single form input: declaration plus bound state.
type Field struct {
	Name       string
	Label      string
	Kind       FieldKind
	Required   bool
	Choices    []Choice
	Validators []Validator

	raw    string
	bound  bool
	value  any
	errors []string
}

// Value returns the parsed value after Validate, or the bound raw value
// before it.
func (f *Field) Value() any {
	if f.value != nil {
		return f.value
	}
	return f.raw
}

// Raw returns the submitted string, for re-rendering.
func (f *Field) Raw() string { return f.raw }

// SetValue sets the field value directly, bypassing parsing. Used when
// binding from a record.
func (f *Field) SetValue(v any) {
	f.value = v
	f.raw = valueString(v)
	f.bound = true
}

// SetChoices replaces the option set. Screens call this from InitForm when
// choices come from a DataSource.
func (f *Field) SetChoices(choices []Choice) { f.Choices = choices }

// Errors returns validation errors accumulated on the field.
func (f *Field) Errors() []string { return f.errors }

func (f *Field) addError(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

// parse converts the raw submitted string per kind. Reported errors are
// user-facing.
func (f *Field) parse() {
	f.value = nil
	raw := strings.TrimSpace(f.raw)

	if raw == "" {
		if f.Required && f.Kind != Checkbox {
			f.addError("%s is required", f.label())
		}
		if f.Kind == Checkbox {
			f.value = false
		}
		return
	}

	switch f.Kind {
	case Text, TextArea, Hidden:
		f.value = raw
	case Integer:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			f.addError("%s must be a whole number", f.label())
			return
		}
		f.value = v
	case Float:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			f.addError("%s must be a number", f.label())
			return
		}
		f.value = v
	case Checkbox:
		f.value = raw == "true" || raw == "on" || raw == "1"
	case Date:
		v, err := time.Parse("2006-01-02", raw)
		if err != nil {
			f.addError("%s must be a date (YYYY-MM-DD)", f.label())
			return
		}
		f.value = v
	case DateTime:
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			// Accept the datetime-local widget format as well.
			v, err = time.Parse("2006-01-02T15:04", raw)
		}
		if err != nil {
			f.addError("%s must be a datetime", f.label())
			return
		}
		f.value = v
	case Select:
		for _, c := range f.Choices {
			if c.Value == raw {
				f.value = raw
				return
			}
		}
		f.addError("%s is not a valid choice", f.label())
	default:
		f.value = raw
	}
}

func (f *Field) label() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Base is the concrete Form used by the demo and the tests. Declared once
// per request; forms are not safe for reuse across requests.
type Base struct {
	fields []*Field
	index  map[string]*Field
}

// New builds a form from field declarations.
func New(fields ...*Field) *Base {
	b := &Base{fields: fields, index: make(map[string]*Field, len(fields))}
	for _, f := range fields {
		b.index[f.Name] = f
	}
	return b
}

func (b *Base) Fields() []*Field { return b.fields }

func (b *Base) Field(name string) (*Field, bool) {
	f, ok := b.index[name]
	return f, ok
}

func (b *Base) BindRequest(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("form: parse request: %w", err)
	}
	for _, f := range b.fields {
		if vs, ok := r.PostForm[f.Name]; ok && len(vs) > 0 {
			f.raw = vs[0]
		} else {
			f.raw = ""
		}
		f.bound = true
		f.value = nil
		f.errors = nil
	}
	return nil
}

func (b *Base) BindRecord(get func(field string) (any, bool)) {
	for _, f := range b.fields {
		if v, ok := get(f.Name); ok {
			f.SetValue(v)
		}
	}
}

func (b *Base) Validate(ctx context.Context) bool {
	clean := true
	for _, f := range b.fields {
		f.errors = nil
		f.parse()
		if len(f.errors) > 0 {
			clean = false
			continue
		}
		if f.value == nil {
			continue
		}
		for _, validate := range f.Validators {
			if err := ctx.Err(); err != nil {
				return false
			}
			if err := validate(f.value); err != nil {
				f.addError("%s", err.Error())
				clean = false
			}
		}
	}
	return clean
}

func (b *Base) Populate(set func(field string, value any) error) error {
	for _, f := range b.fields {
		if !f.bound || f.value == nil {
			continue
		}
		if err := set(f.Name, f.value); err != nil {
			return fmt.Errorf("form: populate %s: %w", f.Name, err)
		}
	}
	return nil
}

// FieldErrors collects per-field errors for the render context.
func FieldErrors(f Form) map[string][]string {
	out := make(map[string][]string)
	for _, field := range f.Fields() {
		if len(field.Errors()) > 0 {
			out[field.Name] = field.Errors()
		}
	}
	return out
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(time.RFC3339)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// MinLength validates a minimum string length.
func MinLength(n int) Validator {
	return func(v any) error {
		s, ok := v.(string)
		if ok && len(s) < n {
			return fmt.Errorf("must be at least %d characters", n)
		}
		return nil
	}
}

// MaxLength validates a maximum string length.
func MaxLength(n int) Validator {
	return func(v any) error {
		s, ok := v.(string)
		if ok && len(s) > n {
			return fmt.Errorf("must be at most %d characters", n)
		}
		return nil
	}
}
