package model

import "fmt"

// Sentinel errors raised by data sources. Implementations wrap backend
// failures into these so screens can map them to HTTP semantics without
// knowing the backend.
var (
	// ErrNotFound is returned when a lookup matched zero records but at
	// least one was expected.
	ErrNotFound = &DataSourceError{Code: "NOT_FOUND", Message: "object does not exist"}

	// ErrDuplicate is returned when an insert or update violates a
	// uniqueness constraint.
	ErrDuplicate = &DataSourceError{Code: "DUPLICATE", Message: "duplicate object"}
)

// DataSourceError is the error type shared by all data source backends.
type DataSourceError struct {
	Code    string
	Message string
	Cause   error
}

func (e *DataSourceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DataSourceError) Unwrap() error { return e.Cause }

// Is reports equality by code so wrapped instances still match the
// sentinels via errors.Is.
func (e *DataSourceError) Is(target error) bool {
	t, ok := target.(*DataSourceError)
	return ok && t.Code == e.Code
}

// NotFoundError returns an ErrNotFound-compatible error carrying detail
// about the missing object.
func NotFoundError(format string, args ...any) error {
	return &DataSourceError{Code: "NOT_FOUND", Message: fmt.Sprintf(format, args...)}
}

// DuplicateError returns an ErrDuplicate-compatible error wrapping the
// backend cause.
func DuplicateError(cause error) error {
	return &DataSourceError{Code: "DUPLICATE", Message: "duplicate object", Cause: cause}
}

// ConfigError describes a declaration-time misconfiguration: duplicate
// slugs, unsupported primary keys, missing required attributes. These are
// fatal and raised during startup, never per request.
type ConfigError struct {
	Component string
	Message   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("steward: %s: %s", e.Component, e.Message)
}

// NewConfigError creates a ConfigError for the named component.
func NewConfigError(component, format string, args ...any) *ConfigError {
	return &ConfigError{Component: component, Message: fmt.Sprintf(format, args...)}
}
