// Package filter provides the declarative list filters applied by index
// screens. Each filter owns a private query parameter namespace
// "{id}-{param}" and translates its parameters into a predicate; parse
// failures silently deactivate the filter instead of erroring the request.
package filter

import (
	"net/url"

	"github.com/veldtlabs/steward/model"
)

// Filter is one declarative list filter.
type Filter interface {
	// ID is the namespace prefix, unique within the owning screen.
	ID() string

	// Label is the human name shown on chips and the filter form.
	Label() string

	// ParamNames lists the fully-qualified query parameters the filter
	// reads. Used to clean push URLs.
	ParamNames() []string

	// IsActive reports whether the parameters are present and parseable.
	IsActive(values url.Values) bool

	// Predicate translates the parameters into a predicate. ok is false
	// when the filter is inactive.
	Predicate(values url.Values) (model.Predicate, bool)

	// Indicator renders the active state as a human-readable chip text.
	// ok is false when inactive.
	Indicator(values url.Values) (string, bool)
}

// param builds the namespaced parameter name.
func param(id, name string) string { return id + "-" + name }

// CleanQuery returns a copy of values with the parameters of inactive
// filters removed, for the history push URL.
func CleanQuery(values url.Values, filters []Filter) url.Values {
	drop := make(map[string]bool)
	for _, f := range filters {
		if !f.IsActive(values) {
			for _, p := range f.ParamNames() {
				drop[p] = true
			}
		}
	}
	out := make(url.Values, len(values))
	for k, vs := range values {
		if drop[k] {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// ResetURL returns the request path with every filter parameter removed,
// for the "clear filters" link.
func ResetURL(u *url.URL, filters []Filter) string {
	drop := make(map[string]bool)
	for _, f := range filters {
		for _, p := range f.ParamNames() {
			drop[p] = true
		}
	}
	values := u.Query()
	for k := range values {
		if drop[k] {
			values.Del(k)
		}
	}
	cp := *u
	cp.RawQuery = values.Encode()
	return cp.RequestURI()
}

// Indicator is the chip context for one active filter.
type Indicator struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Indicators collects the chip contexts of all active filters.
func Indicators(values url.Values, filters []Filter) []Indicator {
	var out []Indicator
	for _, f := range filters {
		if text, ok := f.Indicator(values); ok {
			out = append(out, Indicator{ID: f.ID(), Label: f.Label(), Value: text})
		}
	}
	return out
}

// Apply folds every active filter into the data source. Inactive filters
// are skipped; application order does not matter since predicates conjoin.
func Apply[D interface {
	Filter(model.Predicate) D
}](ds D, values url.Values, filters []Filter) D {
	for _, f := range filters {
		if pred, ok := f.Predicate(values); ok {
			ds = ds.Filter(pred)
		}
	}
	return ds
}
