package model

import (
	"net/http"
	"net/url"
)

// SortDir is a sorting direction.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// SortRule pairs a field with a direction. Rule order is significant:
// earlier rules take precedence, ties resolve in declaration order.
type SortRule struct {
	Field string
	Dir   SortDir
}

// ParseOrdering converts repeated ordering query values into sort rules.
// A leading '-' denotes descending. Empty values are skipped; duplicate
// fields keep the first occurrence.
func ParseOrdering(values []string) []SortRule {
	var rules []SortRule
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		dir := SortAsc
		field := v
		if v[0] == '-' {
			dir = SortDesc
			field = v[1:]
		}
		if field == "" || seen[field] {
			continue
		}
		seen[field] = true
		rules = append(rules, SortRule{Field: field, Dir: dir})
	}
	return rules
}

// EncodeOrdering is the inverse of ParseOrdering.
func EncodeOrdering(rules []SortRule) []string {
	out := make([]string, 0, len(rules))
	for _, rule := range rules {
		if rule.Dir == SortDesc {
			out = append(out, "-"+rule.Field)
			continue
		}
		out = append(out, rule.Field)
	}
	return out
}

// SortControl describes the sorting state of one column so templates can
// render the header control.
type SortControl struct {
	Dir       SortDir // empty when the column is unsorted
	Index     int     // 1-based position among active rules, 0 when unsorted
	ShowIndex bool    // true when more than one rule is active
	URL       string  // toggled URL for this column
}

// SortingHelper inspects the ordering parameter of one request and
// produces per-column controls.
type SortingHelper struct {
	param  string
	url    *url.URL
	values []string
}

// NewSortingHelper creates a helper bound to the request's URL and the
// given ordering parameter name.
func NewSortingHelper(r *http.Request, param string) *SortingHelper {
	return &SortingHelper{
		param:  param,
		url:    r.URL,
		values: r.URL.Query()[param],
	}
}

// Control returns the sorting state and toggle URL for a field.
func (h *SortingHelper) Control(field string) SortControl {
	ctl := SortControl{URL: h.toggleURL(field), ShowIndex: len(h.values) > 1}
	for i, v := range h.values {
		switch v {
		case field:
			ctl.Dir = SortAsc
			ctl.Index = i + 1
		case "-" + field:
			ctl.Dir = SortDesc
			ctl.Index = i + 1
		}
	}
	return ctl
}

// toggleURL cycles a column through asc -> desc -> unsorted, keeping all
// other query parameters intact.
func (h *SortingHelper) toggleURL(field string) string {
	next := make([]string, 0, len(h.values)+1)
	found := false
	for _, v := range h.values {
		switch v {
		case field:
			next = append(next, "-"+field)
			found = true
		case "-" + field:
			found = true // removed
		default:
			next = append(next, v)
		}
	}
	if !found {
		next = append(next, field)
	}

	q := h.url.Query()
	q.Del(h.param)
	for _, v := range next {
		q.Add(h.param, v)
	}
	u := *h.url
	u.RawQuery = q.Encode()
	return u.String()
}
