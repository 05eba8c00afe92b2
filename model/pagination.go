package model

import (
	"net/http"
	"strconv"
)

// Page is one page of rows plus the total row count computed against the
// same filter chain. Empty pages are valid.
type Page[T any] struct {
	Rows      []T
	TotalRows int
	Page      int
	PageSize  int
}

// TotalPages returns the number of pages needed for TotalRows.
func (p Page[T]) TotalPages() int {
	if p.PageSize <= 0 || p.TotalRows == 0 {
		return 0
	}
	return (p.TotalRows + p.PageSize - 1) / p.PageSize
}

// HasNext reports whether a following page exists.
func (p Page[T]) HasNext() bool { return p.Page < p.TotalPages() }

// HasPrevious reports whether a preceding page exists.
func (p Page[T]) HasPrevious() bool { return p.Page > 1 }

// StartIndex is the 1-based index of the first row on this page, 0 when
// the page is empty.
func (p Page[T]) StartIndex() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return (p.Page-1)*p.PageSize + 1
}

// EndIndex is the 1-based index of the last row on this page.
func (p Page[T]) EndIndex() int {
	if len(p.Rows) == 0 {
		return 0
	}
	return p.StartIndex() + len(p.Rows) - 1
}

// PageParam reads a 1-based page number from the request, defaulting to 1.
// Malformed or non-positive values fall back to 1.
func PageParam(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 1 {
		return 1
	}
	return v
}

// PageSizeParam reads the page size and clamps it to the allowed set.
// Values outside the set snap to the nearest allowed size not exceeding
// the request; unparseable values use the default.
func PageSizeParam(r *http.Request, name string, allowed []int, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 || len(allowed) == 0 {
		return def
	}
	for _, size := range allowed {
		if v == size {
			return v
		}
	}
	// Snap down to the largest allowed size <= requested, else the smallest.
	best := 0
	for _, size := range allowed {
		if size <= v && size > best {
			best = size
		}
	}
	if best == 0 {
		best = allowed[0]
		for _, size := range allowed {
			if size < best {
				best = size
			}
		}
	}
	return best
}
