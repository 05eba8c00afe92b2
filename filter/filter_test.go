package filter

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/steward/model"
)

func TestStringFilter(t *testing.T) {
	f := &String{Ident: "title", Field: "title", LabelText: "Title"}

	t.Run("defaults to contains", func(t *testing.T) {
		values := url.Values{"title-query": {"go"}}
		require.True(t, f.IsActive(values))
		pred, ok := f.Predicate(values)
		require.True(t, ok)
		assert.Equal(t, model.StringPredicate{Field: "title", Op: model.StringContains, Value: "go"}, pred)
	})

	t.Run("exact is case-sensitive", func(t *testing.T) {
		values := url.Values{"title-query": {"Go"}, "title-operation": {"exact"}}
		pred, ok := f.Predicate(values)
		require.True(t, ok)
		assert.Equal(t, model.StringPredicate{Field: "title", Op: model.StringExact, Value: "Go", CaseSensitive: true}, pred)
	})

	t.Run("empty query deactivates", func(t *testing.T) {
		assert.False(t, f.IsActive(url.Values{"title-operation": {"exact"}}))
	})

	t.Run("unknown operation deactivates", func(t *testing.T) {
		values := url.Values{"title-query": {"go"}, "title-operation": {"sounds-like"}}
		assert.False(t, f.IsActive(values))
		_, ok := f.Predicate(values)
		assert.False(t, ok)
	})

	t.Run("indicator", func(t *testing.T) {
		text, ok := f.Indicator(url.Values{"title-query": {"go"}})
		require.True(t, ok)
		assert.Equal(t, `contains "go"`, text)
	})
}

func TestNumberFilter(t *testing.T) {
	tests := []struct {
		name     string
		kind     NumberKind
		query    string
		op       string
		want     model.Predicate
		inactive bool
	}{
		{name: "integer defaults to eq", kind: IntegerKind, query: "42",
			want: model.NumberPredicate{Field: "views", Op: model.NumberEq, Value: int64(42)}},
		{name: "float with gte", kind: FloatKind, query: "4.5", op: "gte",
			want: model.NumberPredicate{Field: "views", Op: model.NumberGte, Value: 4.5}},
		{name: "decimal keeps the string", kind: DecimalKind, query: "19.99", op: "lt",
			want: model.NumberPredicate{Field: "views", Op: model.NumberLt, Value: "19.99"}},
		{name: "unparseable deactivates", kind: IntegerKind, query: "many", inactive: true},
		{name: "bad operation deactivates", kind: IntegerKind, query: "42", op: "near", inactive: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := &Number{Ident: "views", Field: "views", LabelText: "Views", Kind: tc.kind}
			values := url.Values{"views-query": {tc.query}}
			if tc.op != "" {
				values.Set("views-operation", tc.op)
			}
			pred, ok := f.Predicate(values)
			if tc.inactive {
				assert.False(t, ok)
				assert.False(t, f.IsActive(values))
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.want, pred)
		})
	}
}

func TestDateFilters(t *testing.T) {
	t.Run("date", func(t *testing.T) {
		f := &Date{Ident: "created", Field: "created_at", LabelText: "Created"}
		pred, ok := f.Predicate(url.Values{"created-query": {"2026-03-05"}})
		require.True(t, ok)
		dp := pred.(model.DatePredicate)
		assert.Equal(t, "created_at", dp.Field)
		assert.Equal(t, 2026, dp.Value.Year())

		_, ok = f.Predicate(url.Values{"created-query": {"03/05/2026"}})
		assert.False(t, ok, "parse failure deactivates silently")
	})

	t.Run("range with one bound", func(t *testing.T) {
		f := &DateRange{Ident: "created", Field: "created_at", LabelText: "Created"}
		pred, ok := f.Predicate(url.Values{"created-after": {"2026-01-01"}})
		require.True(t, ok)
		rp := pred.(model.DateRangePredicate)
		require.NotNil(t, rp.After)
		assert.Nil(t, rp.Before)

		text, ok := f.Indicator(url.Values{"created-after": {"2026-01-01"}})
		require.True(t, ok)
		assert.Equal(t, "after 2026-01-01", text)
	})

	t.Run("range with a bad bound deactivates wholly", func(t *testing.T) {
		f := &DateRange{Ident: "created", Field: "created_at"}
		_, ok := f.Predicate(url.Values{
			"created-after":  {"2026-01-01"},
			"created-before": {"soon"},
		})
		assert.False(t, ok)
	})
}

func TestChoiceFilter(t *testing.T) {
	f := &Choice{
		Ident: "status", Field: "status", LabelText: "Status",
		Choices: map[string]string{"draft": "Draft", "published": "Published"},
	}

	t.Run("single keeps first value only", func(t *testing.T) {
		pred, ok := f.Predicate(url.Values{"status-choice": {"draft", "published"}})
		require.True(t, ok)
		assert.Equal(t, model.InPredicate{Field: "status", Values: []any{"draft"}}, pred)
	})

	t.Run("value outside set deactivates", func(t *testing.T) {
		_, ok := f.Predicate(url.Values{"status-choice": {"archived"}})
		assert.False(t, ok)
	})

	t.Run("multi choice subset", func(t *testing.T) {
		multi := &Choice{Ident: "status", Field: "status", LabelText: "Status", Multiple: true,
			Choices: map[string]string{"draft": "Draft", "published": "Published"}}
		pred, ok := multi.Predicate(url.Values{"status-choice": {"draft", "archived", "published"}})
		require.True(t, ok)
		assert.Equal(t, model.InPredicate{Field: "status", Values: []any{"draft", "published"}}, pred)

		text, ok := multi.Indicator(url.Values{"status-choice": {"draft", "published"}})
		require.True(t, ok)
		assert.Equal(t, "Draft, Published", text)
	})

	t.Run("coercion", func(t *testing.T) {
		typed := &Choice{Ident: "level", Field: "level", Multiple: true,
			Choices: map[string]string{"1": "One", "2": "Two"},
			Coerce: func(s string) (any, bool) {
				if s == "1" {
					return int64(1), true
				}
				return nil, false
			}}
		pred, ok := typed.Predicate(url.Values{"level-choice": {"1", "2"}})
		require.True(t, ok)
		assert.Equal(t, model.InPredicate{Field: "level", Values: []any{int64(1)}}, pred)
	})
}

func TestBooleanFilter(t *testing.T) {
	f := &Boolean{Ident: "published", Field: "published", LabelText: "Published"}

	pred, ok := f.Predicate(url.Values{"published-value": {"false"}})
	require.True(t, ok)
	assert.Equal(t, model.BoolPredicate{Field: "published", Value: false}, pred)

	_, ok = f.Predicate(url.Values{"published-value": {"maybe"}})
	assert.False(t, ok)

	text, ok := f.Indicator(url.Values{"published-value": {"true"}})
	require.True(t, ok)
	assert.Equal(t, "yes", text)
}

func TestSearchFilter(t *testing.T) {
	f := &Search{Fields: []string{"title", "author"}}

	pred, ok := f.Predicate(url.Values{"search": {"^go"}})
	require.True(t, ok)
	or, isOr := pred.(model.OrPredicate)
	require.True(t, isOr)
	assert.Len(t, or.Predicates, 2)

	_, ok = f.Predicate(url.Values{"search": {"   "}})
	assert.False(t, ok)
}

func TestOrderingFilter(t *testing.T) {
	f := &Ordering{Sortable: []string{"title", "views"}}
	rules := f.Rules(url.Values{"ordering": {"-views", "title", "secret"}})
	assert.Equal(t, []model.SortRule{
		{Field: "views", Dir: model.SortDesc},
		{Field: "title", Dir: model.SortAsc},
	}, rules)
}

func TestCleanQueryAndIndicators(t *testing.T) {
	filters := []Filter{
		&String{Ident: "title", Field: "title", LabelText: "Title"},
		&Boolean{Ident: "published", Field: "published", LabelText: "Published"},
	}
	values := url.Values{
		"title-query":     {"go"},
		"published-value": {"maybe"}, // unparseable, inactive
		"page":            {"2"},
	}

	cleaned := CleanQuery(values, filters)
	assert.Equal(t, "go", cleaned.Get("title-query"))
	assert.NotContains(t, cleaned, "published-value", "inactive filter params stripped")
	assert.Equal(t, "2", cleaned.Get("page"), "non-filter params survive")

	chips := Indicators(values, filters)
	require.Len(t, chips, 1)
	assert.Equal(t, "title", chips[0].ID)
	assert.Equal(t, "Title", chips[0].Label)

	u := &url.URL{Path: "/admin/resources/posts/", RawQuery: values.Encode()}
	reset := ResetURL(u, filters)
	assert.Contains(t, reset, "page=2")
	assert.NotContains(t, reset, "title-query")
}
