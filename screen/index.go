package screen

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/filter"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
)

// DatatableTarget is the element id whose htmx requests get the partial
// (table-only) render.
const DatatableTarget = "datatable"

var defaultPageSizes = []int{10, 25, 50, 100}

// IndexScreen lists records: pagination, search, ordering, user filters,
// and the datatable partial protocol.
type IndexScreen[T any] struct {
	SlugName  string
	LabelText string
	Route     string // defaults to model.ScreenRouteName(slug)

	Source     datasource.DataSource[T]
	Searchable []string
	Sortable   []string
	Filters    []filter.Filter

	PageSizes       []int // allowed page sizes, defaults to 10/25/50/100
	DefaultPageSize int   // defaults to the first allowed size

	PageActions   []*action.Action
	ObjectActions []*action.Action
	BatchActions  []*action.Action
	Metrics       []metric.Metric

	// Columns drives the table header render; defaults to Sortable.
	Columns []string
}

func (s *IndexScreen[T]) Slug() string  { return s.SlugName }
func (s *IndexScreen[T]) Label() string { return s.LabelText }

func (s *IndexScreen[T]) RouteName() string {
	if s.Route != "" {
		return s.Route
	}
	return model.ScreenRouteName(s.SlugName)
}

func (s *IndexScreen[T]) pageSizes() []int {
	if len(s.PageSizes) > 0 {
		return s.PageSizes
	}
	return defaultPageSizes
}

func (s *IndexScreen[T]) defaultPageSize() int {
	if s.DefaultPageSize > 0 {
		return s.DefaultPageSize
	}
	return s.pageSizes()[0]
}

// Router mounts the list handler plus the action and metric sub-routes.
// POST to the list path is the legacy dispatch style: the action slug
// travels in _action, _object_action, or _batch_action.
func (s *IndexScreen[T]) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.ServeHTTP)
	r.Post("/", s.dispatchLegacy)
	actions := append([]*action.Action{}, s.PageActions...)
	actions = append(actions, s.ObjectActions...)
	actions = append(actions, s.BatchActions...)
	mountExtras(r, actions, s.Metrics)
	return r
}

// dispatchLegacy routes an index-page POST to the named action. Unknown
// slugs and absent dispatch params are 404, matching sub-route behavior.
func (s *IndexScreen[T]) dispatchLegacy(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	for param, pool := range map[string][]*action.Action{
		"_action":        s.PageActions,
		"_object_action": s.ObjectActions,
		"_batch_action":  s.BatchActions,
	} {
		slug := r.Form.Get(param)
		if slug == "" {
			continue
		}
		for _, a := range pool {
			if a.Slug == slug {
				a.Dispatch(w, r)
				return
			}
		}
	}
	http.NotFound(w, r)
}

// Query builds the filtered data source for the current request: search
// first, ordering next, then the user filters. Predicates conjoin, so only
// ordering position matters. Batch actions reuse it to resolve the
// "__all__" selection against the caller's current filter set.
func (s *IndexScreen[T]) Query(r *http.Request) datasource.DataSource[T] {
	values := r.URL.Query()

	ds := s.Source.ListQuery()
	search := &filter.Search{Fields: s.Searchable}
	ds = ds.Search(search.Term(values), s.Searchable)
	ordering := &filter.Ordering{Sortable: s.Sortable}
	ds = ds.Sort(ordering.Rules(values), s.Sortable)
	for _, f := range s.Filters {
		if pred, ok := f.Predicate(values); ok {
			ds = ds.Filter(pred)
		}
	}
	return ds
}

func (s *IndexScreen[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "screen.index", s.SlugName)
	defer span.End()

	values := r.URL.Query()
	pageNum := model.PageParam(r, "page")
	pageSize := model.PageSizeParam(r, "page_size", s.pageSizes(), s.defaultPageSize())

	page, err := s.Query(r).Paginate(r.Context(), pageNum, pageSize)
	if err != nil {
		span.RecordError(err)
		serverError(w, r)
		return
	}

	pks := make([]string, len(page.Rows))
	for i, row := range page.Rows {
		pks[i] = s.Source.PK(row)
	}

	search := &filter.Search{Fields: s.Searchable}
	ctx := map[string]any{
		"screen":         s.SlugName,
		"label":          s.LabelText,
		"page":           page,
		"rows":           page.Rows,
		"pks":            pks,
		"columns":        s.columns(),
		"search_term":    search.Term(values),
		"sorting":        model.NewSortingHelper(r, "ordering"),
		"indicators":     filter.Indicators(values, s.Filters),
		"reset_url":      filter.ResetURL(r.URL, s.Filters),
		"page_actions":   s.PageActions,
		"object_actions": s.ObjectActions,
		"batch_actions":  s.BatchActions,
		"metrics":        s.Metrics,
		"page_sizes":     s.pageSizes(),
	}

	if htmx.MatchesTarget(r, DatatableTarget) {
		w.Header().Set(htmx.HeaderPushURL, s.pushURL(r))
		renderTo(w, r, "screen/index_content", ctx)
		return
	}
	renderTo(w, r, "screen/index", ctx)
}

// pushURL is the history entry for partial refreshes: the request URL with
// the parameters of inactive filters stripped.
func (s *IndexScreen[T]) pushURL(r *http.Request) string {
	cleaned := filter.CleanQuery(r.URL.Query(), s.Filters)
	u := *r.URL
	u.RawQuery = cleaned.Encode()
	return u.RequestURI()
}

func (s *IndexScreen[T]) columns() []string {
	if len(s.Columns) > 0 {
		return s.Columns
	}
	return s.Sortable
}
