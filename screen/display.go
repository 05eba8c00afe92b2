package screen

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
)

// DisplayScreen renders a read-only view of one record with its object
// actions.
type DisplayScreen[T any] struct {
	SlugName  string
	LabelText string
	Route     string

	Source datasource.DataSource[T]
	Mapper *datasource.Mapper[T]

	// FieldNames restricts and orders the displayed fields; defaults to
	// the full mapper table.
	FieldNames []string

	ObjectActions []*action.Action
	Metrics       []metric.Metric
}

func (s *DisplayScreen[T]) Slug() string  { return s.SlugName }
func (s *DisplayScreen[T]) Label() string { return s.LabelText }

func (s *DisplayScreen[T]) RouteName() string {
	if s.Route != "" {
		return s.Route
	}
	return model.ScreenRouteName(s.SlugName)
}

// Router mounts the view handler plus sub-routes.
func (s *DisplayScreen[T]) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.ServeHTTP)
	mountExtras(r, s.ObjectActions, s.Metrics)
	return r
}

func (s *DisplayScreen[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "screen.display", s.SlugName)
	defer span.End()

	record, err := s.Source.Get(r.Context(), chi.URLParam(r, "object_id"))
	if errors.Is(err, model.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		span.RecordError(err)
		serverError(w, r)
		return
	}

	names := s.FieldNames
	if len(names) == 0 {
		for _, f := range s.Mapper.Fields() {
			names = append(names, f.Name)
		}
	}
	fields := make([]map[string]any, 0, len(names))
	for _, name := range names {
		if v, ok := s.Mapper.Get(record, name); ok {
			fields = append(fields, map[string]any{"name": name, "value": v})
		}
	}

	renderTo(w, r, "screen/display", map[string]any{
		"screen":         s.SlugName,
		"label":          s.LabelText,
		"object":         record,
		"pk":             s.Source.PK(record),
		"fields":         fields,
		"object_actions": s.ObjectActions,
	})
}
