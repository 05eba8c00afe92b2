package screen

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/form"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
)

// Submit intents discriminated by the posted button name.
const (
	IntentSave       = "_save"
	IntentSaveReturn = "_save_return"
	IntentSaveNew    = "_save_new"
)

// FormScreen serves create and edit uniformly: a missing object_id URL
// param means create. Validation happens only on submit; a duplicate key
// from the data source yields 409 with the form re-rendered so the client
// loses nothing.
type FormScreen[T any] struct {
	SlugName  string
	LabelText string
	Route     string

	Source datasource.DataSource[T]
	Mapper *datasource.Mapper[T]

	NewForm func() form.Form

	// InitForm loads dynamic choices; it may hit the data source.
	InitForm func(r *http.Request, f form.Form, record *T) error

	// Handle overrides the default populate-and-save behavior.
	Handle func(r *http.Request, f form.Form, record *T) (*htmx.Response, error)

	// RedirectFor maps a submit intent and saved pk to the follow-up URL.
	RedirectFor func(r *http.Request, intent, pk string) string

	FormActions []*action.Action
	Metrics     []metric.Metric
}

func (s *FormScreen[T]) Slug() string  { return s.SlugName }
func (s *FormScreen[T]) Label() string { return s.LabelText }

func (s *FormScreen[T]) RouteName() string {
	if s.Route != "" {
		return s.Route
	}
	return model.ScreenRouteName(s.SlugName)
}

// Router mounts the form handler plus sub-routes.
func (s *FormScreen[T]) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", s.ServeHTTP)
	r.Post("/", s.ServeHTTP)
	mountExtras(r, s.FormActions, s.Metrics)
	return r
}

// object loads the edit subject, or a fresh record when creating.
func (s *FormScreen[T]) object(r *http.Request) (record *T, creating bool, err error) {
	objectID := chi.URLParam(r, "object_id")
	if objectID == "" {
		return s.Source.New(), true, nil
	}
	record, err = s.Source.Get(r.Context(), objectID)
	return record, false, err
}

func (s *FormScreen[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r, span := startSpan(r, "screen.form", s.SlugName)
	defer span.End()

	record, creating, err := s.object(r)
	if errors.Is(err, model.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		span.RecordError(err)
		serverError(w, r)
		return
	}

	f := s.NewForm()
	submitted := r.Method != http.MethodGet && r.Method != http.MethodHead

	if submitted {
		if err := f.BindRequest(r); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	} else {
		f.BindRecord(func(field string) (any, bool) { return s.Mapper.Get(record, field) })
	}

	if s.InitForm != nil {
		if err := s.InitForm(r, f, record); err != nil {
			span.RecordError(err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	if !submitted || !f.Validate(r.Context()) {
		s.render(w, r, f, record, creating, http.StatusOK)
		return
	}

	resp, err := s.save(r, f, record, creating)
	if errors.Is(err, model.ErrDuplicate) {
		_ = htmx.New().ToastError("%s already exists", s.LabelText).Apply(w)
		s.render(w, r, f, record, creating, http.StatusConflict)
		return
	}
	if err != nil {
		span.RecordError(err)
		serverError(w, r)
		return
	}

	s.finish(w, r, record, resp)
}

// save runs the custom handler or the default populate-and-persist path.
func (s *FormScreen[T]) save(r *http.Request, f form.Form, record *T, creating bool) (*htmx.Response, error) {
	if s.Handle != nil {
		return s.Handle(r, f, record)
	}
	if err := f.Populate(func(field string, value any) error {
		return s.Mapper.Set(record, field, value)
	}); err != nil {
		return nil, err
	}
	if creating {
		if err := s.Source.Create(r.Context(), record); err != nil {
			return nil, err
		}
		return htmx.New().ToastSuccess("%s has been created", s.LabelText), nil
	}
	if err := s.Source.Update(r.Context(), record); err != nil {
		return nil, err
	}
	return htmx.New().ToastSuccess("%s has been updated", s.LabelText), nil
}

// finish emits the post-save navigation: an HX envelope for htmx clients,
// a plain 303 otherwise.
func (s *FormScreen[T]) finish(w http.ResponseWriter, r *http.Request, record *T, resp *htmx.Response) {
	target := ""
	if s.RedirectFor != nil {
		target = s.RedirectFor(r, SubmitIntent(r), s.Source.PK(record))
	}

	if htmx.IsRequest(r) {
		if resp == nil {
			resp = htmx.New()
		}
		if target != "" {
			resp.Location(target, "")
		}
		_ = resp.Write(w)
		return
	}
	if target == "" {
		target = r.URL.RequestURI()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *FormScreen[T]) render(w http.ResponseWriter, r *http.Request, f form.Form, record *T, creating bool, status int) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	renderTo(w, r, "screen/form", map[string]any{
		"screen":       s.SlugName,
		"label":        s.LabelText,
		"form":         f,
		"form_errors":  form.FieldErrors(f),
		"object":       record,
		"creating":     creating,
		"form_actions": s.formActions(),
	})
}

// formActions returns the submit buttons, defaulting to the three standard
// intents.
func (s *FormScreen[T]) formActions() []*action.Action {
	if len(s.FormActions) > 0 {
		return s.FormActions
	}
	return []*action.Action{
		action.NewSubmit(IntentSave, "Save"),
		action.NewSubmit(IntentSaveReturn, "Save and return"),
		action.NewSubmit(IntentSaveNew, "Save and add another"),
	}
}

// SubmitIntent reads which submit button fired, defaulting to plain save.
func SubmitIntent(r *http.Request) string {
	_ = r.ParseForm()
	for _, intent := range []string{IntentSaveReturn, IntentSaveNew, IntentSave} {
		if _, ok := r.PostForm[intent]; ok {
			return intent
		}
	}
	return IntentSave
}
