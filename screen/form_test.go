package screen

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/form"
	"github.com/veldtlabs/steward/htmx"
)

func newFormScreen(t *testing.T) (*FormScreen[post], *datasource.Memory[post]) {
	src, mapper := newPostSource(t)
	s := &FormScreen[post]{
		SlugName:  "posts-form",
		LabelText: "Post",
		Source:    src,
		Mapper:    mapper,
		NewForm:   newPostForm,
		RedirectFor: func(r *http.Request, intent, pk string) string {
			switch intent {
			case IntentSaveReturn:
				return "/admin/resources/posts/"
			case IntentSaveNew:
				return "/admin/resources/posts/new"
			default:
				return "/admin/resources/posts/" + pk + "/edit"
			}
		},
	}
	return s, src
}

// mountForm exposes the screen under both the create and edit patterns.
func mountForm(s *FormScreen[post], rr *recordingRenderer) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, withState(req, rr))
		})
	})
	r.HandleFunc("/new", s.ServeHTTP)
	r.HandleFunc("/{object_id}/edit", s.ServeHTTP)
	return r
}

func postValues(target string, values url.Values, hx bool) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if hx {
		r.Header.Set(htmx.HeaderRequest, "true")
	}
	return r
}

func TestFormScreenEditPrefillsFromRecord(t *testing.T) {
	s, _ := newFormScreen(t)
	rr := &recordingRenderer{}
	rec := httptest.NewRecorder()

	mountForm(s, rr).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p2/edit", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "screen/form", rr.name)
	assert.Equal(t, false, rr.ctx["creating"])

	f := rr.ctx["form"].(form.Form)
	title, _ := f.Field("title")
	assert.Equal(t, "Chi Routing", title.Value())
}

func TestFormScreenMissingObjectIs404(t *testing.T) {
	s, _ := newFormScreen(t)
	rec := httptest.NewRecorder()
	mountForm(s, &recordingRenderer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghost/edit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormScreenCreate(t *testing.T) {
	s, src := newFormScreen(t)
	rr := &recordingRenderer{}

	values := url.Values{
		"id":    {"p9"},
		"title": {"Fresh Post"},
		"views": {"10"},
		"_save": {"Save"},
	}
	rec := httptest.NewRecorder()
	mountForm(s, rr).ServeHTTP(rec, postValues("/new", values, true))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "/admin/resources/posts/p9/edit", rec.Header().Get(htmx.HeaderLocation))
	assert.Contains(t, rec.Header().Get(htmx.HeaderTrigger), "Post has been created")

	saved, err := src.Get(context.Background(), "p9")
	require.NoError(t, err)
	assert.Equal(t, "Fresh Post", saved.Title)
	assert.Equal(t, int64(10), saved.Views)
}

func TestFormScreenValidationErrorsRerender(t *testing.T) {
	s, src := newFormScreen(t)
	rr := &recordingRenderer{}

	rec := httptest.NewRecorder()
	mountForm(s, rr).ServeHTTP(rec, postValues("/new", url.Values{"views": {"ten"}}, true))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "screen/form", rr.name)
	errs := rr.ctx["form_errors"].(map[string][]string)
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "views")

	n, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n, "nothing persisted")
}

func TestFormScreenDuplicateKeyIs409(t *testing.T) {
	s, _ := newFormScreen(t)
	rr := &recordingRenderer{}

	values := url.Values{"id": {"p1"}, "title": {"Clone"}}
	rec := httptest.NewRecorder()
	mountForm(s, rr).ServeHTTP(rec, postValues("/new", values, true))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "screen/form", rr.name, "form re-renders so client state survives")
	assert.Contains(t, rec.Header().Get(htmx.HeaderTrigger), "already exists")
}

func TestFormScreenSubmitIntents(t *testing.T) {
	tests := []struct {
		name     string
		button   string
		wantDest string
	}{
		{"save stays on edit", "_save", "/admin/resources/posts/p1/edit"},
		{"save and return goes to index", "_save_return", "/admin/resources/posts/"},
		{"save and new goes to create", "_save_new", "/admin/resources/posts/new"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newFormScreen(t)
			values := url.Values{"id": {"p1"}, "title": {"Updated"}, tc.button: {"go"}}
			rec := httptest.NewRecorder()
			mountForm(s, &recordingRenderer{}).ServeHTTP(rec, postValues("/p1/edit", values, true))
			assert.Equal(t, tc.wantDest, rec.Header().Get(htmx.HeaderLocation))
		})
	}
}

func TestFormScreenNonHTMXRedirects(t *testing.T) {
	s, _ := newFormScreen(t)
	values := url.Values{"id": {"p1"}, "title": {"Updated"}, "_save_return": {"go"}}
	rec := httptest.NewRecorder()
	mountForm(s, &recordingRenderer{}).ServeHTTP(rec, postValues("/p1/edit", values, false))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/resources/posts/", rec.Header().Get("Location"))
}

func TestFormScreenInitFormLoadsChoices(t *testing.T) {
	s, _ := newFormScreen(t)
	s.NewForm = func() form.Form {
		return form.New(
			&form.Field{Name: "id", Kind: form.Hidden},
			&form.Field{Name: "title", Kind: form.Text, Required: true},
			&form.Field{Name: "author", Kind: form.Select},
		)
	}
	s.InitForm = func(r *http.Request, f form.Form, record *post) error {
		author, _ := f.Field("author")
		author.SetChoices([]form.Choice{{Value: "ada", Label: "Ada"}, {Value: "ben", Label: "Ben"}})
		return nil
	}

	rr := &recordingRenderer{}
	rec := httptest.NewRecorder()
	mountForm(s, rr).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/new", nil))

	f := rr.ctx["form"].(form.Form)
	author, _ := f.Field("author")
	assert.Len(t, author.Choices, 2)
}

func TestDisplayScreen(t *testing.T) {
	src, mapper := newPostSource(t)
	s := &DisplayScreen[post]{
		SlugName:  "posts-view",
		LabelText: "Post",
		Source:    src,
		Mapper:    mapper,
	}

	router := chi.NewRouter()
	rr := &recordingRenderer{}
	router.Get("/{object_id}/view", func(w http.ResponseWriter, r *http.Request) {
		s.ServeHTTP(w, withState(r, rr))
	})

	t.Run("renders fields", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/p3/view", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "screen/display", rr.name)
		assert.Equal(t, "p3", rr.ctx["pk"])
		fields := rr.ctx["fields"].([]map[string]any)
		assert.Len(t, fields, 6, "all mapper fields by default")
	})

	t.Run("missing object is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ghost/view", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
