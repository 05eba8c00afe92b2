package resource

import (
	"context"
	"fmt"
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
	"github.com/veldtlabs/steward/model"
)

type post struct {
	ID    string
	Title string
}

type category struct {
	ID   string
	Name string
}

func postsMapper(t *testing.T) *datasource.Mapper[post] {
	t.Helper()
	m, err := datasource.NewMapper[post](
		datasource.Field[post]{Name: "id", Kind: datasource.KindText, PrimaryKey: true,
			Get: func(p *post) any { return p.ID },
			Set: func(p *post, v any) error { p.ID = v.(string); return nil }},
		datasource.Field[post]{Name: "title", Kind: datasource.KindText,
			Get: func(p *post) any { return p.Title },
			Set: func(p *post, v any) error { p.Title = v.(string); return nil }},
	)
	require.NoError(t, err)
	return m
}

func seededPosts(n int) []*post {
	out := make([]*post, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, &post{ID: fmt.Sprintf("p%d", i), Title: fmt.Sprintf("Title %d", i)})
	}
	return out
}

func newPostResource(t *testing.T, rows ...*post) (*Resource[post], *datasource.Memory[post]) {
	t.Helper()
	m := postsMapper(t)
	src := datasource.NewMemory(m, nil, rows...)
	res := &Resource[post]{
		Source:     src,
		Mapper:     m,
		Searchable: []string{"title"},
		Sortable:   []string{"title"},
		NewForm: func() form.Form {
			return form.New(
				&form.Field{Name: "id", Kind: form.Hidden},
				&form.Field{Name: "title", Kind: form.Text, Required: true},
			)
		},
	}
	return res, src
}

type testRenderer struct{ name string }

func (tr *testRenderer) Render(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) error {
	tr.name = name
	_, err := w.Write([]byte("rendered:" + name))
	return err
}

// mountResource wires the resource into a router with a minimal request
// state, the way the admin app does.
func mountResource[T any](t *testing.T, res *Resource[T], user model.User) (http.Handler, *testRenderer) {
	t.Helper()
	reg := model.NewURLRegistry()
	tr := &testRenderer{}

	base, router, err := res.Mount(reg, "")
	require.NoError(t, err)

	root := chi.NewRouter()
	root.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := &model.RequestState{User: user, URLs: reg, Renderer: tr, Flashes: model.NewFlashBag(nil)}
			next.ServeHTTP(w, r.WithContext(model.WithState(r.Context(), st)))
		})
	})
	root.Mount(base, router)
	return root, tr
}

func TestLabelDerivation(t *testing.T) {
	res, _ := newPostResource(t)
	assert.Equal(t, "Post", res.Label())
	assert.Equal(t, "Posts", res.Plural())
	assert.Equal(t, "posts", res.Slug())

	catRes := &Resource[category]{}
	assert.Equal(t, "Category", catRes.Label())
	assert.Equal(t, "Categories", catRes.Plural(), "y after consonant becomes ies")

	override := &Resource[post]{LabelText: "Blog Post"}
	assert.Equal(t, "Blog Posts", override.Plural())
	assert.Equal(t, "blog-posts", override.Slug())
}

func TestRouteRegistration(t *testing.T) {
	res, _ := newPostResource(t)
	reg := model.NewURLRegistry()
	base, _, err := res.Mount(reg, "/admin")
	require.NoError(t, err)
	assert.Equal(t, "/admin/resources/posts", base)

	edit, err := reg.Reverse(model.ResourceRouteName("posts", "edit"), "p7")
	require.NoError(t, err)
	assert.Equal(t, "/admin/resources/posts/p7/edit", edit)

	// A second mount of the same slug is a configuration error.
	_, _, err = res.Mount(reg, "/admin")
	require.Error(t, err)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestIndexPaginationScenario(t *testing.T) {
	res, _ := newPostResource(t, seededPosts(100)...)
	res.PageSizes = []int{25, 50}
	router, _ := mountResource(t, res, nil)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/resources/posts/?page=2&page_size=25", nil)
	r.Header.Set(htmx.HeaderRequest, "true")
	r.Header.Set(htmx.HeaderTarget, "datatable")
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	push := rec.Header().Get(htmx.HeaderPushURL)
	assert.Contains(t, push, "page=2")
	assert.Contains(t, push, "page_size=25")
}

func TestCreateWithSaveReturnScenario(t *testing.T) {
	res, src := newPostResource(t)
	router, _ := mountResource(t, res, nil)

	body := url.Values{"id": {"p1"}, "title": {"X"}, "_save_return": {""}}
	r := httptest.NewRequest(http.MethodPost, "/resources/posts/new", strings.NewReader(body.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set(htmx.HeaderRequest, "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, "/resources/posts/", rec.Header().Get(htmx.HeaderLocation))
	assert.Contains(t, rec.Header().Get(htmx.HeaderTrigger), "has been created")

	saved, err := src.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "X", saved.Title)
}

func TestBatchDeleteAllScenario(t *testing.T) {
	res, src := newPostResource(t, seededPosts(20)...)
	router, _ := mountResource(t, res, nil)

	// Current filter: titles starting with "Title 1" (Title 1, 10-19).
	target := "/resources/posts/?search=" + url.QueryEscape("^Title 1") + "&_batch_action=delete&__all__=1"
	r := httptest.NewRequest(http.MethodPost, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	triggers := rec.Header().Get(htmx.HeaderTrigger)
	assert.Contains(t, triggers, "refresh-datatable")
	assert.Contains(t, triggers, "Deleted 11 posts")

	remaining, err := src.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)
}

func TestBatchDeleteExplicitIDs(t *testing.T) {
	res, src := newPostResource(t, seededPosts(5)...)
	router, _ := mountResource(t, res, nil)

	r := httptest.NewRequest(http.MethodPost,
		"/resources/posts/?_batch_action=delete&object_id=p2&object_id=p4", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Contains(t, rec.Header().Get(htmx.HeaderTrigger), "Deleted 2 posts")
	_, err := src.Get(context.Background(), "p2")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, err = src.Get(context.Background(), "p3")
	assert.NoError(t, err)
}

func TestDeleteRoute(t *testing.T) {
	res, src := newPostResource(t, seededPosts(3)...)
	router, tr := mountResource(t, res, nil)

	t.Run("GET renders confirmation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/posts/p1/delete", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "action/modal", tr.name)
	})

	t.Run("POST executes", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/resources/posts/p1/delete", nil)
		r.Header.Set(htmx.HeaderRequest, "true")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, r)

		assert.Contains(t, rec.Header().Get(htmx.HeaderTrigger), "has been deleted")
		_, err := src.Get(context.Background(), "p1")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("missing object is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/posts/ghost/delete", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// denyPolicy forbids everything record-level but allows listing.
type denyPolicy struct{ Permissive }

func (denyPolicy) CanCreate(*http.Request, model.User) bool      { return false }
func (denyPolicy) CanEdit(*http.Request, model.User, any) bool   { return false }
func (denyPolicy) CanDelete(*http.Request, model.User, any) bool { return false }

func TestAccessPolicyDenialIs403(t *testing.T) {
	res, _ := newPostResource(t, seededPosts(2)...)
	res.Policy = denyPolicy{}
	router, _ := mountResource(t, res, nil)

	paths := map[string]string{
		"create": "/resources/posts/new",
		"edit":   "/resources/posts/p1/edit",
		"delete": "/resources/posts/p1/delete",
	}
	for name, path := range paths {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}

	t.Run("listing still allowed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/resources/posts/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
