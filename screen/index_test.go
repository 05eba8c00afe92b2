package screen

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/filter"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/model"
)

func newIndexScreen(t *testing.T) *IndexScreen[post] {
	src, _ := newPostSource(t)
	return &IndexScreen[post]{
		SlugName:   "posts",
		LabelText:  "Posts",
		Source:     src,
		Searchable: []string{"title", "author"},
		Sortable:   []string{"title", "views", "created_at"},
		Filters: []filter.Filter{
			&filter.Boolean{Ident: "published", Field: "published", LabelText: "Published"},
			&filter.String{Ident: "author", Field: "author", LabelText: "Author"},
		},
		PageSizes: []int{2, 10},
	}
}

func serveIndex(t *testing.T, s *IndexScreen[post], target string, hx map[string]string) (*httptest.ResponseRecorder, *recordingRenderer) {
	t.Helper()
	rr := &recordingRenderer{}
	r := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range hx {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, withState(r, rr))
	return rec, rr
}

func pagectx(t *testing.T, rr *recordingRenderer) model.Page[*post] {
	t.Helper()
	page, ok := rr.ctx["page"].(model.Page[*post])
	require.True(t, ok)
	return page
}

func TestIndexDefaultRender(t *testing.T) {
	rec, rr := serveIndex(t, newIndexScreen(t), "/admin/resources/posts/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "screen/index", rr.name)

	page := pagectx(t, rr)
	assert.Equal(t, 4, page.TotalRows)
	assert.Len(t, page.Rows, 2, "first allowed page size is the default")
	assert.Equal(t, []string{"p1", "p2"}, rr.ctx["pks"])
}

func TestIndexPageSizeClamping(t *testing.T) {
	s := newIndexScreen(t)

	_, rr := serveIndex(t, s, "/?page_size=10", nil)
	assert.Equal(t, 10, pagectx(t, rr).PageSize)

	// 7 is not in the allow list; snap down to 2.
	_, rr = serveIndex(t, s, "/?page_size=7", nil)
	assert.Equal(t, 2, pagectx(t, rr).PageSize)

	_, rr = serveIndex(t, s, "/?page=0", nil)
	assert.Equal(t, 1, pagectx(t, rr).Page)
}

func TestIndexSearchOrderingFilters(t *testing.T) {
	s := newIndexScreen(t)

	t.Run("search", func(t *testing.T) {
		_, rr := serveIndex(t, s, "/?search=%5Ego", nil) // ^go
		assert.Equal(t, []string{"p1", "p3"}, rr.ctx["pks"])
	})

	t.Run("ordering", func(t *testing.T) {
		_, rr := serveIndex(t, s, "/?ordering=-views&page_size=10", nil)
		assert.Equal(t, []string{"p3", "p1", "p2", "p4"}, rr.ctx["pks"])
	})

	t.Run("filters conjoin with search", func(t *testing.T) {
		_, rr := serveIndex(t, s, "/?search=go&published-value=true&page_size=10", nil)
		assert.Equal(t, []string{"p1"}, rr.ctx["pks"])
	})

	t.Run("unparseable filter deactivates silently", func(t *testing.T) {
		rec, rr := serveIndex(t, s, "/?published-value=maybe&page_size=10", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 4, pagectx(t, rr).TotalRows)
	})

	t.Run("indicators present for active filters", func(t *testing.T) {
		_, rr := serveIndex(t, s, "/?author-query=ada", nil)
		chips, ok := rr.ctx["indicators"].([]filter.Indicator)
		require.True(t, ok)
		require.Len(t, chips, 1)
		assert.Equal(t, "Author", chips[0].Label)
	})
}

func TestIndexPartialRender(t *testing.T) {
	s := newIndexScreen(t)
	hx := map[string]string{htmx.HeaderRequest: "true", htmx.HeaderTarget: DatatableTarget}

	rec, rr := serveIndex(t, s, "/?published-value=maybe&author-query=ada&page=1", hx)

	assert.Equal(t, "screen/index_content", rr.name)
	push := rec.Header().Get(htmx.HeaderPushURL)
	require.NotEmpty(t, push)

	u, err := url.Parse(push)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "ada", q.Get("author-query"), "active filter params survive")
	assert.NotContains(t, q, "published-value", "inactive filter params stripped")
	assert.Equal(t, "1", q.Get("page"), "non-filter params survive")
}

func TestIndexFullRenderHasNoPushURL(t *testing.T) {
	rec, rr := serveIndex(t, newIndexScreen(t), "/", map[string]string{htmx.HeaderRequest: "true"})
	assert.Equal(t, "screen/index", rr.name, "htmx without datatable target renders the full page")
	assert.Empty(t, rec.Header().Get(htmx.HeaderPushURL))
}

func TestIndexSubRoutes(t *testing.T) {
	s := newIndexScreen(t)
	s.PageActions = []*action.Action{
		action.NewCallback("export", "Export", func(r *http.Request) (*htmx.Response, error) {
			return htmx.New().ToastSuccess("exported"), nil
		}),
	}
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	t.Run("known action", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/actions/export")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(htmx.HeaderTrigger), "exported")
	})

	t.Run("unknown action slug is 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/actions/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown metric slug is 404", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/metrics/nope")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
