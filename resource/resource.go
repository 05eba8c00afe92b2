// Package resource composes the three screen variants over one record type
// into a routed admin resource: shared data source, form, filters, actions,
// metrics, and access policy, with labels and slugs derived from the record
// type by basic English rules.
package resource

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/datasource"
	"github.com/veldtlabs/steward/filter"
	"github.com/veldtlabs/steward/form"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/internal/naming"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
	"github.com/veldtlabs/steward/screen"
)

// Resource declares one admin resource. Zero-value naming fields derive
// from the record type: label from the type name (a trailing "Resource" is
// dropped), plural by pluralization rules, slug from the plural.
type Resource[T any] struct {
	LabelText   string
	PluralText  string
	SlugName    string
	Group       string // menu group
	Icon        string // menu icon name

	Source datasource.DataSource[T]
	Mapper *datasource.Mapper[T]

	NewForm  func() form.Form
	InitForm func(r *http.Request, f form.Form, record *T) error

	Searchable []string
	Sortable   []string
	Columns    []string
	Filters    []filter.Filter

	PageActions   []*action.Action
	ObjectActions []*action.Action
	BatchActions  []*action.Action
	Metrics       []metric.Metric

	Policy AccessPolicy

	PageSizes       []int
	DefaultPageSize int
}

// Label returns the singular label.
func (res *Resource[T]) Label() string {
	if res.LabelText != "" {
		return res.LabelText
	}
	var zero T
	name := reflect.TypeOf(zero).Name()
	name = strings.TrimSuffix(name, "Resource")
	label := naming.TitleFromCamel(name)
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + label[1:]
}

// Plural returns the plural label.
func (res *Resource[T]) Plural() string {
	if res.PluralText != "" {
		return res.PluralText
	}
	return naming.Pluralize(res.Label())
}

// Slug returns the URL slug, derived from the plural label.
func (res *Resource[T]) Slug() string {
	if res.SlugName != "" {
		return res.SlugName
	}
	return naming.Slugify(res.Plural())
}

// MenuGroup and MenuIcon feed menu assembly in the admin app.
func (res *Resource[T]) MenuGroup() string { return res.Group }
func (res *Resource[T]) MenuIcon() string  { return res.Icon }

func (res *Resource[T]) policy() AccessPolicy {
	if res.Policy != nil {
		return res.Policy
	}
	return Permissive{}
}

// basePath is the mounted subtree path under the admin prefix.
func (res *Resource[T]) basePath(prefix string) string {
	return prefix + "/resources/" + res.Slug()
}

// Index builds the list screen. The base path parameterizes the default
// action links.
func (res *Resource[T]) Index(base string) *screen.IndexScreen[T] {
	return &screen.IndexScreen[T]{
		SlugName:        res.Slug(),
		LabelText:       res.Plural(),
		Route:           model.ResourceRouteName(res.Slug(), "index"),
		Source:          res.Source,
		Searchable:      res.Searchable,
		Sortable:        res.Sortable,
		Columns:         res.Columns,
		Filters:         res.Filters,
		PageSizes:       res.PageSizes,
		DefaultPageSize: res.DefaultPageSize,
		PageActions:     res.pageActions(base),
		ObjectActions:   res.objectActions(base),
		BatchActions:    res.batchActions(),
		Metrics:         res.Metrics,
	}
}

// Form builds the create/edit screen.
func (res *Resource[T]) Form(base string) *screen.FormScreen[T] {
	return &screen.FormScreen[T]{
		SlugName:  res.Slug() + "-form",
		LabelText: res.Label(),
		Route:     model.ResourceRouteName(res.Slug(), "form"),
		Source:    res.Source,
		Mapper:    res.Mapper,
		NewForm:   res.NewForm,
		InitForm:  res.InitForm,
		RedirectFor: func(r *http.Request, intent, pk string) string {
			switch intent {
			case screen.IntentSaveReturn:
				return base + "/"
			case screen.IntentSaveNew:
				return base + "/new"
			default:
				return base + "/" + pk + "/edit"
			}
		},
	}
}

// Display builds the read-only view screen.
func (res *Resource[T]) Display(base string) *screen.DisplayScreen[T] {
	return &screen.DisplayScreen[T]{
		SlugName:      res.Slug() + "-view",
		LabelText:     res.Label(),
		Route:         model.ResourceRouteName(res.Slug(), "view"),
		Source:        res.Source,
		Mapper:        res.Mapper,
		ObjectActions: res.objectActions(base),
	}
}

// pageActions prepends the default "New" link.
func (res *Resource[T]) pageActions(base string) []*action.Action {
	defaults := []*action.Action{
		{Kind: action.KindLink, Slug: "new", Label: "Add " + res.Label(), Icon: "plus",
			Variant: "primary", URL: base + "/new"},
	}
	return append(defaults, res.PageActions...)
}

// objectActions appends the default Edit and Delete per-row actions. The
// {object_id} placeholder is substituted per row by the renderer.
func (res *Resource[T]) objectActions(base string) []*action.Action {
	defaults := []*action.Action{
		{Kind: action.KindLink, Slug: "edit", Label: "Edit", Icon: "pencil",
			URL: base + "/{object_id}/edit"},
		{Kind: action.KindLink, Slug: "delete", Label: "Delete", Icon: "trash",
			Dangerous: true, Confirmation: "Delete this " + strings.ToLower(res.Label()) + "?",
			URL: base + "/{object_id}/delete"},
	}
	return append(res.ObjectActions, defaults...)
}

// batchActions appends the default delete-selected action.
func (res *Resource[T]) batchActions() []*action.Action {
	del := action.NewBatch("delete", "Delete selected", res.batchDelete)
	del.Dangerous = true
	del.Confirmation = "Delete the selected " + strings.ToLower(res.Plural()) + "?"
	del.Methods = []string{http.MethodPost, http.MethodDelete}
	return append(res.BatchActions, del)
}

// batchDelete removes the selected records. The __all__ sentinel resolves
// against the caller's current filter set, so "delete everything matching
// this search" works from a filtered list.
func (res *Resource[T]) batchDelete(r *http.Request) (*htmx.Response, error) {
	ids, all := action.BatchTarget(r)

	if all {
		ds := res.Index("").Query(r)
		total, err := ds.Count(r.Context())
		if err != nil {
			return nil, err
		}
		if total == 0 {
			return htmx.New().ToastSuccess("Nothing to delete"), nil
		}
		page, err := ds.Paginate(r.Context(), 1, total)
		if err != nil {
			return nil, err
		}
		ids = ids[:0]
		for _, row := range page.Rows {
			ids = append(ids, res.Source.PK(row))
		}
	}
	if len(ids) == 0 {
		return htmx.New().ToastSuccess("Nothing to delete"), nil
	}

	if err := res.Source.Delete(r.Context(), ids...); err != nil {
		return nil, err
	}
	return htmx.New().
		ToastSuccess("Deleted %d %s", len(ids), strings.ToLower(res.Plural())).
		RefreshList(), nil
}

// Mount registers the resource subtree under prefix and returns the router
// to attach at basePath. Route names land in the registry for reversing.
func (res *Resource[T]) Mount(reg *model.URLRegistry, prefix string) (string, chi.Router, error) {
	base := res.basePath(prefix)
	slug := res.Slug()

	patterns := map[string]string{
		"index":  base + "/",
		"new":    base + "/new",
		"edit":   base + "/{object_id}/edit",
		"view":   base + "/{object_id}/view",
		"delete": base + "/{object_id}/delete",
	}
	for kind, pattern := range patterns {
		if err := reg.Register(model.ResourceRouteName(slug, kind), pattern); err != nil {
			return "", nil, err
		}
	}

	index := res.Index(base)
	formScreen := res.Form(base)
	display := res.Display(base)
	policy := res.policy()

	r := chi.NewRouter()
	r.Group(func(g chi.Router) {
		g.Use(res.requireFunc(func(req *http.Request) bool {
			return policy.CanList(req, currentUser(req))
		}))
		g.Mount("/", index.Router())
	})
	r.Group(func(g chi.Router) {
		g.Use(res.requireFunc(func(req *http.Request) bool {
			return policy.CanCreate(req, currentUser(req))
		}))
		g.Mount("/new", formScreen.Router())
	})
	r.Group(func(g chi.Router) {
		g.Use(res.requireRecord(policy.CanEdit))
		g.Mount("/{object_id}/edit", formScreen.Router())
	})
	r.Group(func(g chi.Router) {
		g.Use(res.requireFunc(func(req *http.Request) bool {
			return policy.CanList(req, currentUser(req))
		}))
		g.Mount("/{object_id}/view", display.Router())
	})
	r.Group(func(g chi.Router) {
		g.Use(res.requireRecord(policy.CanDelete))
		g.HandleFunc("/{object_id}/delete", res.deleteHandler(base))
	})

	return base, r, nil
}

// requireFunc turns a predicate into a 403 gate.
func (res *Resource[T]) requireFunc(allowed func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireRecord loads the addressed record and gates on a record-level
// policy check. Missing records fall through to the screen's own 404.
func (res *Resource[T]) requireRecord(allowed func(*http.Request, model.User, any) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if pk := chi.URLParam(r, "object_id"); pk != "" {
				record, err := res.Source.Get(r.Context(), pk)
				if err == nil && !allowed(r, currentUser(r), record) {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deleteHandler serves the two-step delete route: GET renders the confirm
// dialog, POST/DELETE executes.
func (res *Resource[T]) deleteHandler(base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pk := chi.URLParam(r, "object_id")
		record, err := res.Source.Get(r.Context(), pk)
		if errors.Is(err, model.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		switch r.Method {
		case http.MethodGet:
			st := model.StateFrom(r.Context())
			if st == nil || st.Renderer == nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			_ = st.Renderer.Render(w, r, "action/modal", map[string]any{
				"label":        res.Label(),
				"object":       record,
				"pk":           pk,
				"confirmation": "Delete this " + strings.ToLower(res.Label()) + "?",
				"execute_url":  base + "/" + pk + "/delete",
			})
		case http.MethodPost, http.MethodDelete:
			if err := res.Source.Delete(r.Context(), pk); err != nil {
				_ = htmx.New().ToastError("Delete failed: %v", err).Write(w)
				return
			}
			resp := htmx.New().
				ToastSuccess("%s has been deleted", res.Label()).
				RefreshList()
			if !htmx.IsRequest(r) {
				http.Redirect(w, r, base+"/", http.StatusSeeOther)
				return
			}
			resp.Location(base+"/", "")
			_ = resp.Write(w)
		default:
			w.Header().Set("Allow", "GET, POST, DELETE")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}
	}
}
