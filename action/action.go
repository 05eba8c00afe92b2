// Package action implements screen actions: links, submit buttons, server
// callbacks, modal forms, and batch operations. One Action struct carries
// all variants behind a kind tag; Dispatch switches on it.
package action

import (
	"net/http"
	"slices"

	"github.com/veldtlabs/steward/form"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/model"
)

// Kind tags the action variant.
type Kind string

const (
	KindLink     Kind = "link"
	KindSubmit   Kind = "submit"
	KindCallback Kind = "callback"
	KindModal    Kind = "modal"
	KindBatch    Kind = "batch"
)

// AllSentinel in an object_id parameter means "every row matching the
// current filter set" and takes precedence over explicit ids.
const AllSentinel = "__all__"

// Handler is a server-side action callback.
type Handler func(r *http.Request) (*htmx.Response, error)

// ModalHandler receives the validated modal form.
type ModalHandler func(r *http.Request, f form.Form) (*htmx.Response, error)

// Action is one screen action. The metadata header applies to every kind;
// the trailing fields apply per kind and are ignored otherwise.
type Action struct {
	Kind         Kind
	Slug         string
	Label        string
	Icon         string
	Variant      string // visual hint: primary, danger, ...
	Dangerous    bool
	Confirmation string   // confirm prompt before the request fires
	Methods      []string // accepted HTTP methods, defaults to GET+POST

	// Link: static target or lazy resolution against the request state.
	URL     string
	URLFunc func(r *http.Request) string

	// Submit: button name used to discriminate submit intent.
	SubmitName string

	// Callback and batch.
	Handler Handler

	// Modal: form factory plus handler. Batch actions may also carry
	// these instead of Handler.
	NewForm      func() form.Form
	ModalHandler ModalHandler
}

// NewLink builds a navigation action with no server handler.
func NewLink(slug, label, url string) *Action {
	return &Action{Kind: KindLink, Slug: slug, Label: label, URL: url}
}

// NewSubmit builds a form-submit button action.
func NewSubmit(name, label string) *Action {
	return &Action{Kind: KindSubmit, Slug: name, Label: label, SubmitName: name}
}

// NewCallback builds a server callback action.
func NewCallback(slug, label string, h Handler) *Action {
	return &Action{Kind: KindCallback, Slug: slug, Label: label, Handler: h}
}

// NewModal builds a modal-form action.
func NewModal(slug, label string, newForm func() form.Form, h ModalHandler) *Action {
	return &Action{Kind: KindModal, Slug: slug, Label: label, NewForm: newForm, ModalHandler: h}
}

// NewBatch builds a batch callback action.
func NewBatch(slug, label string, h Handler) *Action {
	return &Action{Kind: KindBatch, Slug: slug, Label: label, Handler: h}
}

// AllowedMethods returns the accepted methods, defaulting to GET+POST.
func (a *Action) AllowedMethods() []string {
	if len(a.Methods) > 0 {
		return a.Methods
	}
	return []string{http.MethodGet, http.MethodPost}
}

// Target resolves the link destination.
func (a *Action) Target(r *http.Request) string {
	if a.URLFunc != nil {
		return a.URLFunc(r)
	}
	return a.URL
}

// BatchTarget reads the batch selection from the request: the explicit ids
// or all=true when the sentinel is present, either as an object_id value or
// as a standalone __all__ parameter. The sentinel wins even when explicit
// ids accompany it.
func BatchTarget(r *http.Request) (ids []string, all bool) {
	if err := r.ParseForm(); err != nil {
		return nil, false
	}
	values := r.Form["object_id"]
	if slices.Contains(values, AllSentinel) || r.Form.Get(AllSentinel) != "" {
		return nil, true
	}
	for _, v := range values {
		if v != "" {
			ids = append(ids, v)
		}
	}
	return ids, false
}

// Dispatch serves one action request. Method gating happens here; slug
// routing is the owning screen's job. Handler failures surface as an error
// toast rather than an error page, keeping the client state intact.
func (a *Action) Dispatch(w http.ResponseWriter, r *http.Request) {
	if !slices.Contains(a.AllowedMethods(), r.Method) {
		w.Header().Set("Allow", joinMethods(a.AllowedMethods()))
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	switch a.Kind {
	case KindLink:
		http.Redirect(w, r, a.Target(r), http.StatusSeeOther)
	case KindSubmit:
		// Submit buttons post through their owning form screen; a direct
		// request has nothing to do.
		w.WriteHeader(http.StatusNoContent)
	case KindModal:
		a.dispatchModal(w, r)
	case KindCallback, KindBatch:
		a.invoke(w, r, func() (*htmx.Response, error) { return a.Handler(r) })
	default:
		http.NotFound(w, r)
	}
}

func (a *Action) dispatchModal(w http.ResponseWriter, r *http.Request) {
	if a.NewForm == nil || a.ModalHandler == nil {
		http.NotFound(w, r)
		return
	}
	f := a.NewForm()

	if r.Method == http.MethodGet {
		a.renderModal(w, r, f)
		return
	}

	if err := f.BindRequest(r); err != nil {
		a.renderModal(w, r, f)
		return
	}
	if !f.Validate(r.Context()) {
		a.renderModal(w, r, f)
		return
	}
	a.invoke(w, r, func() (*htmx.Response, error) {
		resp, err := a.ModalHandler(r, f)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			resp = htmx.New()
		}
		return resp.CloseModal(), nil
	})
}

func (a *Action) renderModal(w http.ResponseWriter, r *http.Request, f form.Form) {
	st := model.StateFrom(r.Context())
	if st == nil || st.Renderer == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	_ = st.Renderer.Render(w, r, "action/modal", map[string]any{
		"action":       a,
		"form":         f,
		"form_errors":  form.FieldErrors(f),
		"confirmation": a.Confirmation,
	})
}

// invoke runs the handler, converting panics and errors into error toasts.
func (a *Action) invoke(w http.ResponseWriter, r *http.Request, fn func() (*htmx.Response, error)) {
	resp, err := func() (resp *htmx.Response, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				resp = nil
				err = recoveredError(rec)
			}
		}()
		return fn()
	}()
	if err != nil {
		_ = htmx.New().ToastError("%s failed: %v", a.Label, err).Write(w)
		return
	}
	if resp == nil {
		resp = htmx.New()
	}
	_ = resp.Write(w)
}

func joinMethods(methods []string) string {
	out := ""
	for i, m := range methods {
		if i > 0 {
			out += ", "
		}
		out += m
	}
	return out
}

type panicError struct{ value any }

func (e panicError) Error() string { return "internal error" }

func recoveredError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return panicError{value: v}
}

// IsExecuteMethod distinguishes the execute leg (POST/PUT/PATCH/DELETE)
// from the confirm leg (GET) of a two-step action.
func IsExecuteMethod(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
