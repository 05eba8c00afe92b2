// Package admin assembles registered resources and screens into one mounted
// HTTP application: routing, session auth, CSRF, flash messages, menu, and
// the URL registry. Presentation is delegated to the injected Renderer.
package admin

import (
	"context"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veldtlabs/steward/model"
	"github.com/veldtlabs/steward/screen"
	"github.com/veldtlabs/steward/storage"
)

// Authenticator is the pluggable auth policy: credential verification for
// the login form and user reload from the session key on every request.
type Authenticator interface {
	Authenticate(ctx context.Context, identity, password string) (model.User, error)
	LoadUser(ctx context.Context, identity string) (model.User, error)
}

// Mountable is what the app needs from a resource: a routable subtree plus
// menu metadata. *resource.Resource[T] satisfies it.
type Mountable interface {
	Mount(reg *model.URLRegistry, prefix string) (string, chi.Router, error)
	Plural() string
	MenuGroup() string
	MenuIcon() string
}

// Page is a standalone screen with its own sub-routes.
type Page interface {
	screen.Screen
	Router() chi.Router
}

// MenuItem is one navigation entry.
type MenuItem struct {
	Label string
	URL   string
	Icon  string
}

// MenuGroup is a labelled run of menu items. The empty label is the leading
// ungrouped section.
type MenuGroup struct {
	Label string
	Items []MenuItem
}

type pageEntry struct {
	page  Page
	group string
	icon  string
}

// App is the admin application. Configure the exported fields, register
// resources and pages, then call Handler once.
type App struct {
	Name        string
	MountPrefix string // default /admin

	Renderer model.Renderer
	Sessions *Sessions
	Auth     Authenticator

	// Static serves the asset subtree at /static/*; optional.
	Static fs.FS
	// Media serves uploaded files at /media/*; optional.
	Media storage.FileStorage

	// Middleware runs between the ambient chain and the routed handlers.
	Middleware []func(http.Handler) http.Handler

	resources []Mountable
	pages     []pageEntry
	urls      *model.URLRegistry
	menu      []MenuGroup
}

func (a *App) prefix() string {
	if a.MountPrefix != "" {
		return a.MountPrefix
	}
	return "/admin"
}

func (a *App) name() string {
	if a.Name != "" {
		return a.Name
	}
	return "Admin"
}

// Register adds a resource. Call before Handler.
func (a *App) Register(res Mountable) {
	a.resources = append(a.resources, res)
}

// RegisterPage adds a standalone screen under /screens/{slug}.
func (a *App) RegisterPage(p Page, group, icon string) {
	a.pages = append(a.pages, pageEntry{page: p, group: group, icon: icon})
}

// URLs returns the frozen registry. Valid after Handler.
func (a *App) URLs() *model.URLRegistry { return a.urls }

// Menu returns the assembled navigation. Valid after Handler.
func (a *App) Menu() []MenuGroup { return a.menu }

// Handler builds the routed application. Route names land in the URL
// registry, which is frozen before the handler is returned.
func (a *App) Handler() (http.Handler, error) {
	if a.Sessions == nil {
		return nil, model.NewConfigError("admin", "Sessions is required")
	}
	if a.Renderer == nil {
		return nil, model.NewConfigError("admin", "Renderer is required")
	}

	prefix := a.prefix()
	a.urls = model.NewURLRegistry()
	a.menu = nil

	for name, pattern := range map[string]string{
		"steward.welcome": prefix + "/",
		"steward.login":   prefix + "/login",
		"steward.logout":  prefix + "/logout",
	} {
		if err := a.urls.Register(name, pattern); err != nil {
			return nil, err
		}
	}

	root := chi.NewRouter()
	root.Use(Recovery)
	root.Use(RequestID)
	root.Use(SecurityHeaders)
	root.Use(RequestLogging)
	root.Use(a.withState)
	for _, mw := range a.Middleware {
		root.Use(mw)
	}

	// Public subtree: login, logout, assets, media.
	root.Group(func(pub chi.Router) {
		pub.Get(prefix+"/login", a.loginGet)
		pub.Post(prefix+"/login", a.loginPost)
		pub.Post(prefix+"/logout", a.logout)
		if a.Static != nil {
			pub.Handle(prefix+"/static/*",
				http.StripPrefix(prefix+"/static/", http.FileServerFS(a.Static)))
		}
		if a.Media != nil {
			pub.Handle(prefix+"/media/*",
				http.StripPrefix(prefix+"/media", storage.Handler(a.Media)))
		}
	})

	var mountErr error
	root.Group(func(priv chi.Router) {
		priv.Use(a.RequireLogin)
		priv.Use(a.CSRFProtect)
		priv.Get(prefix+"/", a.welcome)

		for _, res := range a.resources {
			base, rt, err := res.Mount(a.urls, prefix)
			if err != nil {
				mountErr = err
				return
			}
			priv.Mount(base, rt)
			a.addMenuItem(res.MenuGroup(), MenuItem{
				Label: res.Plural(), URL: base + "/", Icon: res.MenuIcon(),
			})
		}
		for _, entry := range a.pages {
			base := prefix + "/screens/" + entry.page.Slug()
			if err := a.urls.Register(entry.page.RouteName(), base+"/"); err != nil {
				mountErr = err
				return
			}
			priv.Mount(base, entry.page.Router())
			a.addMenuItem(entry.group, MenuItem{
				Label: entry.page.Label(), URL: base + "/", Icon: entry.icon,
			})
		}
	})
	if mountErr != nil {
		return nil, mountErr
	}

	a.urls.Freeze()
	return root, nil
}

// addMenuItem appends to the named group, creating it in first-seen order.
func (a *App) addMenuItem(group string, item MenuItem) {
	for i := range a.menu {
		if a.menu[i].Label == group {
			a.menu[i].Items = append(a.menu[i].Items, item)
			return
		}
	}
	a.menu = append(a.menu, MenuGroup{Label: group, Items: []MenuItem{item}})
}

// withState decodes the session, reloads the user, and threads the request
// state that every screen depends on. Flash changes are written back to the
// session cookie just before the first response byte.
func (a *App) withState(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := a.Sessions.Decode(r)

		var user model.User
		csrf := ""
		var pending []model.Flash
		if sess != nil {
			csrf = sess.CSRF
			pending = sess.Flashes
			if sess.UserID != "" && a.Auth != nil {
				if u, err := a.Auth.LoadUser(r.Context(), sess.UserID); err == nil {
					user = u
				}
			}
		}

		st := &model.RequestState{
			AppName:  a.name(),
			Prefix:   a.prefix(),
			User:     user,
			Flashes:  model.NewFlashBag(pending),
			URLs:     a.urls,
			Renderer: a.Renderer,
			CSRF:     csrf,
		}
		ww := &flashSaver{ResponseWriter: w, app: a, st: st, sess: sess}
		next.ServeHTTP(ww, r.WithContext(model.WithState(r.Context(), st)))
		ww.commit()
	})
}

// flashSaver re-issues the session cookie when the flash bag changed,
// before headers are flushed.
type flashSaver struct {
	http.ResponseWriter
	app   *App
	st    *model.RequestState
	sess  *Session
	saved bool
}

func (w *flashSaver) commit() {
	if w.saved {
		return
	}
	w.saved = true
	if w.sess == nil || !w.st.Flashes.Dirty() {
		return
	}
	w.sess.Flashes = w.st.Flashes.Pending()
	_ = w.app.Sessions.Issue(w.ResponseWriter, *w.sess)
}

func (w *flashSaver) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *flashSaver) Write(p []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(p)
}

func stateFrom(r *http.Request) *model.RequestState {
	return model.StateFrom(r.Context())
}

func currentUser(r *http.Request) model.User {
	if st := stateFrom(r); st != nil {
		return st.User
	}
	return nil
}
