package admin

import (
	"net/http"

	"github.com/veldtlabs/steward/model"
)

// render delegates to the injected renderer with the common context merged
// in.
func (a *App) render(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) {
	st := stateFrom(r)
	if ctx == nil {
		ctx = map[string]any{}
	}
	ctx["app_name"] = a.name()
	ctx["prefix"] = a.prefix()
	if st != nil {
		ctx["user"] = st.User
		ctx["csrf_token"] = st.CSRF
		ctx["flashes"] = st.Flashes.ReadAll()
	}
	if err := a.Renderer.Render(w, r, name, ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// welcome is the app landing page.
func (a *App) welcome(w http.ResponseWriter, r *http.Request) {
	a.render(w, r, "admin/welcome", map[string]any{
		"menu": a.menu,
	})
}

func (a *App) loginGet(w http.ResponseWriter, r *http.Request) {
	if currentUser(r) != nil {
		http.Redirect(w, r, a.prefix()+"/", http.StatusSeeOther)
		return
	}
	a.render(w, r, "admin/login", map[string]any{
		"next": safeNext(r.URL.Query().Get("next"), ""),
	})
}

func (a *App) loginPost(w http.ResponseWriter, r *http.Request) {
	if a.Auth == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	identity := r.PostForm.Get("identity")
	password := r.PostForm.Get("password")
	next := safeNext(r.PostForm.Get("next"), a.prefix()+"/")

	user, err := a.Auth.Authenticate(r.Context(), identity, password)
	if err != nil || user == nil {
		w.WriteHeader(http.StatusUnauthorized)
		a.render(w, r, "admin/login", map[string]any{
			"next":  next,
			"error": "Invalid credentials",
		})
		return
	}

	sess := Session{
		UserID: user.Identity(),
		CSRF:   NewCSRFToken(),
		Flashes: []model.Flash{
			{Category: model.FlashSuccess, Message: "You have been logged in"},
		},
	}
	if err := a.Sessions.Issue(w, sess); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// logout clears the session. POST only; the route table enforces the
// method.
func (a *App) logout(w http.ResponseWriter, r *http.Request) {
	a.Sessions.Clear(w)
	http.Redirect(w, r, a.prefix()+"/login", http.StatusSeeOther)
}
