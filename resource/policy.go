package resource

import (
	"net/http"

	"github.com/veldtlabs/steward/model"
)

// AccessPolicy gates every screen dispatch of a resource. Record-level
// checks receive the loaded record; list/create checks run before any load.
// A denial yields 403.
type AccessPolicy interface {
	CanList(r *http.Request, user model.User) bool
	CanCreate(r *http.Request, user model.User) bool
	CanEdit(r *http.Request, user model.User, record any) bool
	CanDelete(r *http.Request, user model.User, record any) bool
}

// Permissive allows everything. It is the default policy.
type Permissive struct{}

func (Permissive) CanList(*http.Request, model.User) bool        { return true }
func (Permissive) CanCreate(*http.Request, model.User) bool      { return true }
func (Permissive) CanEdit(*http.Request, model.User, any) bool   { return true }
func (Permissive) CanDelete(*http.Request, model.User, any) bool { return true }

// currentUser reads the authenticated user off the request state, nil when
// unauthenticated.
func currentUser(r *http.Request) model.User {
	st := model.StateFrom(r.Context())
	if st == nil {
		return nil
	}
	return st.User
}
