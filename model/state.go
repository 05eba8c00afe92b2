package model

import (
	"context"
	"net/http"
)

// User is the authenticated principal. The admin session stores the value
// of Identity and the auth policy reloads the user from it on each request.
type User interface {
	Identity() string
	DisplayName() string
}

// FlashCategory classifies a flash message.
type FlashCategory string

const (
	FlashSuccess FlashCategory = "success"
	FlashError   FlashCategory = "error"
)

// Flash is a one-shot message stored in the session and consumed on the
// next render.
type Flash struct {
	Category FlashCategory `json:"category"`
	Message  string        `json:"message"`
}

// FlashBag accumulates flash messages during a request. ReadAll drains it.
type FlashBag struct {
	messages []Flash
	dirty    bool
}

// NewFlashBag creates a bag pre-loaded with messages from the session.
func NewFlashBag(existing []Flash) *FlashBag {
	return &FlashBag{messages: existing}
}

// Add appends a message.
func (b *FlashBag) Add(category FlashCategory, message string) {
	b.messages = append(b.messages, Flash{Category: category, Message: message})
	b.dirty = true
}

// Success adds a success message.
func (b *FlashBag) Success(message string) { b.Add(FlashSuccess, message) }

// Error adds an error message.
func (b *FlashBag) Error(message string) { b.Add(FlashError, message) }

// ReadAll returns all pending messages and empties the bag.
func (b *FlashBag) ReadAll() []Flash {
	out := b.messages
	b.messages = nil
	b.dirty = true
	return out
}

// Pending returns the messages without consuming them.
func (b *FlashBag) Pending() []Flash { return b.messages }

// Dirty reports whether the bag changed and the session needs saving.
func (b *FlashBag) Dirty() bool { return b.dirty }

// Renderer is the presentation edge. The framework passes stable template
// names and a context map; how they become bytes is not its concern.
type Renderer interface {
	Render(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) error
}

// RequestState is the per-request container threaded through handlers via
// the request context. Middleware populates it; there is no hidden global
// state.
type RequestState struct {
	AppName  string
	Prefix   string
	User     User
	Flashes  *FlashBag
	URLs     *URLRegistry
	Renderer Renderer
	CSRF     string
}

type stateKey struct{}

// WithState attaches a RequestState to the context.
func WithState(ctx context.Context, st *RequestState) context.Context {
	return context.WithValue(ctx, stateKey{}, st)
}

// StateFrom extracts the RequestState, or nil when outside the admin app.
func StateFrom(ctx context.Context) *RequestState {
	st, _ := ctx.Value(stateKey{}).(*RequestState)
	return st
}

// MustState extracts the RequestState and panics when absent. Safe to call
// from handlers mounted behind the admin middleware chain.
func MustState(ctx context.Context) *RequestState {
	st := StateFrom(ctx)
	if st == nil {
		panic("steward: request state missing; handler mounted outside the admin app")
	}
	return st
}
