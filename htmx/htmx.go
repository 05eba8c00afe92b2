// Package htmx implements the hypermedia response envelope: client-side
// event triggers, redirects, and history updates expressed as HX-* response
// headers, plus request introspection helpers.
package htmx

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Request headers set by the htmx client.
const (
	HeaderRequest = "HX-Request"
	HeaderTarget  = "HX-Target"
	HeaderBoosted = "HX-Boosted"
)

// Response headers interpreted by the htmx client.
const (
	HeaderTrigger  = "HX-Trigger"
	HeaderRedirect = "HX-Redirect"
	HeaderLocation = "HX-Location"
	HeaderRefresh  = "HX-Refresh"
	HeaderPushURL  = "HX-Push-Url"
)

// Client-side event names the admin frontend listens for.
const (
	eventToast       = "toast"
	eventCloseModal  = "modals.close"
	eventRefreshList = "refresh-datatable"
)

// IsRequest reports whether the request was issued by the htmx client.
func IsRequest(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}

// IsBoosted reports whether the request came from a boosted anchor or form.
func IsBoosted(r *http.Request) bool {
	return r.Header.Get(HeaderBoosted) == "true"
}

// MatchesTarget reports whether the htmx request targets the element with
// the given id. Used to pick partial over full renders.
func MatchesTarget(r *http.Request, id string) bool {
	return IsRequest(r) && r.Header.Get(HeaderTarget) == id
}

// Response accumulates the envelope and writes it as headers. The zero
// value is not usable; start from New or one of the outcome constructors.
//
// Triggers are merged into a single HX-Trigger JSON object, so several
// triggers of the same name collapse to the last payload.
type Response struct {
	status   int
	triggers map[string]any
	order    []string
	headers  map[string]string
}

// New returns an empty envelope that writes 204 No Content by default.
func New() *Response {
	return &Response{
		status:   http.StatusNoContent,
		triggers: make(map[string]any),
		headers:  make(map[string]string),
	}
}

// Status overrides the response status code.
func (resp *Response) Status(code int) *Response {
	resp.status = code
	return resp
}

// Trigger registers a client-side event with an optional payload.
func (resp *Response) Trigger(name string, payload any) *Response {
	if _, seen := resp.triggers[name]; !seen {
		resp.order = append(resp.order, name)
	}
	resp.triggers[name] = payload
	return resp
}

// Toast queues a toast notification. Category is "success" or "error".
func (resp *Response) Toast(message, category string) *Response {
	return resp.Trigger(eventToast, map[string]string{
		"message":  message,
		"category": category,
	})
}

// ToastSuccess queues a success toast.
func (resp *Response) ToastSuccess(format string, args ...any) *Response {
	return resp.Toast(fmt.Sprintf(format, args...), "success")
}

// ToastError queues an error toast.
func (resp *Response) ToastError(format string, args ...any) *Response {
	return resp.Toast(fmt.Sprintf(format, args...), "error")
}

// CloseModal tells the client to dismiss any open modal.
func (resp *Response) CloseModal() *Response {
	return resp.Trigger(eventCloseModal, nil)
}

// RefreshList tells the client to re-fetch the data table.
func (resp *Response) RefreshList() *Response {
	return resp.Trigger(eventRefreshList, nil)
}

// Refresh asks the client for a full page reload.
func (resp *Response) Refresh() *Response {
	resp.headers[HeaderRefresh] = "true"
	return resp
}

// Redirect performs a client-side full navigation to url.
func (resp *Response) Redirect(url string) *Response {
	resp.headers[HeaderRedirect] = url
	return resp
}

// Location performs an htmx-managed navigation, optionally swapping into
// target instead of the body.
func (resp *Response) Location(url, target string) *Response {
	if target == "" {
		resp.headers[HeaderLocation] = url
		return resp
	}
	payload, _ := json.Marshal(map[string]string{"path": url, "target": target})
	resp.headers[HeaderLocation] = string(payload)
	return resp
}

// PushURL replaces the browser history entry without navigating.
func (resp *Response) PushURL(url string) *Response {
	resp.headers[HeaderPushURL] = url
	return resp
}

// Apply sets the accumulated headers without writing the status line, for
// handlers that go on to render a body.
func (resp *Response) Apply(w http.ResponseWriter) error {
	for name, value := range resp.headers {
		w.Header().Set(name, value)
	}
	if len(resp.triggers) > 0 {
		payload, err := json.Marshal(resp.triggers)
		if err != nil {
			return fmt.Errorf("htmx: marshal triggers: %w", err)
		}
		w.Header().Set(HeaderTrigger, string(payload))
	}
	return nil
}

// Write emits the accumulated headers and status code. Bodyless by design;
// handlers that render content use Apply instead.
func (resp *Response) Write(w http.ResponseWriter) error {
	if err := resp.Apply(w); err != nil {
		return err
	}
	w.WriteHeader(resp.status)
	return nil
}
