// Package screen implements the three screen variants admin resources are
// assembled from: index (list), form (create/edit), and display (read-only
// view). A screen owns its dispatch logic plus /actions/{slug} and
// /metrics/{slug} sub-routes; rendering goes through the injected Renderer
// with stable template names.
package screen

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/veldtlabs/steward/action"
	"github.com/veldtlabs/steward/htmx"
	"github.com/veldtlabs/steward/metric"
	"github.com/veldtlabs/steward/model"
)

// Screen is a routable admin page.
type Screen interface {
	http.Handler

	// Slug identifies the screen within the app, used in routes.
	Slug() string

	// Label is the human name used in menus and titles.
	Label() string

	// RouteName is the stable reverse-lookup name.
	RouteName() string
}

func tracer() trace.Tracer { return otel.Tracer("steward/screen") }

func startSpan(r *http.Request, name, slug string) (*http.Request, trace.Span) {
	ctx, span := tracer().Start(r.Context(), name,
		trace.WithAttributes(attribute.String("steward.screen", slug)))
	return r.WithContext(ctx), span
}

// mountExtras wires the action and metric sub-routes shared by every
// screen kind. Unknown slugs fall through to 404.
func mountExtras(router chi.Router, actions []*action.Action, metrics []metric.Metric) {
	byASlug := make(map[string]*action.Action, len(actions))
	for _, a := range actions {
		byASlug[a.Slug] = a
	}
	router.HandleFunc("/actions/{slug}", func(w http.ResponseWriter, r *http.Request) {
		a, ok := byASlug[chi.URLParam(r, "slug")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		a.Dispatch(w, r)
	})

	byMSlug := make(map[string]metric.Metric, len(metrics))
	for _, m := range metrics {
		byMSlug[m.Slug()] = m
	}
	router.Get("/metrics/{slug}", func(w http.ResponseWriter, r *http.Request) {
		m, ok := byMSlug[chi.URLParam(r, "slug")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		res, err := m.Compute(r.Context(), r)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		renderTo(w, r, metric.TemplateName(res), metric.RenderContext(m, res))
	})
}

// renderTo renders through the request state renderer, failing with a 500
// when the screen is mounted outside the admin app.
func renderTo(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) {
	st := model.StateFrom(r.Context())
	if st == nil || st.Renderer == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := st.Renderer.Render(w, r, name, ctx); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// serverError reports an unexpected backend failure: HX clients get a 500
// with an error toast so their page state survives, others a plain error.
func serverError(w http.ResponseWriter, r *http.Request) {
	if htmx.IsRequest(r) {
		_ = htmx.New().ToastError("something went wrong").Apply(w)
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// MetricOutcome pairs a metric with its computed result or failure.
type MetricOutcome struct {
	Metric metric.Metric
	Result metric.Result
	Err    error
}

// ComputeMetrics fans the computations out concurrently and returns the
// outcomes in declaration order. Each metric sees the request context, so
// one slow metric cannot outlive the request deadline.
func ComputeMetrics(ctx context.Context, r *http.Request, metrics []metric.Metric) []MetricOutcome {
	out := make([]MetricOutcome, len(metrics))
	var wg sync.WaitGroup
	for i, m := range metrics {
		wg.Add(1)
		go func(i int, m metric.Metric) {
			defer wg.Done()
			res, err := m.Compute(ctx, r)
			out[i] = MetricOutcome{Metric: m, Result: res, Err: err}
		}(i, m)
	}
	wg.Wait()
	return out
}
