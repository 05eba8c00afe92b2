// Package metric implements dashboard cards computed per request: single
// values, trends, partitions, and progress gauges. A metric's Compute runs
// inside the request and returns one of the closed result shapes; screens
// render results through a single context entry point.
package metric

import (
	"context"
	"fmt"
	"net/http"
)

// Metric is one dashboard card, mounted under /metrics/{slug} of its
// owning screen and refreshed independently by the client.
type Metric interface {
	Slug() string
	Label() string
	Compute(ctx context.Context, r *http.Request) (Result, error)
}

// Result is the closed set of metric outcomes.
type Result interface{ kind() string }

// Value is a single scalar with optional prefix/suffix formatting.
type Value struct {
	Amount any    `json:"value"`
	Prefix string `json:"prefix,omitempty"`
	Suffix string `json:"suffix,omitempty"`
}

// TrendPoint is one sample of a trend series.
type TrendPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Trend is an ordered series plus an optional current scalar.
type Trend struct {
	Series  []TrendPoint `json:"series"`
	Current any          `json:"current,omitempty"`
}

// PartitionEntry is one share of a partition breakdown.
type PartitionEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// Partition is a share breakdown; entries without a color get one from the
// rotating palette at construction.
type Partition struct {
	Entries []PartitionEntry `json:"entries"`
}

// Progress is completion toward a target.
type Progress struct {
	Current float64 `json:"current"`
	Target  float64 `json:"target"`
}

func (Value) kind() string     { return "value" }
func (Trend) kind() string     { return "trend" }
func (Partition) kind() string { return "partition" }
func (Progress) kind() string  { return "progress" }

// palette is the rotating color assignment for partition entries, in the
// order the original dashboard styles them.
var palette = []string{
	"#0ea5e9", "#8b5cf6", "#22c55e", "#f97316",
	"#ef4444", "#14b8a6", "#eab308", "#ec4899",
}

// NewPartition builds a partition, assigning palette colors to entries
// that declare none. Explicit colors are kept and do not consume a slot.
func NewPartition(entries ...PartitionEntry) Partition {
	next := 0
	out := make([]PartitionEntry, len(entries))
	for i, e := range entries {
		if e.Color == "" {
			e.Color = palette[next%len(palette)]
			next++
		}
		out[i] = e
	}
	return Partition{Entries: out}
}

// Total sums the partition values.
func (p Partition) Total() float64 {
	var sum float64
	for _, e := range p.Entries {
		sum += e.Value
	}
	return sum
}

// Percent returns the share of one entry, 0 when the partition is empty.
func (p Partition) Percent(i int) float64 {
	total := p.Total()
	if total == 0 || i < 0 || i >= len(p.Entries) {
		return 0
	}
	return p.Entries[i].Value / total * 100
}

// Percent returns completion as a percentage, 0 when the target is 0.
func (p Progress) Percent() float64 {
	if p.Target == 0 {
		return 0
	}
	return p.Current / p.Target * 100
}

// Func adapts a plain compute function into a Metric.
type Func struct {
	SlugName  string
	LabelText string
	ComputeFn func(ctx context.Context, r *http.Request) (Result, error)
}

func (m *Func) Slug() string  { return m.SlugName }
func (m *Func) Label() string { return m.LabelText }

func (m *Func) Compute(ctx context.Context, r *http.Request) (Result, error) {
	return m.ComputeFn(ctx, r)
}

// RenderContext flattens a result for the renderer: the card template is
// selected by kind ("metric/value", "metric/trend", ...).
func RenderContext(m Metric, res Result) map[string]any {
	ctx := map[string]any{
		"slug":   m.Slug(),
		"label":  m.Label(),
		"kind":   res.kind(),
		"result": res,
	}
	switch r := res.(type) {
	case Value:
		ctx["display"] = r.Prefix + fmt.Sprint(r.Amount) + r.Suffix
	case Partition:
		ctx["total"] = r.Total()
	case Progress:
		ctx["percent"] = r.Percent()
	}
	return ctx
}

// TemplateName returns the renderer template for a result.
func TemplateName(res Result) string { return "metric/" + res.kind() }
