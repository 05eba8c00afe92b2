package main

import (
	"encoding/json"
	"net/http"
)

// jsonRenderer emits the template name and context as JSON. The framework
// leaves HTML to the embedding application; the demo keeps the payloads
// inspectable instead.
type jsonRenderer struct{}

func (jsonRenderer) Render(w http.ResponseWriter, r *http.Request, name string, ctx map[string]any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"template": name,
		"context":  sanitize(ctx),
	})
}

// sanitize drops values JSON cannot represent so one odd context entry does
// not fail the whole response.
func sanitize(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx))
	for k, v := range ctx {
		if _, err := json.Marshal(v); err != nil {
			out[k] = "(unrenderable)"
			continue
		}
		out[k] = v
	}
	return out
}
