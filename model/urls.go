package model

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// URLRegistry maps stable route names to mounted path patterns so handlers
// and templates can reverse URLs without knowing the mount layout. Route
// names derive deterministically from (resource slug, screen kind, action
// id); registration happens once at startup and the registry is read-only
// afterwards.
type URLRegistry struct {
	mu     sync.RWMutex
	routes map[string]string
	frozen bool
}

// NewURLRegistry creates an empty registry.
func NewURLRegistry() *URLRegistry {
	return &URLRegistry{routes: make(map[string]string)}
}

// Register records a route name with its absolute path pattern. Patterns
// use chi-style placeholders, e.g. /admin/resources/posts/{object_id}/edit.
// Duplicate names are a configuration error.
func (reg *URLRegistry) Register(name, pattern string) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.frozen {
		return NewConfigError("urls", "registry is frozen; cannot register %q", name)
	}
	if _, exists := reg.routes[name]; exists {
		return NewConfigError("urls", "duplicate route name %q", name)
	}
	reg.routes[name] = pattern
	return nil
}

// MustRegister is Register for startup paths where a duplicate is fatal.
func (reg *URLRegistry) MustRegister(name, pattern string) {
	if err := reg.Register(name, pattern); err != nil {
		panic(err)
	}
}

// Freeze marks the registry immutable. Called once routing is assembled.
func (reg *URLRegistry) Freeze() {
	reg.mu.Lock()
	reg.frozen = true
	reg.mu.Unlock()
}

// Reverse resolves a route name to a path, substituting {placeholder}
// params in declaration order from args.
func (reg *URLRegistry) Reverse(name string, args ...string) (string, error) {
	reg.mu.RLock()
	pattern, ok := reg.routes[name]
	reg.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("steward: unknown route name %q", name)
	}

	var b strings.Builder
	arg := 0
	for {
		start := strings.IndexByte(pattern, '{')
		if start < 0 {
			b.WriteString(pattern)
			break
		}
		end := strings.IndexByte(pattern[start:], '}')
		if end < 0 {
			b.WriteString(pattern)
			break
		}
		b.WriteString(pattern[:start])
		if arg >= len(args) {
			return "", fmt.Errorf("steward: route %q needs more than %d args", name, len(args))
		}
		b.WriteString(args[arg])
		arg++
		pattern = pattern[start+end+1:]
	}
	if arg < len(args) {
		return "", fmt.Errorf("steward: route %q given %d surplus args", name, len(args)-arg)
	}
	return b.String(), nil
}

// MustReverse is Reverse that panics on unknown names. Intended for
// template helpers where a bad name is a programming error.
func (reg *URLRegistry) MustReverse(name string, args ...string) string {
	u, err := reg.Reverse(name, args...)
	if err != nil {
		panic(err)
	}
	return u
}

// Names returns all registered route names, sorted. Useful in tests.
func (reg *URLRegistry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.routes))
	for name := range reg.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Route name builders. Kept together so the derivation rule lives in one
// place.

// ResourceRouteName names a resource screen route, e.g.
// steward.resource.posts.index.
func ResourceRouteName(slug, kind string) string {
	return fmt.Sprintf("steward.resource.%s.%s", slug, kind)
}

// ScreenRouteName names a standalone screen route.
func ScreenRouteName(slug string) string {
	return fmt.Sprintf("steward.screen.%s", slug)
}

// ActionRouteName names an action sub-route of a screen route.
func ActionRouteName(owner, actionSlug string) string {
	return owner + ".actions." + actionSlug
}

// MetricRouteName names a metric sub-route of a screen route.
func MetricRouteName(owner, metricSlug string) string {
	return owner + ".metrics." + metricSlug
}
