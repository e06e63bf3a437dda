package env

import (
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/hitscript/packages/builtin"
	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

const envPrefix = "$env."

// WarnFunc is a function type for handling warnings
type WarnFunc func(format string, args ...any)

// Source answers lookups for one scope. Sources are consulted in the order
// they were added; the first hit wins.
type Source func(name string) (any, bool)

// MapSource adapts a plain map.
func MapSource(m map[string]any) Source {
	return func(name string) (any, bool) {
		v, ok := m[name]
		return v, ok
	}
}

// StringSource adapts anything with a Get(name) (string, bool) method, such
// as request variables or an Environment.
func StringSource(l interface{ Get(string) (string, bool) }) Source {
	return func(name string) (any, bool) {
		return l.Get(name)
	}
}

// Resolver handles placeholder resolution against an ordered list of
// sources, built-in dynamic variables and the process environment.
type Resolver struct {
	mu       sync.RWMutex
	sources  []Source
	funcs    *builtin.Registry
	getenv   func(string) (string, bool)
	warnFunc WarnFunc
}

type ResolverOption func(*Resolver)

// WithSources appends lookup scopes, highest precedence first.
func WithSources(sources ...Source) ResolverOption {
	return func(r *Resolver) {
		r.sources = append(r.sources, sources...)
	}
}

// WithGetenv replaces os.LookupEnv for {{$env.NAME}}.
func WithGetenv(fn func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) {
		r.getenv = fn
	}
}

// WithRegistry replaces the built-in dynamic variables.
func WithRegistry(reg *builtin.Registry) ResolverOption {
	return func(r *Resolver) {
		r.funcs = reg
	}
}

func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		funcs:  builtin.NewRegistry(),
		getenv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetWarnFunc sets a function to be called when warnings occur (e.g., unresolved variables)
func (r *Resolver) SetWarnFunc(fn WarnFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnFunc = fn
}

func (r *Resolver) warn(format string, args ...any) {
	r.mu.RLock()
	fn := r.warnFunc
	r.mu.RUnlock()
	if fn != nil {
		fn(format, args...)
	}
}

// AddSource appends a lowest-precedence scope.
func (r *Resolver) AddSource(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// SetVariables adds a scope backed by a copy of vars.
func (r *Resolver) SetVariables(vars map[string]any) {
	cp := make(map[string]any, len(vars))
	for k, v := range vars {
		cp[k] = v
	}
	r.AddSource(MapSource(cp))
}

// lookup returns the formatted value of one placeholder expression.
func (r *Resolver) lookup(expr string) (string, bool) {
	if strings.HasPrefix(expr, envPrefix) {
		name := expr[len(envPrefix):]
		if val, ok := r.getenv(name); ok {
			return val, true
		}
		return "", false
	}

	if strings.HasPrefix(expr, "$") {
		if result, ok := r.funcs.Call(expr[1:]); ok {
			return session.FormatValue(result), true
		}
		return "", false
	}

	val, ok := r.GetVariable(expr)
	if !ok {
		return "", false
	}
	return session.FormatValue(val), true
}

func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.lookup(expr); ok {
			return val
		}

		switch {
		case strings.HasPrefix(expr, envPrefix):
			r.warn("unresolved environment variable: %s", expr[len(envPrefix):])
		case strings.HasPrefix(expr, "$"):
			r.warn("unresolved dynamic variable: %s", expr)
		default:
			r.warn("unresolved variable: %s", expr)
		}
		return match
	})
}

// HasUnresolvedVariables reports whether Resolve would leave any
// placeholder in input.
func (r *Resolver) HasUnresolvedVariables(input string) bool {
	return len(r.GetUnresolvedVariables(input)) > 0
}

// GetUnresolvedVariables lists the placeholder names in input that cannot
// be resolved, in order of appearance. It returns nil when there are none.
func (r *Resolver) GetUnresolvedVariables(input string) []string {
	var unresolved []string
	for _, m := range variablePattern.FindAllStringSubmatch(input, -1) {
		expr := strings.TrimSpace(m[1])
		if _, ok := r.lookup(expr); !ok {
			unresolved = append(unresolved, expr)
		}
	}
	return unresolved
}

// GetVariable consults the sources in precedence order.
func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	sources := r.sources
	r.mu.RUnlock()
	for _, src := range sources {
		if v, ok := src(name); ok {
			return v, true
		}
	}
	return nil, false
}
