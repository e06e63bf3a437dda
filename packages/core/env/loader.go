package env

import (
	"sort"

	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
)

// Environment is the read-only `request.environment` of a run.
type Environment struct {
	Name      string
	Variables map[string]any
}

// LoadEnvironment picks envName from the config environments and overlays
// the inline variables a fixture declares.
func LoadEnvironment(envName string, configEnvs map[string]map[string]any, inline map[string]any) *Environment {
	return &Environment{
		Name:      envName,
		Variables: MergeVariables(configEnvs[envName], inline),
	}
}

// Get returns the formatted value of name.
func (e *Environment) Get(name string) (string, bool) {
	if e == nil {
		return "", false
	}
	v, ok := e.Variables[name]
	if !ok {
		return "", false
	}
	return session.FormatValue(v), true
}

// Names returns the variable names sorted.
func (e *Environment) Names() []string {
	names := make([]string, 0, len(e.Variables))
	for k := range e.Variables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MergeVariables copies sources into one map; later sources win.
func MergeVariables(sources ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, src := range sources {
		for k, v := range src {
			result[k] = v
		}
	}
	return result
}
