package session

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// EnvTable is the process environment as seen by the variable store.
type EnvTable interface {
	Keys() []string
	Set(key, value string) error
	Unset(key string) error
}

// OSEnv is the real process environment.
type OSEnv struct{}

func (OSEnv) Keys() []string {
	environ := os.Environ()
	keys := make([]string, 0, len(environ))
	for _, e := range environ {
		key, _, found := strings.Cut(e, "=")
		if !found || key == "" {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (OSEnv) Set(key, value string) error {
	return os.Setenv(key, value)
}

func (OSEnv) Unset(key string) error {
	return os.Unsetenv(key)
}

// EnvKeySnapshot is the set of environment names captured when a store is
// created. It never changes afterwards.
type EnvKeySnapshot struct {
	keys  []string
	index map[string]struct{}
}

func NewEnvKeySnapshot(keys []string) *EnvKeySnapshot {
	s := &EnvKeySnapshot{
		keys:  make([]string, 0, len(keys)),
		index: make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
	return s
}

func (s *EnvKeySnapshot) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

func (s *EnvKeySnapshot) Len() int {
	return len(s.keys)
}

// Keys returns the snapshot names sorted.
func (s *EnvKeySnapshot) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	sort.Strings(out)
	return out
}

// EnvGuard selects how Set decides a key collides with the environment.
type EnvGuard int

const (
	// GuardStrict rejects keys that are names in the snapshot.
	GuardStrict EnvGuard = iota
	// GuardLegacy matches the reference `key in sysEnvKeys` check, which
	// tests array property names: only "length" and index strings in range
	// collide. Real environment names are never rejected.
	GuardLegacy
	// GuardOff never rejects a key.
	GuardOff
)

func (g EnvGuard) String() string {
	switch g {
	case GuardStrict:
		return "strict"
	case GuardLegacy:
		return "legacy"
	case GuardOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseEnvGuard accepts "strict", "legacy" or "off". Empty means strict.
func ParseEnvGuard(s string) (EnvGuard, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return GuardStrict, true
	case "legacy":
		return GuardLegacy, true
	case "off", "none":
		return GuardOff, true
	default:
		return GuardStrict, false
	}
}

// Forbids reports whether key may not be written under this guard.
func (g EnvGuard) Forbids(snapshot *EnvKeySnapshot, key string) bool {
	switch g {
	case GuardStrict:
		return snapshot.Contains(key)
	case GuardLegacy:
		return isArrayProperty(key, snapshot.Len())
	default:
		return false
	}
}

// isArrayProperty reports whether key is an own property name of an array
// of length n: "length" or a canonical index below n.
func isArrayProperty(key string, n int) bool {
	if key == "length" {
		return true
	}
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return false
	}
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return false
		}
	}
	idx, err := strconv.Atoi(key)
	if err != nil {
		return false
	}
	return idx < n
}

// MapEnv is an in-memory EnvTable. Hosts use it to keep script sessions
// away from the real process environment.
type MapEnv struct {
	mu   sync.Mutex
	vars map[string]string
}

func NewMapEnv(vars map[string]string) *MapEnv {
	e := &MapEnv{vars: make(map[string]string, len(vars))}
	for k, v := range vars {
		e.vars[k] = v
	}
	return e
}

func (e *MapEnv) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *MapEnv) Set(key, value string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[key] = value
	return nil
}

func (e *MapEnv) Unset(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, key)
	return nil
}

// Lookup returns the value of key.
func (e *MapEnv) Lookup(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[key]
	return v, ok
}
