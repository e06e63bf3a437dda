package session

import (
	"fmt"
	"sort"
	"sync"

	"github.com/abdul-hamid-achik/hitscript/packages/logging"
)

// WarnFunc receives diagnostics that the store reports instead of failing.
type WarnFunc func(msg string)

// Variables is the session-wide global variable store (client.global).
type Variables struct {
	mu       sync.RWMutex
	values   map[string]any
	mirrored map[string]struct{}
	snapshot *EnvKeySnapshot
	env      EnvTable
	guard    EnvGuard
	mirror   bool
	warnFunc WarnFunc
	log      logging.Logger
}

// VariablesOption configures a Variables store.
type VariablesOption func(*Variables)

// WithEnvTable replaces the process environment the store snapshots and
// mirrors into.
func WithEnvTable(env EnvTable) VariablesOption {
	return func(v *Variables) {
		v.env = env
	}
}

// WithEnvGuard selects the forbidden-key check.
func WithEnvGuard(g EnvGuard) VariablesOption {
	return func(v *Variables) {
		v.guard = g
	}
}

// WithMirror enables or disables copying values into the environment.
func WithMirror(enabled bool) VariablesOption {
	return func(v *Variables) {
		v.mirror = enabled
	}
}

// WithEnvKeySnapshot reuses names captured earlier instead of reading the
// environment again. Hosts that build several stores in one process pass
// the same snapshot so values mirrored by one store never count as system
// names for the next.
func WithEnvKeySnapshot(s *EnvKeySnapshot) VariablesOption {
	return func(v *Variables) {
		v.snapshot = s
	}
}

func WithLogger(l logging.Logger) VariablesOption {
	return func(v *Variables) {
		if l != nil {
			v.log = l
		}
	}
}

// NewVariables creates an empty store and snapshots the environment names.
func NewVariables(opts ...VariablesOption) *Variables {
	v := &Variables{
		values:   make(map[string]any),
		mirrored: make(map[string]struct{}),
		env:      OSEnv{},
		guard:    GuardStrict,
		mirror:   true,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.snapshot == nil {
		v.snapshot = NewEnvKeySnapshot(v.env.Keys())
	}
	return v
}

// SetWarnFunc sets where forbidden-key diagnostics are printed.
func (v *Variables) SetWarnFunc(fn WarnFunc) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.warnFunc = fn
}

func (v *Variables) warn(msg string) {
	v.mu.RLock()
	fn := v.warnFunc
	v.mu.RUnlock()
	if fn != nil {
		fn(msg)
	}
}

// EnvSnapshot returns the environment names captured at construction.
func (v *Variables) EnvSnapshot() *EnvKeySnapshot {
	return v.snapshot
}

func (v *Variables) Guard() EnvGuard {
	return v.guard
}

// Set stores value under key and mirrors it into the environment. A key
// the guard forbids is dropped after a diagnostic; Set never fails.
func (v *Variables) Set(key string, value any) {
	if v.guard.Forbids(v.snapshot, key) {
		v.log.Warn("global variable rejected", "key", key, "guard", v.guard.String())
		v.warn(fmt.Sprintf("global params is forbidden, as it is system env key [%s]", key))
		return
	}

	v.mu.Lock()
	v.values[key] = value
	v.mu.Unlock()

	if !v.mirror {
		v.log.Debug("global variable stored", "key", key)
		return
	}
	if err := v.env.Set(key, FormatValue(value)); err != nil {
		v.log.Warn("cannot mirror global variable into environment", "key", key, "error", err)
		return
	}
	v.mu.Lock()
	v.mirrored[key] = struct{}{}
	v.mu.Unlock()
	v.log.Debug("global variable stored", "key", key, "mirrored", true)
}

// Get returns the value stored under key.
func (v *Variables) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[key]
	return val, ok
}

func (v *Variables) IsEmpty() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.values) == 0
}

// Clear removes key. Its environment entry is removed only if this store
// put it there.
func (v *Variables) Clear(key string) {
	v.mu.Lock()
	delete(v.values, key)
	_, wasMirrored := v.mirrored[key]
	delete(v.mirrored, key)
	v.mu.Unlock()

	if wasMirrored {
		if err := v.env.Unset(key); err != nil {
			v.log.Warn("cannot remove mirrored variable from environment", "key", key, "error", err)
		}
	}
}

func (v *Variables) ClearAll() {
	for _, key := range v.Keys() {
		v.Clear(key)
	}
}

// Keys returns the stored names sorted.
func (v *Variables) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of all stored values.
func (v *Variables) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}
