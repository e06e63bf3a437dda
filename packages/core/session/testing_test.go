package session

import (
	"errors"
	"sort"
	"sync"
)

// memEnv is an in-memory EnvTable for tests.
type memEnv struct {
	mu     sync.Mutex
	vars   map[string]string
	setErr error
}

func newMemEnv(kv ...string) *memEnv {
	e := &memEnv{vars: make(map[string]string)}
	for i := 0; i+1 < len(kv); i += 2 {
		e.vars[kv[i]] = kv[i+1]
	}
	return e
}

func (e *memEnv) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *memEnv) Set(key, value string) error {
	if e.setErr != nil {
		return e.setErr
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[key] = value
	return nil
}

func (e *memEnv) Unset(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, key)
	return nil
}

func (e *memEnv) lookup(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[key]
	return v, ok
}

var errReadOnlyEnv = errors.New("environment is read-only")
