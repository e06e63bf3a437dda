package session

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariables_SetGet(t *testing.T) {
	env := newMemEnv("PATH", "/usr/bin")
	v := NewVariables(WithEnvTable(env))

	assert.True(t, v.IsEmpty())

	v.Set("auth_token", "abc123")

	got, ok := v.Get("auth_token")
	require.True(t, ok)
	assert.Equal(t, "abc123", got)

	_, ok = v.Get("missing")
	assert.False(t, ok)
	assert.False(t, v.IsEmpty())

	mirrored, ok := env.lookup("auth_token")
	require.True(t, ok)
	assert.Equal(t, "abc123", mirrored)
}

func TestVariables_SetKeepsNonStringValues(t *testing.T) {
	env := newMemEnv()
	v := NewVariables(WithEnvTable(env))

	v.Set("user", map[string]any{"id": 7})
	v.Set("count", 3)

	got, _ := v.Get("user")
	assert.Equal(t, map[string]any{"id": 7}, got)

	user, _ := env.lookup("user")
	assert.Equal(t, `{"id":7}`, user)
	count, _ := env.lookup("count")
	assert.Equal(t, "3", count)
}

func TestVariables_StrictGuardRejectsEnvironmentNames(t *testing.T) {
	env := newMemEnv("HOME", "/root")
	v := NewVariables(WithEnvTable(env))

	var diagnostics []string
	v.SetWarnFunc(func(msg string) { diagnostics = append(diagnostics, msg) })

	v.Set("HOME", "/tmp")

	_, ok := v.Get("HOME")
	assert.False(t, ok)
	home, _ := env.lookup("HOME")
	assert.Equal(t, "/root", home)
	require.Len(t, diagnostics, 1)
	assert.Equal(t, "global params is forbidden, as it is system env key [HOME]", diagnostics[0])
}

func TestVariables_StrictGuardKeepsPriorValue(t *testing.T) {
	env := newMemEnv()
	v := NewVariables(WithEnvTable(env))
	v.Set("token", "first")

	// names created after construction are not part of the snapshot
	v.Set("token", "second")
	got, _ := v.Get("token")
	assert.Equal(t, "second", got)

	_ = env.Set("LATE", "x")
	v.Set("LATE", "y")
	late, _ := v.Get("LATE")
	assert.Equal(t, "y", late)
}

func TestVariables_LegacyGuard(t *testing.T) {
	env := newMemEnv("HOME", "/root", "PATH", "/bin")
	v := NewVariables(WithEnvTable(env), WithEnvGuard(GuardLegacy))

	var diagnostics []string
	v.SetWarnFunc(func(msg string) { diagnostics = append(diagnostics, msg) })

	v.Set("HOME", "/tmp")
	got, ok := v.Get("HOME")
	require.True(t, ok)
	assert.Equal(t, "/tmp", got)
	assert.Empty(t, diagnostics)

	tests := []struct {
		key       string
		forbidden bool
	}{
		{key: "0", forbidden: true},
		{key: "1", forbidden: true},
		{key: "2", forbidden: false},
		{key: "01", forbidden: false},
		{key: "+1", forbidden: false},
		{key: "length", forbidden: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.forbidden, GuardLegacy.Forbids(v.EnvSnapshot(), tt.key))
		})
	}
}

func TestVariables_GuardOff(t *testing.T) {
	env := newMemEnv("HOME", "/root")
	v := NewVariables(WithEnvTable(env), WithEnvGuard(GuardOff))

	v.Set("HOME", "/tmp")
	home, _ := env.lookup("HOME")
	assert.Equal(t, "/tmp", home)
}

func TestVariables_WithoutMirror(t *testing.T) {
	env := newMemEnv()
	v := NewVariables(WithEnvTable(env), WithMirror(false))

	v.Set("token", "abc")
	_, ok := env.lookup("token")
	assert.False(t, ok)
	got, _ := v.Get("token")
	assert.Equal(t, "abc", got)
}

func TestVariables_MirrorFailureStillStores(t *testing.T) {
	env := newMemEnv()
	env.setErr = errReadOnlyEnv
	v := NewVariables(WithEnvTable(env))

	v.Set("token", "abc")
	got, ok := v.Get("token")
	require.True(t, ok)
	assert.Equal(t, "abc", got)
}

func TestVariables_ClearOnlyUnsetsMirroredKeys(t *testing.T) {
	env := newMemEnv()
	v := NewVariables(WithEnvTable(env))

	v.Set("a", "1")
	v.Set("b", "2")
	_ = env.Set("external", "keep")

	v.Clear("a")
	_, ok := v.Get("a")
	assert.False(t, ok)
	_, ok = env.lookup("a")
	assert.False(t, ok)

	v.Clear("external")
	_, ok = env.lookup("external")
	assert.True(t, ok)

	assert.Equal(t, []string{"b"}, v.Keys())
	v.ClearAll()
	assert.True(t, v.IsEmpty())
	_, ok = env.lookup("b")
	assert.False(t, ok)
}

func TestVariables_SnapshotIsACopy(t *testing.T) {
	v := NewVariables(WithEnvTable(newMemEnv()))
	v.Set("x", "1")

	snap := v.Snapshot()
	snap["x"] = "changed"

	got, _ := v.Get("x")
	assert.Equal(t, "1", got)
}

func TestVariables_ForbiddenKeyGoesThroughClientLog(t *testing.T) {
	var out bytes.Buffer
	v := NewVariables(WithEnvTable(newMemEnv("SHELL", "/bin/sh")))
	c := NewClient(v, WithOutput(&out))

	c.Global.Set("SHELL", "zsh")

	assert.Equal(t, "global params is forbidden, as it is system env key [SHELL]\n\n", out.String())
}

func TestVariables_WithEnvKeySnapshot(t *testing.T) {
	env := newMemEnv("HOME", "/root")
	first := NewVariables(WithEnvTable(env))
	first.Set("token", "abc")
	_, mirrored := env.lookup("token")
	require.True(t, mirrored)

	second := NewVariables(WithEnvTable(env), WithEnvKeySnapshot(first.EnvSnapshot()))
	second.Set("token", "def")
	got, ok := second.Get("token")
	require.True(t, ok)
	assert.Equal(t, "def", got)
	assert.False(t, second.EnvSnapshot().Contains("token"))

	fresh := NewVariables(WithEnvTable(env))
	assert.True(t, fresh.EnvSnapshot().Contains("token"))
}

func TestParseEnvGuard(t *testing.T) {
	tests := []struct {
		input string
		want  EnvGuard
		ok    bool
	}{
		{"", GuardStrict, true},
		{"strict", GuardStrict, true},
		{"LEGACY", GuardLegacy, true},
		{"off", GuardOff, true},
		{"sometimes", GuardStrict, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseEnvGuard(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEnvKeySnapshot(t *testing.T) {
	s := NewEnvKeySnapshot([]string{"B", "A", "B"})
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains("A"))
	assert.False(t, s.Contains("C"))
	assert.Equal(t, []string{"A", "B"}, s.Keys())
}

func TestOSEnv_Keys(t *testing.T) {
	t.Setenv("HITSCRIPT_SNAPSHOT_MARKER", "1")
	keys := OSEnv{}.Keys()
	assert.Contains(t, keys, "HITSCRIPT_SNAPSHOT_MARKER")
}

func TestMapEnv(t *testing.T) {
	src := map[string]string{"HOME": "/root"}
	env := NewMapEnv(src)
	src["HOME"] = "changed"

	v, ok := env.Lookup("HOME")
	assert.True(t, ok)
	assert.Equal(t, "/root", v)

	vars := NewVariables(WithEnvTable(env))
	vars.Set("token", "abc")
	vars.Set("HOME", "/tmp")

	assert.Equal(t, []string{"HOME", "token"}, env.Keys())
	v, _ = env.Lookup("HOME")
	assert.Equal(t, "/root", v)

	vars.Clear("token")
	_, ok = env.Lookup("token")
	assert.False(t, ok)
}
