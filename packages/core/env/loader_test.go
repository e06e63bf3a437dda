package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvironment(t *testing.T) {
	configEnvs := map[string]map[string]any{
		"dev":  {"host": "dev.local", "debug": true},
		"prod": {"host": "prod.example.com"},
	}

	env := LoadEnvironment("dev", configEnvs, map[string]any{"token": "t1"})
	assert.Equal(t, "dev", env.Name)
	assert.Equal(t, []string{"debug", "host", "token"}, env.Names())

	v, ok := env.Get("debug")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	_, ok = env.Get("missing")
	assert.False(t, ok)
}

func TestLoadEnvironment_UnknownName(t *testing.T) {
	env := LoadEnvironment("staging", map[string]map[string]any{"dev": {"a": 1}}, nil)
	assert.Empty(t, env.Variables)
}

func TestEnvironment_NilGet(t *testing.T) {
	var env *Environment
	_, ok := env.Get("x")
	assert.False(t, ok)
}

func TestMergeVariables(t *testing.T) {
	got := MergeVariables(map[string]any{"a": 1, "b": 1}, map[string]any{"b": 2})
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got)
}

func TestLoadEnvironment_InlineOverridesConfig(t *testing.T) {
	configEnvs := map[string]map[string]any{"dev": {"host": "dev.local"}}

	env := LoadEnvironment("dev", configEnvs, map[string]any{"host": "inline.local"})
	host, _ := env.Get("host")
	assert.Equal(t, "inline.local", host)
	assert.Equal(t, "dev.local", configEnvs["dev"]["host"], "config environments must not be modified")
}
