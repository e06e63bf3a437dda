package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitscript/packages/builtin"
	"github.com/abdul-hamid-achik/hitscript/packages/core/session"
	"github.com/abdul-hamid-achik/hitscript/packages/script"
)

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	testFile := filepath.Join(t.TempDir(), "test.exchange.yaml")
	err := os.WriteFile(testFile, []byte(content), 0644)
	require.NoError(t, err)
	return testFile
}

func newTestRunner(cfg *Config) *Runner {
	if cfg.Env == nil {
		cfg.Env = session.NewMapEnv(map[string]string{"HOME": "/root"})
	}
	return NewRunner(cfg)
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.engine)
		assert.NotNil(t, r.Session())
	})

	t.Run("with custom config", func(t *testing.T) {
		r := newTestRunner(&Config{
			Environment: "test",
			Verbose:     true,
			EnvGuard:    session.GuardLegacy,
		})
		assert.Equal(t, "test", r.config.Environment)
		assert.True(t, r.config.Verbose)
		assert.Equal(t, session.GuardLegacy, r.Session().Guard())
	})
}

func TestRunner_RunFile(t *testing.T) {
	content := `
environment:
  host: example.com
exchanges:
  - name: login
    request:
      method: POST
      url: https://{{host}}/auth
    response:
      status: 200
      headers: {Content-Type: application/json}
      body: '{"token":"abc"}'
    handler: |
      client.test("status is 200", function() {
        client.assert(response.status === 200, "expected 200");
      });
      client.global.set("auth_token", response.body.token);
  - name: profile
    request:
      url: https://{{host}}/me
      headers:
        - name: Authorization
          value: Bearer {{auth_token}}
    response:
      status: 200
      body: ok
    handler: |
      client.test("token forwarded", function() {
        client.assert(request.headers.findByName("Authorization").value() === "Bearer abc");
      });
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 0, result.Failed)
	require.Len(t, result.Results, 2)

	login := result.Results[0]
	assert.True(t, login.Passed)
	assert.Equal(t, "https://example.com/auth", login.Request.URL())
	require.Len(t, login.Tests, 1)
	assert.Equal(t, "status is 200", login.Tests[0].Name)
	assert.Contains(t, login.Output, "Test status is 200 passed.")

	profile := result.Results[1]
	assert.True(t, profile.Passed, profile.Output)
	h, _ := profile.Request.Headers.FindByName("Authorization")
	assert.Equal(t, "Bearer abc", h.Value)

	token, ok := r.Session().Get("auth_token")
	require.True(t, ok)
	assert.Equal(t, "abc", token)
}

func TestRunner_GlobalsSurviveAcrossFiles(t *testing.T) {
	r := newTestRunner(&Config{})

	first := writeFixture(t, `
exchanges:
  - name: set
    request: {url: https://a}
    preRequest: client.global.set("shared", "yes")
`)
	second := writeFixture(t, `
exchanges:
  - name: get
    request: {url: "https://b/{{shared}}"}
`)

	_, err := r.RunFile(context.Background(), first)
	require.NoError(t, err)
	result, err := r.RunFile(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, "https://b/yes", result.Results[0].Request.URL())
}

func TestRunner_RequestVariablesAreScoped(t *testing.T) {
	content := `
exchanges:
  - name: first
    request: {url: "https://x/{{id}}"}
    preRequest: request.variables.set("id", "42")
  - name: second
    request: {url: "https://x/{{id}}"}
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	assert.Equal(t, "https://x/42", result.Results[0].Request.URL())
	assert.Equal(t, "https://x/{{id}}", result.Results[1].Request.URL())
}

func TestRunner_RecordsUnresolvedPlaceholders(t *testing.T) {
	content := `
exchanges:
  - name: resolved
    request: {url: "https://x/{{id}}"}
    preRequest: request.variables.set("id", "42")
  - name: unresolved
    request:
      url: "https://x/{{id}}"
      headers:
        - name: X-Trace
          value: "{{trace}}"
      body: '{"at":"{{$timestamp}}"}'
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	assert.Empty(t, result.Results[0].Unresolved)
	assert.Equal(t, []string{"id", "trace"}, result.Results[1].Unresolved)
}

func TestRunner_CustomFunctions(t *testing.T) {
	funcs := builtin.NewRegistry()
	funcs.Register("tenant", func([]string) any { return "acme" })

	content := `
exchanges:
  - name: tenant
    request: {url: "https://x/{{$tenant}}/{{$missing}}"}
`
	r := newTestRunner(&Config{Functions: funcs})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	assert.Equal(t, "https://x/acme/{{$missing}}", result.Results[0].Request.URL())
	assert.Equal(t, []string{"$missing"}, result.Results[0].Unresolved)
}

func TestRunner_ConfigEnvironments(t *testing.T) {
	content := `
environment:
  token: inline
exchanges:
  - name: env
    request: {url: "https://{{host}}/?t={{token}}"}
    preRequest: client.log(request.environment.get("host"))
`
	r := newTestRunner(&Config{
		Environment: "staging",
		ConfigEnvironments: map[string]map[string]any{
			"staging": {"host": "staging.example.com", "token": "from-config"},
		},
	})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	ex := result.Results[0]
	assert.Equal(t, "https://staging.example.com/?t=inline", ex.Request.URL())
	assert.Equal(t, "staging.example.com\n\n", ex.Output)
}

func TestRunner_ForbiddenGlobal(t *testing.T) {
	content := `
exchanges:
  - name: clobber
    request: {url: https://x}
    preRequest: client.global.set("HOME", "/tmp")
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	assert.True(t, result.Results[0].Passed)
	assert.Equal(t, "global params is forbidden, as it is system env key [HOME]\n\n", result.Results[0].Output)
	_, ok := r.Session().Get("HOME")
	assert.False(t, ok)
}

func TestRunner_MirrorsGlobals(t *testing.T) {
	envTable := session.NewMapEnv(nil)
	content := `
exchanges:
  - name: set
    request: {url: https://x}
    preRequest: client.global.set("user", {id: 1})
`
	r := newTestRunner(&Config{Env: envTable})
	_, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	v, ok := envTable.Lookup("user")
	require.True(t, ok)
	assert.Equal(t, `{"id":1}`, v)

	noMirror := session.NewMapEnv(nil)
	r = newTestRunner(&Config{Env: noMirror, NoMirror: true})
	_, err = r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)
	_, ok = noMirror.Lookup("user")
	assert.False(t, ok)
}

const storeTokenFixture = `
exchanges:
  - name: login
    request: {url: https://x/login}
    response:
      status: 200
      headers: {Content-Type: application/json}
      body: '{"token":"abc"}'
    handler: |
      client.global.set("auth_token", response.body.token);
      client.test("stored", function () {
        client.assert(client.global.get("auth_token") === "abc", "not stored");
      });
`

func TestRunner_SecondRunnerCanSetMirroredGlobals(t *testing.T) {
	tests := []struct {
		name     string
		snapshot bool
		close    bool
	}{
		{name: "shared snapshot", snapshot: true},
		{name: "closed first runner", close: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envTable := session.NewMapEnv(map[string]string{"HOME": "/root"})
			cfg := &Config{Env: envTable}
			if tt.snapshot {
				cfg.EnvSnapshot = session.NewEnvKeySnapshot(envTable.Keys())
			}
			path := writeFixture(t, storeTokenFixture)

			for pass := 1; pass <= 2; pass++ {
				r := NewRunner(cfg)
				result, err := r.RunFile(context.Background(), path)
				require.NoError(t, err)

				ex := result.Results[0]
				assert.True(t, ex.Passed, "pass %d output: %s", pass, ex.Output)
				assert.NotContains(t, ex.Output, "forbidden", "pass %d", pass)
				v, ok := r.Session().Get("auth_token")
				require.True(t, ok, "pass %d", pass)
				assert.Equal(t, "abc", v)

				if tt.close {
					r.Close()
				}
			}
		})
	}
}

func TestRunner_CloseUnsetsMirroredGlobals(t *testing.T) {
	envTable := session.NewMapEnv(map[string]string{"HOME": "/root"})
	r := NewRunner(&Config{Env: envTable})
	_, err := r.RunFile(context.Background(), writeFixture(t, storeTokenFixture))
	require.NoError(t, err)

	_, ok := envTable.Lookup("auth_token")
	require.True(t, ok)

	r.Close()

	_, ok = envTable.Lookup("auth_token")
	assert.False(t, ok)
	assert.True(t, r.Session().IsEmpty())
	home, ok := envTable.Lookup("HOME")
	require.True(t, ok)
	assert.Equal(t, "/root", home)
}

func TestRunner_FailingTestFailsExchange(t *testing.T) {
	content := `
exchanges:
  - name: check
    request: {url: https://x}
    response: {status: 404}
    handler: |
      client.test("ok", function() { client.assert(response.status === 200, "expected 200") });
      client.log("after test");
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	ex := result.Results[0]
	assert.False(t, ex.Passed)
	assert.NoError(t, ex.Error)
	require.Len(t, ex.FailedTests(), 1)
	assert.Equal(t, "Error: expected 200", ex.FailedTests()[0].Error)
	assert.Contains(t, ex.Output, "after test")
	assert.Equal(t, 1, result.Failed)
}

func TestRunner_ScriptErrorFailsExchange(t *testing.T) {
	content := `
exchanges:
  - name: broken
    request: {url: https://x}
    preRequest: client.assert(false, "stop here")
    response: {status: 200}
    handler: client.log("never")
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	ex := result.Results[0]
	assert.False(t, ex.Passed)
	var scriptErr *script.ScriptError
	require.True(t, errors.As(ex.Error, &scriptErr))
	assert.Equal(t, script.PreRequest, scriptErr.Kind)
	assert.Equal(t, "Error: stop here", scriptErr.Message)
	assert.NotContains(t, ex.Output, "never")
	assert.NotNil(t, ex.Response)
}

func TestRunner_RunFile_WithSkip(t *testing.T) {
	content := `
exchanges:
  - name: skipped
    skip: not ready
    request: {url: https://x}
  - name: runs
    request: {url: https://x}
`
	r := newTestRunner(&Config{})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, "not ready", result.Results[0].SkipReason)
}

func TestRunner_NameFilter(t *testing.T) {
	content := `
exchanges:
  - name: first
    request: {url: https://x/first}
  - name: second
    request: {url: https://x/second}
`
	r := newTestRunner(&Config{NameFilter: "fir*"})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped) // second exchange filtered out
	assert.Equal(t, skipFiltered, result.Results[1].SkipReason)
}

func TestRunner_TagsFilter(t *testing.T) {
	content := `
exchanges:
  - name: smoke
    tags: [smoke, api]
    request: {url: https://x/smoke}
  - name: integration
    tags: [integration]
    request: {url: https://x/integration}
`
	r := newTestRunner(&Config{TagsFilter: []string{"smoke"}})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 1, result.Skipped)
}

func TestRunner_Bail(t *testing.T) {
	content := `
exchanges:
  - name: first
    request: {url: https://x/first}
    preRequest: throw new Error("boom")
  - name: second
    request: {url: https://x/second}
`
	r := newTestRunner(&Config{Bail: true})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Len(t, result.Results, 1) // Should stop after first failure
}

func TestRunner_ScriptOutput(t *testing.T) {
	var live bytes.Buffer
	content := `
exchanges:
  - name: talk
    request: {url: https://x}
    preRequest: console.log("hi")
`
	r := newTestRunner(&Config{ScriptOutput: &live})
	result, err := r.RunFile(context.Background(), writeFixture(t, content))
	require.NoError(t, err)

	assert.Equal(t, "hi\n\n", live.String())
	assert.Equal(t, "hi\n\n", result.Results[0].Output)
}

func TestRunner_Cancelled(t *testing.T) {
	content := `
exchanges:
  - name: never
    request: {url: https://x}
`
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := newTestRunner(&Config{})
	result, err := r.RunFile(ctx, writeFixture(t, content))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Results)
}

func TestRunner_RunFile_LoadError(t *testing.T) {
	r := newTestRunner(&Config{})
	_, err := r.RunFile(context.Background(), writeFixture(t, "exchanges: []"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading fixture")
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name     string
		pattern  string
		expected bool
	}{
		{"exact match", "testName", true},
		{"prefix match", "test*", true},
		{"suffix match", "*Name", true},
		{"contains match", "*stNa*", true},
		{"no match", "other*", false},
		{"empty pattern", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name+" - "+tt.pattern, func(t *testing.T) {
			result := matchesPattern("testName", tt.pattern)
			assert.Equal(t, tt.expected, result)
		})
	}
}
