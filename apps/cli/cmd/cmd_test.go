package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/hitscript/packages/script"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	engine := script.NewEngine()

	t.Run("valid fixture", func(t *testing.T) {
		path := writeTestFile(t, dir, "ok.exchange.yaml", `
exchanges:
  - name: ok
    request:
      url: https://example.com
    preRequest: client.log("hi")
    response:
      status: 200
    handler: client.test("ok", function () {})
`)
		assert.Empty(t, validateFile(engine, path))
	})

	t.Run("syntax errors in both scripts", func(t *testing.T) {
		path := writeTestFile(t, dir, "bad.exchange.yaml", `
exchanges:
  - name: bad
    request:
      url: https://example.com
    preRequest: "var = 1"
    response:
      status: 200
    handler: "client.test("
`)
		errs := validateFile(engine, path)
		require.Len(t, errs, 2)
		assert.Contains(t, errs[0].Error(), "pre-request script")
		assert.Contains(t, errs[1].Error(), "response handler script")
	})

	t.Run("load error", func(t *testing.T) {
		path := writeTestFile(t, dir, "empty.exchange.yaml", "")
		errs := validateFile(engine, path)
		require.Len(t, errs, 1)
	})
}

func TestIsWatchedFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"api/login.exchange.yaml", true},
		{"api/login.exchange.yml", true},
		{"scripts/check.js", true},
		{"scripts/check.mjs", true},
		{"README.md", false},
		{"hitscript.yaml", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isWatchedFile(tt.path), tt.path)
	}
}

func TestSplitTags(t *testing.T) {
	assert.Equal(t, []string{"smoke", "auth"}, splitTags(" smoke, ,auth "))
	assert.Nil(t, splitTags(""))
}

func TestNewFormatter(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"console", "json", "junit", "tap", "JSON"} {
		assert.NotNil(t, newFormatter(format, &buf, false, true), format)
	}
	_, flushable := newFormatter("console", &buf, false, true).(Flushable)
	assert.False(t, flushable)
	_, flushable = newFormatter("junit", &buf, false, true).(Flushable)
	assert.True(t, flushable)
}

func TestJSONPathCommand(t *testing.T) {
	var out bytes.Buffer
	jsonpathCmd.SetOut(&out)
	jsonpathCmd.SetIn(strings.NewReader(`{"items":[{"id":7},{"id":9}]}`))
	t.Cleanup(func() {
		jsonpathCmd.SetOut(nil)
		jsonpathCmd.SetIn(nil)
	})

	require.NoError(t, jsonpathCommand(jsonpathCmd, []string{"$.items[1].id"}))
	assert.Equal(t, "9\n", out.String())

	out.Reset()
	jsonpathCmd.SetIn(strings.NewReader(`{"items":[]}`))
	require.NoError(t, jsonpathCommand(jsonpathCmd, []string{"$.missing"}))
	assert.Equal(t, "null\n", out.String())
}

func TestSerialRunnerNeverOverlaps(t *testing.T) {
	var active, maxActive, runs int32
	s := &serialRunner{run: func(name string) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&runs, 1)
		atomic.AddInt32(&active, -1)
	}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.trigger("login.exchange.yaml")
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
	assert.Equal(t, int32(8), atomic.LoadInt32(&runs))
}
