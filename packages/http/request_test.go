package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_View(t *testing.T) {
	req := NewRequest("POST", "https://{{host}}/login",
		WithBody(`{"user":"{{user}}"}`),
		WithHeaders(
			Header{Name: "Content-Type", Value: "application/json"},
			Header{Name: "Authorization", Value: "Bearer {{token}}"},
		),
		WithVariables(map[string]string{"user": "ann"}),
		WithEnvironment(MapLookup{"host": "example.com"}),
	)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "https://{{host}}/login", req.URL())

	hdr, ok := req.Headers.FindByName("authorization")
	require.True(t, ok)
	assert.Equal(t, "Bearer {{token}}", hdr.Value)

	_, ok = req.Headers.FindByName("X-Missing")
	assert.False(t, ok)
	assert.Len(t, req.Headers.All(), 2)

	v, ok := req.Variables.Get("user")
	require.True(t, ok)
	assert.Equal(t, "ann", v)
	_, ok = req.Variables.Get("nope")
	assert.False(t, ok)

	host, ok := req.Environment.Get("host")
	require.True(t, ok)
	assert.Equal(t, "example.com", host)

	req.Resolve(func(s string) string {
		return strings.NewReplacer("{{host}}", "example.com", "{{user}}", "ann", "{{token}}", "t0k").Replace(s)
	})
	assert.Equal(t, "https://example.com/login", req.URL())
	assert.Equal(t, `{"user":"ann"}`, req.Body())
	hdr, _ = req.Headers.FindByName("Authorization")
	assert.Equal(t, "Bearer t0k", hdr.Value)
}

func TestRequestVariables_NotShared(t *testing.T) {
	first := NewRequest("GET", "https://a")
	second := NewRequest("GET", "https://b")

	first.Variables.Set("id", "1")
	_, ok := second.Variables.Get("id")
	assert.False(t, ok)
	assert.Equal(t, []string{"id"}, first.Variables.Names())
}

func TestHeaders_Map(t *testing.T) {
	h := NewHeaders(Header{Name: "A", Value: "1"})
	h.Add("A", "2")
	h.Add("B", "3")
	assert.Equal(t, map[string]string{"A": "2", "B": "3"}, h.Map())
}
