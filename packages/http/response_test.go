package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createResponse(status int, body string, headers map[string][]string) *Response {
	if headers == nil {
		headers = map[string][]string{"Content-Type": {"application/json"}}
	}
	return NewResponse(status, headers, []byte(body))
}

func TestResponse_Headers(t *testing.T) {
	resp := createResponse(200, `{}`, map[string][]string{
		"content-type": {"application/json"},
		"Set-Cookie":   {"a=1", "b=2"},
	})

	v, ok := resp.ValueOf("Content-Type")
	require.True(t, ok)
	assert.Equal(t, "application/json", v)

	first, ok := resp.ValueOf("set-cookie")
	require.True(t, ok)
	assert.Equal(t, "a=1", first)
	assert.Equal(t, []string{"a=1", "b=2"}, resp.ValuesOf("SET-COOKIE"))

	_, ok = resp.ValueOf("X-Missing")
	assert.False(t, ok)
	assert.NotNil(t, resp.ValuesOf("X-Missing"))
	assert.Empty(t, resp.ValuesOf("X-Missing"))
}

func TestResponse_ContentType(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected ContentType
	}{
		{"json with charset", "application/json; charset=UTF-8", ContentType{MimeType: "application/json", Charset: "UTF-8"}},
		{"plain", "text/plain", ContentType{MimeType: "text/plain"}},
		{"upper case", "Text/XML", ContentType{MimeType: "text/xml"}},
		{"malformed params", "text/html; =", ContentType{MimeType: "text/html"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := createResponse(200, "", map[string][]string{"Content-Type": {tt.header}})
			assert.Equal(t, tt.expected, resp.ContentType())
		})
	}

	t.Run("missing", func(t *testing.T) {
		resp := createResponse(204, "", map[string][]string{})
		assert.Equal(t, ContentType{}, resp.ContentType())
	})
}

func TestResponse_BodyValue(t *testing.T) {
	t.Run("json object", func(t *testing.T) {
		resp := createResponse(200, `{"token": "abc", "n": 2}`, nil)
		body, ok := resp.BodyValue().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "abc", body["token"])
		assert.Equal(t, float64(2), body["n"])
	})

	t.Run("vendor json", func(t *testing.T) {
		resp := createResponse(200, `[1,2]`, map[string][]string{"Content-Type": {"application/problem+json"}})
		assert.Equal(t, []any{float64(1), float64(2)}, resp.BodyValue())
	})

	t.Run("invalid json falls back to text", func(t *testing.T) {
		resp := createResponse(200, `{oops`, nil)
		assert.Equal(t, "{oops", resp.BodyValue())
	})

	t.Run("text", func(t *testing.T) {
		resp := createResponse(200, "hello", map[string][]string{"Content-Type": {"text/plain"}})
		assert.Equal(t, "hello", resp.BodyValue())
	})

	t.Run("event stream", func(t *testing.T) {
		resp := createResponse(200, "data: 1\n\n", map[string][]string{"Content-Type": {"text/event-stream"}})
		_, ok := resp.BodyValue().(*Stream)
		assert.True(t, ok)
	})

	t.Run("forced stream", func(t *testing.T) {
		resp := createResponse(200, "a\nb\n", map[string][]string{"Content-Type": {"text/plain"}})
		resp.Streaming = true
		_, ok := resp.BodyValue().(*Stream)
		assert.True(t, ok)
	})
}

func TestNewResponse_Status(t *testing.T) {
	assert.Equal(t, "404 Not Found", createResponse(404, "", nil).Status)
	assert.Equal(t, "599", createResponse(599, "", nil).Status)
	assert.True(t, createResponse(201, "", nil).IsSuccess())
	assert.False(t, createResponse(500, "", nil).IsSuccess())
}
