package http

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

type Response struct {
	StatusCode int
	Status     string
	Headers    http.Header
	Body       []byte
	// Streaming forces the body to be exposed as a Stream regardless of
	// content type.
	Streaming bool
}

// ContentType is the parsed Content-Type header.
type ContentType struct {
	MimeType string
	Charset  string
}

// NewResponse builds a Response from a status and a header map whose keys
// may use any case.
func NewResponse(status int, headers map[string][]string, body []byte) *Response {
	h := make(http.Header, len(headers))
	for k, values := range headers {
		for _, v := range values {
			h.Add(k, v)
		}
	}
	return &Response{
		StatusCode: status,
		Status:     statusLine(status),
		Headers:    h,
		Body:       body,
	}
}

func statusLine(code int) string {
	text := http.StatusText(code)
	if text == "" {
		return strconv.Itoa(code)
	}
	return strconv.Itoa(code) + " " + text
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// ValueOf returns the first value of the named header.
func (r *Response) ValueOf(name string) (string, bool) {
	values := r.ValuesOf(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// ValuesOf returns every value of the named header, or an empty slice.
func (r *Response) ValuesOf(name string) []string {
	var out []string
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			out = append(out, v...)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func (r *Response) ContentType() ContentType {
	raw, ok := r.ValueOf("Content-Type")
	if !ok || strings.TrimSpace(raw) == "" {
		return ContentType{}
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		mt, _, _ := strings.Cut(raw, ";")
		return ContentType{MimeType: strings.ToLower(strings.TrimSpace(mt))}
	}
	return ContentType{MimeType: mediaType, Charset: params["charset"]}
}

func (r *Response) IsJSON() bool {
	mt := r.ContentType().MimeType
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

// IsStream reports whether the body is exposed as a Stream.
func (r *Response) IsStream() bool {
	if r.Streaming {
		return true
	}
	switch r.ContentType().MimeType {
	case "text/event-stream", "application/x-ndjson", "application/stream+json":
		return true
	}
	return false
}

// BodyValue returns what scripts see as response.body: a *Stream for
// streaming bodies, the decoded value for JSON bodies, the text otherwise.
// A JSON content type with an invalid body falls back to text.
func (r *Response) BodyValue() any {
	if r.IsStream() {
		return NewStream(bytes.NewReader(r.Body), r.ContentType().MimeType == "text/event-stream")
	}
	if r.IsJSON() && gjson.ValidBytes(r.Body) {
		return gjson.ParseBytes(r.Body).Value()
	}
	return r.BodyString()
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
