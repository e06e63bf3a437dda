package http

import (
	"sort"
	"strings"
	"sync"
)

// Lookup resolves read-only named values such as environment variables.
type Lookup interface {
	Get(name string) (string, bool)
}

// MapLookup is a Lookup over a plain map.
type MapLookup map[string]string

func (m MapLookup) Get(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

type Header struct {
	Name  string
	Value string
}

// Headers is the ordered header list of a request.
type Headers struct {
	list []Header
}

func NewHeaders(headers ...Header) *Headers {
	h := &Headers{}
	h.list = append(h.list, headers...)
	return h
}

func (h *Headers) Add(name, value string) {
	h.list = append(h.list, Header{Name: name, Value: value})
}

// All returns every header in declaration order.
func (h *Headers) All() []Header {
	out := make([]Header, len(h.list))
	copy(out, h.list)
	return out
}

// FindByName returns the first header with the given name, ignoring case.
func (h *Headers) FindByName(name string) (Header, bool) {
	for _, hdr := range h.list {
		if strings.EqualFold(hdr.Name, name) {
			return hdr, true
		}
	}
	return Header{}, false
}

// Map flattens the headers; later duplicates win.
func (h *Headers) Map() map[string]string {
	out := make(map[string]string, len(h.list))
	for _, hdr := range h.list {
		out[hdr.Name] = hdr.Value
	}
	return out
}

// RequestVariables are scoped to one request. Pre-request scripts may set
// them; they are never shared with other requests.
type RequestVariables struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewRequestVariables(initial map[string]string) *RequestVariables {
	v := &RequestVariables{values: make(map[string]string, len(initial))}
	for k, val := range initial {
		v.values[k] = val
	}
	return v
}

func (v *RequestVariables) Get(name string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[name]
	return val, ok
}

func (v *RequestVariables) Set(name, value string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[name] = value
}

// Names returns the variable names sorted.
func (v *RequestVariables) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.values))
	for k := range v.values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Request is the `request` object handed to a script.
type Request struct {
	Method      string
	Headers     *Headers
	Variables   *RequestVariables
	Environment Lookup

	url  string
	body string
}

type RequestOption func(*Request)

func WithBody(body string) RequestOption {
	return func(r *Request) {
		r.body = body
	}
}

func WithHeaders(headers ...Header) RequestOption {
	return func(r *Request) {
		r.Headers = NewHeaders(headers...)
	}
}

func WithVariables(vars map[string]string) RequestOption {
	return func(r *Request) {
		r.Variables = NewRequestVariables(vars)
	}
}

func WithEnvironment(env Lookup) RequestOption {
	return func(r *Request) {
		if env != nil {
			r.Environment = env
		}
	}
}

func NewRequest(method, requestURL string, opts ...RequestOption) *Request {
	r := &Request{
		Method:      method,
		url:         requestURL,
		Headers:     NewHeaders(),
		Variables:   NewRequestVariables(nil),
		Environment: MapLookup{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Request) URL() string {
	return r.url
}

func (r *Request) Body() string {
	return r.body
}

// Resolve rewrites the URL, header values and body through fn. Hosts call
// it after the pre-request script so placeholders see request variables.
func (r *Request) Resolve(fn func(string) string) {
	r.url = fn(r.url)
	r.body = fn(r.body)
	for i := range r.Headers.list {
		r.Headers.list[i].Value = fn(r.Headers.list[i].Value)
	}
}
