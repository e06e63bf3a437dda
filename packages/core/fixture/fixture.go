package fixture

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitscript/packages/http"
)

type File struct {
	Path        string         `yaml:"-"`
	Environment map[string]any `yaml:"environment"`
	Exchanges   []*Exchange    `yaml:"exchanges"`
}

// Exchange is one recorded request/response pair plus its scripts. After
// Load, PreRequest and Handler hold the script source even when it came
// from a file.
type Exchange struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description"`
	Tags           []string      `yaml:"tags"`
	Skip           SkipReason    `yaml:"skip"`
	Request        RequestSpec   `yaml:"request"`
	PreRequest     string        `yaml:"preRequest"`
	PreRequestFile string        `yaml:"preRequestFile"`
	Response       *ResponseSpec `yaml:"response"`
	Handler        string        `yaml:"handler"`
	HandlerFile    string        `yaml:"handlerFile"`
	Line           int           `yaml:"-"`
}

func (e *Exchange) UnmarshalYAML(n *yaml.Node) error {
	type plain Exchange
	if err := n.Decode((*plain)(e)); err != nil {
		return err
	}
	e.Line = n.Line
	return nil
}

type RequestSpec struct {
	Method    string            `yaml:"method"`
	URL       string            `yaml:"url"`
	Headers   []HeaderSpec      `yaml:"headers"`
	Body      string            `yaml:"body"`
	Variables map[string]string `yaml:"variables"`
}

type HeaderSpec struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type ResponseSpec struct {
	Status  int                     `yaml:"status"`
	Headers map[string]HeaderValues `yaml:"headers"`
	Body    string                  `yaml:"body"`
	Stream  bool                    `yaml:"stream"`
}

// HeaderValues accepts either a single scalar or a list of scalars.
type HeaderValues []string

func (h *HeaderValues) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		*h = HeaderValues{n.Value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := n.Decode(&values); err != nil {
			return err
		}
		*h = values
		return nil
	default:
		return fmt.Errorf("line %d: header values must be a string or a list of strings", n.Line)
	}
}

// SkipReason is set from `skip: true` or `skip: "reason"`.
type SkipReason string

func (s *SkipReason) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: skip must be a boolean or a string", n.Line)
	}
	if n.Tag == "!!bool" {
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		if b {
			*s = "skipped"
		} else {
			*s = ""
		}
		return nil
	}
	*s = SkipReason(n.Value)
	return nil
}

const defaultMethod = "GET"

// HasTag reports whether the exchange carries any of tags.
func (e *Exchange) HasTag(tags ...string) bool {
	for _, want := range tags {
		for _, have := range e.Tags {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

// HasResponse reports whether a response handler can run.
func (e *Exchange) HasResponse() bool {
	return e.Response != nil
}

// BuildRequest returns a fresh script view of the recorded request. Each
// call gets its own request variables.
func (e *Exchange) BuildRequest(environment http.Lookup) *http.Request {
	method := strings.ToUpper(e.Request.Method)
	if method == "" {
		method = defaultMethod
	}
	headers := make([]http.Header, len(e.Request.Headers))
	for i, h := range e.Request.Headers {
		headers[i] = http.Header{Name: h.Name, Value: h.Value}
	}
	return http.NewRequest(method, e.Request.URL,
		http.WithBody(e.Request.Body),
		http.WithHeaders(headers...),
		http.WithVariables(e.Request.Variables),
		http.WithEnvironment(environment),
	)
}

// BuildResponse returns the recorded response, or nil when there is none.
func (e *Exchange) BuildResponse() *http.Response {
	if e.Response == nil {
		return nil
	}
	status := e.Response.Status
	if status == 0 {
		status = 200
	}
	headers := make(map[string][]string, len(e.Response.Headers))
	for k, v := range e.Response.Headers {
		headers[k] = v
	}
	resp := http.NewResponse(status, headers, []byte(e.Response.Body))
	resp.Streaming = e.Response.Stream
	return resp
}

// PreRequestName identifies the pre-request script in error messages.
func (e *Exchange) PreRequestName(file string) string {
	if e.PreRequestFile != "" {
		return e.PreRequestFile
	}
	return file + "#" + e.Name + "/pre-request"
}

// HandlerName identifies the response handler in error messages.
func (e *Exchange) HandlerName(file string) string {
	if e.HandlerFile != "" {
		return e.HandlerFile
	}
	return file + "#" + e.Name + "/handler"
}
