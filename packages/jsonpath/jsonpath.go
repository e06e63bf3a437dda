package jsonpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrUnsupported = errors.New("unsupported JSONPath expression")

// wildcard marks a [*] or .* step among the parsed segments. Member names
// are escaped, so a key named "*" never produces it.
const wildcard = "*"

// Eval resolves expr against obj. obj may be a decoded Go value, JSON text
// (string or []byte), or a gjson.Result. The boolean is false when nothing
// matches. Once a wildcard has been applied the result is a flat list of
// every match.
func Eval(obj any, expr string) (any, bool, error) {
	segments, err := parse(expr)
	if err != nil {
		return nil, false, err
	}

	doc, err := toResult(obj)
	if err != nil {
		return nil, false, err
	}

	nodes := []gjson.Result{doc}
	spread := false
	// expanded tracks whether the latest wildcard met a container, so an
	// empty array still matches while a wildcard on a scalar does not.
	expanded := false
	for _, seg := range segments {
		next := make([]gjson.Result, 0, len(nodes))
		if seg == wildcard {
			spread = true
			expanded = false
			for _, node := range nodes {
				if !node.IsArray() && !node.IsObject() {
					continue
				}
				expanded = true
				node.ForEach(func(_, value gjson.Result) bool {
					next = append(next, value)
					return true
				})
			}
		} else {
			for _, node := range nodes {
				if child := node.Get(seg); child.Exists() {
					next = append(next, child)
				}
			}
		}
		nodes = next
	}

	if !spread {
		if len(nodes) == 0 {
			return nil, false, nil
		}
		return nodes[0].Value(), true, nil
	}
	if len(nodes) == 0 && (!expanded || segments[len(segments)-1] != wildcard) {
		return nil, false, nil
	}
	values := make([]any, 0, len(nodes))
	for _, node := range nodes {
		values = append(values, node.Value())
	}
	return values, true, nil
}

func toResult(obj any) (gjson.Result, error) {
	switch v := obj.(type) {
	case gjson.Result:
		return v, nil
	case []byte:
		if !gjson.ValidBytes(v) {
			return gjson.Result{}, fmt.Errorf("jsonpath: input is not valid JSON")
		}
		return gjson.ParseBytes(v), nil
	case string:
		// strings that are not JSON documents are treated as JSON strings
		if gjson.Valid(v) {
			return gjson.Parse(v), nil
		}
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("jsonpath: cannot encode input: %w", err)
	}
	return gjson.ParseBytes(data), nil
}

func parse(expr string) ([]string, error) {
	expr = strings.TrimSpace(expr)
	if strings.HasPrefix(expr, "$") {
		expr = expr[1:]
	}
	if strings.Contains(expr, "..") {
		return nil, fmt.Errorf("%w: recursive descent in %q", ErrUnsupported, expr)
	}

	var segments []string
	i := 0
	for i < len(expr) {
		switch expr[i] {
		case '.':
			i++
			start := i
			for i < len(expr) && expr[i] != '.' && expr[i] != '[' {
				i++
			}
			name := expr[start:i]
			if name == "" {
				return nil, fmt.Errorf("%w: empty member in %q", ErrUnsupported, expr)
			}
			if name == "*" {
				segments = append(segments, wildcard)
			} else {
				segments = append(segments, escape(name))
			}
		case '[':
			end := findClosingBracket(expr, i)
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated bracket in %q", ErrUnsupported, expr)
			}
			seg, err := bracketSegment(expr[i+1 : end])
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			i = end + 1
		default:
			// bare leading member, as in "data.items"
			start := i
			for i < len(expr) && expr[i] != '.' && expr[i] != '[' {
				i++
			}
			segments = append(segments, escape(expr[start:i]))
		}
	}

	return segments, nil
}

func findClosingBracket(expr string, open int) int {
	var quote byte
	for j := open + 1; j < len(expr); j++ {
		ch := expr[j]
		switch {
		case quote != 0 && ch == '\\':
			j++
		case quote != 0 && ch == quote:
			quote = 0
		case quote == 0 && (ch == '\'' || ch == '"'):
			quote = ch
		case quote == 0 && ch == ']':
			return j
		}
	}
	return -1
}

func bracketSegment(inner string) (string, error) {
	inner = strings.TrimSpace(inner)
	switch {
	case inner == "*":
		return wildcard, nil
	case len(inner) >= 2 && (inner[0] == '\'' || inner[0] == '"') && inner[len(inner)-1] == inner[0]:
		name := strings.ReplaceAll(inner[1:len(inner)-1], `\`+string(inner[0]), string(inner[0]))
		return escape(name), nil
	}
	if n, err := strconv.Atoi(inner); err == nil && n >= 0 {
		return strconv.Itoa(n), nil
	}
	return "", fmt.Errorf("%w: [%s]", ErrUnsupported, inner)
}

// escape protects gjson metacharacters inside a member name.
func escape(name string) string {
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		switch name[i] {
		case '.', '*', '?', '|', '#', '@', '\\', '!', '=', '<', '>', '%':
			b.WriteByte('\\')
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
