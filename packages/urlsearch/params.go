// Package urlsearch implements URLSearchParams for handler scripts: an
// ordered list of query parameters with application/x-www-form-urlencoded
// serialization.
package urlsearch

import (
	"net/url"
	"sort"
	"strings"
)

// Pair is one name/value entry.
type Pair struct {
	Name  string
	Value string
}

// Params keeps entries in insertion order; names may repeat.
type Params struct {
	pairs []Pair
}

func New() *Params {
	return &Params{}
}

// Parse reads a query string. A leading '?' is ignored and entries without
// '=' get an empty value.
func Parse(query string) *Params {
	p := New()
	query = strings.TrimPrefix(query, "?")
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		p.pairs = append(p.pairs, Pair{Name: decode(name), Value: decode(value)})
	}
	return p
}

// FromMap builds params from a map, ordered by name.
func FromMap(m map[string]string) *Params {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	p := New()
	for _, k := range names {
		p.Append(k, m[k])
	}
	return p
}

func FromPairs(pairs ...Pair) *Params {
	p := New()
	p.pairs = append(p.pairs, pairs...)
	return p
}

func (p *Params) Size() int {
	return len(p.pairs)
}

func (p *Params) Append(name, value string) {
	p.pairs = append(p.pairs, Pair{Name: name, Value: value})
}

// Delete removes every entry named name, or only those that also carry
// value when one is given.
func (p *Params) Delete(name string, value ...string) {
	kept := p.pairs[:0]
	for _, pair := range p.pairs {
		if pair.Name == name && (len(value) == 0 || pair.Value == value[0]) {
			continue
		}
		kept = append(kept, pair)
	}
	p.pairs = kept
}

// Get returns the first value for name.
func (p *Params) Get(name string) (string, bool) {
	for _, pair := range p.pairs {
		if pair.Name == name {
			return pair.Value, true
		}
	}
	return "", false
}

func (p *Params) GetAll(name string) []string {
	out := []string{}
	for _, pair := range p.pairs {
		if pair.Name == name {
			out = append(out, pair.Value)
		}
	}
	return out
}

func (p *Params) Has(name string, value ...string) bool {
	for _, pair := range p.pairs {
		if pair.Name == name && (len(value) == 0 || pair.Value == value[0]) {
			return true
		}
	}
	return false
}

// Set replaces the first entry named name and drops the others, or appends
// when there is none.
func (p *Params) Set(name, value string) {
	found := false
	kept := p.pairs[:0]
	for _, pair := range p.pairs {
		if pair.Name != name {
			kept = append(kept, pair)
			continue
		}
		if !found {
			found = true
			kept = append(kept, Pair{Name: name, Value: value})
		}
	}
	p.pairs = kept
	if !found {
		p.Append(name, value)
	}
}

// Sort orders entries by name, keeping the relative order of equal names.
func (p *Params) Sort() {
	sort.SliceStable(p.pairs, func(i, j int) bool {
		return p.pairs[i].Name < p.pairs[j].Name
	})
}

func (p *Params) Entries() []Pair {
	out := make([]Pair, len(p.pairs))
	copy(out, p.pairs)
	return out
}

func (p *Params) Keys() []string {
	out := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		out[i] = pair.Name
	}
	return out
}

func (p *Params) Values() []string {
	out := make([]string, len(p.pairs))
	for i, pair := range p.pairs {
		out[i] = pair.Value
	}
	return out
}

// ForEach calls fn for every entry in order.
func (p *Params) ForEach(fn func(name, value string)) {
	for _, pair := range p.Entries() {
		fn(pair.Name, pair.Value)
	}
}

// String serializes the entries without a leading '?'.
func (p *Params) String() string {
	var b strings.Builder
	for i, pair := range p.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encode(pair.Name))
		b.WriteByte('=')
		b.WriteString(encode(pair.Value))
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// encode applies the form-urlencoded byte serializer: alphanumerics and
// "*-._" pass through, space becomes '+', everything else is %XX.
func encode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '*', c == '-', c == '.', c == '_':
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
		}
	}
	return b.String()
}

// decode reverses encode. Malformed escapes are kept literally.
func decode(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return strings.ReplaceAll(s, "+", " ")
}
