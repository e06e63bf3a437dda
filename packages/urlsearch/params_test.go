package urlsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p := Parse("?a=1&b=two+words&a=3&flag&c=%E2%9C%93&&d=")

	assert.Equal(t, 6, p.Size())
	assert.Equal(t, []string{"a", "b", "a", "flag", "c", "d"}, p.Keys())

	v, ok := p.Get("b")
	require.True(t, ok)
	assert.Equal(t, "two words", v)

	v, ok = p.Get("flag")
	require.True(t, ok)
	assert.Equal(t, "", v)

	c, _ := p.Get("c")
	assert.Equal(t, "✓", c)

	_, ok = p.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"1", "3"}, p.GetAll("a"))
	assert.Equal(t, []string{}, p.GetAll("missing"))
}

func TestParse_MalformedEscapeKeptLiteral(t *testing.T) {
	p := Parse("q=100%+sure")
	v, _ := p.Get("q")
	assert.Equal(t, "100% sure", v)
}

func TestParams_Mutations(t *testing.T) {
	p := Parse("a=1&b=2&a=3")

	p.Append("c", "4")
	assert.Equal(t, "a=1&b=2&a=3&c=4", p.String())

	p.Set("a", "9")
	assert.Equal(t, "a=9&b=2&c=4", p.String())

	p.Set("z", "new")
	assert.Equal(t, "a=9&b=2&c=4&z=new", p.String())

	p.Append("b", "5")
	p.Delete("b", "2")
	assert.Equal(t, []string{"5"}, p.GetAll("b"))

	p.Delete("b")
	assert.False(t, p.Has("b"))
	assert.True(t, p.Has("a"))
	assert.True(t, p.Has("a", "9"))
	assert.False(t, p.Has("a", "1"))
}

func TestParams_SortIsStable(t *testing.T) {
	p := FromPairs(Pair{"b", "1"}, Pair{"a", "2"}, Pair{"b", "0"}, Pair{"a", "1"})
	p.Sort()
	assert.Equal(t, "a=2&a=1&b=1&b=0", p.String())
}

func TestParams_String_Encoding(t *testing.T) {
	p := New()
	p.Append("q", "a b&c=d")
	p.Append("sym", "*-._~!")
	p.Append("ü", "/")
	assert.Equal(t, "q=a+b%26c%3Dd&sym=*-._%7E%21&%C3%BC=%2F", p.String())

	round := Parse(p.String())
	assert.Equal(t, p.Entries(), round.Entries())
}

func TestFromMap(t *testing.T) {
	p := FromMap(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, "a=1&b=2", p.String())
}

func TestParams_Iteration(t *testing.T) {
	p := Parse("x=1&y=2")

	var seen []string
	p.ForEach(func(name, value string) {
		seen = append(seen, name+":"+value)
	})
	assert.Equal(t, []string{"x:1", "y:2"}, seen)
	assert.Equal(t, []string{"1", "2"}, p.Values())
	assert.Equal(t, []Pair{{"x", "1"}, {"y", "2"}}, p.Entries())
}
