package builtin

import (
	"math"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Func func(args []string) any

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	r := &Registry{
		funcs: make(map[string]Func),
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.funcs["uuid"] = funcUUID
	r.funcs["random.uuid"] = funcUUID
	r.funcs["timestamp"] = funcTimestamp
	r.funcs["isoTimestamp"] = funcISOTimestamp
	r.funcs["randomInt"] = funcRandomInt
	r.funcs["random.integer"] = funcRandomInteger
	r.funcs["random.float"] = funcRandomFloat
	r.funcs["random.alphabetic"] = charsetFunc(letters)
	r.funcs["random.alphanumeric"] = charsetFunc(letters + digits + "_")
	r.funcs["random.hexadecimal"] = charsetFunc(digits + "abcdef")
	r.funcs["random.email"] = funcRandomEmail
}

func (r *Registry) Register(name string, fn Func) {
	r.funcs[name] = fn
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

var funcCallPattern = regexp.MustCompile(`^([\w.]+)(?:\((.*)\))?$`)

// Call evaluates an expression such as "uuid" or "random.integer(1, 10)".
// The leading '$' must already be stripped.
func (r *Registry) Call(expr string) (any, bool) {
	matches := funcCallPattern.FindStringSubmatch(strings.TrimSpace(expr))
	if matches == nil {
		return nil, false
	}

	fn, ok := r.funcs[matches[1]]
	if !ok {
		return nil, false
	}

	var args []string
	if matches[2] != "" {
		args = parseArgs(matches[2])
	}

	return fn(args), true
}

func parseArgs(s string) []string {
	var args []string
	var current strings.Builder
	inQuote := false
	quoteChar := byte(0)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if !inQuote && (ch == '"' || ch == '\'') {
			inQuote = true
			quoteChar = ch
		} else if inQuote && ch == quoteChar {
			inQuote = false
			quoteChar = 0
		} else if !inQuote && ch == ',' {
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
		} else {
			current.WriteByte(ch)
		}
	}

	if current.Len() > 0 {
		args = append(args, strings.TrimSpace(current.String()))
	}

	return args
}

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"

	defaultRandomLength = 10
	defaultRandomMax    = 1000
	// maxRandomLength caps the random.* string generators.
	maxRandomLength = 1024
)

func funcUUID(_ []string) any {
	return uuid.New().String()
}

func funcTimestamp(_ []string) any {
	return time.Now().Unix()
}

func funcISOTimestamp(_ []string) any {
	return time.Now().UTC().Format(time.RFC3339)
}

func funcRandomInt(_ []string) any {
	return rand.Intn(defaultRandomMax)
}

func funcRandomInteger(args []string) any {
	from, to := 0, defaultRandomMax
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			from = v
		}
		if v, err := strconv.Atoi(args[1]); err == nil {
			to = v
		}
	}
	if to <= from {
		return from
	}

	// The span of [from, to) can exceed math.MaxInt, so pick the offset in
	// uint64 and add it back with wraparound.
	span := uint64(to) - uint64(from)
	var offset uint64
	if span <= math.MaxInt64 {
		offset = uint64(rand.Int63n(int64(span)))
	} else {
		offset = rand.Uint64() % span
	}
	return int(uint64(from) + offset)
}

func funcRandomFloat(args []string) any {
	from, to := 0.0, float64(defaultRandomMax)
	if len(args) >= 2 {
		if v, err := strconv.ParseFloat(args[0], 64); err == nil {
			from = v
		}
		if v, err := strconv.ParseFloat(args[1], 64); err == nil {
			to = v
		}
	}
	if to <= from {
		return from
	}
	return from + rand.Float64()*(to-from)
}

func funcRandomEmail(_ []string) any {
	return randomString(8, strings.ToLower(letters)) + "@" + randomString(6, strings.ToLower(letters)) + ".com"
}

func charsetFunc(charset string) Func {
	return func(args []string) any {
		length := defaultRandomLength
		if len(args) >= 1 {
			if v, err := strconv.Atoi(args[0]); err == nil && v >= 0 {
				length = min(v, maxRandomLength)
			}
		}
		return randomString(length, charset)
	}
}

func randomString(length int, charset string) string {
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		result[i] = charset[rand.Intn(len(charset))]
	}
	return string(result)
}
