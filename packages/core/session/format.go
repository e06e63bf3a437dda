package session

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Shape is the closed set of value forms the log formatter knows about.
type Shape int

const (
	ShapeText Shape = iota
	ShapeRecord
	ShapeOther
)

func (s Shape) String() string {
	switch s {
	case ShapeText:
		return "text"
	case ShapeRecord:
		return "record"
	default:
		return "other"
	}
}

// ShapeOf classifies v. Strings are text. Anything with a JSON form (maps,
// slices, structs, numbers, bools, nil, json.Marshaler) is a record.
// Channels, funcs and complex numbers are other.
func ShapeOf(v any) Shape {
	switch v.(type) {
	case string:
		return ShapeText
	case nil, json.Marshaler:
		return ShapeRecord
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ShapeRecord
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct,
		reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return ShapeRecord
	default:
		return ShapeOther
	}
}

// FormatValue renders v the way client.log prints it.
func FormatValue(v any) string {
	switch ShapeOf(v) {
	case ShapeText:
		return v.(string)
	case ShapeRecord:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return fmt.Sprintf("%v", v)
}
