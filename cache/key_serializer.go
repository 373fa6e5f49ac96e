package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// KeySerializer builds a backend key from a scope and its key segments.
// It is responsible for producing stable keys across calls and processes,
// since a shared backend (redis) sees the keys of every replica.
type KeySerializer interface {
	SerializeKey(scope Scope, parts ...any) string
}

// defaultKeySerializer joins the scope and the serialized parts with KeySeparator.
// Separator sequences inside a part are escaped so that a hostile id cannot
// alias the address of another scope.
type defaultKeySerializer struct {
	prefix string
}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
// A non empty prefix namespaces every key, which is useful when several
// deployments share one redis database.
func NewDefaultKeySerializer(prefix string) KeySerializer {
	return &defaultKeySerializer{prefix: prefix}
}

// SerializeKey builds a cache key from the scope and parts.
func (s *defaultKeySerializer) SerializeKey(scope Scope, parts ...any) string {
	segments := make([]string, 0, len(parts)+2)
	if s.prefix != "" {
		segments = append(segments, s.prefix)
	}
	segments = append(segments, escapeSegment(string(scope)))

	for _, part := range parts {
		segments = append(segments, escapeSegment(s.serializeValue(part)))
	}

	return strings.Join(segments, KeySeparator)
}

func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	switch value := v.(type) {
	case string:
		return value
	case fmt.Stringer:
		return value.String()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		parts := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			parts[i] = s.serializeValue(rv.Index(i).Interface())
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ","))
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

// jsonFallback provides JSON serialization as a last resort
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}

func escapeSegment(s string) string {
	if !strings.Contains(s, ":") {
		return s
	}
	return strings.ReplaceAll(s, ":", `\:`)
}
