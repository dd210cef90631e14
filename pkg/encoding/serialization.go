package encoding

import (
	"bytes"
	"encoding"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/zeusync/methodwatch/pkg/generic"
)

// Serializable provides a clean, simple interface for serializing and deserializing values.
type Serializable[T any] interface {
	Serialize() ([]byte, error)
	Deserialize([]byte) error
}

// selfSerializer is the write half of Serializable.
type selfSerializer interface {
	Serialize() ([]byte, error)
}

// Serializer renders arbitrary values for diagnostic display. Implementations never panic.
type Serializer interface {
	Serialize(v any) string
}

const (
	DefaultMaxDepth = 2

	NullPlaceholder           = "null"
	MaxDepthPlaceholder       = "<max depth>"
	UnserializablePlaceholder = "<unserializable>"
)

var (
	jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	errorType         = reflect.TypeOf((*error)(nil)).Elem()
)

var _ Serializer = (*Safe)(nil)

var buffers = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

// Safe renders values as compact JSON. Containers nested deeper than MaxDepth
// are replaced by MaxDepthPlaceholder and back references (cycles) are
// rendered as null. If JSON encoding fails the value falls back to fmt
// formatting, and finally to UnserializablePlaceholder.
type Safe struct {
	MaxDepth int
}

func NewSafe(maxDepth int) *Safe {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Safe{MaxDepth: maxDepth}
}

var defaultSafe = NewSafe(DefaultMaxDepth)

// SafeSerialize serializes v with the default depth limit.
func SafeSerialize(v any) string {
	return defaultSafe.Serialize(v)
}

func (s *Safe) Serialize(v any) (out string) {
	if v == nil {
		return NullPlaceholder
	}

	defer func() {
		if r := recover(); r != nil {
			out = fallback(v)
		}
	}()

	w := walker{maxDepth: s.MaxDepth, visiting: make(map[uintptr]struct{})}
	tree := w.walk(reflect.ValueOf(v), 0)

	buf := buffers.Get()
	defer buffers.Put(buf)

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(tree); err != nil {
		return fallback(v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

func fallback(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = UnserializablePlaceholder
		}
	}()
	return fmt.Sprint(v)
}

type walker struct {
	maxDepth int
	visiting map[uintptr]struct{}
}

func (w *walker) walk(rv reflect.Value, depth int) any {
	if !rv.IsValid() {
		return nil
	}

	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		return w.walk(rv.Elem(), depth)
	}

	if rv.CanInterface() {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil
		}
		if rv.Type().Implements(errorType) {
			return rv.Interface().(error).Error()
		}
		if s, ok := rv.Interface().(selfSerializer); ok {
			if b, err := s.Serialize(); err == nil && json.Valid(b) {
				return json.RawMessage(b)
			}
		}
		if rv.Type().Implements(jsonMarshalerType) || rv.Type().Implements(textMarshalerType) {
			return rv.Interface()
		}
	}

	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		ptr := rv.Pointer()
		if _, seen := w.visiting[ptr]; seen {
			return nil
		}
		w.visiting[ptr] = struct{}{}
		defer delete(w.visiting, ptr)
		return w.walk(rv.Elem(), depth)

	case reflect.Struct:
		if depth >= w.maxDepth {
			return MaxDepthPlaceholder
		}
		out := make(map[string]any, rv.NumField())
		t := rv.Type()
		for i := 0; i < rv.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			name := f.Name
			if tag := f.Tag.Get("json"); tag != "" {
				tagName, _, _ := strings.Cut(tag, ",")
				if tagName == "-" {
					continue
				}
				if tagName != "" {
					name = tagName
				}
			}
			out[name] = w.walk(rv.Field(i), depth+1)
		}
		return out

	case reflect.Map:
		if rv.IsNil() {
			return nil
		}
		if depth >= w.maxDepth {
			return MaxDepthPlaceholder
		}
		ptr := rv.Pointer()
		if _, seen := w.visiting[ptr]; seen {
			return nil
		}
		w.visiting[ptr] = struct{}{}
		defer delete(w.visiting, ptr)

		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = w.walk(iter.Value(), depth+1)
		}
		return out

	case reflect.Slice:
		if rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes()
		}
		if rv.Len() > 0 {
			ptr := rv.Pointer()
			if _, seen := w.visiting[ptr]; seen {
				return nil
			}
			w.visiting[ptr] = struct{}{}
			defer delete(w.visiting, ptr)
		}
		return w.walkList(rv, depth)

	case reflect.Array:
		return w.walkList(rv, depth)

	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprint(f)
		}
		return f

	case reflect.Complex64, reflect.Complex128:
		return fmt.Sprint(rv.Complex())

	case reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return fmt.Sprintf("<%s>", rv.Type())

	case reflect.Bool:
		return rv.Bool()

	case reflect.String:
		return rv.String()

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()

	default:
		return fmt.Sprint(rv)
	}
}

func (w *walker) walkList(rv reflect.Value, depth int) any {
	if depth >= w.maxDepth {
		return MaxDepthPlaceholder
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = w.walk(rv.Index(i), depth+1)
	}
	return out
}
