package schema

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/catalog-harvester/internal/harvest/filters"
)

// Validator checks a raw JSON value and returns its normalized form.
type Validator func(v any) (any, error)

// Chain applies validators in order, feeding each one the previous output.
func Chain(vs ...Validator) Validator {
	return func(v any) (any, error) {
		var err error
		for _, validate := range vs {
			if v, err = validate(v); err != nil {
				return nil, err
			}
		}
		return v, nil
	}
}

// AnyOf returns the result of the first validator that accepts the value.
func AnyOf(vs ...Validator) Validator {
	return func(v any) (any, error) {
		var firstErr error
		for _, validate := range vs {
			out, err := validate(v)
			if err == nil {
				return out, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, firstErr
	}
}

// Nullable lets nil through and validates anything else with v.
func Nullable(v Validator) Validator {
	return func(in any) (any, error) {
		if in == nil {
			return nil, nil
		}
		return v(in)
	}
}

// Default replaces nil with def.
func Default(def any) Validator {
	return func(v any) (any, error) {
		if v == nil {
			return def, nil
		}
		return v, nil
	}
}

// EmptyNone maps blank strings to nil.
func EmptyNone() Validator {
	return func(v any) (any, error) {
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			return nil, nil
		}
		return v, nil
	}
}

// String accepts strings only.
func String() Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, invalidf("expected string, got %s", typeName(v))
		}
		return s, nil
	}
}

// Int accepts integral JSON numbers.
func Int() Validator {
	return func(v any) (any, error) {
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, invalidf("expected int, got %v", n)
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case json.Number:
			i, err := n.Int64()
			if err != nil {
				return nil, invalidf("expected int, got %s", n)
			}
			return i, nil
		}
		return nil, invalidf("expected int, got %s", typeName(v))
	}
}

// CoerceInt accepts integral numbers and numeric strings.
func CoerceInt() Validator {
	integer := Int()
	return func(v any) (any, error) {
		if s, ok := v.(string); ok {
			i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return nil, invalidf("expected numeric string, got %q", s)
			}
			return i, nil
		}
		return integer(v)
	}
}

// Number accepts any JSON number.
func Number() Validator {
	return func(v any) (any, error) {
		switch v.(type) {
		case float64, int, int64, json.Number:
			return v, nil
		}
		return nil, invalidf("expected number, got %s", typeName(v))
	}
}

// Bool accepts booleans and their common string spellings.
func Bool() Validator {
	return func(v any) (any, error) {
		b, err := filters.Boolean(v)
		if err != nil {
			return nil, invalidf("%s", err)
		}
		return b, nil
	}
}

// StrictBool accepts JSON booleans only.
func StrictBool() Validator {
	return func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, invalidf("expected boolean, got %s", typeName(v))
		}
		return b, nil
	}
}

// Map accepts JSON objects without inspecting them.
func Map() Validator {
	return func(v any) (any, error) {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, invalidf("expected object, got %s", typeName(v))
		}
		return m, nil
	}
}

// Slice accepts JSON arrays without inspecting them.
func Slice() Validator {
	return func(v any) (any, error) {
		l, ok := v.([]any)
		if !ok {
			return nil, invalidf("expected list, got %s", typeName(v))
		}
		return l, nil
	}
}

// Literal accepts exactly one string value.
func Literal(want string) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || s != want {
			return nil, invalidf("expected %q, got %v", want, v)
		}
		return s, nil
	}
}

// OneOf accepts a string from a closed set.
func OneOf(values ...string) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if ok {
			for _, allowed := range values {
				if s == allowed {
					return s, nil
				}
			}
		}
		return nil, invalidf("value %v is not one of [%s]", v, strings.Join(values, ", "))
	}
}

// Transform applies a string transform. The value must already be a string.
func Transform(fn func(string) string) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, invalidf("expected string, got %s", typeName(v))
		}
		return fn(s), nil
	}
}

// Parse applies a fallible string transform.
func Parse[T any](fn func(string) (T, error)) Validator {
	return func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, invalidf("expected string, got %s", typeName(v))
		}
		out, err := fn(s)
		if err != nil {
			return nil, invalidf("%s", err)
		}
		return out, nil
	}
}

// Date parses a timestamp string with fn.
func Date(fn func(string) (time.Time, error)) Validator {
	return Parse(fn)
}

// List validates every element of a JSON array with item.
func List(item Validator) Validator {
	return func(v any) (any, error) {
		raw, ok := v.([]any)
		if !ok {
			return nil, invalidf("expected list, got %s", typeName(v))
		}
		var errs *multierror.Error
		out := make([]any, 0, len(raw))
		for i, elem := range raw {
			validated, err := item(elem)
			if err != nil {
				errs = collect(errs, err, strconv.Itoa(i))
				continue
			}
			out = append(out, validated)
		}
		if err := errs.ErrorOrNil(); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Field describes one key of an object.
type Field struct {
	Key        string
	Required   bool
	HasDefault bool
	Default    func() any
	Validate   Validator
}

// Required declares a key that must be present.
func Required(key string, v Validator) Field {
	return Field{Key: key, Required: true, Validate: v}
}

// Optional declares a key that may be absent. Absent keys are left out.
func Optional(key string, v Validator) Field {
	return Field{Key: key, Validate: v}
}

// OptionalDefault declares a key that is validated from def() when absent.
func OptionalDefault(key string, def func() any, v Validator) Field {
	return Field{Key: key, HasDefault: true, Default: def, Validate: v}
}

// Fields is an ordered set of field declarations.
type Fields []Field

// With returns a copy of fs where fields sharing a key with overrides are
// replaced and new keys are appended.
func (fs Fields) With(overrides ...Field) Fields {
	out := make(Fields, 0, len(fs)+len(overrides))
	replaced := make(map[string]bool, len(overrides))
	for _, f := range fs {
		for _, o := range overrides {
			if o.Key == f.Key {
				f = o
				replaced[o.Key] = true
				break
			}
		}
		out = append(out, f)
	}
	for _, o := range overrides {
		if !replaced[o.Key] {
			out = append(out, o)
		}
	}
	return out
}

// Without returns a copy of fs without the given keys.
func (fs Fields) Without(keys ...string) Fields {
	out := make(Fields, 0, len(fs))
next:
	for _, f := range fs {
		for _, k := range keys {
			if f.Key == k {
				continue next
			}
		}
		out = append(out, f)
	}
	return out
}

// Object validates a JSON object field by field. Unknown keys are kept
// verbatim when allowExtra is set and rejected otherwise.
func Object(fields Fields, allowExtra bool) Validator {
	return func(v any) (any, error) {
		raw, ok := v.(map[string]any)
		if !ok {
			return nil, invalidf("expected object, got %s", typeName(v))
		}

		out := make(map[string]any, len(raw))
		known := make(map[string]bool, len(fields))
		var errs *multierror.Error

		for _, f := range fields {
			known[f.Key] = true
			value, present := raw[f.Key]
			if !present {
				switch {
				case f.Required:
					errs = collect(errs, invalidf("required key not provided"), f.Key)
					continue
				case f.HasDefault:
					value = f.Default()
				default:
					continue
				}
			}
			validated, err := f.Validate(value)
			if err != nil {
				errs = collect(errs, err, f.Key)
				continue
			}
			out[f.Key] = validated
		}

		for key, value := range raw {
			if known[key] {
				continue
			}
			if !allowExtra {
				errs = collect(errs, invalidf("extra keys not allowed"), key)
				continue
			}
			out[key] = value
		}

		if err := errs.ErrorOrNil(); err != nil {
			return nil, err
		}
		return out, nil
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int64, json.Number:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
