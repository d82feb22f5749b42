// Package serialize converts typed resource structs into CloudFormation
// property maps and derives logical IDs from physical names.
//
// Struct fields are named by their json tag. Nil pointers, nil interfaces,
// empty strings, empty collections and zero numbers are omitted; a pointer to
// false or 0 is kept. Values implementing json.Marshaler (Ref, GetAtt, Sub and
// the other intrinsics) are emitted in their intrinsic form.
package serialize

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

var (
	// ErrNotStruct is returned when Resource is given anything but a struct.
	ErrNotStruct = errors.New("resource is not a struct")

	// ErrUnsupported is returned for channels, functions and other values
	// with no CloudFormation form.
	ErrUnsupported = errors.New("unsupported value")
)

var marshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// Resource serializes a resource struct (or pointer to one) to its property map.
func Resource(v any) (map[string]any, error) {
	val := reflect.Indirect(reflect.ValueOf(v))
	if val.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T", ErrNotStruct, v)
	}
	return encodeStruct(val, "")
}

// Value serializes an arbitrary value (intrinsic, slice, map, scalar) to its
// JSON-compatible form.
func Value(v any) (any, error) {
	return encode(reflect.ValueOf(v), "")
}

// fieldName returns the json tag name of a field, or its Go name.
func fieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}

// omit reports whether a field value is left out of the property map.
// Structs are always kept; their own fields decide what is emitted.
func omit(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Struct:
		if z, ok := v.Interface().(interface{ IsZero() bool }); ok {
			return z.IsZero()
		}
		return false
	default:
		return v.IsZero()
	}
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func encodeStruct(v reflect.Value, path string) (map[string]any, error) {
	props := make(map[string]any)
	typ := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name := fieldName(field)
		if name == "-" {
			continue
		}

		fv := v.Field(i)
		if omit(fv) {
			continue
		}

		encoded, err := encode(fv, join(path, name))
		if err != nil {
			return nil, err
		}
		if encoded != nil {
			props[name] = encoded
		}
	}
	return props, nil
}

// encode converts v to a JSON-compatible value. Integers become int64,
// unsigned integers uint64 and floats float64.
func encode(v reflect.Value, path string) (any, error) {
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, nil
	}

	if v.Type().Implements(marshalerType) {
		return encodeIntrinsic(v.Interface().(json.Marshaler), path)
	}

	switch v.Kind() {
	case reflect.Struct:
		return encodeStruct(v, path)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		items := make([]any, v.Len())
		for i := range items {
			item, err := encode(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("%s: %w: map key %s", path, ErrUnsupported, v.Type().Key())
		}
		m := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			item, err := encode(iter.Value(), join(path, key))
			if err != nil {
				return nil, err
			}
			m[key] = item
		}
		return m, nil

	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	}

	return nil, fmt.Errorf("%s: %w: %s", path, ErrUnsupported, v.Kind())
}

// encodeIntrinsic round-trips a json.Marshaler into plain maps and slices so
// reference discovery can walk it.
func encodeIntrinsic(m json.Marshaler, path string) (any, error) {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// ToPascalCase converts snake_case, kebab-case or path-like names to PascalCase.
// Every character that is not a letter or digit starts a new word.
// e.g., "dev-redash-vpc" -> "DevRedashVpc", "/ecs/adhoc_worker" -> "EcsAdhocWorker"
func ToPascalCase(s string) string {
	var b strings.Builder
	upper := true
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
