// Package eventdata reads typed values out of loosely typed event data maps.
//
// Event data arrives either from Go callers (typed slices and maps) or from JSON
// decoding ([]any, map[string]any, float64). The getters accept both shapes and
// report ErrTypeMismatch when a present value has the wrong shape. An absent key
// or an explicit nil value is not an error: the zero value is returned.
package eventdata

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
)

// ErrTypeMismatch is returned when a present value cannot be read as the requested type.
var ErrTypeMismatch = errors.New("eventdata: type mismatch")

func mismatch(key string, v any, want string) error {
	return fmt.Errorf("%w: key %q holds %T, want %s", ErrTypeMismatch, key, v, want)
}

// Has reports whether key is present with a non-nil value.
func Has(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// String reads a string value.
func String(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", mismatch(key, v, "string")
	}
	return s, nil
}

// OptString reads a string value, falling back to def when absent or mistyped.
func OptString(m map[string]any, key, def string) string {
	s, err := String(m, key)
	if err != nil || !Has(m, key) {
		return def
	}
	return s
}

// Map reads a nested mapping.
func Map(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, nil
	default:
		return nil, mismatch(key, v, "map")
	}
}

// ListOfMaps reads a sequence whose every element is a mapping.
func ListOfMaps(m map[string]any, key string) ([]map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []map[string]any:
		return t, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for i, item := range t {
			im, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: key %q element %d holds %T, want map", ErrTypeMismatch, key, i, item)
			}
			out = append(out, im)
		}
		return out, nil
	default:
		return nil, mismatch(key, v, "list of maps")
	}
}

// StringSlice reads a sequence of strings.
func StringSlice(m map[string]any, key string) ([]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: key %q element %d holds %T, want string", ErrTypeMismatch, key, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, mismatch(key, v, "list of strings")
	}
}

// StringMap reads a mapping whose values are all strings.
func StringMap(m map[string]any, key string) (map[string]string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case map[string]string:
		return t, nil
	case map[string]any:
		out := make(map[string]string, len(t))
		for k, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: key %q entry %q holds %T, want string", ErrTypeMismatch, key, k, item)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, mismatch(key, v, "map of strings")
	}
}

// OptFloat64 reads a numeric value, falling back to def when absent or not numeric.
func OptFloat64(m map[string]any, key string, def float64) float64 {
	if !Has(m, key) {
		return def
	}
	f, err := cast.ToFloat64E(m[key])
	if err != nil {
		return def
	}
	return f
}

// OptInt reads an integer value, falling back to def when absent or not numeric.
func OptInt(m map[string]any, key string, def int) int {
	if !Has(m, key) {
		return def
	}
	n, err := cast.ToIntE(m[key])
	if err != nil {
		return def
	}
	return n
}

// CanonicalJSON serializes structured content with sorted object keys.
func CanonicalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode copies event data into a tagged struct, converting scalar types where needed.
func Decode(input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
