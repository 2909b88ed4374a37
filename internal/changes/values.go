package changes

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// DecodeValue turns a raw snapshot into a plain Go value. A nil or empty
// snapshot decodes to nil.
func DecodeValue(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// normalize converts any value into the shape encoding/json produces when
// decoding into an interface (maps, []any, float64, string, bool, nil).
func normalize(v any) any {
	switch val := v.(type) {
	case nil, string, bool, float64, []any, map[string]any:
		return v
	case json.RawMessage:
		decoded, err := DecodeValue(val)
		if err != nil {
			return string(val)
		}
		return decoded
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}

// canonicalKey serializes a value so that structurally equal values share a key.
// Map keys are sorted by encoding/json.
func canonicalKey(v any) string {
	data, err := json.Marshal(normalize(v))
	if err != nil {
		return ""
	}
	return string(data)
}

// asSlice returns the elements of any slice or array value. Anything else
// (including nil) yields ok=false.
func asSlice(v any) ([]any, bool) {
	switch val := v.(type) {
	case nil:
		return nil, false
	case []any:
		return val, true
	case json.RawMessage:
		decoded, err := DecodeValue(val)
		if err != nil {
			return nil, false
		}
		return asSlice(decoded)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		// []byte is a JSON string, not an array.
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// IsArrayValue reports whether a raw snapshot holds a JSON array.
func IsArrayValue(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}

// identityOf returns the id of an identity-bearing object element.
func identityOf(v any) (string, bool) {
	obj, ok := normalize(v).(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := obj["id"]
	if !ok || id == nil {
		return "", false
	}
	switch val := id.(type) {
	case string:
		return strings.TrimSpace(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return canonicalKey(val), true
	}
}
