package changes

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Format renders a field value as a short label for moderators.
// Structured objects are serialized to canonical JSON; richer rendering of
// relationships or socials belongs to the presentation layer.
func Format(value any) string {
	if raw, ok := value.(json.RawMessage); ok {
		if len(raw) == 0 {
			return "None"
		}
		decoded, err := DecodeValue(raw)
		if err != nil {
			return string(raw)
		}
		value = decoded
	}

	switch v := value.(type) {
	case nil:
		return "None"
	case string:
		if strings.TrimSpace(v) == "" {
			return "Empty"
		}
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case json.Number:
		return v.String()
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "None"
		}
		return Format(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Format(string(rv.Bytes()))
		}
		if rv.Len() == 0 {
			return "Empty array"
		}
		return fmt.Sprintf("%d items", rv.Len())
	case reflect.Map:
		if rv.IsNil() {
			return "None"
		}
		return canonicalKey(value)
	case reflect.Struct:
		if s, ok := value.(fmt.Stringer); ok {
			return s.String()
		}
		return canonicalKey(value)
	}
	return fmt.Sprint(value)
}
