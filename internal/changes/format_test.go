package changes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	t.Parallel()

	var nilSlice []string
	var nilMap map[string]any
	var nilPtr *string
	name := "Aria"

	cases := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "None"},
		{"nil pointer", nilPtr, "None"},
		{"pointer", &name, "Aria"},
		{"empty string", "", "Empty"},
		{"blank string", "   ", "Empty"},
		{"string", "Red Team", "Red Team"},
		{"ints", []int{1, 2, 3}, "3 items"},
		{"any slice", []any{"a"}, "1 items"},
		{"empty slice", []any{}, "Empty array"},
		{"nil slice", nilSlice, "Empty array"},
		{"nil map", nilMap, "None"},
		{"object", map[string]any{"type": "Friend", "id": 1}, `{"id":1,"type":"Friend"}`},
		{"bool", true, "true"},
		{"float", 3.5, "3.5"},
		{"whole float", float64(42), "42"},
		{"int", 7, "7"},
		{"raw null", json.RawMessage(`null`), "None"},
		{"raw absent", json.RawMessage(nil), "None"},
		{"raw array", json.RawMessage(`["x","y"]`), "2 items"},
		{"raw string", json.RawMessage(`""`), "Empty"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Format(tc.value))
		})
	}
}
