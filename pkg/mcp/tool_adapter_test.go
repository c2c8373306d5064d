package mcp

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDecodeToolArgs(t *testing.T) {
	cases := []struct {
		name  string
		input any
		want  map[string]interface{}
	}{
		{"nil", nil, map[string]interface{}{}},
		{"empty string", "  ", map[string]interface{}{}},
		{"map passthrough", map[string]interface{}{"email": "a@b.com"}, map[string]interface{}{"email": "a@b.com"}},
		{"json object string", `{"email":"a@b.com"}`, map[string]interface{}{"email": "a@b.com"}},
		{"raw message", json.RawMessage(`{"limit":2}`), map[string]interface{}{"limit": float64(2)}},
		{"plain text wrapped", "list the documents", map[string]interface{}{"input": "list the documents"}},
	}
	for _, tc := range cases {
		got, err := DecodeToolArgs(tc.input)
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestDecodeToolArgsRejectsNonObjectJSON(t *testing.T) {
	for _, input := range []string{`[1,2,3]`, `{"broken":`, `{"a": 1,}`} {
		_, err := DecodeToolArgs(input)
		if err == nil || !strings.Contains(err.Error(), "JSON object") {
			t.Errorf("DecodeToolArgs(%q): err = %v, want JSON object error", input, err)
		}
	}
}
