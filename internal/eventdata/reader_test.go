package eventdata

import (
	"errors"
	"reflect"
	"testing"
)

func TestString(t *testing.T) {
	m := map[string]any{"name": "mbox", "count": 3, "nil": nil}

	if s, err := String(m, "name"); err != nil || s != "mbox" {
		t.Errorf("Expected 'mbox', got %q (err=%v)", s, err)
	}
	if s, err := String(m, "absent"); err != nil || s != "" {
		t.Errorf("Expected empty string for absent key, got %q (err=%v)", s, err)
	}
	if s, err := String(m, "nil"); err != nil || s != "" {
		t.Errorf("Expected empty string for nil value, got %q (err=%v)", s, err)
	}
	if _, err := String(m, "count"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch, got %v", err)
	}
}

func TestOptString(t *testing.T) {
	m := map[string]any{"requesttype": "getpropositions", "bad": 1}
	if got := OptString(m, "requesttype", ""); got != "getpropositions" {
		t.Errorf("Expected 'getpropositions', got %q", got)
	}
	if got := OptString(m, "bad", "def"); got != "def" {
		t.Errorf("Expected fallback for mistyped value, got %q", got)
	}
	if got := OptString(m, "absent", "def"); got != "def" {
		t.Errorf("Expected fallback for absent value, got %q", got)
	}
}

func TestListOfMaps(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantLen int
		wantErr bool
	}{
		{name: "typed", value: []map[string]any{{"name": "a"}, {"name": "b"}}, wantLen: 2},
		{name: "decoded JSON", value: []any{map[string]any{"name": "a"}}, wantLen: 1},
		{name: "empty", value: []any{}, wantLen: 0},
		{name: "string element", value: []any{"a"}, wantErr: true},
		{name: "not a list", value: "a", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ListOfMaps(map[string]any{"k": tt.value}, "k")
			if tt.wantErr {
				if !errors.Is(err, ErrTypeMismatch) {
					t.Errorf("Expected ErrTypeMismatch, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Errorf("Expected %d maps, got %d", tt.wantLen, len(got))
			}
		})
	}
}

func TestStringSliceAndStringMap(t *testing.T) {
	m := map[string]any{
		"language":        []any{"en-us", "fr"},
		"characteristics": map[string]any{"mobile": "true"},
		"badList":         []any{"en", 1},
		"badMap":          map[string]any{"n": 1},
	}

	langs, err := StringSlice(m, "language")
	if err != nil || !reflect.DeepEqual(langs, []string{"en-us", "fr"}) {
		t.Errorf("Unexpected language: %v (err=%v)", langs, err)
	}
	chars, err := StringMap(m, "characteristics")
	if err != nil || chars["mobile"] != "true" {
		t.Errorf("Unexpected characteristics: %v (err=%v)", chars, err)
	}
	if _, err := StringSlice(m, "badList"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for badList, got %v", err)
	}
	if _, err := StringMap(m, "badMap"); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("Expected ErrTypeMismatch for badMap, got %v", err)
	}
}

func TestOptNumbers(t *testing.T) {
	m := map[string]any{"score": 0.5, "intScore": 2, "status": float64(503), "bad": "x"}

	if got := OptFloat64(m, "score", 0); got != 0.5 {
		t.Errorf("Expected 0.5, got %v", got)
	}
	if got := OptFloat64(m, "intScore", 0); got != 2 {
		t.Errorf("Expected 2, got %v", got)
	}
	if got := OptFloat64(m, "bad", 7); got != 7 {
		t.Errorf("Expected fallback 7, got %v", got)
	}
	if got := OptInt(m, "status", 0); got != 503 {
		t.Errorf("Expected 503, got %d", got)
	}
	if got := OptInt(m, "absent", -1); got != -1 {
		t.Errorf("Expected fallback -1, got %d", got)
	}
}

func TestCanonicalJSON_SortsKeys(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"b": 1, "a": "x"})
	if err != nil {
		t.Fatalf("CanonicalJSON failed: %v", err)
	}
	if got != `{"a":"x","b":1}` {
		t.Errorf("Unexpected JSON: %s", got)
	}
}

func TestDecode_WeaklyTyped(t *testing.T) {
	var out struct {
		Type   string         `json:"type"`
		Status int            `json:"status"`
		Report map[string]any `json:"report"`
	}
	in := map[string]any{
		"type":   "https://ns.adobe.com/aep/errors/EXEG-0201-503",
		"status": float64(503),
		"report": map[string]any{"eventIndex": 0},
	}
	if err := Decode(in, &out); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out.Status != 503 || out.Type == "" || out.Report["eventIndex"] != 0 {
		t.Errorf("Unexpected decode result: %+v", out)
	}
}
