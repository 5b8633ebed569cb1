package completion

import (
	"errors"
	"testing"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fences", `{"a":1}`, `{"a":1}`},
		{"plain fences", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"json tag", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  ```json\n[1,2,3]\n```  ", `[1,2,3]`},
		{"fence without newline", "```[1]```", `[1]`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripFences(tt.in)
			if got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDecodeJSON_Fenced(t *testing.T) {
	var ids []uint
	if err := DecodeJSON("```json\n[55, 12, 999]\n```", &ids); err != nil {
		t.Fatalf("DecodeJSON() error: %v", err)
	}
	if len(ids) != 3 || ids[0] != 55 {
		t.Errorf("ids = %v, want [55 12 999]", ids)
	}
}

func TestDecodeJSON_Malformed(t *testing.T) {
	var ids []uint
	err := DecodeJSON("the model rambled instead of answering", &ids)
	if err == nil {
		t.Fatal("expected error for malformed output")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error %v should wrap ErrUnavailable", err)
	}
}
