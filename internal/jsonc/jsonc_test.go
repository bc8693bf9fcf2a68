package jsonc

import (
	"encoding/json"
	"testing"
)

func TestUnmarshalToleratesCommentsAndTrailingCommas(t *testing.T) {
	t.Parallel()

	src := `{
		// leading comment
		"a": 1,
		"b": "x, y", // inline comment
		"c": [1, 2, 3,],
		/* block
		   comment */
		"d": {"e": 2,},
	}`

	var v struct {
		A int
		B string
		C []int
		D struct{ E int }
	}
	if err := Unmarshal([]byte(src), &v); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v.A != 1 || v.B != "x, y" || len(v.C) != 3 || v.D.E != 2 {
		t.Errorf("got %+v", v)
	}
}

func TestUnmarshalEmptyIsEmptyObject(t *testing.T) {
	t.Parallel()

	var m map[string]int
	if err := Unmarshal(nil, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}

	if err := Unmarshal([]byte("   \n\t"), &m); err != nil {
		t.Fatalf("Unmarshal whitespace: %v", err)
	}
}

func TestStripLeavesStringsAlone(t *testing.T) {
	t.Parallel()

	src := []byte(`{"url": "http://example.com", "note": "a // not a comment"}`)
	got := Strip(src)
	var v map[string]string
	if err := json.Unmarshal(got, &v); err != nil {
		t.Fatalf("unmarshal stripped: %v", err)
	}
	if v["url"] != "http://example.com" {
		t.Errorf("url corrupted: %q", v["url"])
	}
	if v["note"] != "a // not a comment" {
		t.Errorf("note corrupted: %q", v["note"])
	}
}
