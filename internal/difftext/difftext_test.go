package difftext

import (
	"strings"
	"testing"
)

func TestUnifiedShowsChangedField(t *testing.T) {
	t.Parallel()
	out, err := Unified("before", "after",
		map[string]any{"extends": "A"},
		map[string]any{"extends": "B"},
	)
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	if !strings.Contains(out, "--- before") || !strings.Contains(out, "+++ after") {
		t.Errorf("missing unified diff headers:\n%s", out)
	}
	if !strings.Contains(out, `-  "extends": "A"`) || !strings.Contains(out, `+  "extends": "B"`) {
		t.Errorf("expected changed extends line in diff:\n%s", out)
	}
}

func TestUnifiedNilOld(t *testing.T) {
	t.Parallel()
	out, err := Unified("before", "after", nil, map[string]any{"extends": "A"})
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	if !strings.Contains(out, "null") {
		t.Errorf("expected null placeholder for absent old value:\n%s", out)
	}
}

func TestUnifiedIdenticalProducesNoDiff(t *testing.T) {
	t.Parallel()
	out, err := Unified("before", "after",
		map[string]any{"extends": "A"},
		map[string]any{"extends": "A"},
	)
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	if out != "" {
		t.Errorf("expected empty diff for identical input, got %q", out)
	}
}
