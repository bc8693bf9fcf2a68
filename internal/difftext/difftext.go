// Package difftext renders a unified text diff between two JSON-shaped
// snapshots, used by the `explain` command to show what changed in a
// class's ClassInfo across a recompile.
package difftext

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified returns a unified diff between old and new, each rendered as
// indented JSON, labeled fromName/toName.
func Unified(fromName, toName string, old, new any) (string, error) {
	oldText, err := prettyJSON(old)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", fromName, err)
	}
	newText, err := prettyJSON(new)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", toName, err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func prettyJSON(v any) (string, error) {
	if v == nil {
		return "null\n", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return buf.String(), nil
}
