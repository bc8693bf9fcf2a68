// Package staleness implements the Staleness Oracle (spec.md §4.C): the
// decision of whether a class must be recompiled.
package staleness

import (
	"fmt"
	"os"
	"time"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
)

// Inputs bundles the stat results and current DB row the oracle needs.
// SourcePath is required; OutputPath/MetaPath are optional (pass "" if the
// caller has no output path for this class yet).
type Inputs struct {
	SourcePath string
	OutputPath string
	MetaPath   string
	Info       *classinfo.ClassInfo // current ClassInfo, nil if unknown
	ForceScan  bool
}

// Check reports whether the class described by in is fresh. A source file
// that does not exist is a terminal ErrSourceIO-wrapped error (spec.md
// §4.C: "terminal error (NoClassFile)" — modeled here as SourceIO since the
// miss is a filesystem fact, not a resolution miss; resolution misses are
// classified by the caller before Check is ever invoked).
func Check(in Inputs) (fresh bool, sourceMtime int64, err error) {
	srcStat, err := os.Stat(in.SourcePath)
	if err != nil {
		return false, 0, fmt.Errorf("%w: %s: %v", errs.ErrSourceIO, in.SourcePath, err)
	}
	sourceMtime = srcStat.ModTime().UnixNano()

	if in.ForceScan {
		return false, sourceMtime, nil
	}
	if in.Info == nil {
		return false, sourceMtime, nil
	}
	if in.Info.Mtime != sourceMtime {
		return false, sourceMtime, nil
	}
	if in.OutputPath == "" {
		return false, sourceMtime, nil
	}
	outStat, err := os.Stat(in.OutputPath)
	if err != nil {
		return false, sourceMtime, nil
	}
	if in.MetaPath != "" {
		if _, err := os.Stat(in.MetaPath); err != nil {
			return false, sourceMtime, nil
		}
	}
	if outStat.ModTime().UnixNano() < sourceMtime {
		return false, sourceMtime, nil
	}
	return true, sourceMtime, nil
}

// ToUnixNano returns t in Unix nanoseconds, the unit Check uses for
// ClassInfo.Mtime comparisons.
func ToUnixNano(t time.Time) int64 { return t.UnixNano() }
