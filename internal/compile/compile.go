// Package compile implements the per-class compile dispatch (spec.md
// §4.D): resolve a class's library, consult the Staleness Oracle, and on a
// stale class invoke the external ClassFile compiler, emitting
// compilingClass/compiledClass around the call.
package compile

import (
	"context"
	"fmt"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/db"
	"github.com/classanalyser/classanalyser/internal/errs"
	"github.com/classanalyser/classanalyser/internal/events"
	"github.com/classanalyser/classanalyser/internal/library"
	"github.com/classanalyser/classanalyser/internal/staleness"
)

// ClassFile is the capability set the core consumes from the external
// per-class compiler (spec.md §9: "Dynamic dispatch → tagged variants...
// polymorphism is not needed beyond that single interface").
type ClassFile interface {
	// Load parses and compiles the class's source. A non-nil error is
	// classified as ErrParse by the dispatcher.
	Load(ctx context.Context) error
	// WriteDbInfo populates info's extends/implement/include/dependsOn/
	// translations/environmentChecks from the just-completed Load.
	WriteDbInfo(info *classinfo.ClassInfo)
	// GetOuterClassMeta returns the live, in-memory meta object for this
	// class, to be staged into the meta cache (spec.md §4.F).
	GetOuterClassMeta() *classinfo.Meta
	// GetClassName returns the fully-qualified class name being compiled.
	GetClassName() string
}

// Factory constructs a ClassFile for one compile of className, given its
// resolved library and source/output paths.
type Factory func(lib *classinfo.Library, className, sourcePath, outputPath string) ClassFile

// CompilingClassEvent is the "compilingClass" payload.
type CompilingClassEvent struct {
	Old       *classinfo.ClassInfo
	New       *classinfo.ClassInfo
	ClassFile ClassFile
}

// CompiledClassEvent is the "compiledClass" payload.
type CompiledClassEvent struct {
	Old       *classinfo.ClassInfo
	New       *classinfo.ClassInfo
	ClassFile ClassFile
}

// Dispatcher is the component D implementation.
type Dispatcher struct {
	Index      *library.Index
	DB         *db.DB
	Locator    library.ClassFileLocator
	Bus        *events.Bus
	NewClassFile Factory
}

// GetClassInfo implements spec.md §4.D's getClassInfo(className, forceScan?).
func (disp *Dispatcher) GetClassInfo(ctx context.Context, className string, forceScan bool) (*classinfo.ClassInfo, error) {
	lib := disp.Index.GetLibraryFromClassname(className)
	if lib == nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoClassFile, className)
	}

	sourcePath := disp.Locator.SourcePath(lib, className)
	outputPath := disp.Locator.OutputPath(lib, className)
	metaPath := outputPath + ".meta.json"

	old := disp.DB.Get(className)

	fresh, mtime, err := staleness.Check(staleness.Inputs{
		SourcePath: sourcePath,
		OutputPath: outputPath,
		MetaPath:   metaPath,
		Info:       old,
		ForceScan:  forceScan,
	})
	if err != nil {
		return nil, err
	}
	if fresh {
		return old, nil
	}

	oldSnapshot := old.Clone()
	newInfo := &classinfo.ClassInfo{Mtime: mtime, LibraryName: lib.Namespace}
	disp.DB.Put(className, newInfo)

	cf := disp.NewClassFile(lib, className, sourcePath, outputPath)

	if disp.Bus != nil {
		disp.Bus.Emit(events.CompilingClass, CompilingClassEvent{Old: oldSnapshot, New: newInfo, ClassFile: cf})
	}

	if err := cf.Load(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrParse, className, err)
	}
	cf.WriteDbInfo(newInfo)

	if disp.Bus != nil {
		disp.Bus.Emit(events.CompiledClass, CompiledClassEvent{Old: oldSnapshot, New: newInfo, ClassFile: cf})
	}

	return newInfo, nil
}
