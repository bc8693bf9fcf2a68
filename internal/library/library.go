// Package library implements the Library Index (spec.md §4.A): registering
// libraries by namespace, resolving a class name to its owning library, and
// scanning a library root for class files.
//
// Scanning is grounded on phobologic-repoguide's internal/discover: a
// filepath.WalkDir pass that skips VCS/build directories and honors
// .gitignore via github.com/sabhiram/go-gitignore.
package library

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/classanalyser/classanalyser/internal/classinfo"
)

var skipDirs = map[string]struct{}{
	".git": {}, ".hg": {}, ".svn": {},
	"node_modules": {}, "build": {}, "dist": {},
}

// SourceExt is the extension scanForClasses looks for under a library root.
const SourceExt = ".js"

// ClassFileLocator maps a class name to the absolute path of its source
// file and (when compiled) its output path, without touching the
// filesystem itself — libraries only know their own root and namespace.
type ClassFileLocator interface {
	SourcePath(lib *classinfo.Library, className string) string
	OutputPath(lib *classinfo.Library, className string) string
}

// DefaultLocator maps "namespace.sub.ClassName" to
// "<rootDir>/namespace/sub/ClassName.js" and "<outputDir>/namespace/sub/ClassName.js".
type DefaultLocator struct {
	OutputDir string
}

func (l DefaultLocator) SourcePath(lib *classinfo.Library, className string) string {
	return filepath.Join(lib.RootDir, filepath.FromSlash(strings.ReplaceAll(className, ".", "/"))+SourceExt)
}

func (l DefaultLocator) OutputPath(lib *classinfo.Library, className string) string {
	base := l.OutputDir
	if base == "" {
		base = lib.RootDir
	}
	return filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(className, ".", "/"))+SourceExt)
}

// Index is the Library Index: the set of registered libraries plus the
// append-only class→library resolution cache (spec.md §5: "the
// class→library map is append-only").
type Index struct {
	locator    ClassFileLocator
	byNS       map[string]*classinfo.Library
	order      []string
	classOwner map[string]string // className -> namespace, populated as classes are parsed
}

// NewIndex returns an empty Index using locator to resolve source/output
// paths (pass DefaultLocator{} for the conventional layout).
func NewIndex(locator ClassFileLocator) *Index {
	return &Index{
		locator:    locator,
		byNS:       make(map[string]*classinfo.Library),
		classOwner: make(map[string]string),
	}
}

// AddLibrary registers lib. Returns an error if the namespace is already
// registered (spec.md §3: "at most one library per namespace").
func (idx *Index) AddLibrary(lib *classinfo.Library) error {
	if _, exists := idx.byNS[lib.Namespace]; exists {
		return fmt.Errorf("library: namespace %q already registered", lib.Namespace)
	}
	idx.byNS[lib.Namespace] = lib
	idx.order = append(idx.order, lib.Namespace)
	return nil
}

// FindLibrary returns the library registered under namespace, or nil.
func (idx *Index) FindLibrary(namespace string) *classinfo.Library {
	return idx.byNS[namespace]
}

// Libraries returns the registered libraries in registration order.
func (idx *Index) Libraries() []*classinfo.Library {
	out := make([]*classinfo.Library, 0, len(idx.order))
	for _, ns := range idx.order {
		out = append(out, idx.byNS[ns])
	}
	return out
}

// NoteClassOwner records that className belongs to namespace, taking
// precedence over any future linear-scan resolution (spec.md §4.A:
// "private-class override via an internal class→library map takes
// precedence").
func (idx *Index) NoteClassOwner(className, namespace string) {
	idx.classOwner[className] = namespace
}

// GetLibraryFromClassname resolves className to its owning library.
// Resolution order (spec.md §4.A): (1) the class→library cache; (2) a
// linear scan of libraries, asking each GetSymbolType and accepting the
// first "class" or "member" result.
func (idx *Index) GetLibraryFromClassname(className string) *classinfo.Library {
	if ns, ok := idx.classOwner[className]; ok {
		if lib, ok := idx.byNS[ns]; ok {
			return lib
		}
	}
	if lookup, lib := idx.getSymbolTypeScan(className); lookup != nil {
		idx.classOwner[className] = lib.Namespace
		return lib
	}
	return nil
}

// GetSymbolType resolves className the same way GetLibraryFromClassname
// does, but returns the symbol classification instead of the library.
func (idx *Index) GetSymbolType(className string) *classinfo.SymbolLookup {
	if ns, ok := idx.classOwner[className]; ok {
		if lib, ok := idx.byNS[ns]; ok {
			if lookup := getSymbolTypeOf(lib, className); lookup != nil {
				return lookup
			}
		}
	}
	lookup, _ := idx.getSymbolTypeScan(className)
	return lookup
}

func (idx *Index) getSymbolTypeScan(className string) (*classinfo.SymbolLookup, *classinfo.Library) {
	for _, ns := range idx.order {
		lib := idx.byNS[ns]
		if lookup := getSymbolTypeOf(lib, className); lookup != nil {
			switch lookup.SymbolType {
			case classinfo.SymbolClass, classinfo.SymbolMember:
				return lookup, lib
			}
		}
	}
	return nil, nil
}

// getSymbolTypeOf classifies className against lib's namespace. The
// namespace itself is a package; a name nested under it is a class when its
// source file exists under lib.RootDir, or a member reference when the name
// minus its last segment is such a class (e.g. "pkg.App.run" when
// "pkg/App.js" exists under the root). Any other name yields nil.
func getSymbolTypeOf(lib *classinfo.Library, className string) *classinfo.SymbolLookup {
	if className == lib.Namespace || strings.HasPrefix(className, lib.Namespace+".") {
		rest := strings.TrimPrefix(className, lib.Namespace)
		rest = strings.TrimPrefix(rest, ".")
		if rest == "" {
			return &classinfo.SymbolLookup{SymbolType: classinfo.SymbolPackage}
		}
		path := filepath.Join(lib.RootDir, filepath.FromSlash(strings.ReplaceAll(className, ".", "/"))+SourceExt)
		if _, err := os.Stat(path); err == nil {
			return &classinfo.SymbolLookup{SymbolType: classinfo.SymbolClass, ClassName: className}
		}
		if idx := strings.LastIndex(rest, "."); idx >= 0 {
			owner := lib.Namespace + "." + rest[:idx]
			ownerPath := filepath.Join(lib.RootDir, filepath.FromSlash(strings.ReplaceAll(owner, ".", "/"))+SourceExt)
			if _, err := os.Stat(ownerPath); err == nil {
				return &classinfo.SymbolLookup{SymbolType: classinfo.SymbolMember, ClassName: owner}
			}
		}
	}
	return nil
}

// ScanForClasses enumerates every class name found under lib.RootDir,
// honoring .gitignore. A class is named by its path relative to the root,
// the same layout DefaultLocator uses: "<rootDir>/app/ui/Button.js" is
// "app.ui.Button". Directory names in skipDirs or starting with "."
// are pruned, mirroring phobologic-repoguide's discover.Files.
func ScanForClasses(lib *classinfo.Library) ([]string, error) {
	gi := loadGitignore(lib.RootDir)

	var names []string
	err := filepath.WalkDir(lib.RootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path == lib.RootDir {
				return nil
			}
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || filepath.Ext(name) != SourceExt {
			return nil
		}
		rel, err := filepath.Rel(lib.RootDir, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		className := strings.ReplaceAll(strings.TrimSuffix(filepath.ToSlash(rel), SourceExt), "/", ".")
		names = append(names, className)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning library %q: %w", lib.Namespace, err)
	}
	sort.Strings(names)
	return names, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
