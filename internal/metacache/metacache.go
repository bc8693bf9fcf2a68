// Package metacache implements the Meta Loader/Cache (spec.md §4.F):
// loading, caching and saving per-class .meta.json files, and staging the
// live meta a freshly compiled ClassFile exposes so ancestors mid-merge
// never get read from a stale on-disk copy (spec.md §9: "Live-vs-disk
// meta").
package metacache

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
	"github.com/classanalyser/classanalyser/internal/jsonc"
)

var syntheticRoots = map[string]bool{
	"Object": true, "Array": true, "Error": true,
}

// PathFunc resolves a class name to its "<output path>.meta.json" path.
type PathFunc func(className string) string

// Cache is the per-run meta loader/cache.
type Cache struct {
	pathFor PathFunc
	warn    io.Writer

	mu     sync.Mutex
	loaded map[string]*classinfo.Meta
	saved  map[string]bool
}

// New returns a Cache that resolves meta file paths with pathFor. Read and
// parse failures in LoadMeta are silent (nil, nil); use NewWithWarnings to
// have them logged.
func New(pathFor PathFunc) *Cache {
	return NewWithWarnings(pathFor, nil)
}

// NewWithWarnings returns a Cache that logs ancestor-meta read/parse
// failures to warn as they're treated as "ancestor not visible" (spec.md
// §4.F). warn may be nil to suppress logging entirely.
func NewWithWarnings(pathFor PathFunc, warn io.Writer) *Cache {
	return &Cache{
		pathFor: pathFor,
		warn:    warn,
		loaded:  make(map[string]*classinfo.Meta),
		saved:   make(map[string]bool),
	}
}

// Stage seeds the cache with the live meta object for className, shadowing
// any on-disk copy for the remainder of the run (spec.md §4.F: "G seeds the
// cache with the live meta... subsequent loads for that class return the
// live object").
func (c *Cache) Stage(className string, meta *classinfo.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[className] = meta
}

// LoadMeta returns the meta for className. The three synthetic roots
// Object/Array/Error return nil, nil (no ancestor meta to merge). A read or
// parse failure is treated as "ancestor not visible" (nil, nil), not an
// error, per spec.md §4.F; it is logged only when the Cache has a warning
// writer (see NewWithWarnings).
func (c *Cache) LoadMeta(className string) (*classinfo.Meta, error) {
	if syntheticRoots[className] {
		return nil, nil
	}

	c.mu.Lock()
	if m, ok := c.loaded[className]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	path := c.pathFor(className)
	data, err := os.ReadFile(path)
	if err != nil {
		if c.warn != nil {
			fmt.Fprintf(c.warn, "warning: %s not visible: %v\n", className, err)
		}
		return nil, nil
	}
	var meta classinfo.Meta
	if err := jsonc.Unmarshal(data, &meta); err != nil {
		if c.warn != nil {
			fmt.Fprintf(c.warn, "warning: parsing meta for %s: %v\n", className, err)
		}
		return nil, nil
	}

	c.mu.Lock()
	c.loaded[className] = &meta
	c.mu.Unlock()
	return &meta, nil
}

// SaveMeta writes className's meta to disk. Writing the same class twice
// in one run is a programmer error (spec.md §4.F: "prevents lost-update
// races between G and H") and returns ErrMetaWriteDuplicate.
func (c *Cache) SaveMeta(className string, meta *classinfo.Meta) error {
	c.mu.Lock()
	if c.saved[className] {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", errs.ErrMetaWriteDuplicate, className)
	}
	c.saved[className] = true
	c.loaded[className] = meta
	c.mu.Unlock()

	path := c.pathFor(className)
	data, err := jsonc.MarshalIndent(meta)
	if err != nil {
		return fmt.Errorf("encoding meta %q: %w", className, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing meta %q: %w", className, err)
	}
	return nil
}
