// Package db implements the Class DB (spec.md §4.B): an in-memory plus
// on-disk JSON map className → ClassInfo, persisted through internal/jsonc
// so the file tolerates trailing commas and comments on read.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/errs"
	"github.com/classanalyser/classanalyser/internal/events"
	"github.com/classanalyser/classanalyser/internal/jsonc"
)

// document is the on-disk shape of the DB file: a top-level "classInfo" map
// (spec.md §6).
type document struct {
	ClassInfo map[string]*classinfo.ClassInfo `json:"classInfo"`
}

// SaveDatabaseEvent is the payload emitted on the "saveDatabase" event.
// Listeners may mutate Rows before the synchronous write happens.
type SaveDatabaseEvent struct {
	Rows map[string]*classinfo.ClassInfo
}

// DB is the Class DB. Rows are written by the compile dispatch (row write)
// and may be mutated in place by saveDatabase listeners; descendant fixup
// only reads them, since descendants[] lives in each class's meta. DB guards
// its own map with a mutex so concurrent Get/Put/All calls are safe.
type DB struct {
	path string
	bus  *events.Bus

	mu   sync.RWMutex
	rows map[string]*classinfo.ClassInfo
}

// New returns a DB backed by path (default "db.json" per spec.md §6) and
// wired to bus for the saveDatabase event.
func New(path string, bus *events.Bus) *DB {
	if path == "" {
		path = "db.json"
	}
	return &DB{path: path, bus: bus, rows: make(map[string]*classinfo.ClassInfo)}
}

// ResourceDBPath derives the resource sub-db path by replacing the DB
// file's final path segment with "resource-db.json" (spec.md §4.B).
func ResourceDBPath(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "resource-db.json")
}

// Load reads the DB file. An absent or empty file yields an empty DB, not
// an error. A malformed file is an ErrDbParse (spec.md §7: "run aborts
// before any compile").
func (d *DB) Load() error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if os.IsNotExist(err) {
			d.mu.Lock()
			d.rows = make(map[string]*classinfo.ClassInfo)
			d.mu.Unlock()
			return nil
		}
		return fmt.Errorf("reading db %q: %w", d.path, err)
	}

	var doc document
	if err := jsonc.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %s: %v", errs.ErrDbParse, d.path, err)
	}
	if doc.ClassInfo == nil {
		doc.ClassInfo = make(map[string]*classinfo.ClassInfo)
	}

	d.mu.Lock()
	d.rows = doc.ClassInfo
	d.mu.Unlock()
	return nil
}

// Get returns the row for className, or nil if unknown.
func (d *DB) Get(className string) *classinfo.ClassInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rows[className]
}

// Put stores info under className. Rows are never deleted by the analyser
// (spec.md §3: "it is never deleted by the analyser").
func (d *DB) Put(className string, info *classinfo.ClassInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rows[className] = info
}

// All returns every known class name, sorted.
func (d *DB) All() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.rows))
	for name := range d.rows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save persists the DB file, emitting "saveDatabase" synchronously before
// the write so listeners can mutate rows in place (spec.md §4.B).
func (d *DB) Save() error {
	d.mu.Lock()
	rows := d.rows
	d.mu.Unlock()

	if d.bus != nil {
		d.bus.Emit(events.SaveDatabase, SaveDatabaseEvent{Rows: rows})
	}

	doc := document{ClassInfo: rows}
	data, err := jsonc.MarshalIndent(doc)
	if err != nil {
		return fmt.Errorf("encoding db %q: %w", d.path, err)
	}
	if dir := filepath.Dir(d.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating db dir: %w", err)
		}
	}
	if err := os.WriteFile(d.path, data, 0o644); err != nil {
		return fmt.Errorf("writing db %q: %w", d.path, err)
	}
	return nil
}

// Path returns the DB file path, for diagnostics and tests.
func (d *DB) Path() string { return d.path }
