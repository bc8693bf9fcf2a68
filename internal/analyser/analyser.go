// Package analyser orchestrates components A-I into the two operations the
// rest of the system calls: open (hydrate the DB and resource sub-db, then
// scan libraries) and analyseClasses (drive the dependency closure, the
// meta merger, and the descendant fixup, then persist everything).
//
// The errgroup-based parallel-phase wiring follows vovakirdan-surge's use
// of golang.org/x/sync/errgroup for independent startup work.
package analyser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/closure"
	"github.com/classanalyser/classanalyser/internal/compile"
	"github.com/classanalyser/classanalyser/internal/db"
	"github.com/classanalyser/classanalyser/internal/descendants"
	"github.com/classanalyser/classanalyser/internal/events"
	"github.com/classanalyser/classanalyser/internal/library"
	"github.com/classanalyser/classanalyser/internal/merge"
	"github.com/classanalyser/classanalyser/internal/metacache"
)

// Analyser owns the wiring between the class DB, the compile dispatcher,
// the meta cache and merger, and the descendant-fixup collector for one
// analyser instance's lifetime (spec.md §9: "multiple analyser instances
// must be kept disjoint by construction").
type Analyser struct {
	Index      *library.Index
	DB         *db.DB
	ResourceDB *db.DB
	Dispatcher *compile.Dispatcher
	Cache      *metacache.Cache
	Merger     *merge.Merger
	Bus        *events.Bus
	Stderr     io.Writer

	collector *descendants.Collector
	mu        sync.Mutex
	compiled  []string
}

// New wires an Analyser. ResourceDB may be nil when the configuration's
// processResources is false (spec.md §6).
func New(idx *library.Index, mainDB, resourceDB *db.DB, dispatcher *compile.Dispatcher, cache *metacache.Cache, merger *merge.Merger, bus *events.Bus, stderr io.Writer) *Analyser {
	a := &Analyser{
		Index:      idx,
		DB:         mainDB,
		ResourceDB: resourceDB,
		Dispatcher: dispatcher,
		Cache:      cache,
		Merger:     merger,
		Bus:        bus,
		Stderr:     stderr,
		collector:  descendants.NewCollector(),
	}
	a.collector.Attach(bus)
	bus.On(events.CompiledClass, a.onCompiledClass)
	return a
}

func (a *Analyser) onCompiledClass(payload any) {
	evt, ok := payload.(compile.CompiledClassEvent)
	if !ok || evt.ClassFile == nil {
		return
	}
	name := evt.ClassFile.GetClassName()

	a.mu.Lock()
	a.compiled = append(a.compiled, name)
	a.mu.Unlock()

	if meta := evt.ClassFile.GetOuterClassMeta(); meta != nil {
		a.Cache.Stage(name, meta)
	}
}

// Open hydrates the DB and resource sub-db, then scans all registered
// libraries. The library scan and the resource sub-db load run in
// parallel (spec.md §5: "may run in parallel because they touch disjoint
// state").
func (a *Analyser) Open(ctx context.Context) error {
	if err := a.DB.Load(); err != nil {
		return fmt.Errorf("opening class db: %w", err)
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scanAllLibraries(a.Index)
	})
	if a.ResourceDB != nil {
		g.Go(func() error {
			return a.ResourceDB.Load()
		})
	}
	return g.Wait()
}

func scanAllLibraries(idx *library.Index) error {
	for _, lib := range idx.Libraries() {
		names, err := library.ScanForClasses(lib)
		if err != nil {
			return fmt.Errorf("scanning library %s: %w", lib.Namespace, err)
		}
		for _, name := range names {
			idx.NoteClassOwner(name, lib.Namespace)
		}
	}
	return nil
}

// AnalyseClasses drives the dependency closure from seed, merges meta for
// every freshly compiled class and computes its descendants[], fixes up
// descendants for ancestors that were not themselves recompiled, and
// persists everything. Ordering guarantees from spec.md §5 are enforced by
// sequencing: G only begins after closure.Run returns (all D events for
// this run have already fired); H only begins after every compiled class
// has been merged; the DB save is the last step, followed by the resource
// sub-db save (spec.md §4.B: "save() also triggers the resource sub-db
// save").
func (a *Analyser) AnalyseClasses(ctx context.Context, seed []string, forceScan bool) (*closure.Result, error) {
	a.mu.Lock()
	a.compiled = nil
	a.mu.Unlock()

	result, err := closure.Run(ctx, a.Dispatcher, seed, forceScan, a.Stderr)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	compiled := append([]string(nil), a.compiled...)
	a.mu.Unlock()

	for _, name := range compiled {
		meta, err := a.Cache.LoadMeta(name)
		if err != nil {
			return nil, fmt.Errorf("loading meta for %s: %w", name, err)
		}
		if meta == nil {
			continue
		}
		if err := a.Merger.MergeClass(meta); err != nil {
			return nil, err
		}
		meta.Descendants = descendants.Compute(a.DB, name)
	}

	if err := descendants.Fixup(a.Cache, a.DB, a.collector.Names()); err != nil {
		return nil, fmt.Errorf("descendant fixup: %w", err)
	}

	for _, name := range compiled {
		meta, err := a.Cache.LoadMeta(name)
		if err != nil {
			return nil, fmt.Errorf("loading meta for %s: %w", name, err)
		}
		if meta == nil {
			continue
		}
		if err := a.Cache.SaveMeta(name, meta); err != nil {
			return nil, fmt.Errorf("saving meta for %s: %w", name, err)
		}
	}

	if err := a.DB.Save(); err != nil {
		return nil, fmt.Errorf("saving class db: %w", err)
	}
	if a.ResourceDB != nil {
		if err := a.ResourceDB.Save(); err != nil {
			return nil, fmt.Errorf("saving resource db: %w", err)
		}
	}
	return result, nil
}

// ClassInfoOf returns the DB row for className, or nil if it is unknown.
func (a *Analyser) ClassInfoOf(className string) *classinfo.ClassInfo {
	return a.DB.Get(className)
}
