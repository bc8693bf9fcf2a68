// Package descendants implements Descendant Fixup (spec.md §4.H): after a
// batch completes, recompute descendants[] for every class whose ancestor
// set changed, even when that ancestor itself was not recompiled.
package descendants

import (
	"sort"
	"sync"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/compile"
	"github.com/classanalyser/classanalyser/internal/events"
)

// MetaStore is the subset of internal/metacache.Cache that fixup needs.
type MetaStore interface {
	LoadMeta(className string) (*classinfo.Meta, error)
	SaveMeta(className string, meta *classinfo.Meta) error
}

// ClassInfoStore is the subset of internal/db.DB that fixup needs.
type ClassInfoStore interface {
	Get(className string) *classinfo.ClassInfo
	All() []string
}

// Collector listens for compiledClass events during a run and gathers the
// set of ancestor names worth revisiting: every class named as extends,
// implement or include in either the old or the new ClassInfo of a
// just-compiled class, excluding classes that were themselves recompiled.
type Collector struct {
	mu         sync.Mutex
	touched    map[string]bool
	recompiled map[string]bool
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{touched: make(map[string]bool), recompiled: make(map[string]bool)}
}

// Attach subscribes the collector to bus's compiledClass event.
func (c *Collector) Attach(bus *events.Bus) {
	bus.On(events.CompiledClass, func(payload any) {
		evt, ok := payload.(compile.CompiledClassEvent)
		if !ok {
			return
		}
		c.Observe(evt)
	})
}

// Observe records the ancestor names touched by one compiledClass event.
func (c *Collector) Observe(evt compile.CompiledClassEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if evt.ClassFile != nil {
		c.recompiled[evt.ClassFile.GetClassName()] = true
	}

	collect := func(info *classinfo.ClassInfo) {
		if info == nil {
			return
		}
		if info.Extends != "" {
			c.touched[info.Extends] = true
		}
		for _, name := range info.Implement {
			c.touched[name] = true
		}
		for _, name := range info.Include {
			c.touched[name] = true
		}
	}
	collect(evt.Old)
	collect(evt.New)
}

// Names returns the touched ancestor names, sorted, excluding any that were
// themselves recompiled this run.
func (c *Collector) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.touched))
	for name := range c.touched {
		if c.recompiled[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fixup recomputes descendants[] for every name in touched that exists in
// store, saving the updated meta via cache. Spec.md §4.H: "load X's meta
// via F, recompute X.descendants ..., mark it dirty, and save."
func Fixup(cache MetaStore, store ClassInfoStore, touched []string) error {
	for _, name := range touched {
		if store.Get(name) == nil {
			continue
		}
		meta, err := cache.LoadMeta(name)
		if err != nil {
			return err
		}
		if meta == nil {
			continue
		}
		meta.Descendants = Compute(store, name)
		if err := cache.SaveMeta(name, meta); err != nil {
			return err
		}
	}
	return nil
}

// Compute implements spec.md's descendants-consistency law: X's descendants
// are every Y in the DB whose extends names X. Exported so callers outside
// Fixup's touched-ancestor set — namely freshly compiled classes, which
// Names() deliberately excludes — can populate descendants[] too.
func Compute(store ClassInfoStore, name string) []string {
	var out []string
	for _, candidate := range store.All() {
		info := store.Get(candidate)
		if info != nil && info.Extends == name {
			out = append(out, candidate)
		}
	}
	sort.Strings(out)
	return out
}
