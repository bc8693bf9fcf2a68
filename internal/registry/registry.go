// Package registry implements the Environment/Locale/Translation
// Registries (spec.md §4.I): the ordered locale set, a lazily-loaded CLDR
// cache, a translation cache keyed by "<locale>:<namespace>", the mutable
// environment-check map, and the compile-time environment value map.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"golang.org/x/sync/errgroup"
)

// Locales is an ordered set of requested locales with "en" as the default
// (spec.md §4.I).
type Locales struct {
	mu    sync.Mutex
	order []string
	set   map[string]bool
}

// NewLocales returns a Locales seeded with the default locale "en".
func NewLocales() *Locales {
	l := &Locales{set: make(map[string]bool)}
	l.Add("en")
	return l
}

// Add registers locale if not already present, preserving insertion order.
func (l *Locales) Add(locale string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.set[locale] {
		return
	}
	l.set[locale] = true
	l.order = append(l.order, locale)
}

// All returns the registered locales in insertion order.
func (l *Locales) All() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

// CLDRData is an opaque per-locale CLDR payload; its structure is owned by
// the external CLDR loader, not the analyser.
type CLDRData struct {
	Locale string
	Data   map[string]any
}

// CLDRLoader loads a locale's CLDR data from wherever it is sourced (a
// vendored data file, a remote service, ...). The analyser treats it as an
// external collaborator (spec.md §1).
type CLDRLoader interface {
	LoadCLDR(locale string) (*CLDRData, error)
}

// CLDRCache caches loaded CLDR data for the lifetime of one analyser run.
type CLDRCache struct {
	loader CLDRLoader

	mu    sync.Mutex
	cache map[string]*CLDRData
}

// NewCLDRCache returns a CLDRCache backed by loader.
func NewCLDRCache(loader CLDRLoader) *CLDRCache {
	return &CLDRCache{loader: loader, cache: make(map[string]*CLDRData)}
}

// Get returns locale's CLDR data, loading and caching it on first use.
func (c *CLDRCache) Get(locale string) (*CLDRData, error) {
	c.mu.Lock()
	if data, ok := c.cache[locale]; ok {
		c.mu.Unlock()
		return data, nil
	}
	c.mu.Unlock()

	data, err := c.loader.LoadCLDR(locale)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[locale] = data
	c.mu.Unlock()
	return data, nil
}

// Translation is the external per-file translation object. CheckRead must
// complete before the translation is handed back to a caller (spec.md
// §4.I).
type Translation interface {
	CheckRead() error
}

// TranslationLoader loads the translation object for one locale/namespace
// pair.
type TranslationLoader interface {
	LoadTranslation(locale, namespace string) (Translation, error)
}

// TranslationCache caches loaded Translation objects keyed by
// "<locale>:<namespace>" (spec.md §4.I).
type TranslationCache struct {
	loader TranslationLoader

	mu    sync.Mutex
	cache map[string]Translation
}

// NewTranslationCache returns a TranslationCache backed by loader.
func NewTranslationCache(loader TranslationLoader) *TranslationCache {
	return &TranslationCache{loader: loader, cache: make(map[string]Translation)}
}

func translationKey(locale, namespace string) string { return locale + ":" + namespace }

// Get returns the cached Translation for locale/namespace, loading and
// checking it on first use.
func (c *TranslationCache) Get(locale, namespace string) (Translation, error) {
	k := translationKey(locale, namespace)

	c.mu.Lock()
	if t, ok := c.cache[k]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	t, err := c.loader.LoadTranslation(locale, namespace)
	if err != nil {
		return nil, err
	}
	if err := t.CheckRead(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[k] = t
	c.mu.Unlock()
	return t, nil
}

// EnvironmentChecks is the mutable map of compile-time environment keys a
// class has been observed to read. Set(key, nil) deletes; SetMap merges
// (spec.md §4.I).
type EnvironmentChecks struct {
	mu sync.Mutex
	m  map[string]any
}

// NewEnvironmentChecks returns an empty EnvironmentChecks map.
func NewEnvironmentChecks() *EnvironmentChecks {
	return &EnvironmentChecks{m: make(map[string]any)}
}

// Set stores value under key, or deletes key if value is nil.
func (e *EnvironmentChecks) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == nil {
		delete(e.m, key)
		return
	}
	e.m[key] = value
}

// SetMap merges values into the map; a nil value for a key deletes it.
func (e *EnvironmentChecks) SetMap(values map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range values {
		if v == nil {
			delete(e.m, k)
			continue
		}
		e.m[k] = v
	}
}

// Get returns the value stored under key.
func (e *EnvironmentChecks) Get(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[key]
	return v, ok
}

// Keys returns every checked key, sorted.
func (e *EnvironmentChecks) Keys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	keys := make([]string, 0, len(e.m))
	for k := range e.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Environment is the compile-time environment value map consumed during
// compilation (spec.md §4.I "Environment map property"), distinct from
// EnvironmentChecks: this is config-supplied input, not an observed-read
// log.
type Environment struct {
	mu sync.Mutex
	m  map[string]any
}

// NewEnvironment returns an Environment seeded with initial values.
func NewEnvironment(initial map[string]any) *Environment {
	e := &Environment{m: make(map[string]any, len(initial))}
	e.SetMap(initial)
	return e
}

// Set stores value under key, or deletes key if value is nil.
func (e *Environment) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if value == nil {
		delete(e.m, key)
		return
	}
	e.m[key] = value
}

// SetMap merges values into the environment map.
func (e *Environment) SetMap(values map[string]any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for k, v := range values {
		if v == nil {
			delete(e.m, k)
			continue
		}
		e.m[k] = v
	}
}

// Get returns the value stored under key.
func (e *Environment) Get(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.m[key]
	return v, ok
}

// TranslationComments holds the merged comment metadata for one message.
type TranslationComments struct {
	Extracted string         `json:"extracted,omitempty"`
	Reference map[string][]int `json:"reference,omitempty"`
}

// TranslationEntry is one merged message in a translation file.
type TranslationEntry struct {
	MsgID       string              `json:"msgid"`
	MsgIDPlural string              `json:"msgidPlural,omitempty"`
	Comments    TranslationComments `json:"comments"`
}

// TranslationFile is the in-memory form of one locale/namespace's
// translation file.
type TranslationFile struct {
	Entries map[string]*TranslationEntry `json:"entries"`
}

// TranslationFileStore reads and writes a locale/namespace's translation
// file. Within one locale, per-class merging runs in parallel but the
// final write is serialized here (spec.md §5).
type TranslationFileStore interface {
	Load(locale, namespace string) (*TranslationFile, error)
	Save(locale, namespace string, file *TranslationFile) error
}

// ClassSource supplies the per-class facts updateTranslations needs: the
// known classes in a namespace, their ClassInfo, and the source path used
// as a translation reference.
type ClassSource interface {
	ClassNamesInNamespace(namespace string) []string
	Get(className string) *classinfo.ClassInfo
	SourcePath(className string) string
}

// UpdateTranslations implements spec.md §4.I's updateTranslations(library,
// locales): for each locale (fanned out in parallel), read the existing
// translation file, then for every known class in the library's namespace
// copy that class's extracted translations[] entries in, accumulating
// source-file references with line-number de-duplication (spec.md §9: the
// array-element-append resolution). The final write per locale is
// serialized after the per-class merge completes.
func UpdateTranslations(ctx context.Context, namespace string, locales []string, source ClassSource, store TranslationFileStore) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, locale := range locales {
		locale := locale
		g.Go(func() error {
			return updateOneLocale(locale, namespace, source, store)
		})
	}
	return g.Wait()
}

func updateOneLocale(locale, namespace string, source ClassSource, store TranslationFileStore) error {
	file, err := store.Load(locale, namespace)
	if err != nil {
		return err
	}
	if file == nil {
		file = &TranslationFile{}
	}
	if file.Entries == nil {
		file.Entries = make(map[string]*TranslationEntry)
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, className := range source.ClassNamesInNamespace(namespace) {
		className := className
		g.Go(func() error {
			info := source.Get(className)
			if info == nil {
				return nil
			}
			sourcePath := source.SourcePath(className)
			mu.Lock()
			for _, entry := range info.Translations {
				mergeTranslationEntry(file, entry, sourcePath)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return store.Save(locale, namespace, file)
}

func mergeTranslationEntry(file *TranslationFile, src classinfo.TranslationEntry, sourcePath string) {
	entry, ok := file.Entries[src.MsgID]
	if !ok {
		entry = &TranslationEntry{MsgID: src.MsgID}
		file.Entries[src.MsgID] = entry
	}
	if src.MsgIDPlural != "" {
		entry.MsgIDPlural = src.MsgIDPlural
	}
	if src.Comment != "" {
		entry.Comments.Extracted = src.Comment
	}
	if entry.Comments.Reference == nil {
		entry.Comments.Reference = make(map[string][]int)
	}
	lines := entry.Comments.Reference[sourcePath]
	for _, existing := range lines {
		if existing == src.LineNo {
			return
		}
	}
	entry.Comments.Reference[sourcePath] = append(lines, src.LineNo)
}
