package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/classanalyser/classanalyser/internal/classinfo"
)

func TestLocalesDefaultsToEn(t *testing.T) {
	t.Parallel()
	l := NewLocales()
	l.Add("de")
	l.Add("en")
	got := l.All()
	if len(got) != 2 || got[0] != "en" || got[1] != "de" {
		t.Fatalf("All() = %v, want [en de]", got)
	}
}

type fakeCLDRLoader struct {
	calls int
	mu    sync.Mutex
}

func (f *fakeCLDRLoader) LoadCLDR(locale string) (*CLDRData, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return &CLDRData{Locale: locale}, nil
}

func TestCLDRCacheLoadsOnce(t *testing.T) {
	t.Parallel()
	loader := &fakeCLDRLoader{}
	cache := NewCLDRCache(loader)

	if _, err := cache.Get("de"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("de"); err != nil {
		t.Fatal(err)
	}
	if loader.calls != 1 {
		t.Errorf("expected 1 load, got %d", loader.calls)
	}
}

type fakeTranslation struct{ checked bool }

func (f *fakeTranslation) CheckRead() error { f.checked = true; return nil }

type fakeTranslationLoader struct{}

func (fakeTranslationLoader) LoadTranslation(locale, namespace string) (Translation, error) {
	return &fakeTranslation{}, nil
}

func TestTranslationCacheKeyedByLocaleAndNamespace(t *testing.T) {
	t.Parallel()
	cache := NewTranslationCache(fakeTranslationLoader{})

	a, err := cache.Get("en", "app")
	if err != nil {
		t.Fatal(err)
	}
	b, err := cache.Get("de", "app")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("expected distinct translations per locale")
	}
	again, _ := cache.Get("en", "app")
	if again != a {
		t.Error("expected cached translation on second Get")
	}
	if !a.(*fakeTranslation).checked {
		t.Error("expected CheckRead to have run")
	}
}

func TestEnvironmentChecksSetAndDelete(t *testing.T) {
	t.Parallel()
	e := NewEnvironmentChecks()
	e.Set("qx.debug", true)
	if v, ok := e.Get("qx.debug"); !ok || v != true {
		t.Fatalf("Get = %v,%v", v, ok)
	}
	e.Set("qx.debug", nil)
	if _, ok := e.Get("qx.debug"); ok {
		t.Error("expected delete on nil value")
	}
}

func TestEnvironmentSetMapMerges(t *testing.T) {
	t.Parallel()
	e := NewEnvironment(map[string]any{"a": 1})
	e.SetMap(map[string]any{"b": 2, "a": nil})
	if _, ok := e.Get("a"); ok {
		t.Error("expected a deleted")
	}
	if v, ok := e.Get("b"); !ok || v != 2 {
		t.Fatalf("Get(b) = %v,%v", v, ok)
	}
}

type fakeClassSource struct {
	classes map[string][]string
	infos   map[string]*classinfo.ClassInfo
	paths   map[string]string
}

func (f *fakeClassSource) ClassNamesInNamespace(namespace string) []string {
	return f.classes[namespace]
}
func (f *fakeClassSource) Get(className string) *classinfo.ClassInfo { return f.infos[className] }
func (f *fakeClassSource) SourcePath(className string) string        { return f.paths[className] }

type fakeTranslationStore struct {
	mu    sync.Mutex
	files map[string]*TranslationFile
	saved map[string]*TranslationFile
}

func newFakeTranslationStore() *fakeTranslationStore {
	return &fakeTranslationStore{files: make(map[string]*TranslationFile), saved: make(map[string]*TranslationFile)}
}

func (s *fakeTranslationStore) Load(locale, namespace string) (*TranslationFile, error) {
	return s.files[translationKey(locale, namespace)], nil
}
func (s *fakeTranslationStore) Save(locale, namespace string, file *TranslationFile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[translationKey(locale, namespace)] = file
	return nil
}

func TestUpdateTranslationsMergesAndDedupsLineNumbers(t *testing.T) {
	t.Parallel()
	source := &fakeClassSource{
		classes: map[string][]string{"app": {"app.App"}},
		infos: map[string]*classinfo.ClassInfo{
			"app.App": {Translations: []classinfo.TranslationEntry{
				{MsgID: "Hello", LineNo: 10},
				{MsgID: "Hello", LineNo: 10},
				{MsgID: "Hello", LineNo: 20},
			}},
		},
		paths: map[string]string{"app.App": "app/App.js"},
	}
	store := newFakeTranslationStore()

	if err := UpdateTranslations(context.Background(), "app", []string{"en"}, source, store); err != nil {
		t.Fatalf("UpdateTranslations: %v", err)
	}

	file := store.saved[translationKey("en", "app")]
	if file == nil {
		t.Fatal("expected a saved file")
	}
	entry := file.Entries["Hello"]
	if entry == nil {
		t.Fatal("expected Hello entry")
	}
	lines := entry.Comments.Reference["app/App.js"]
	if len(lines) != 2 {
		t.Fatalf("lines = %v, want 2 deduped entries", lines)
	}
}

func TestUpdateTranslationsPropagatesLoadError(t *testing.T) {
	t.Parallel()
	source := &fakeClassSource{}
	store := &erroringStore{err: errors.New("disk full")}
	err := UpdateTranslations(context.Background(), "app", []string{"en"}, source, store)
	if err == nil {
		t.Fatal("expected error")
	}
}

type erroringStore struct{ err error }

func (e *erroringStore) Load(locale, namespace string) (*TranslationFile, error) { return nil, e.err }
func (e *erroringStore) Save(locale, namespace string, file *TranslationFile) error {
	return nil
}
