package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/db"
	"github.com/classanalyser/classanalyser/internal/jsonc"
	"github.com/classanalyser/classanalyser/internal/library"
	"github.com/classanalyser/classanalyser/internal/registry"
)

var translationsCmd = &cobra.Command{
	Use:   "translations",
	Short: "Translation registry operations",
}

var translationsUpdateCmd = &cobra.Command{
	Use:   "update <namespace>",
	Short: "Update the translation files for a namespace for each locale given with --locale",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranslationsUpdate,
}

func init() {
	translationsUpdateCmd.Flags().StringArray("locale", []string{"en"}, "locale to update, may be repeated")
	translationsCmd.AddCommand(translationsUpdateCmd)
}

func runTranslationsUpdate(cmd *cobra.Command, args []string) error {
	e, err := buildEnv(cmd, os.Stderr)
	if err != nil {
		return err
	}
	locales, err := cmd.Flags().GetStringArray("locale")
	if err != nil {
		return err
	}
	if err := e.mainDB.Load(); err != nil {
		return err
	}

	namespace := args[0]
	locator := library.DefaultLocator{OutputDir: e.cfg.OutputDir}
	source := dbClassSource{db: e.mainDB, idx: e.idx, locator: locator}
	store := fileTranslationStore{dir: filepath.Join(e.cfg.OutputDir, "translation")}

	if err := registry.UpdateTranslations(cmd.Context(), namespace, locales, source, store); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "updated translations for %s across %d locale(s)\n", namespace, len(locales))
	return nil
}

// dbClassSource adapts the class DB and library index to registry.ClassSource.
type dbClassSource struct {
	db      *db.DB
	idx     *library.Index
	locator library.ClassFileLocator
}

func (s dbClassSource) ClassNamesInNamespace(namespace string) []string {
	var names []string
	for _, name := range s.db.All() {
		if info := s.db.Get(name); info != nil && info.LibraryName == namespace {
			names = append(names, name)
		}
	}
	return names
}

func (s dbClassSource) Get(className string) *classinfo.ClassInfo {
	return s.db.Get(className)
}

func (s dbClassSource) SourcePath(className string) string {
	lib := s.idx.GetLibraryFromClassname(className)
	if lib == nil {
		return ""
	}
	return s.locator.SourcePath(lib, className)
}

// fileTranslationStore is a jsonc-backed registry.TranslationFileStore,
// one file per locale/namespace pair under dir/<locale>/<namespace>.json.
type fileTranslationStore struct {
	dir string
}

func (s fileTranslationStore) path(locale, namespace string) string {
	return filepath.Join(s.dir, locale, namespace+".json")
}

func (s fileTranslationStore) Load(locale, namespace string) (*registry.TranslationFile, error) {
	data, err := os.ReadFile(s.path(locale, namespace))
	if err != nil {
		if os.IsNotExist(err) {
			return &registry.TranslationFile{Entries: make(map[string]*registry.TranslationEntry)}, nil
		}
		return nil, fmt.Errorf("reading translation file %s/%s: %w", locale, namespace, err)
	}
	var file registry.TranslationFile
	if err := jsonc.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing translation file %s/%s: %w", locale, namespace, err)
	}
	if file.Entries == nil {
		file.Entries = make(map[string]*registry.TranslationEntry)
	}
	return &file, nil
}

func (s fileTranslationStore) Save(locale, namespace string, file *registry.TranslationFile) error {
	path := s.path(locale, namespace)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating translation dir: %w", err)
	}
	data, err := jsonc.MarshalIndent(file)
	if err != nil {
		return fmt.Errorf("encoding translation file %s/%s: %w", locale, namespace, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing translation file %s/%s: %w", locale, namespace, err)
	}
	return nil
}
