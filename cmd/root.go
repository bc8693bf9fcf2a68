// Package cmd wires the classanalyser CLI: a cobra root command plus the
// analyse/descendants/explain/translations subcommands, mirroring
// vovakirdan-surge's cmd/surge tree (one file per subcommand, persistent
// flags on the root, package-level *cobra.Command vars wired in init()).
package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classanalyser/classanalyser/internal/analyser"
	"github.com/classanalyser/classanalyser/internal/classinfo"
	"github.com/classanalyser/classanalyser/internal/compile"
	"github.com/classanalyser/classanalyser/internal/config"
	"github.com/classanalyser/classanalyser/internal/db"
	"github.com/classanalyser/classanalyser/internal/events"
	"github.com/classanalyser/classanalyser/internal/library"
	"github.com/classanalyser/classanalyser/internal/merge"
	"github.com/classanalyser/classanalyser/internal/metacache"
	"github.com/classanalyser/classanalyser/internal/sourcecompile"
)

// RootCmd is the classanalyser CLI root.
var RootCmd = &cobra.Command{
	Use:   "classanalyser",
	Short: "Incremental class analyser for a class-based scripting-language front end",
	Long:  `classanalyser scans libraries of class source files, compiles and merges their metadata incrementally, and reports the result.`,
}

func init() {
	RootCmd.PersistentFlags().String("config", "classanalyser.toml", "path to the configuration file")
	RootCmd.PersistentFlags().StringArray("library", nil, "namespace=rootDir pair, may be repeated")
	RootCmd.PersistentFlags().Bool("force-scan", false, "ignore staleness and recompile every visited class")

	RootCmd.AddCommand(analyseCmd)
	RootCmd.AddCommand(descendantsCmd)
	RootCmd.AddCommand(explainCmd)
	RootCmd.AddCommand(translationsCmd)
}

// Execute runs the root command, reading os.Args.
func Execute() error {
	return RootCmd.Execute()
}

// env bundles the analyser and its supporting wiring built fresh for one
// command invocation.
type env struct {
	cfg       config.Config
	analyser  *analyser.Analyser
	bus       *events.Bus
	mainDB    *db.DB
	resDB     *db.DB
	idx       *library.Index
	forceScan bool
}

func buildEnv(cmd *cobra.Command, stderr io.Writer) (*env, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	libraryFlags, err := cmd.Flags().GetStringArray("library")
	if err != nil {
		return nil, err
	}
	forceScan, err := cmd.Flags().GetBool("force-scan")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	bus := events.NewBus()
	dbPath := cfg.DbFilename
	if dbPath == "" {
		dbPath = "db.json"
	}
	if cfg.OutputDir != "" {
		dbPath = filepath.Join(cfg.OutputDir, dbPath)
	}
	mainDB := db.New(dbPath, bus)

	var resDB *db.DB
	if cfg.ProcessResources {
		resDB = db.New(db.ResourceDBPath(dbPath), bus)
	}

	locator := library.DefaultLocator{OutputDir: cfg.OutputDir}
	idx := library.NewIndex(locator)
	for _, spec := range libraryFlags {
		ns, root, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("--library %q: want namespace=rootDir", spec)
		}
		if err := idx.AddLibrary(&classinfo.Library{Namespace: ns, RootDir: root}); err != nil {
			return nil, err
		}
	}

	dispatcher := &compile.Dispatcher{
		Index:   idx,
		DB:      mainDB,
		Locator: locator,
		Bus:     bus,
		NewClassFile: func(lib *classinfo.Library, className, sourcePath, outputPath string) compile.ClassFile {
			return sourcecompile.New(lib, className, sourcePath, outputPath)
		},
	}

	cache := metacache.NewWithWarnings(func(className string) string {
		lib := idx.GetLibraryFromClassname(className)
		if lib == nil {
			return filepath.FromSlash(strings.ReplaceAll(className, ".", "/")) + ".js.meta.json"
		}
		return locator.OutputPath(lib, className) + ".meta.json"
	}, stderr)
	merger := &merge.Merger{Loader: cache}

	a := analyser.New(idx, mainDB, resDB, dispatcher, cache, merger, bus, stderr)

	return &env{cfg: cfg, analyser: a, bus: bus, mainDB: mainDB, resDB: resDB, idx: idx, forceScan: forceScan}, nil
}
