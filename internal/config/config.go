// Package config loads classanalyser.toml (spec.md §6), the analyser's
// only configuration surface: output location, incremental-compile
// behavior, resource handling, and the compile-time environment map.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config mirrors spec.md §6's enumerated configuration fields.
type Config struct {
	OutputDir        string         `toml:"outputDir"`
	TrackLineNumbers bool           `toml:"trackLineNumbers"`
	ProcessResources bool           `toml:"processResources"`
	AddCreatedAt     bool           `toml:"addCreatedAt"`
	Environment      map[string]any `toml:"environment"`
	BabelOptions     map[string]any `toml:"babelOptions"`
	DbFilename       string         `toml:"dbFilename"`
}

// Default returns the configuration defaults named in spec.md §6:
// processResources=true, dbFilename="db.json", everything else zero.
func Default() Config {
	return Config{
		ProcessResources: true,
		DbFilename:       "db.json",
	}
}

// Load reads path as TOML, merging over Default(). A missing file returns
// the defaults, not an error — classanalyser.toml is optional.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %q: %w", path, err)
	}
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return cfg, nil
}
