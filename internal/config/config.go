// Package config loads conceptlens project configuration.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Command-line flags (applied by the CLI)
//  2. Environment variables (CONCEPTLENS_*)
//  3. Project config (.conceptlens/config.yml or .conceptlens/config.yaml)
//  4. Built-in defaults
//
// Nested fields map to environment variables with underscores, e.g.
// scan.tiers is CONCEPTLENS_SCAN_TIERS.
package config

import (
	"path/filepath"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/discovery"
)

// DirName is the project directory holding config and history.
const DirName = ".conceptlens"

// Config represents the complete conceptlens configuration.
type Config struct {
	Scan    ScanConfig    `yaml:"scan" mapstructure:"scan"`
	Paths   PathsConfig   `yaml:"paths" mapstructure:"paths"`
	Rules   RulesConfig   `yaml:"rules" mapstructure:"rules"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Watch   WatchConfig   `yaml:"watch" mapstructure:"watch"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// ScanConfig holds scan defaults that flags can override.
type ScanConfig struct {
	Tiers   []int  `yaml:"tiers" mapstructure:"tiers"`     // subset of [1, 2]
	Format  string `yaml:"format" mapstructure:"format"`   // text, json or sarif
	Workers int    `yaml:"workers" mapstructure:"workers"` // parallel files in directory scans, 0 = GOMAXPROCS
}

// PathsConfig defines which files a directory scan covers.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns of files to scan
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
}

// RulesConfig extends the built-in rules.
type RulesConfig struct {
	ExtraCalls []CallPatternConfig `yaml:"extra_calls" mapstructure:"extra_calls"`
}

// CallPatternConfig maps a qualified call suffix to a category.
type CallPatternConfig struct {
	Suffix   string `yaml:"suffix" mapstructure:"suffix"`     // e.g. "sh.Command"
	Category string `yaml:"category" mapstructure:"category"` // e.g. "Subprocess"
}

// StorageConfig controls scan history.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"` // record every scan
	DBPath  string `yaml:"db_path" mapstructure:"db_path"` // relative paths resolve against the project root
}

// WatchConfig controls scan --watch.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// CacheConfig sizes the in-memory result cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"`
}

// LogConfig controls diagnostic logging on stderr.
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn or error
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scan: ScanConfig{
			Tiers:   []int{1, 2},
			Format:  "text",
			Workers: 0,
		},
		Paths: PathsConfig{
			Include: append([]string(nil), discovery.DefaultInclude...),
			Ignore:  append([]string(nil), discovery.DefaultIgnore...),
		},
		Rules: RulesConfig{
			ExtraCalls: []CallPatternConfig{},
		},
		Storage: StorageConfig{
			Enabled: false,
			DBPath:  filepath.Join(DirName, "history.db"),
		},
		Watch: WatchConfig{
			DebounceMS: 300,
		},
		Cache: CacheConfig{
			Capacity: 1024,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// TierSet converts the configured tiers.
func (c *Config) TierSet() (concepts.TierSet, error) {
	return concepts.TiersFromInts(c.Scan.Tiers)
}

// CallPatterns converts rules.extra_calls for the rule registry.
func (c *Config) CallPatterns() []concepts.CallPattern {
	out := make([]concepts.CallPattern, 0, len(c.Rules.ExtraCalls))
	for _, p := range c.Rules.ExtraCalls {
		category, ok := concepts.ParseCategory(p.Category)
		if !ok {
			category = concepts.Category(p.Category)
		}
		out = append(out, concepts.CallPattern{Suffix: p.Suffix, Category: category})
	}
	return out
}

// HistoryPath resolves storage.db_path against rootDir.
func (c *Config) HistoryPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}
