package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CONCEPTLENS_*)
// 2. Config file (.conceptlens/config.yml or .conceptlens/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(l.rootDir, DirName))

	v.SetEnvPrefix("CONCEPTLENS")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., CONCEPTLENS_SCAN_FORMAT)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"scan.tiers",
		"scan.format",
		"scan.workers",
		"paths.include",
		"paths.ignore",
		"storage.enabled",
		"storage.db_path",
		"watch.debounce_ms",
		"cache.capacity",
		"log.level",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("scan.tiers", defaults.Scan.Tiers)
	v.SetDefault("scan.format", defaults.Scan.Format)
	v.SetDefault("scan.workers", defaults.Scan.Workers)

	v.SetDefault("paths.include", defaults.Paths.Include)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("rules.extra_calls", defaults.Rules.ExtraCalls)

	v.SetDefault("storage.enabled", defaults.Storage.Enabled)
	v.SetDefault("storage.db_path", defaults.Storage.DBPath)

	v.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMS)
	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("log.level", defaults.Log.Level)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
