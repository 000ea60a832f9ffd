package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/discovery"
	"github.com/mvp-joe/concept-lens/internal/report"
)

var (
	// ErrInvalidTier indicates a tier outside {1, 2}
	ErrInvalidTier = errors.New("invalid tier")

	// ErrInvalidFormat indicates an unsupported output format
	ErrInvalidFormat = errors.New("invalid output format")

	// ErrInvalidCallPattern indicates an unusable rules.extra_calls entry
	ErrInvalidCallPattern = errors.New("invalid call pattern")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidSetting indicates a negative or empty numeric/path setting
	ErrInvalidSetting = errors.New("invalid setting")
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if err := validateRules(&cfg.Rules); err != nil {
		errs = append(errs, err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: watch.debounce_ms cannot be negative, got %d", ErrInvalidSetting, cfg.Watch.DebounceMS))
	}
	if cfg.Cache.Capacity < 0 {
		errs = append(errs, fmt.Errorf("%w: cache.capacity cannot be negative, got %d", ErrInvalidSetting, cfg.Cache.Capacity))
	}
	if !logLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Errorf("%w: log.level must be debug, info, warn or error, got '%s'", ErrInvalidSetting, cfg.Log.Level))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if _, err := concepts.TiersFromInts(cfg.Tiers); err != nil {
		errs = append(errs, fmt.Errorf("%w: scan.tiers: %v", ErrInvalidTier, err))
	}
	if _, err := report.ParseFormat(cfg.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: scan.format: %v", ErrInvalidFormat, err))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: scan.workers cannot be negative, got %d", ErrInvalidSetting, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if err := discovery.ValidatePatterns(cfg.Include); err != nil {
		errs = append(errs, fmt.Errorf("%w: paths.include: %v", ErrInvalidPattern, err))
	}
	if err := discovery.ValidatePatterns(cfg.Ignore); err != nil {
		errs = append(errs, fmt.Errorf("%w: paths.ignore: %v", ErrInvalidPattern, err))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateRules(cfg *RulesConfig) error {
	var errs []error

	table := concepts.NewCallTable()
	for i, p := range cfg.ExtraCalls {
		category, ok := concepts.ParseCategory(p.Category)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: rules.extra_calls[%d]: unknown category '%s'", ErrInvalidCallPattern, i, p.Category))
			continue
		}
		if err := table.Add(p.Suffix, category); err != nil {
			errs = append(errs, fmt.Errorf("%w: rules.extra_calls[%d]: %v", ErrInvalidCallPattern, i, err))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

func validateStorage(cfg *StorageConfig) error {
	if cfg.Enabled && strings.TrimSpace(cfg.DBPath) == "" {
		return fmt.Errorf("%w: storage.db_path is required when storage is enabled", ErrInvalidSetting)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
// The result still matches every joined sentinel with errors.Is.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	return &validationError{errs: errs}
}

type validationError struct {
	errs []error
}

func (e *validationError) Error() string {
	msgs := make([]string, 0, len(e.errs))
	for _, err := range e.errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (e *validationError) Unwrap() []error {
	return e.errs
}
