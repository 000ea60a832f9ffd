package concepts

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed calltable.yaml
var defaultCallTableYAML []byte

// callTableFile is the on-disk layout of calltable.yaml.
type callTableFile struct {
	Entries []struct {
		Category string   `yaml:"category"`
		Calls    []string `yaml:"calls"`
	} `yaml:"entries"`
}

// CallPattern maps one qualified call chain to a category.
type CallPattern struct {
	Suffix   string   `yaml:"suffix" mapstructure:"suffix" json:"suffix"`
	Category Category `yaml:"category" mapstructure:"category" json:"category"`
}

// CallTable resolves qualified call chains to concept categories.
//
// A dotted pattern matches a chain equal to it or ending in "." followed by
// it, so `requests.get` also matches `vendor.requests.get`. A single-segment
// pattern such as `open` only matches the bare chain.
type CallTable struct {
	patterns map[string]Category
}

// NewCallTable creates an empty table.
func NewCallTable() *CallTable {
	return &CallTable{patterns: make(map[string]Category)}
}

// DefaultCallTable returns a fresh copy of the built-in table.
func DefaultCallTable() *CallTable {
	t, err := ParseCallTable(defaultCallTableYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in call table is invalid: %v", err))
	}
	return t
}

// ParseCallTable reads a table in the calltable.yaml layout.
func ParseCallTable(data []byte) (*CallTable, error) {
	var file callTableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse call table: %w", err)
	}

	t := NewCallTable()
	for _, entry := range file.Entries {
		category, ok := ParseCategory(entry.Category)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, entry.Category)
		}
		for _, call := range entry.Calls {
			if err := t.Add(call, category); err != nil {
				return nil, err
			}
		}
	}
	return t, nil
}

// Add registers a pattern. Re-adding a pattern replaces its category.
func (t *CallTable) Add(suffix string, category Category) error {
	suffix = strings.TrimSpace(suffix)
	if err := validatePattern(suffix); err != nil {
		return err
	}
	if _, ok := ParseCategory(string(category)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	t.patterns[suffix] = category
	return nil
}

// AddAll registers several patterns, stopping at the first invalid one.
func (t *CallTable) AddAll(patterns []CallPattern) error {
	for _, p := range patterns {
		if err := t.Add(p.Suffix, p.Category); err != nil {
			return err
		}
	}
	return nil
}

func validatePattern(suffix string) error {
	if suffix == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidCallPattern)
	}
	if strings.HasPrefix(suffix, ".") || strings.HasSuffix(suffix, ".") || strings.Contains(suffix, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidCallPattern, suffix)
	}
	if strings.ContainsAny(suffix, " \t\n(") && !strings.Contains(suffix, "()") {
		return fmt.Errorf("%w: %q", ErrInvalidCallPattern, suffix)
	}
	return nil
}

// Lookup returns the category for a resolved call chain.
func (t *CallTable) Lookup(chain string) (Category, bool) {
	if chain == "" {
		return "", false
	}
	if c, ok := t.patterns[chain]; ok {
		return c, true
	}

	// Only dotted suffixes can match dotted patterns.
	for i := 0; i < len(chain); i++ {
		if chain[i] != '.' {
			continue
		}
		rest := chain[i+1:]
		if !strings.Contains(rest, ".") {
			break
		}
		if c, ok := t.patterns[rest]; ok {
			return c, true
		}
	}
	return "", false
}

// Has reports whether chain resolves to category.
func (t *CallTable) Has(chain string, category Category) bool {
	c, ok := t.Lookup(chain)
	return ok && c == category
}

// Len returns the number of patterns.
func (t *CallTable) Len() int {
	return len(t.patterns)
}

// Patterns lists every pattern sorted by category order, then suffix.
func (t *CallTable) Patterns() []CallPattern {
	order := make(map[Category]int, len(Categories))
	for i, c := range Categories {
		order[c] = i
	}

	out := make([]CallPattern, 0, len(t.patterns))
	for suffix, category := range t.patterns {
		out = append(out, CallPattern{Suffix: suffix, Category: category})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return order[out[i].Category] < order[out[j].Category]
		}
		return out[i].Suffix < out[j].Suffix
	})
	return out
}
