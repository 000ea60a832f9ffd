// Package report renders scan results as text, JSON or SARIF.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// Format specifies the output format
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// Formats lists the supported formats.
var Formats = []Format{FormatText, FormatJSON, FormatSARIF}

// ErrInvalidFormat indicates an unsupported output format.
var ErrInvalidFormat = errors.New("invalid format")

// ParseFormat validates a format name. An empty name selects text.
func ParseFormat(name string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(name)))
	if f == "" {
		return FormatText, nil
	}
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected text, json or sarif)", ErrInvalidFormat, name)
}

// Writer renders one or more scan results.
type Writer interface {
	Write(w io.Writer, results []*concepts.ScanResult) error
}

// Config configures a writer.
type Config struct {
	Format Format
	// Rules is used by SARIF output to describe the rule set.
	Rules []concepts.ConceptRule
	// Quiet drops per-occurrence lines from text output.
	Quiet bool
	// Version is the tool version embedded in SARIF output.
	Version string
}

// New creates a writer for the configured format.
func New(cfg Config) (Writer, error) {
	switch cfg.Format {
	case FormatText, "":
		return &TextWriter{Quiet: cfg.Quiet}, nil
	case FormatJSON:
		return &JSONWriter{}, nil
	case FormatSARIF:
		return &SARIFWriter{Rules: cfg.Rules, Version: cfg.Version}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, cfg.Format)
	}
}
