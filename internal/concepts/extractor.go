package concepts

import (
	"fmt"
	"os"

	"github.com/mvp-joe/concept-lens/internal/scanner"
)

// Options controls a single scan.
type Options struct {
	// Tiers selects the rule tiers to evaluate. Zero selects both.
	Tiers TierSet
	// Path is copied into the result for reporting.
	Path string
}

// Extractor runs the scanner and the rule matcher over source text.
// It is safe for concurrent use.
type Extractor struct {
	registry *Registry
	scanner  *scanner.Scanner
}

// New creates an extractor over registry. A nil registry uses the built-in
// rules.
func New(registry *Registry) *Extractor {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Extractor{
		registry: registry,
		scanner:  scanner.NewPythonScanner(),
	}
}

// Registry returns the rules the extractor evaluates.
func (e *Extractor) Registry() *Registry {
	return e.registry
}

// Scan extracts concept occurrences from source. It never fails: unparseable
// constructs are reported in ScanResult.Malformed and unrecognized ones are
// skipped.
func (e *Extractor) Scan(source []byte, opts Options) *ScanResult {
	tiers := opts.Tiers
	if tiers == 0 {
		tiers = AllTiers
	}
	rules := e.registry.ForTiers(tiers)

	var (
		occurrences []Occurrence
		malformed   []MalformedConstruct
	)
	for _, ev := range e.scanner.Scan(source) {
		if ev.Kind == scanner.EventMalformed {
			malformed = append(malformed, MalformedConstruct{Line: ev.Line, Snippet: ev.Text})
			continue
		}
		for _, rule := range rules {
			hit, ok := rule.Matcher.Match(ev)
			if !ok {
				continue
			}
			occurrences = append(occurrences, Occurrence{
				RuleID:     rule.ID,
				Line:       ev.Line,
				Column:     ev.Column,
				Tier:       rule.Tier,
				Category:   rule.Category,
				Label:      rule.Label,
				Snippet:    ev.Text,
				Identifier: hit.Identifier,
				Names:      hit.Names,
			})
		}
	}

	if occurrences == nil {
		occurrences = []Occurrence{}
	}
	return BuildResult(opts.Path, occurrences, malformed, e.registry.Categories(tiers), tiers)
}

// ScanFile reads path and scans it. The only error it returns wraps
// ErrInputUnreadable.
func (e *Extractor) ScanFile(path string, opts Options) (*ScanResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInputUnreadable, path, err)
	}
	if opts.Path == "" {
		opts.Path = path
	}
	return e.Scan(source, opts), nil
}
