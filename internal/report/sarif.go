package report

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

const (
	sarifVersion = "2.1.0"
	sarifSchema  = "https://docs.oasis-open.org/sarif/sarif/v2.1.0/errata01/os/schemas/sarif-schema-2.1.0.json"
)

type sarifDocument struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	InformationURI string      `json:"informationUri"`
	Version        string      `json:"version"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ShortDescription sarifMessage   `json:"shortDescription"`
	Properties       map[string]any `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	Level               string            `json:"level"`
	Message             sarifMessage      `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
	Region           sarifRegion   `json:"region"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifRegion struct {
	StartLine   int           `json:"startLine"`
	StartColumn int           `json:"startColumn,omitempty"`
	Snippet     *sarifMessage `json:"snippet,omitempty"`
}

// SARIFWriter writes all results as a single SARIF 2.1.0 run. Tier 1
// occurrences are reported as warnings, tier 2 as notes.
type SARIFWriter struct {
	Rules   []concepts.ConceptRule
	Version string
}

// Write implements Writer.
func (s *SARIFWriter) Write(w io.Writer, results []*concepts.ScanResult) error {
	version := s.Version
	if version == "" {
		version = "dev"
	}

	run := sarifRun{
		Tool: sarifTool{Driver: sarifDriver{
			Name:           "conceptlens",
			InformationURI: "https://github.com/mvp-joe/concept-lens",
			Version:        version,
			Rules:          s.rules(),
		}},
		Results: []sarifResult{},
	}

	for _, r := range results {
		uri := filepath.ToSlash(r.Path)
		for _, o := range r.Occurrences {
			run.Results = append(run.Results, sarifResult{
				RuleID:  o.RuleID,
				Level:   level(o.Tier),
				Message: sarifMessage{Text: message(o)},
				Locations: []sarifLocation{{
					PhysicalLocation: sarifPhysicalLocation{
						ArtifactLocation: sarifArtifact{URI: uri},
						Region: sarifRegion{
							StartLine:   o.Line,
							StartColumn: o.Column + 1,
							Snippet:     &sarifMessage{Text: o.Snippet},
						},
					},
				}},
				PartialFingerprints: fingerprint(uri, o),
			})
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sarifDocument{
		Version: sarifVersion,
		Schema:  sarifSchema,
		Runs:    []sarifRun{run},
	})
}

func (s *SARIFWriter) rules() []sarifRule {
	out := make([]sarifRule, 0, len(s.Rules))
	for _, r := range s.Rules {
		out = append(out, sarifRule{
			ID:               r.ID,
			Name:             string(r.Category),
			ShortDescription: sarifMessage{Text: r.Label},
			Properties:       map[string]any{"tier": int(r.Tier)},
		})
	}
	return out
}

func level(t concepts.Tier) string {
	if t == concepts.Tier1 {
		return "warning"
	}
	return "note"
}

func message(o concepts.Occurrence) string {
	if o.Identifier == "" {
		return o.Label
	}
	return fmt.Sprintf("%s: %s", o.Label, o.Identifier)
}

func fingerprint(uri string, o concepts.Occurrence) map[string]string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%s:%s", uri, o.Line, o.RuleID, o.Identifier)))
	return map[string]string{"primaryLocationLineHash": fmt.Sprintf("%x", sum[:16])}
}
