package report

import (
	"encoding/json"
	"io"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// JSONWriter writes a single result as one object and several results as
// an array.
type JSONWriter struct{}

// Write implements Writer.
func (JSONWriter) Write(w io.Writer, results []*concepts.ScanResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if len(results) == 1 {
		return encoder.Encode(results[0])
	}
	if results == nil {
		results = []*concepts.ScanResult{}
	}
	return encoder.Encode(results)
}
