package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mvp-joe/concept-lens/internal/concepts"
)

// TextWriter prints one line per occurrence followed by a summary block.
type TextWriter struct {
	Quiet bool
}

// Write implements Writer.
func (t *TextWriter) Write(w io.Writer, results []*concepts.ScanResult) error {
	for i, r := range results {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := t.writeOne(w, r); err != nil {
			return err
		}
	}
	return nil
}

func (t *TextWriter) writeOne(w io.Writer, r *concepts.ScanResult) error {
	path := r.Path
	if path == "" {
		path = "<stdin>"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !t.Quiet {
		for _, o := range r.Occurrences {
			fmt.Fprintf(tw, "%s:%d\tT%d\t%s\t%s\t%s\n", path, o.Line, o.Tier, o.Category, o.Label, o.Identifier)
		}
		for _, m := range r.Malformed {
			fmt.Fprintf(tw, "%s:%d\t--\tMalformed\t%s\t\n", path, m.Line, m.Snippet)
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d occurrences", path, len(r.Occurrences))
	for _, tier := range []concepts.Tier{concepts.Tier1, concepts.Tier2} {
		if n, ok := r.Summary.ByTier[tier]; ok {
			fmt.Fprintf(&b, ", tier %d: %d", tier, n)
		}
	}
	if len(r.Malformed) > 0 {
		fmt.Fprintf(&b, ", %d malformed", len(r.Malformed))
	}
	b.WriteString("\n")

	for _, c := range r.Summary.SortedCategories() {
		if n := r.Summary.ByCategory[c]; n > 0 {
			fmt.Fprintf(&b, "  %-16s %d\n", c, n)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
