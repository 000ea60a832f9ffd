package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/report"
)

var (
	rulesTiersFlag  string
	rulesFormatFlag string
	rulesCallsFlag  bool
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the concept rules",
	Long: `List every concept rule with its id, tier, category and label.

With --calls, list the qualified call patterns instead, including those
added through rules.extra_calls.`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().StringVarP(&rulesTiersFlag, "tiers", "t", "", "Comma separated tiers to list (default: all)")
	rulesCmd.Flags().StringVarP(&rulesFormatFlag, "format", "f", "text", "Output format: text or json")
	rulesCmd.Flags().BoolVar(&rulesCallsFlag, "calls", false, "List call patterns instead of rules")
}

func runRules(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	registry, err := concepts.NewRegistryWithCalls(p.cfg.CallPatterns())
	if err != nil {
		return err
	}

	tiers, err := concepts.ParseTiers(rulesTiersFlag)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(rulesFormatFlag)
	if err != nil {
		return err
	}
	if format == report.FormatSARIF {
		return fmt.Errorf("%w: rules supports text or json", report.ErrInvalidFormat)
	}

	out := cmd.OutOrStdout()
	if rulesCallsFlag {
		return writeCallPatterns(out, registry.CallTable().Patterns(), format)
	}
	return writeRules(out, registry.ForTiers(tiers), format)
}

func writeRules(w io.Writer, rules []concepts.ConceptRule, format report.Format) error {
	if format == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rules)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIER\tCATEGORY\tLABEL")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.ID, r.Tier, r.Category, r.Label)
	}
	return tw.Flush()
}

func writeCallPatterns(w io.Writer, patterns []concepts.CallPattern, format report.Format) error {
	if format == report.FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCALL")
	for _, p := range patterns {
		fmt.Fprintf(tw, "%s\t%s\n", p.Category, p.Suffix)
	}
	return tw.Flush()
}
