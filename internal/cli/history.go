package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/report"
	"github.com/mvp-joe/concept-lens/internal/storage"
)

var (
	historyPathFlag   string
	historyLimitFlag  int
	historyFormatFlag string
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scans",
	Long: `List scans recorded with "scan --save" or storage.enabled, newest first.

Examples:
  conceptlens history --path deploy --limit 5
  conceptlens history show <scan-id> --format json
  conceptlens history delete <scan-id>`,
	RunE: runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Print the report of a recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete a recorded scan",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd, historyDeleteCmd)

	historyCmd.Flags().StringVarP(&historyPathFlag, "path", "p", "", "Only scans whose path contains this text")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Maximum number of scans to list (0 = all)")
	historyShowCmd.Flags().StringVarP(&historyFormatFlag, "format", "f", "text", "Output format: text, json or sarif")
}

func openHistory() (*storage.Store, error) {
	p, err := loadProject()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(p.cfg.HistoryPath(p.root))
	if err != nil {
		return nil, fmt.Errorf("failed to open scan history: %w", err)
	}
	return store, nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListScans(historyPathFlag, historyLimitFlag)
	if err != nil {
		return err
	}
	return writeHistory(cmd.OutOrStdout(), records)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(historyFormatFlag)
	if err != nil {
		return err
	}

	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	scan, err := store.LoadScan(args[0])
	if err != nil {
		return err
	}

	writer, err := report.New(report.Config{
		Format:  format,
		Rules:   concepts.NewDefaultRegistry().Rules(),
		Version: Version,
	})
	if err != nil {
		return err
	}
	return writer.Write(cmd.OutOrStdout(), []*concepts.ScanResult{scan.Result})
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteScan(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted scan %s\n", args[0])
	return nil
}

func writeHistory(w io.Writer, records []storage.ScanRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No recorded scans")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCANNED\tTIERS\tTOTAL\tMALFORMED\tPATH")
	for _, r := range records {
		path := r.Path
		if path == "" {
			path = "<stdin>"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.CreatedAt.Local().Format(time.DateTime), r.Tiers, r.Total, r.Malformed, path)
	}
	return tw.Flush()
}
