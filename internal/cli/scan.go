package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/concept-lens/internal/concepts"
	"github.com/mvp-joe/concept-lens/internal/report"
	"github.com/mvp-joe/concept-lens/internal/storage"
)

var (
	scanTiersFlag   string
	scanFormatFlag  string
	scanWorkersFlag int
	saveFlag        bool
	watchFlag       bool
	quietFlag       bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [file|dir|-]...",
	Short: "Scan Python files for DevOps and security concepts",
	Long: `Scan reports every concept occurrence in the given Python files.
Directories are walked using paths.include / paths.ignore from
.conceptlens/config.yml; "-" reads source from standard input.

Exit status is 0 whenever the scan completes, also with zero occurrences,
and non-zero on unreadable input or invalid flags.

Examples:
  # Scan the current directory
  conceptlens scan

  # Only foundational / security concepts, as JSON
  conceptlens scan deploy.py --tiers 1 --format json

  # SARIF for code scanning upload, recorded in scan history
  conceptlens scan src --format sarif --save > concepts.sarif

  # Re-scan files as they change
  conceptlens scan src --watch
`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanTiersFlag, "tiers", "t", "", "Comma separated tiers to report, e.g. 1 or 1,2 (overrides scan.tiers)")
	scanCmd.Flags().StringVarP(&scanFormatFlag, "format", "f", "", "Output format: text, json or sarif (overrides scan.format)")
	scanCmd.Flags().IntVar(&scanWorkersFlag, "workers", 0, "Files scanned in parallel (overrides scan.workers, 0 = one per CPU)")
	scanCmd.Flags().BoolVarP(&saveFlag, "save", "s", false, "Record results in scan history")
	scanCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and re-scan them")
	scanCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and per-occurrence text output")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := loadProject()
	if err != nil {
		return err
	}
	cfg := p.cfg

	tiers, err := cfg.TierSet()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("tiers") {
		if tiers, err = concepts.ParseTiers(scanTiersFlag); err != nil {
			return err
		}
	}

	formatName := cfg.Scan.Format
	if cmd.Flags().Changed("format") {
		formatName = scanFormatFlag
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return err
	}

	workers := cfg.Scan.Workers
	if cmd.Flags().Changed("workers") {
		workers = scanWorkersFlag
	}

	scanner, release, err := newConceptScanner(cfg)
	if err != nil {
		return err
	}
	defer release()

	writer, err := report.New(report.Config{
		Format:  format,
		Rules:   scanner.Extractor().Registry().Rules(),
		Quiet:   quietFlag,
		Version: Version,
	})
	if err != nil {
		return err
	}

	runner := &scanRunner{
		scanner: scanner,
		writer:  writer,
		opts: scanOptions{
			Tiers:   tiers,
			Workers: workers,
			Include: cfg.Paths.Include,
			Ignore:  cfg.Paths.Ignore,
		},
		progress: newScanProgress(cmd.ErrOrStderr(), quietFlag || watchFlag),
		stdin:    cmd.InOrStdin(),
	}

	if saveFlag || cfg.Storage.Enabled {
		store, err := storage.Open(cfg.HistoryPath(p.root))
		if err != nil {
			return fmt.Errorf("failed to open scan history: %w", err)
		}
		defer store.Close()
		runner.store = store
	}

	targets := args
	if len(targets) == 0 {
		targets = []string{"."}
	}
	out := cmd.OutOrStdout()

	if watchFlag {
		debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
		return runner.watchTargets(ctx, targets, debounce, out, func() error {
			return runner.Run(ctx, targets, out)
		})
	}

	return runner.Run(ctx, targets, out)
}
