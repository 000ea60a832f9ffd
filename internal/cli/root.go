package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/concept-lens/internal/config"
)

var (
	verbose  bool
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "conceptlens",
	Short: "conceptlens - find DevOps and security concepts in Python code",
	Long: `conceptlens scans Python source and reports where it touches DevOps and
security relevant concepts: hardcoded secrets, environment access, HTTP and
cloud clients, subprocesses, file and data-format handling, error handling
and more.

Concepts are grouped in two tiers:
  1  foundational / security relevant
  2  structural / style relevant`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

// project is the loaded configuration of the directory conceptlens runs in.
type project struct {
	root string
	cfg  *config.Config
}

// loadProject loads .conceptlens/config.yml from the working directory and
// initializes logging from it.
func loadProject() (*project, error) {
	rootDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	if verbose {
		level = "debug"
	}
	InitLogger(os.Stderr, level)

	return &project{root: rootDir, cfg: cfg}, nil
}
