package cmd

import (
	"github.com/spf13/cobra"
)

var (
	flagFormat     string
	flagOutput     string
	flagConfig     string
	flagLocks      []string
	flagJobs       int
	flagNoLLM      bool
	flagPreprocess bool
	flagCCFlags    []string
	flagNoProgress bool
)

var rootCmd = &cobra.Command{
	Use:   "lbc",
	Short: "Check lock acquire/release balance in C source files",
	Long: `lbc walks every execution path of every function in preprocessed C
source and verifies that each configured lock family is released exactly as
often as it is acquired before the function can exit:
  - unbalanced returns and fall-throughs
  - lock operations inside loop or switch headers
  - forward gotos that skip a release

Run 'lbc check <file.c ...>' to get started.`,
}

// Execute runs the root command and reports whether any findings were
// emitted, so main can choose the exit code.
func Execute() (int, error) {
	if err := rootCmd.Execute(); err != nil {
		return 1, err
	}
	return exitCode, nil
}

// exitCode is set by subcommands: 2 when findings were emitted, 1 on
// per-file operational failures, 0 otherwise.
var exitCode int

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "terminal", "Output format: terminal or json")
	rootCmd.PersistentFlags().StringVar(&flagOutput, "output", "", "Write output to file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "TOML file defining the lock family catalog")
	rootCmd.PersistentFlags().StringSliceVar(&flagLocks, "locks", nil, "Restrict checking to these lock families (e.g. spl,mtx)")
	rootCmd.PersistentFlags().BoolVar(&flagNoLLM, "no-llm", false, "Skip LLM explanation (faster, works without API key)")
}
