package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chrissicool/lbc/internal/driver"
	"github.com/chrissicool/lbc/internal/llm"
	"github.com/chrissicool/lbc/internal/reporter"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.c ...>",
	Short: "Analyze C source files for unbalanced lock paths",
	Example: `  lbc check kern_sig.i
  lbc check --preprocess --cc-flag -I/usr/src/sys kern/*.c
  lbc check --locks mtx --format json --output findings.json uipc_socket.i
  lbc check --config locks.toml drivers/*.i`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().IntVar(&flagJobs, "jobs", 0, "Max files analyzed concurrently (0 = number of CPUs)")
	checkCmd.Flags().BoolVar(&flagPreprocess, "preprocess", false, "Run files through `$CC -E` before parsing")
	checkCmd.Flags().StringArrayVar(&flagCCFlags, "cc-flag", nil, "Extra flag for the preprocessor (repeatable)")
	checkCmd.Flags().BoolVar(&flagNoProgress, "no-progress", false, "Disable the progress line on stderr")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cat, err := catalogFromFlags()
	if err != nil {
		return err
	}

	result, err := driver.Run(args, driver.Options{
		Catalog:    cat,
		Jobs:       flagJobs,
		Preprocess: flagPreprocess,
		CCFlags:    flagCCFlags,
		Progress:   !flagNoProgress,
	})
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	explanation := ""
	if !flagNoLLM {
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey != "" && len(result.Diagnostics) > 0 {
			exp, err := llm.Explain(result.Diagnostics, apiKey)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warn: LLM explanation failed: %v\n", err)
			} else {
				explanation = exp
			}
		}
	}

	out, cleanup, err := outputWriter()
	if err != nil {
		return err
	}
	defer cleanup()

	switch {
	case len(result.Diagnostics) > 0:
		exitCode = 2
	case result.Failed():
		exitCode = 1
	}

	switch flagFormat {
	case "json":
		return reporter.WriteJSON(out, result, explanation)
	default:
		reporter.WriteTerminal(out, result, explanation)
		return nil
	}
}

// outputWriter returns a writer for the output destination (file or stdout).
func outputWriter() (io.Writer, func(), error) {
	if flagOutput == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(flagOutput)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
