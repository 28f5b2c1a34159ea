package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/exp/maps"

	"github.com/chrissicool/lbc/internal/checker"
	"github.com/chrissicool/lbc/internal/driver"
)

var (
	bold      = color.New(color.Bold)
	red       = color.New(color.FgRed, color.Bold)
	yellow    = color.New(color.FgYellow, color.Bold)
	cyan      = color.New(color.FgCyan)
	green     = color.New(color.FgGreen)
	dim       = color.New(color.Faint)
	separator = strings.Repeat("━", 40)
)

var kindLabels = map[checker.Kind]string{
	checker.KindEndOfFunction: "END OF FUNCTION",
	checker.KindReturn:        "RETURN",
	checker.KindBreak:         "BREAK",
	checker.KindContinue:      "CONTINUE",
	checker.KindForbidden:     "FORBIDDEN POSITION",
	checker.KindInternal:      "INTERNAL",
}

// WriteTerminal writes a human-readable colored report to w.
func WriteTerminal(w io.Writer, result *driver.Result, explanation string) {
	counts := countKinds(result.Diagnostics)

	bold.Fprintln(w, "\nLock Balance Check")
	fmt.Fprintln(w, separator)
	fmt.Fprintln(w)

	// Summary: one line per kind that occurred, in stable order.
	kinds := maps.Keys(counts)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	for _, k := range kinds {
		c := red
		if k == checker.KindInternal {
			c = yellow
		}
		c.Fprintf(w, "  %s\n", pluralize(counts[k], strings.ReplaceAll(string(k), "_", " ")+" finding"))
	}

	if len(result.Diagnostics) == 0 {
		green.Fprintln(w, "  All checked functions are balanced.")
	}

	for _, d := range result.Diagnostics {
		fmt.Fprintln(w)
		printDiagnostic(w, d)
	}

	for _, fr := range result.Files {
		if fr.Err != nil {
			fmt.Fprintln(w)
			yellow.Fprintf(w, "● FILE SKIPPED")
			fmt.Fprintf(w, "  %s: %v\n", fr.File, fr.Err)
		}
	}

	if explanation != "" {
		fmt.Fprintln(w)
		bold.Fprintln(w, "  Claude's Analysis")
		fmt.Fprintln(w)
		for _, line := range strings.Split(strings.TrimSpace(explanation), "\n") {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, separator)
	dim.Fprintf(w, "  Checked %d file(s) · %d finding(s)\n", len(result.Files), len(result.Diagnostics))
	fmt.Fprintln(w)
}

func printDiagnostic(w io.Writer, d checker.Diagnostic) {
	c := red
	if d.Kind == checker.KindInternal {
		c = yellow
	}
	c.Fprintf(w, "● %s", kindLabels[d.Kind])
	dim.Fprintf(w, "  %s\n", d.Location())

	fmt.Fprintf(w, "  Function: ")
	cyan.Fprintf(w, "%s\n", d.Function)

	if d.Reason != "" {
		fmt.Fprintf(w, "  Reason: ")
		cyan.Fprintf(w, "%s\n", d.Reason)
	}

	fmt.Fprintf(w, "  Lock state: ")
	cyan.Fprintf(w, "%s\n", d.State)
}

func countKinds(diags []checker.Diagnostic) map[checker.Kind]int {
	counts := make(map[checker.Kind]int)
	for _, d := range diags {
		counts[d.Kind]++
	}
	return counts
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
