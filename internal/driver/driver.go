// Package driver analyzes many files concurrently. Each file's analysis
// owns its own parse tree, state, and diagnostic slice; results are merged
// only after a file completes, so diagnostic records never interleave.
package driver

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chrissicool/lbc/internal/checker"
	"github.com/chrissicool/lbc/internal/cparse"
	"github.com/chrissicool/lbc/internal/cpp"
	"github.com/chrissicool/lbc/internal/locks"
)

// Options controls a driver run.
type Options struct {
	Catalog    *locks.Catalog
	Jobs       int      // max concurrent files; <= 0 means NumCPU
	Preprocess bool     // run files through `cc -E` first
	CCFlags    []string // extra flags for the preprocessor
	Progress   bool     // per-file progress line on stderr
}

// FileResult is the outcome for one input file.
type FileResult struct {
	File  string
	Diags []checker.Diagnostic
	Err   error // operational failure (read, preprocess); not a finding
}

// Result aggregates a whole run.
type Result struct {
	Files       []FileResult
	Diagnostics []checker.Diagnostic
}

// Failed reports whether any file failed operationally.
func (r *Result) Failed() bool {
	for _, f := range r.Files {
		if f.Err != nil {
			return true
		}
	}
	return false
}

// Run analyzes the given files with up to opts.Jobs workers. The returned
// error covers only setup problems; per-file failures land in the result.
func Run(files []string, opts Options) (*Result, error) {
	if opts.Catalog == nil {
		opts.Catalog = locks.DefaultCatalog()
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	prog := newProgress(opts.Progress, len(files))
	results := make([]FileResult, len(files))

	var g errgroup.Group
	g.SetLimit(jobs)
	var mu sync.Mutex
	done := 0

	for i, file := range files {
		g.Go(func() error {
			results[i] = analyzeOne(file, opts)
			mu.Lock()
			done++
			prog.update(done, file)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	prog.finish()

	res := &Result{Files: results}
	for _, fr := range results {
		res.Diagnostics = append(res.Diagnostics, fr.Diags...)
	}
	sortDiags(res.Diagnostics)
	return res, nil
}

func analyzeOne(file string, opts Options) FileResult {
	path := file
	if opts.Preprocess {
		pre, err := cpp.Preprocess(file, opts.CCFlags)
		if err != nil {
			return FileResult{File: file, Err: err}
		}
		defer os.Remove(pre.Path)
		if pre.Stderr != "" {
			fmt.Fprintf(os.Stderr, "warn: %s: %s\n", file, pre.Stderr)
		}
		path = pre.Path
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return FileResult{File: file, Err: fmt.Errorf("read: %w", err)}
	}

	tree, err := cparse.ParseFile(file, src)
	if err != nil {
		return FileResult{File: file, Err: fmt.Errorf("parse: %w", err)}
	}

	return FileResult{File: file, Diags: checker.CheckFile(tree, opts.Catalog)}
}

// sortDiags orders diagnostics by file, line, then function for stable
// output across runs and worker schedules.
func sortDiags(diags []checker.Diagnostic) {
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i], diags[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Function < b.Function
	})
}
