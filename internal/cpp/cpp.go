// Package cpp shells out to the system C preprocessor so raw kernel
// sources can be fed to the analyzer without a separate build step.
package cpp

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Result holds the output of one preprocessor run.
type Result struct {
	// Path is the temporary file holding the preprocessed output. The
	// caller owns it and should remove it when done.
	Path   string
	Stderr string
}

// Preprocess runs `$CC -E <extraFlags...> path` and writes the output to a
// temporary file. CC defaults to "cc". Warnings on stderr are returned,
// not treated as failure; a non-zero exit is.
func Preprocess(path string, extraFlags []string) (*Result, error) {
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}

	out, err := tempOutFile()
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	args := []string{"-E", "-o", out}
	args = append(args, extraFlags...)
	args = append(args, path)

	cmd := exec.Command(cc, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(out)
		if _, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("%s -E %s failed:\n%s", cc, path, strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run %s: %w", cc, err)
	}

	return &Result{Path: out, Stderr: stderr.String()}, nil
}

func tempOutFile() (string, error) {
	f, err := os.CreateTemp(os.TempDir(), "lbc-*.i")
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return filepath.Clean(name), nil
}
