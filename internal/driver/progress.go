package driver

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// progress prints a single overwriting status line on stderr while a run is
// active. It stays silent when disabled or when stderr is not a terminal.
type progress struct {
	enabled bool
	total   int
	width   int
}

func newProgress(enabled bool, total int) *progress {
	fd := int(os.Stderr.Fd())
	if !term.IsTerminal(fd) {
		enabled = false
	}
	width := 80
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}
	return &progress{enabled: enabled, total: total, width: width}
}

func (p *progress) update(done int, file string) {
	if !p.enabled {
		return
	}
	line := fmt.Sprintf("[%d/%d] %s", done, p.total, file)
	if len(line) >= p.width {
		line = "..." + line[len(line)-p.width+4:]
	}
	fmt.Fprintf(os.Stderr, "\r\033[K%s", line)
}

func (p *progress) finish() {
	if p.enabled {
		fmt.Fprint(os.Stderr, "\r\033[K")
	}
}
