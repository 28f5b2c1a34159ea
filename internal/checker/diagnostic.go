// Package checker implements the path-sensitive lock-balance analysis: a
// branch-cloning interpreter over cast function bodies that tracks one
// counter per configured lock family and reports every way a function can
// exit unbalanced.
package checker

import (
	"fmt"

	"github.com/chrissicool/lbc/internal/locks"
)

// Kind categorizes a diagnostic.
type Kind string

const (
	// KindEndOfFunction is an implicit fall-through with unbalanced state.
	KindEndOfFunction Kind = "end_of_function"
	// KindReturn is a return statement with unbalanced state.
	KindReturn Kind = "return"
	// KindBreak and KindContinue are part of the outcome taxonomy; a break
	// or continue that escapes to the function root is malformed input and
	// is reported as KindInternal instead.
	KindBreak    Kind = "break"
	KindContinue Kind = "continue"
	// KindForbidden is a lock operation in a forbidden position: a loop
	// header, a switch selector, or an if/ternary condition.
	KindForbidden Kind = "forbidden"
	// KindInternal covers malformed input and checker invariant failures.
	KindInternal Kind = "internal"
)

// Diagnostic is one finding for one function.
type Diagnostic struct {
	File     string
	Function string
	Line     int
	Kind     Kind
	Reason   string
	State    locks.Snapshot
}

// Location returns "file:line" for display.
func (d Diagnostic) Location() string {
	return fmt.Sprintf("%s:%d", d.File, d.Line)
}

// key is the identity used to union diagnostics across sibling paths.
func (d Diagnostic) key() string {
	return fmt.Sprintf("%s|%s|%d|%s|%s|%s", d.File, d.Function, d.Line, d.Kind, d.Reason, d.State)
}
