package checker

import (
	"github.com/chrissicool/lbc/internal/cast"
	"github.com/chrissicool/lbc/internal/locks"
)

// condMemo remembers which side of each if/ternary condition an exploration
// took, keyed by the condition's canonical rendering. When a loop body
// re-visits the same condition, the memo forces the same branch instead of
// splitting again, which keeps cyclic control flow finite.
type condMemo map[string]bool

func (m condMemo) clone() condMemo {
	c := make(condMemo, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// pathCtx is the mutable context of one in-flight exploration.
type pathCtx struct {
	state *locks.State

	// forbidden is true while visiting positions where a lock operation is
	// illegal: loop headers, switch selectors, and if/ternary conditions.
	forbidden bool

	// ignoreUntil, when non-empty, is the label a forward goto jumped to;
	// regular processing is suspended until the label is reached.
	ignoreUntil string

	memo condMemo

	// root is the enclosing function body, for backward-goto detection.
	root *cast.Compound
}

func newPathCtx(cat *locks.Catalog, root *cast.Compound) *pathCtx {
	return &pathCtx{
		state: locks.NewState(cat),
		memo:  make(condMemo),
		root:  root,
	}
}

// clone duplicates the context by value so sibling explorations cannot
// interfere after a split.
func (c *pathCtx) clone() *pathCtx {
	return &pathCtx{
		state:       c.state.Clone(),
		forbidden:   c.forbidden,
		ignoreUntil: c.ignoreUntil,
		memo:        c.memo.clone(),
		root:        c.root,
	}
}

func (c *pathCtx) ignoring() bool { return c.ignoreUntil != "" }
