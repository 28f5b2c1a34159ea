package checker

import (
	"github.com/chrissicool/lbc/internal/cast"
	"github.com/chrissicool/lbc/internal/locks"
)

// The branch explorer. The original design forked the analysis process at
// every control-flow split; here a split is a context clone, and the
// "process tree" is the path slice each visit returns. Every visit yields
// one path per exploration that passed through the node: live paths carry a
// context and keep walking, finished paths carry a terminal outcome.

type outcomeKind int

const (
	outNoError outcomeKind = iota
	outReturn
	outBreak
	outContinue
	outForbidden
	outInternal
)

// outcome is the non-local result that ended a path.
type outcome struct {
	kind   outcomeKind
	reason string
	pos    cast.Pos
	state  locks.Snapshot
}

// path is one exploration: its context, and how it ended (out nil = still
// live, continuing past the node that returned it).
type path struct {
	ctx *pathCtx
	out *outcome
}

func live(ctx *pathCtx) []*path            { return []*path{{ctx: ctx}} }
func finished(ctx *pathCtx, o outcome) []*path {
	return []*path{{ctx: ctx, out: &o}}
}

// maxPaths bounds the number of splits per function. Pathological inputs
// (hundreds of independent branches around lock calls) would otherwise
// explode; hitting the bound surfaces as an internal diagnostic rather
// than an endless run.
const maxPaths = 1 << 13

// seq drives ctx and every context split off from it through nodes in
// order. Paths that finish with a terminal outcome stop at that node; the
// rest continue into the next one. This is the serial realization of the
// explorer contract: siblings share state as of the split and evolve
// independently, and the caller sees the union of all their paths.
func (in *interp) seq(nodes []cast.Node, ctx *pathCtx) []*path {
	ctxs := []*pathCtx{ctx}
	var done []*path
	for _, n := range nodes {
		if n == nil {
			continue
		}
		var next []*pathCtx
		for _, c := range ctxs {
			for _, p := range in.visit(n, c) {
				if p.out != nil {
					done = append(done, p)
				} else {
					next = append(next, p.ctx)
				}
			}
		}
		ctxs = next
		if len(ctxs) == 0 {
			break
		}
	}
	for _, c := range ctxs {
		done = append(done, &path{ctx: c})
	}
	return done
}

// seqStmts is seq over a statement list.
func (in *interp) seqStmts(stmts []cast.Stmt, ctx *pathCtx) []*path {
	nodes := make([]cast.Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return in.seq(nodes, ctx)
}

// split registers one more sibling exploration and reports whether the
// budget still allows it.
func (in *interp) split() bool {
	in.pathCount++
	return in.pathCount <= maxPaths
}

// splitExhausted is the terminal outcome for a blown path budget.
func (in *interp) splitExhausted(ctx *pathCtx, pos cast.Pos) []*path {
	return finished(ctx, outcome{
		kind:   outInternal,
		reason: "path budget exhausted",
		pos:    pos,
		state:  ctx.state.Snapshot(),
	})
}

// partition separates live continuations from finished paths.
func partition(paths []*path) (ctxs []*pathCtx, done []*path) {
	for _, p := range paths {
		if p.out != nil {
			done = append(done, p)
		} else {
			ctxs = append(ctxs, p.ctx)
		}
	}
	return ctxs, done
}
