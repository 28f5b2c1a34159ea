package checker

import (
	"fmt"

	"github.com/chrissicool/lbc/internal/cast"
	"github.com/chrissicool/lbc/internal/locks"
)

// interp walks one function body. All per-path state lives in pathCtx; the
// interp itself only carries immutable inputs and the split budget.
type interp struct {
	cat       *locks.Catalog
	root      *cast.Compound
	pathCount int
}

// visit dispatches on node kind and returns every path that passed through
// n: live ones continue after it, finished ones ended inside it.
func (in *interp) visit(n cast.Node, ctx *pathCtx) []*path {
	switch v := n.(type) {
	case *cast.Compound:
		return in.seqStmts(v.List, ctx)
	case *cast.ExprStmt:
		return in.seq([]cast.Node{v.X}, ctx)
	case *cast.Decl:
		return in.seq([]cast.Node{v.Init}, ctx)
	case *cast.Empty:
		return live(ctx)
	case *cast.FuncCall:
		return in.funcCall(v, ctx)
	case *cast.Return:
		return in.returnStmt(v, ctx)
	case *cast.If:
		return in.condBranch(v, v.Cond, v.Then, v.Else, ctx)
	case *cast.Ternary:
		return in.condBranch(v, v.Cond, v.Then, v.Else, ctx)
	case *cast.Switch:
		return in.switchStmt(v, ctx)
	case *cast.While:
		return in.whileStmt(v, ctx)
	case *cast.DoWhile:
		return in.doWhileStmt(v, ctx)
	case *cast.For:
		return in.forStmt(v, ctx)
	case *cast.Break:
		return finished(ctx, outcome{kind: outBreak, pos: v.P, state: ctx.state.Snapshot()})
	case *cast.Continue:
		return finished(ctx, outcome{kind: outContinue, pos: v.P, state: ctx.state.Snapshot()})
	case *cast.Label:
		if ctx.ignoreUntil == v.Name {
			ctx.ignoreUntil = ""
		}
		return in.seq([]cast.Node{v.Stmt}, ctx)
	case *cast.Goto:
		return in.gotoStmt(v, ctx)
	default:
		// Plain expressions: recurse into children for nested calls and
		// ternaries; no state effect of their own.
		return in.seq(cast.Children(n), ctx)
	}
}

// funcCall classifies one call site. Bare-identifier callees are matched
// against the catalog; anything else is opaque and only its subtrees are
// visited.
func (in *interp) funcCall(call *cast.FuncCall, ctx *pathCtx) []*path {
	if ctx.ignoring() {
		return live(ctx)
	}
	if id, ok := call.Fun.(*cast.Ident); ok {
		if id.Name == "panic" {
			// The process is presumed dying; no balance check applies.
			return finished(ctx, outcome{kind: outNoError, pos: call.P})
		}
		if op := ctx.state.Update(id.Name); op != locks.OpNone && ctx.forbidden {
			return finished(ctx, outcome{
				kind:   outForbidden,
				reason: fmt.Sprintf("%s() inside a loop header, switch selector or branch condition", id.Name),
				pos:    call.P,
				state:  ctx.state.Snapshot(),
			})
		}
		return in.seq(exprNodes(call.Args), ctx)
	}
	nodes := append([]cast.Node{call.Fun}, exprNodes(call.Args)...)
	return in.seq(nodes, ctx)
}

func (in *interp) returnStmt(r *cast.Return, ctx *pathCtx) []*path {
	if ctx.ignoring() {
		return live(ctx)
	}
	// Calls inside the return expression still count.
	ctxs, done := partition(in.seq([]cast.Node{r.X}, ctx))
	for _, c := range ctxs {
		if c.state.Balanced() {
			done = append(done, &path{ctx: c, out: &outcome{kind: outNoError, pos: r.P}})
		} else {
			done = append(done, &path{ctx: c, out: &outcome{
				kind:   outReturn,
				reason: "return with locks held",
				pos:    r.P,
				state:  c.state.Snapshot(),
			}})
		}
	}
	return done
}

// condBranch handles if statements and the ternary operator, which share
// their shape. On first encounter of a condition the exploration splits;
// re-encounters (loop bodies walked again) follow the memoized side.
func (in *interp) condBranch(node cast.Node, cond cast.Expr, then, els cast.Node, ctx *pathCtx) []*path {
	if !in.needsVisit(node, ctx) {
		return live(ctx)
	}
	ctxs, done := in.headerVisit(cond, ctx)

	key := cast.ExprString(cond)
	for _, c := range ctxs {
		if taken, ok := c.memo[key]; ok {
			branch := then
			if !taken {
				branch = els
			}
			if branch != nil {
				done = append(done, in.visit(branch, c)...)
			} else {
				done = append(done, &path{ctx: c})
			}
			continue
		}

		nvThen := then != nil && in.needsVisit(then, c)
		nvElse := els != nil && in.needsVisit(els, c)
		if !nvThen && !nvElse {
			// Neither side can matter; both siblings would be identical.
			done = append(done, &path{ctx: c})
			continue
		}
		if !in.split() {
			done = append(done, in.splitExhausted(c, node.Pos())...)
			continue
		}

		// False sibling first, from a clone of the state at the split.
		fc := c.clone()
		fc.memo[key] = false
		if nvElse {
			done = append(done, in.visit(els, fc)...)
		} else {
			done = append(done, &path{ctx: fc})
		}

		c.memo[key] = true
		if nvThen {
			done = append(done, in.visit(then, c)...)
		} else {
			done = append(done, &path{ctx: c})
		}
	}
	return done
}

func (in *interp) switchStmt(sw *cast.Switch, ctx *pathCtx) []*path {
	if !in.needsVisit(sw, ctx) {
		return live(ctx)
	}
	if ctx.ignoring() {
		// A forward goto whose target lives inside a switch case is
		// known-inconsistent input; surface it instead of mis-analyzing.
		if containsLabel(sw.Body, ctx.ignoreUntil) {
			return finished(ctx, outcome{
				kind:   outInternal,
				reason: "goto into a switch case",
				pos:    sw.P,
				state:  ctx.state.Snapshot(),
			})
		}
		// Label elsewhere: everything in here would be skipped anyway.
		return live(ctx)
	}

	ctxs, done := in.headerVisit(sw.Cond, ctx)
	cases := caseList(sw.Body)

	for _, c := range ctxs {
		if len(cases) == 0 {
			done = append(done, &path{ctx: c})
			continue
		}
		// One sibling per entry case, falling through the rest; the
		// original context survives as the skip-every-case path.
		for i := range cases {
			if !in.split() {
				done = append(done, in.splitExhausted(c, sw.P)...)
				break
			}
			entry := c.clone()
			done = append(done, in.caseSeq(cases[i:], entry)...)
		}
		done = append(done, &path{ctx: c})
	}
	return done
}

// caseSeq walks the statements of a case and everything it falls through
// into. A break terminates the fall-through and resumes after the switch.
func (in *interp) caseSeq(cases []*cast.Case, ctx *pathCtx) []*path {
	var stmts []cast.Stmt
	for _, cs := range cases {
		stmts = append(stmts, cs.Body...)
	}
	var out []*path
	for _, p := range in.seqStmts(stmts, ctx) {
		if p.out != nil && p.out.kind == outBreak {
			out = append(out, &path{ctx: p.ctx})
			continue
		}
		out = append(out, p)
	}
	return out
}

func (in *interp) whileStmt(w *cast.While, ctx *pathCtx) []*path {
	if !in.needsVisit(w, ctx) {
		return live(ctx)
	}
	endless := cast.IsEndlessCond(w.Cond)
	ctxs, done := in.headerVisit(w.Cond, ctx)

	for _, c := range ctxs {
		if endless {
			// The condition can never be false; there is no skip sibling.
			done = append(done, in.loopBody(w.Body, c, endless, w.P)...)
			continue
		}
		if !in.split() {
			done = append(done, in.splitExhausted(c, w.P)...)
			continue
		}
		skip := c.clone()
		done = append(done, &path{ctx: skip})
		done = append(done, in.loopBody(w.Body, c, endless, w.P)...)
	}
	return done
}

func (in *interp) doWhileStmt(d *cast.DoWhile, ctx *pathCtx) []*path {
	if !in.needsVisit(d, ctx) {
		return live(ctx)
	}
	endless := cast.IsEndlessCond(d.Cond)
	var done []*path
	for _, p := range in.visit(d.Body, ctx) {
		if p.out != nil {
			switch p.out.kind {
			case outBreak, outContinue:
				// Loop-exit: the path resumes after the loop.
				done = append(done, &path{ctx: p.ctx})
			default:
				done = append(done, p)
			}
			continue
		}
		// Body completed; the condition runs in a forbidden position.
		ctxs, hdrDone := in.headerVisit(d.Cond, p.ctx)
		done = append(done, hdrDone...)
		for _, c := range ctxs {
			if endless {
				done = append(done, &path{ctx: c, out: &outcome{kind: outNoError, pos: d.P}})
			} else {
				done = append(done, &path{ctx: c})
			}
		}
	}
	return done
}

func (in *interp) forStmt(f *cast.For, ctx *pathCtx) []*path {
	if !in.needsVisit(f, ctx) {
		return live(ctx)
	}
	endless := f.Init == nil && f.Cond == nil && f.Next == nil

	var header []cast.Node
	if f.Init != nil {
		header = append(header, f.Init)
	}
	if f.Cond != nil {
		header = append(header, f.Cond)
	}
	if f.Next != nil {
		header = append(header, f.Next)
	}
	ctxs, done := in.headerSeq(header, ctx)

	for _, c := range ctxs {
		if endless {
			done = append(done, in.loopBody(f.Body, c, endless, f.P)...)
			continue
		}
		if !in.split() {
			done = append(done, in.splitExhausted(c, f.P)...)
			continue
		}
		skip := c.clone()
		done = append(done, &path{ctx: skip})
		done = append(done, in.loopBody(f.Body, c, endless, f.P)...)
	}
	return done
}

// loopBody visits a loop body once and resolves loop-exit outcomes: break
// and continue resume after the loop, and completing the body of a
// syntactically endless loop ends the path as definitively correct.
func (in *interp) loopBody(body cast.Stmt, ctx *pathCtx, endless bool, pos cast.Pos) []*path {
	var out []*path
	if body == nil {
		body = &cast.Empty{P: pos}
	}
	for _, p := range in.visit(body, ctx) {
		if p.out != nil {
			switch p.out.kind {
			case outBreak, outContinue:
				out = append(out, &path{ctx: p.ctx})
			default:
				out = append(out, p)
			}
			continue
		}
		if endless {
			out = append(out, &path{ctx: p.ctx, out: &outcome{kind: outNoError, pos: pos}})
		} else {
			out = append(out, &path{ctx: p.ctx})
		}
	}
	return out
}

func (in *interp) gotoStmt(g *cast.Goto, ctx *pathCtx) []*path {
	if ctx.ignoring() {
		return live(ctx)
	}
	if in.gotoIsBackward(g) {
		// The forward walk already covered everything from the label on;
		// jumping back re-analyzes nothing new.
		return finished(ctx, outcome{kind: outNoError, pos: g.P})
	}
	ctx.ignoreUntil = g.Name
	return live(ctx)
}

// gotoIsBackward reports whether g's target label occurs before g itself in
// the source order of the function body.
func (in *interp) gotoIsBackward(g *cast.Goto) bool {
	backward := false
	cast.Inspect(in.root, func(n cast.Node) bool {
		switch v := n.(type) {
		case *cast.Label:
			if v.Name == g.Name {
				backward = true
				return false
			}
		case *cast.Goto:
			if v == g {
				return false
			}
		}
		return true
	})
	return backward
}

// headerVisit visits a loop or switch header expression, or an if/ternary
// condition, with the forbidden flag raised, restoring it on every
// surviving continuation.
func (in *interp) headerVisit(e cast.Expr, ctx *pathCtx) ([]*pathCtx, []*path) {
	if e == nil {
		return []*pathCtx{ctx}, nil
	}
	return in.headerSeq([]cast.Node{e}, ctx)
}

func (in *interp) headerSeq(nodes []cast.Node, ctx *pathCtx) ([]*pathCtx, []*path) {
	saved := ctx.forbidden
	ctx.forbidden = true
	ctxs, done := partition(in.seq(nodes, ctx))
	for _, c := range ctxs {
		c.forbidden = saved
	}
	return ctxs, done
}

// needsVisit decides whether descending into n can matter: while skipping
// to a label, only that label or another goto is interesting; otherwise a
// subtree matters if it holds a catalog call or a goto (which might jump
// somewhere interesting).
func (in *interp) needsVisit(n cast.Node, ctx *pathCtx) bool {
	if ctx.ignoring() {
		return containsLabel(n, ctx.ignoreUntil) || containsGoto(n)
	}
	return containsGoto(n) || cast.Contains(n, func(c cast.Node) bool {
		call, ok := c.(*cast.FuncCall)
		if !ok {
			return false
		}
		id, ok := call.Fun.(*cast.Ident)
		return ok && in.cat.Relevant(id.Name)
	})
}

func containsGoto(n cast.Node) bool {
	return cast.Contains(n, func(c cast.Node) bool {
		_, ok := c.(*cast.Goto)
		return ok
	})
}

func containsLabel(n cast.Node, name string) bool {
	return cast.Contains(n, func(c cast.Node) bool {
		l, ok := c.(*cast.Label)
		return ok && l.Name == name
	})
}

// caseList flattens a switch body into its case clauses. Statements before
// the first case label are unreachable in C and are ignored.
func caseList(body cast.Stmt) []*cast.Case {
	switch v := body.(type) {
	case *cast.Case:
		return []*cast.Case{v}
	case *cast.Compound:
		var cases []*cast.Case
		for _, s := range v.List {
			if c, ok := s.(*cast.Case); ok {
				cases = append(cases, c)
			}
		}
		return cases
	default:
		return nil
	}
}

func exprNodes(exprs []cast.Expr) []cast.Node {
	nodes := make([]cast.Node, 0, len(exprs))
	for _, e := range exprs {
		nodes = append(nodes, e)
	}
	return nodes
}
