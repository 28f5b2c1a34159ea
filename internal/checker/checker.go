package checker

import (
	"fmt"
	"log"

	"github.com/chrissicool/lbc/internal/cast"
	"github.com/chrissicool/lbc/internal/locks"
)

// CheckFile analyzes every function definition in file against the catalog
// and returns the union of diagnostics across all explored paths.
func CheckFile(file *cast.File, cat *locks.Catalog) []Diagnostic {
	var diags []Diagnostic
	seen := make(map[string]bool)
	add := func(d Diagnostic) {
		if !seen[d.key()] {
			seen[d.key()] = true
			diags = append(diags, d)
		}
	}
	for _, fn := range file.Funcs {
		for _, d := range checkFunc(file.Name, fn, cat) {
			add(d)
		}
	}
	return diags
}

// checkFunc runs the path interpreter over one function body and classifies
// the terminal outcome of every explored path.
func checkFunc(filename string, fn *cast.FuncDef, cat *locks.Catalog) (diags []Diagnostic) {
	if fn.Body == nil {
		return []Diagnostic{{
			File:     filename,
			Function: fn.Name,
			Line:     fn.P.Line,
			Kind:     KindInternal,
			Reason:   "unparseable function body: " + fn.Err,
			State:    locks.NewState(cat).Snapshot(),
		}}
	}

	in := &interp{cat: cat, root: fn.Body}
	ctx := newPathCtx(cat, fn.Body)

	// Functions without any locking-relevant call cannot produce findings.
	if !in.needsVisit(fn.Body, ctx) {
		return nil
	}

	// Invariant violations inside the walk must never take down the whole
	// analysis run; they become one internal diagnostic for this function.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("warn: checker panic in %s: %v", fn.Name, r)
			diags = append(diags, Diagnostic{
				File:     filename,
				Function: fn.Name,
				Line:     fn.P.Line,
				Kind:     KindInternal,
				Reason:   fmt.Sprintf("checker failure: %v", r),
				State:    locks.NewState(cat).Snapshot(),
			})
		}
	}()

	mk := func(kind Kind, reason string, pos cast.Pos, state locks.Snapshot) Diagnostic {
		if pos.Line == 0 {
			pos = fn.P
		}
		if state == nil {
			state = locks.NewState(cat).Snapshot()
		}
		return Diagnostic{
			File:     filename,
			Function: fn.Name,
			Line:     pos.Line,
			Kind:     kind,
			Reason:   reason,
			State:    state,
		}
	}

	for _, p := range in.visit(fn.Body, ctx) {
		if p.out == nil {
			// Fell off the end of the body. A still-pending forward goto
			// means the label never existed; the path is ill-formed input
			// and is dropped.
			if p.ctx.ignoring() {
				continue
			}
			if !p.ctx.state.Balanced() {
				diags = append(diags, mk(KindEndOfFunction,
					"function can end with locks held",
					endPos(fn), p.ctx.state.Snapshot()))
			}
			continue
		}
		switch p.out.kind {
		case outNoError:
		case outReturn:
			diags = append(diags, mk(KindReturn, p.out.reason, p.out.pos, p.out.state))
		case outForbidden:
			diags = append(diags, mk(KindForbidden, p.out.reason, p.out.pos, p.out.state))
		case outBreak:
			diags = append(diags, mk(KindInternal, "break outside any loop or switch", p.out.pos, p.out.state))
		case outContinue:
			diags = append(diags, mk(KindInternal, "continue outside any loop", p.out.pos, p.out.state))
		case outInternal:
			diags = append(diags, mk(KindInternal, p.out.reason, p.out.pos, p.out.state))
		}
	}
	return diags
}

// endPos approximates the closing position of a function body for the
// end-of-function diagnostic: the last statement's position, or the
// function's own.
func endPos(fn *cast.FuncDef) cast.Pos {
	if n := len(fn.Body.List); n > 0 {
		return fn.Body.List[n-1].Pos()
	}
	return fn.P
}
