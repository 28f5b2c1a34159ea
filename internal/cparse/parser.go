// Package cparse turns preprocessed C source into cast trees. It is not a
// conforming C parser: file-scope declarations are skipped by token
// scanning, and inside function bodies anything outside the supported
// statement and expression subset degrades to an opaque node that still
// exposes its call sites. That is all the balance checker needs.
package cparse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chrissicool/lbc/internal/cast"
)

// ParseFile pre-filters and parses one preprocessed translation unit.
func ParseFile(name string, src []byte) (*cast.File, error) {
	toks := lex(name, Prefilter(string(src)))
	p := &parser{toks: toks}
	file := &cast.File{Name: name}

	for !p.at(EOF) {
		fn, ok := p.topLevel()
		if !ok {
			continue
		}
		file.Funcs = append(file.Funcs, fn)
	}
	return file, nil
}

var errParse = errors.New("parse error")

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) tok() Token      { return p.toks[p.pos] }
func (p *parser) peek(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != EOF {
		p.pos++
	}
	return t
}
func (p *parser) at(k Kind) bool         { return p.tok().Kind == k }
func (p *parser) atPunct(s string) bool  { return p.tok().IsPunct(s) }
func (p *parser) atIdent(s string) bool  { return p.tok().IsIdent(s) }
func (p *parser) accept(s string) bool {
	if p.atPunct(s) {
		p.pos++
		return true
	}
	return false
}
func (p *parser) expect(s string) error {
	if p.accept(s) {
		return nil
	}
	return fmt.Errorf("%w: expected %q, found %q at %s", errParse, s, p.tok().Text, p.tok().Pos)
}

// topLevel consumes one file-scope construct. It returns a function
// definition when it finds "ident ( ... ) {"; everything else (globals,
// typedefs, prototypes, struct definitions) is skipped by balanced-token
// scanning.
func (p *parser) topLevel() (*cast.FuncDef, bool) {
	start := p.pos
	parenDepth := 0
	sawAssign := false
	lastCloseParen := -1 // token index of most recent ")" at depth 0

	for {
		t := p.tok()
		switch {
		case t.Kind == EOF:
			return nil, false
		case t.IsPunct(";") && parenDepth == 0:
			p.pos++
			return nil, false
		case t.IsPunct("="):
			sawAssign = true
			p.pos++
		case t.IsPunct("("):
			parenDepth++
			p.pos++
		case t.IsPunct(")"):
			parenDepth--
			if parenDepth == 0 {
				lastCloseParen = p.pos
			}
			p.pos++
		case t.IsPunct("{"):
			if parenDepth == 0 && !sawAssign && lastCloseParen >= 0 {
				if name, np, ok := funcName(p.toks, start, lastCloseParen); ok {
					return p.funcDef(name, np), true
				}
			}
			// Aggregate body or brace initializer: skip it and resume
			// scanning the same declaration.
			p.skipBraces()
		default:
			p.pos++
		}
	}
}

// funcName finds the identifier immediately before the "(" that matches the
// ")" at closeParen, scanning within [start, closeParen].
func funcName(toks []Token, start, closeParen int) (string, cast.Pos, bool) {
	depth := 0
	open := -1
	for i := closeParen; i >= start; i-- {
		if toks[i].IsPunct(")") {
			depth++
		} else if toks[i].IsPunct("(") {
			depth--
			if depth == 0 {
				open = i
				break
			}
		}
	}
	if open <= start {
		return "", cast.Pos{}, false
	}
	id := toks[open-1]
	if id.Kind != Ident || typeKeywords[id.Text] || stmtKeywords[id.Text] {
		return "", cast.Pos{}, false
	}
	return id.Text, id.Pos, true
}

// funcDef parses the body starting at the current "{". A body that cannot
// be structured is skipped to its closing brace and returned with Err set.
func (p *parser) funcDef(name string, np cast.Pos) *cast.FuncDef {
	bodyStart := p.pos
	body, err := p.compound()
	if err != nil {
		p.pos = bodyStart
		p.skipBraces()
		return &cast.FuncDef{Name: name, Err: err.Error(), P: np}
	}
	return &cast.FuncDef{Name: name, Body: body, P: np}
}

// skipBraces consumes one balanced { ... } group starting at the current
// token (which must be "{").
func (p *parser) skipBraces() {
	depth := 0
	for {
		t := p.next()
		switch {
		case t.Kind == EOF:
			return
		case t.IsPunct("{"):
			depth++
		case t.IsPunct("}"):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// ---- statements ----

func (p *parser) compound() (*cast.Compound, error) {
	pos := p.tok().Pos
	if err := p.expect("{"); err != nil {
		return nil, err
	}
	c := &cast.Compound{P: pos}
	for !p.atPunct("}") {
		if p.at(EOF) {
			return nil, fmt.Errorf("%w: unterminated block at %s", errParse, pos)
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		c.List = append(c.List, s)
	}
	p.pos++ // }
	return c, nil
}

func (p *parser) stmt() (cast.Stmt, error) {
	t := p.tok()
	pos := t.Pos
	switch {
	case t.IsPunct("{"):
		return p.compound()
	case t.IsPunct(";"):
		p.pos++
		return &cast.Empty{P: pos}, nil
	case t.IsIdent("if"):
		return p.ifStmt()
	case t.IsIdent("switch"):
		return p.switchStmt()
	case t.IsIdent("while"):
		return p.whileStmt()
	case t.IsIdent("do"):
		return p.doWhileStmt()
	case t.IsIdent("for"):
		return p.forStmt()
	case t.IsIdent("break"):
		p.pos++
		return &cast.Break{P: pos}, p.expect(";")
	case t.IsIdent("continue"):
		p.pos++
		return &cast.Continue{P: pos}, p.expect(";")
	case t.IsIdent("return"):
		p.pos++
		if p.accept(";") {
			return &cast.Return{P: pos}, nil
		}
		x := p.exprOrOpaque(";")
		return &cast.Return{X: x, P: pos}, p.expect(";")
	case t.IsIdent("goto"):
		p.pos++
		id := p.next()
		if id.Kind != Ident {
			return nil, fmt.Errorf("%w: goto needs a label at %s", errParse, pos)
		}
		return &cast.Goto{Name: id.Text, P: pos}, p.expect(";")
	case t.IsIdent("case"), t.IsIdent("default"):
		return p.caseStmt()
	case t.Kind == Ident && p.peek(1).IsPunct(":"):
		p.pos += 2
		inner, err := p.stmt()
		if err != nil {
			return nil, err
		}
		return &cast.Label{Name: t.Text, Stmt: inner, P: pos}, nil
	case t.Kind == Ident && typeKeywords[t.Text]:
		return p.declStmt()
	default:
		x := p.exprOrOpaque(";")
		return &cast.ExprStmt{X: x, P: pos}, p.expect(";")
	}
}

func (p *parser) ifStmt() (cast.Stmt, error) {
	pos := p.next().Pos // if
	cond, err := p.parenCond()
	if err != nil {
		return nil, err
	}
	then, err := p.stmt()
	if err != nil {
		return nil, err
	}
	var els cast.Stmt
	if p.atIdent("else") {
		p.pos++
		els, err = p.stmt()
		if err != nil {
			return nil, err
		}
	}
	return &cast.If{Cond: cond, Then: then, Else: els, P: pos}, nil
}

func (p *parser) switchStmt() (cast.Stmt, error) {
	pos := p.next().Pos // switch
	cond, err := p.parenCond()
	if err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return &cast.Switch{Cond: cond, Body: body, P: pos}, nil
}

// caseStmt parses one case/default label and the statements up to the next
// label or the end of the switch body.
func (p *parser) caseStmt() (cast.Stmt, error) {
	t := p.next()
	c := &cast.Case{P: t.Pos}
	if t.Text == "case" {
		c.Expr = p.exprOrOpaque(":")
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		if t.Kind == EOF || t.IsPunct("}") || t.IsIdent("case") || t.IsIdent("default") {
			return c, nil
		}
		s, err := p.stmt()
		if err != nil {
			return nil, err
		}
		c.Body = append(c.Body, s)
	}
}

func (p *parser) whileStmt() (cast.Stmt, error) {
	pos := p.next().Pos // while
	cond, err := p.parenCond()
	if err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	return &cast.While{Cond: cond, Body: body, P: pos}, nil
}

func (p *parser) doWhileStmt() (cast.Stmt, error) {
	pos := p.next().Pos // do
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	if !p.atIdent("while") {
		return nil, fmt.Errorf("%w: do without while at %s", errParse, pos)
	}
	p.pos++
	cond, err := p.parenCond()
	if err != nil {
		return nil, err
	}
	return &cast.DoWhile{Body: body, Cond: cond, P: pos}, p.expect(";")
}

func (p *parser) forStmt() (cast.Stmt, error) {
	pos := p.next().Pos // for
	if err := p.expect("("); err != nil {
		return nil, err
	}
	f := &cast.For{P: pos}
	if !p.atPunct(";") {
		if p.tok().Kind == Ident && typeKeywords[p.tok().Text] {
			d, err := p.declStmt() // C99 loop declaration; consumes ";"
			if err != nil {
				return nil, err
			}
			f.Init = d
		} else {
			x := p.exprOrOpaque(";")
			f.Init = &cast.ExprStmt{X: x, P: x.Pos()}
			if err := p.expect(";"); err != nil {
				return nil, err
			}
		}
	} else {
		p.pos++
	}
	if !p.atPunct(";") {
		f.Cond = p.exprOrOpaque(";")
	}
	if err := p.expect(";"); err != nil {
		return nil, err
	}
	if !p.atPunct(")") {
		f.Next = p.exprOrOpaque(")")
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	body, err := p.stmt()
	if err != nil {
		return nil, err
	}
	f.Body = body
	return f, nil
}

// declStmt parses a local declaration. The declarators themselves are
// irrelevant to the checker; only initializer expressions are kept, chained
// with the comma operator when a declaration has several.
func (p *parser) declStmt() (cast.Stmt, error) {
	pos := p.tok().Pos
	name := ""
	var init cast.Expr

	for {
		t := p.tok()
		switch {
		case t.Kind == EOF:
			return nil, fmt.Errorf("%w: unterminated declaration at %s", errParse, pos)
		case t.IsPunct(";"):
			p.pos++
			return &cast.Decl{Name: name, Init: init, P: pos}, nil
		case t.IsPunct("="):
			p.pos++
			var x cast.Expr
			if p.atPunct("{") {
				x = p.opaqueBraces()
			} else {
				x = p.exprOrOpaqueMulti(";", ",")
			}
			if init == nil {
				init = x
			} else {
				init = &cast.Binary{Op: ",", X: init, Y: x, P: init.Pos()}
			}
		case t.IsPunct("{"):
			// struct/union/enum body inside the declaration specifier
			p.skipBraces()
		case t.IsPunct("(") || t.IsPunct("["):
			p.skipGroup(t.Text)
		default:
			if t.Kind == Ident && !typeKeywords[t.Text] {
				name = t.Text
			}
			p.pos++
		}
	}
}

// skipGroup consumes one balanced (…) or […] group starting at the current
// opening token.
func (p *parser) skipGroup(open string) {
	close := ")"
	if open == "[" {
		close = "]"
	}
	depth := 0
	for {
		t := p.next()
		switch {
		case t.Kind == EOF:
			return
		case t.IsPunct(open):
			depth++
		case t.IsPunct(close):
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// opaqueBraces consumes a brace initializer and returns it as an opaque
// expression carrying any calls found inside.
func (p *parser) opaqueBraces() cast.Expr {
	start := p.pos
	p.skipBraces()
	return opaqueFrom(p.toks[start:p.pos])
}

// parenCond parses the parenthesized controlling expression of a
// conditional or loop header.
func (p *parser) parenCond() (cast.Expr, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	x := p.exprOrOpaque(")")
	return x, p.expect(")")
}

// ---- expression entry points with opaque fallback ----

// exprOrOpaque parses a full expression ending at terminator (which is not
// consumed). If the expression parser cannot structure the region, the
// region's tokens become an opaque expression that still carries its calls.
func (p *parser) exprOrOpaque(term string) cast.Expr {
	return p.exprOrOpaqueMulti(term)
}

// exprOrOpaqueMulti is exprOrOpaque with several possible terminators; the
// comma variant is used for declaration initializers where a top-level ","
// separates declarators rather than continuing the expression.
func (p *parser) exprOrOpaqueMulti(terms ...string) cast.Expr {
	start := p.pos
	end := p.findTerm(start, terms)

	sub := &parser{toks: append(append([]Token(nil), p.toks[start:end]...), Token{Kind: EOF, Pos: p.toks[end].Pos})}
	var x cast.Expr
	var err error
	if len(terms) > 1 {
		// initializer position: comma terminates, so stop below it
		x, err = sub.assignExpr()
	} else {
		x, err = sub.commaExpr()
	}
	if err == nil && sub.at(EOF) {
		p.pos = end
		return x
	}
	p.pos = end
	return opaqueFrom(p.toks[start:end])
}

// findTerm returns the token index of the first terminator at bracket depth
// zero, or the region end on EOF / unbalanced close.
func (p *parser) findTerm(start int, terms []string) int {
	depth := 0
	for i := start; i < len(p.toks); i++ {
		t := p.toks[i]
		if t.Kind == EOF {
			return i
		}
		if t.Kind != Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
			continue
		case ")", "]", "}":
			if depth == 0 {
				for _, term := range terms {
					if t.Text == term {
						return i
					}
				}
				return i // unbalanced close ends the region
			}
			depth--
			continue
		}
		if depth == 0 {
			for _, term := range terms {
				if t.Text == term {
					return i
				}
			}
		}
	}
	return len(p.toks) - 1
}

// opaqueFrom builds an opaque expression from a token region, recovering
// call expressions lexically so the checker still classifies them.
func opaqueFrom(toks []Token) cast.Expr {
	pos := cast.Pos{}
	if len(toks) > 0 {
		pos = toks[0].Pos
	}
	return &cast.Opaque{
		Text:  joinTokens(toks),
		Calls: lexicalCalls(toks),
		P:     pos,
	}
}

func joinTokens(toks []Token) string {
	var sb strings.Builder
	for i, t := range toks {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// lexicalCalls scans a token region for "ident (" sequences and rebuilds
// each as a call expression, recursing into argument lists.
func lexicalCalls(toks []Token) []cast.Expr {
	var calls []cast.Expr
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind != Ident || stmtKeywords[t.Text] || typeKeywords[t.Text] || t.Text == "sizeof" {
			continue
		}
		if i+1 >= len(toks) || !toks[i+1].IsPunct("(") {
			continue
		}
		close := matchClose(toks, i+1)
		if close < 0 {
			continue
		}
		call := &cast.FuncCall{
			Fun: &cast.Ident{Name: t.Text, P: t.Pos},
			P:   t.Pos,
		}
		for _, arg := range splitArgs(toks[i+2 : close]) {
			sub := &parser{toks: append(append([]Token(nil), arg...), Token{Kind: EOF})}
			if x, err := sub.assignExpr(); err == nil && sub.at(EOF) {
				call.Args = append(call.Args, x)
			} else if len(arg) > 0 {
				call.Args = append(call.Args, opaqueFrom(arg))
			}
		}
		calls = append(calls, call)
		i = close
	}
	return calls
}

// matchClose returns the index of the ")" matching the "(" at open, or -1.
func matchClose(toks []Token, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		if toks[i].IsPunct("(") {
			depth++
		} else if toks[i].IsPunct(")") {
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitArgs splits a call argument region at top-level commas.
func splitArgs(toks []Token) [][]Token {
	if len(toks) == 0 {
		return nil
	}
	var args [][]Token
	depth := 0
	start := 0
	for i, t := range toks {
		if t.Kind != Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 0 {
				args = append(args, toks[start:i])
				start = i + 1
			}
		}
	}
	args = append(args, toks[start:])
	return args
}
