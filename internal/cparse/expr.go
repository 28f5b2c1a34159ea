package cparse

import (
	"fmt"

	"github.com/chrissicool/lbc/internal/cast"
)

// binaryPrec maps binary operators to precedence levels; higher binds
// tighter. The comma and assignment operators are handled separately.
var binaryPrec = map[string]int{
	"||": 1,
	"&&": 2,
	"|":  3,
	"^":  4,
	"&":  5,
	"==": 6, "!=": 6,
	"<": 7, ">": 7, "<=": 7, ">=": 7,
	"<<": 8, ">>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

var prefixOps = map[string]bool{
	"+": true, "-": true, "!": true, "~": true, "*": true, "&": true,
	"++": true, "--": true,
}

func (p *parser) commaExpr() (cast.Expr, error) {
	x, err := p.assignExpr()
	if err != nil {
		return nil, err
	}
	for p.atPunct(",") {
		pos := p.next().Pos
		y, err := p.assignExpr()
		if err != nil {
			return nil, err
		}
		x = &cast.Binary{Op: ",", X: x, Y: y, P: pos}
	}
	return x, nil
}

func (p *parser) assignExpr() (cast.Expr, error) {
	x, err := p.ternaryExpr()
	if err != nil {
		return nil, err
	}
	t := p.tok()
	if t.Kind == Punct && assignOps[t.Text] {
		p.pos++
		rhs, err := p.assignExpr()
		if err != nil {
			return nil, err
		}
		return &cast.Assign{Op: t.Text, Lhs: x, Rhs: rhs, P: t.Pos}, nil
	}
	return x, nil
}

func (p *parser) ternaryExpr() (cast.Expr, error) {
	cond, err := p.binaryExpr(1)
	if err != nil {
		return nil, err
	}
	if !p.atPunct("?") {
		return cond, nil
	}
	pos := p.next().Pos
	then, err := p.commaExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.assignExpr()
	if err != nil {
		return nil, err
	}
	return &cast.Ternary{Cond: cond, Then: then, Else: els, P: pos}, nil
}

func (p *parser) binaryExpr(minPrec int) (cast.Expr, error) {
	x, err := p.unaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		prec, ok := 0, false
		if t.Kind == Punct {
			prec, ok = binaryPrec[t.Text]
		}
		if !ok || prec < minPrec {
			return x, nil
		}
		p.pos++
		y, err := p.binaryExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		x = &cast.Binary{Op: t.Text, X: x, Y: y, P: t.Pos}
	}
}

func (p *parser) unaryExpr() (cast.Expr, error) {
	t := p.tok()
	switch {
	case t.Kind == Punct && prefixOps[t.Text]:
		p.pos++
		x, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &cast.Unary{Op: t.Text, X: x, P: t.Pos}, nil
	case t.IsIdent("sizeof"):
		p.pos++
		if p.atPunct("(") {
			// sizeof(type) and sizeof(expr) are indistinguishable without
			// a symbol table; keep the region opaque either way.
			start := p.pos
			p.skipGroup("(")
			return &cast.Unary{Op: "sizeof", X: opaqueFrom(p.toks[start:p.pos]), P: t.Pos}, nil
		}
		x, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &cast.Unary{Op: "sizeof", X: x, P: t.Pos}, nil
	case t.IsPunct("(") && p.peek(1).Kind == Ident && typeKeywords[p.peek(1).Text]:
		// cast expression: the type goes into the operator text
		start := p.pos
		p.skipGroup("(")
		typ := joinTokens(p.toks[start:p.pos])
		if p.at(EOF) || p.atPunct(")") || p.atPunct(",") || p.atPunct(";") {
			// "(struct foo *)0"-style sentinel with nothing after the
			// cast would be an error; a bare parenthesized type is not
			// an expression at all.
			return nil, fmt.Errorf("%w: dangling cast %s at %s", errParse, typ, t.Pos)
		}
		x, err := p.unaryExpr()
		if err != nil {
			return nil, err
		}
		return &cast.Unary{Op: typ, X: x, P: t.Pos}, nil
	default:
		return p.postfixExpr()
	}
}

func (p *parser) postfixExpr() (cast.Expr, error) {
	x, err := p.primaryExpr()
	if err != nil {
		return nil, err
	}
	for {
		t := p.tok()
		switch {
		case t.IsPunct("("):
			p.pos++
			call := &cast.FuncCall{Fun: x, P: x.Pos()}
			for !p.atPunct(")") {
				if p.at(EOF) {
					return nil, fmt.Errorf("%w: unterminated call at %s", errParse, t.Pos)
				}
				a, err := p.assignExpr()
				if err != nil {
					return nil, err
				}
				call.Args = append(call.Args, a)
				if !p.accept(",") {
					break
				}
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			x = call
		case t.IsPunct("["):
			p.pos++
			idx, err := p.commaExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &cast.Index{X: x, Idx: idx, P: t.Pos}
		case t.IsPunct(".") || t.IsPunct("->"):
			p.pos++
			id := p.next()
			if id.Kind != Ident {
				return nil, fmt.Errorf("%w: expected member name at %s", errParse, id.Pos)
			}
			x = &cast.Member{X: x, Op: t.Text, Name: id.Text, P: t.Pos}
		case t.IsPunct("++") || t.IsPunct("--"):
			p.pos++
			x = &cast.Unary{Op: t.Text, X: x, Postfix: true, P: t.Pos}
		default:
			return x, nil
		}
	}
}

func (p *parser) primaryExpr() (cast.Expr, error) {
	t := p.tok()
	switch {
	case t.Kind == Ident && !typeKeywords[t.Text] && !stmtKeywords[t.Text]:
		p.pos++
		return &cast.Ident{Name: t.Text, P: t.Pos}, nil
	case t.Kind == Number || t.Kind == String || t.Kind == Char:
		p.pos++
		return &cast.Constant{Value: t.Text, P: t.Pos}, nil
	case t.IsPunct("("):
		p.pos++
		x, err := p.commaExpr()
		if err != nil {
			return nil, err
		}
		return x, p.expect(")")
	default:
		return nil, fmt.Errorf("%w: unexpected %q at %s", errParse, t.Text, t.Pos)
	}
}
