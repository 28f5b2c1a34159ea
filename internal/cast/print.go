package cast

import "strings"

// ExprString renders an expression to a canonical single-line form. Equal
// trees always yield equal strings: one space around binary and assignment
// operators, no space after unary operators, parentheses around every
// binary, assignment or ternary operand. The rendering keys the checker's
// condition memo, so it must stay deterministic.
func ExprString(e Expr) string {
	var sb strings.Builder
	writeExpr(&sb, e)
	return sb.String()
}

func writeExpr(sb *strings.Builder, e Expr) {
	switch v := e.(type) {
	case nil:
	case *Ident:
		sb.WriteString(v.Name)
	case *Constant:
		sb.WriteString(v.Value)
	case *FuncCall:
		writeOperand(sb, v.Fun)
		sb.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeExpr(sb, a)
		}
		sb.WriteByte(')')
	case *Unary:
		if v.Postfix {
			writeOperand(sb, v.X)
			sb.WriteString(v.Op)
		} else {
			sb.WriteString(v.Op)
			if v.Op == "sizeof" {
				sb.WriteByte(' ')
			}
			writeOperand(sb, v.X)
		}
	case *Binary:
		writeOperand(sb, v.X)
		if v.Op == "," {
			sb.WriteString(", ")
		} else {
			sb.WriteByte(' ')
			sb.WriteString(v.Op)
			sb.WriteByte(' ')
		}
		writeOperand(sb, v.Y)
	case *Assign:
		writeOperand(sb, v.Lhs)
		sb.WriteByte(' ')
		sb.WriteString(v.Op)
		sb.WriteByte(' ')
		writeOperand(sb, v.Rhs)
	case *Ternary:
		writeOperand(sb, v.Cond)
		sb.WriteString(" ? ")
		writeOperand(sb, v.Then)
		sb.WriteString(" : ")
		writeOperand(sb, v.Else)
	case *Index:
		writeOperand(sb, v.X)
		sb.WriteByte('[')
		writeExpr(sb, v.Idx)
		sb.WriteByte(']')
	case *Member:
		writeOperand(sb, v.X)
		sb.WriteString(v.Op)
		sb.WriteString(v.Name)
	case *Opaque:
		sb.WriteString(v.Text)
	}
}

// writeOperand parenthesizes composite sub-expressions so that nesting is
// unambiguous without tracking precedence.
func writeOperand(sb *strings.Builder, e Expr) {
	switch e.(type) {
	case *Binary, *Assign, *Ternary:
		sb.WriteByte('(')
		writeExpr(sb, e)
		sb.WriteByte(')')
	default:
		writeExpr(sb, e)
	}
}
