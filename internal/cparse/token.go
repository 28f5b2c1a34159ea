package cparse

import "github.com/chrissicool/lbc/internal/cast"

// Kind is the lexical class of a token.
type Kind int

const (
	EOF Kind = iota
	Ident
	Number
	String
	Char
	Punct
)

// Token is one lexical token with its position in the original source
// (line markers from the preprocessor are folded into Pos).
type Token struct {
	Kind Kind
	Text string
	Pos  cast.Pos
}

// IsPunct reports whether t is the punctuation text.
func (t Token) IsPunct(text string) bool {
	return t.Kind == Punct && t.Text == text
}

// IsIdent reports whether t is the identifier text.
func (t Token) IsIdent(text string) bool {
	return t.Kind == Ident && t.Text == text
}

// typeKeywords are identifiers that can only begin a declaration, never an
// expression. Used to recognize local declarations and cast expressions.
var typeKeywords = map[string]bool{
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"struct": true, "union": true, "enum": true, "const": true,
	"volatile": true, "static": true, "register": true, "extern": true,
	"auto": true, "inline": true, "typedef": true, "_Bool": true,
}

// stmtKeywords are identifiers that begin a statement form of their own.
var stmtKeywords = map[string]bool{
	"if": true, "else": true, "switch": true, "case": true, "default": true,
	"while": true, "do": true, "for": true, "break": true, "continue": true,
	"return": true, "goto": true,
}
