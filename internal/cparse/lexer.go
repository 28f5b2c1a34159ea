package cparse

import (
	"strconv"
	"strings"

	"github.com/chrissicool/lbc/internal/cast"
)

// multi-character punctuation, longest first so the scanner is greedy.
var punct3 = []string{"<<=", ">>=", "..."}
var punct2 = []string{
	"<<", ">>", "<=", ">=", "==", "!=", "&&", "||", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=", "->",
}

// lex converts preprocessed source into a flat token slice. Preprocessor
// line markers (# 12 "file.c") update the position attached to following
// tokens so diagnostics name the original file.
func lex(name, src string) []Token {
	file := name
	line := 1
	var toks []Token
	i := 0
	n := len(src)

	emit := func(k Kind, text string) {
		toks = append(toks, Token{Kind: k, Text: text, Pos: cast.Pos{File: file, Line: line}})
	}

	for i < n {
		c := src[i]
		switch {
		case c == '\n':
			line++
			i++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			i++
		case c == '#' && atLineStart(src, i):
			// Preprocessor line marker: "# <line> "<file>" flags" or
			// "#line <line> "<file>"". Anything else on a # line is
			// skipped wholesale.
			j := i
			for j < n && src[j] != '\n' {
				j++
			}
			if f, l, ok := parseLineMarker(src[i:j]); ok {
				file = f
				line = l
			} else {
				line++
			}
			i = j + 1
		case c == '/' && i+1 < n && src[i+1] == '/':
			for i < n && src[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < n && src[i+1] == '*':
			i += 2
			for i+1 < n && !(src[i] == '*' && src[i+1] == '/') {
				if src[i] == '\n' {
					line++
				}
				i++
			}
			i += 2
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentCont(src[j]) {
				j++
			}
			emit(Ident, src[i:j])
			i = j
		case c >= '0' && c <= '9' || (c == '.' && i+1 < n && src[i+1] >= '0' && src[i+1] <= '9'):
			j := i + 1
			for j < n && isNumCont(src, j) {
				j++
			}
			emit(Number, src[i:j])
			i = j
		case c == '"':
			j := scanQuoted(src, i, '"')
			emit(String, src[i:j])
			i = j
		case c == '\'':
			j := scanQuoted(src, i, '\'')
			emit(Char, src[i:j])
			i = j
		default:
			if p := matchPunct(src, i); p != "" {
				emit(Punct, p)
				i += len(p)
			} else {
				emit(Punct, string(c))
				i++
			}
		}
	}
	toks = append(toks, Token{Kind: EOF, Pos: cast.Pos{File: file, Line: line}})
	return toks
}

func atLineStart(src string, i int) bool {
	for j := i - 1; j >= 0; j-- {
		switch src[j] {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return true
}

// parseLineMarker extracts file and line from a preprocessor line marker.
func parseLineMarker(s string) (file string, line int, ok bool) {
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "line"))
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", 0, false
	}
	l, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", 0, false
	}
	f := ""
	if len(fields) > 1 && strings.HasPrefix(fields[1], `"`) {
		f, err = strconv.Unquote(fields[1])
		if err != nil {
			f = strings.Trim(fields[1], `"`)
		}
	}
	return f, l, true
}

func scanQuoted(src string, i int, q byte) int {
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case q:
			return j + 1
		case '\n':
			return j // unterminated; stop at end of line
		}
		j++
	}
	return j
}

func matchPunct(src string, i int) string {
	for _, p := range punct3 {
		if strings.HasPrefix(src[i:], p) {
			return p
		}
	}
	for _, p := range punct2 {
		if strings.HasPrefix(src[i:], p) {
			return p
		}
	}
	return ""
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9'
}

// isNumCont accepts the loose pp-number shape: digits, letters, dots, and
// sign characters directly after an exponent letter.
func isNumCont(src string, j int) bool {
	c := src[j]
	if isIdentCont(c) || c == '.' {
		return true
	}
	if c == '+' || c == '-' {
		p := src[j-1]
		return p == 'e' || p == 'E' || p == 'p' || p == 'P'
	}
	return false
}
