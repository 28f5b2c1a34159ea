package cparse

import "strings"

// Compiler-extension tokens the parser cannot digest. Tokens mapping to ""
// are dropped; the rest are rewritten to their plain-C spelling.
var extensionTokens = map[string]string{
	"__extension__": "",
	"__inline":      "",
	"__inline__":    "",
	"__restrict":    "",
	"__restrict__":  "",
	"__volatile":    "volatile",
	"__volatile__":  "volatile",
	"__const":       "const",
	"__const__":     "const",
	"__signed":      "signed",
	"__signed__":    "signed",
	"__typeof":      "typeof",
	"__typeof__":    "typeof",
	"__always_inline": "",
	"__unused":        "",
	"__dead":          "",
	"__pure":          "",
	"__packed":        "",
}

// attribute-like keywords followed by a balanced parenthesized group; the
// whole construct is stripped.
var parenExtensions = map[string]bool{
	"__attribute__": true,
	"__attribute":   true,
	"__asm__":       true,
	"__asm":         true,
	"asm":           true,
	"__aligned":     true,
	"__builtin_expect_with_probability": false, // keep: plain call shape
}

// Prefilter strips compiler-extension syntax from preprocessed C source so
// the parser sees plain C. String and character literals pass through
// untouched. Line structure is preserved so positions stay accurate.
func Prefilter(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	i := 0
	n := len(src)

	for i < n {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			j := scanQuoted(src, i, c)
			out.WriteString(src[i:j])
			i = j
		case isIdentStart(c):
			j := i + 1
			for j < n && isIdentCont(src[j]) {
				j++
			}
			word := src[i:j]
			if repl, ok := extensionTokens[word]; ok {
				out.WriteString(repl)
				i = j
				continue
			}
			if strip, ok := parenExtensions[word]; ok && strip {
				i = skipParenGroup(src, j, &out)
				continue
			}
			// "__asm volatile ( ... )" and "asm goto ( ... )" carry a
			// qualifier between keyword and parens.
			out.WriteString(word)
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

// skipParenGroup consumes optional qualifier words and one balanced
// parenthesized group starting at or after i. A following extension keyword
// is stripped by Prefilter's own loop. Newlines inside the skipped region
// are preserved so later line numbers do not drift.
func skipParenGroup(src string, i int, out *strings.Builder) int {
	n := len(src)
	for {
		// optional qualifiers: volatile, goto, inline
		for {
			j := skipSpace(src, i, out)
			if j >= n || !isIdentStart(src[j]) {
				i = j
				break
			}
			k := j + 1
			for k < n && isIdentCont(src[k]) {
				k++
			}
			switch src[j:k] {
			case "volatile", "goto", "inline", "__volatile__":
				i = k
			default:
				i = j
				k = 0
			}
			if k == 0 {
				break
			}
		}
		if i >= n || src[i] != '(' {
			return i
		}
		depth := 0
		for i < n {
			switch src[i] {
			case '(':
				depth++
			case ')':
				depth--
			case '\n':
				out.WriteByte('\n')
			case '"', '\'':
				j := scanQuoted(src, i, src[i])
				for k := i; k < j; k++ {
					if src[k] == '\n' {
						out.WriteByte('\n')
					}
				}
				i = j - 1
			}
			i++
			if depth == 0 {
				break
			}
		}
		// chained attribute groups: __attribute__((a)) ((b)) is not a
		// thing, but "__asm(...) __asm(...)" chains are; the outer loop
		// of Prefilter handles those. Done here.
		return i
	}
}

func skipSpace(src string, i int, out *strings.Builder) int {
	for i < len(src) {
		switch src[i] {
		case '\n':
			out.WriteByte('\n')
			i++
		case ' ', '\t', '\r':
			i++
		default:
			return i
		}
	}
	return i
}
