package tson

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// IndentUnit is the indentation written by [Format] for each level of
// nesting.
const IndentUnit = "    "

// Format re-indents TSON text for people to read: one member or item per
// line, nested levels indented by [IndentUnit], and ": " between keys and
// values. Bytes inside quoted strings are never changed, and whitespace
// outside them is discarded first, so Format(Format(s)) == Format(s).
//
// Format does not check that its input is valid TSON.
func Format(input string) string {
	var sb strings.Builder
	sb.Grow(len(input) + len(input)/2)

	depth := 0
	quoted := false
	newline := func() {
		sb.WriteByte('\n')
		for range depth {
			sb.WriteString(IndentUnit)
		}
	}

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRuneInString(input[i:])
		if quoted {
			if r == '"' && !escapedQuote(input, i) {
				quoted = false
			}
			sb.WriteString(input[i : i+size])
			i += size
			continue
		}

		switch r {
		case '{', '[':
			sb.WriteRune(r)
			if next := nextSignificant(input, i+1); next < len(input) && closes(r, input[next]) {
				sb.WriteByte(input[next])
				i = next + 1
				continue
			}
			depth++
			newline()
		case '}', ']':
			if depth > 0 {
				depth--
			}
			newline()
			sb.WriteRune(r)
		case ',':
			sb.WriteRune(r)
			newline()
		case ':':
			sb.WriteString(": ")
		case '"':
			quoted = true
			sb.WriteRune(r)
		default:
			if !unicode.IsSpace(r) {
				sb.WriteString(input[i : i+size])
			}
		}
		i += size
	}
	return sb.String()
}

// escapedQuote reports whether the quote at input[i] is preceded by an
// odd number of backslashes.
func escapedQuote(input string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && input[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

func nextSignificant(input string, i int) int {
	for i < len(input) {
		r, size := utf8.DecodeRuneInString(input[i:])
		if !unicode.IsSpace(r) {
			return i
		}
		i += size
	}
	return i
}

func closes(open rune, c byte) bool {
	return open == '{' && c == '}' || open == '[' && c == ']'
}
