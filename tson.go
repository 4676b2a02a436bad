package tson

import (
	"fmt"
	"iter"
	"unicode"
	"unicode/utf8"
)

// TokenKind represents the possible kinds of token in a TSON document.
type TokenKind int8

// These tokens are yielded from [Tokens].
const (
	End = TokenKind(iota)
	OpenBrace
	CloseBrace
	OpenBracket
	CloseBracket
	Colon
	Comma
	StringStart
	ValueExpression
	Error
)

func (k TokenKind) String() string {
	switch k {
	case End:
		return "End"
	case OpenBrace:
		return "OpenBrace"
	case CloseBrace:
		return "CloseBrace"
	case OpenBracket:
		return "OpenBracket"
	case CloseBracket:
		return "CloseBracket"
	case Colon:
		return "Colon"
	case Comma:
		return "Comma"
	case StringStart:
		return "StringStart"
	case ValueExpression:
		return "ValueExpression"
	case Error:
		return "Error"
	default:
		panic("Unknown TokenKind")
	}
}

func (k TokenKind) GoString() string {
	return k.String()
}

// Token is a single lexical element of a document.
//
// For [StringStart] the Content is the unescaped text of the quoted string,
// for [ValueExpression] it is the raw tag(payload) span, for [Error] it is
// the error message, and for structural tokens it is the character itself.
type Token struct {
	Kind    TokenKind
	Content string
}

// Position is a 1-based line and column in the original input. Columns
// count runes, and "\n", "\r\n" and "\r" all end a line.
type Position struct {
	Line   int
	Column int
}

// String returns the position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// lexer walks a copy of the input with insignificant whitespace removed,
// remembering where each remaining byte came from.
type lexer struct {
	src     string
	text    []byte
	offsets []int
	pos     int

	// the last position computed, so that forward scans stay linear
	markOffset int
	markPos    Position
}

func isStructural(c byte) bool {
	switch c {
	case '{', '}', '[', ']', ',', ':':
		return true
	}
	return false
}

func newLexer(src string) *lexer {
	l := &lexer{
		src:     src,
		text:    make([]byte, 0, len(src)),
		offsets: make([]int, 0, len(src)+1),
	}
	quoted, escaped := false, false
	for i := 0; i < len(src); {
		r, size := utf8.DecodeRuneInString(src[i:])
		switch {
		case quoted && escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case !quoted && unicode.IsSpace(r):
			i += size
			continue
		}
		for j := 0; j < size; j++ {
			l.text = append(l.text, src[i+j])
			l.offsets = append(l.offsets, i+j)
		}
		i += size
	}
	l.offsets = append(l.offsets, len(src))
	return l
}

// position maps an index into the stripped text back to the original.
func (l *lexer) position(i int) Position {
	if i > len(l.text) {
		i = len(l.text)
	}
	offset := l.offsets[i]
	pos, j := Position{Line: 1, Column: 1}, 0
	if l.markOffset > 0 && l.markOffset <= offset {
		pos, j = l.markPos, l.markOffset
	}
	for j < offset {
		r, size := utf8.DecodeRuneInString(l.src[j:])
		switch {
		case r == '\r' && j+1 < len(l.src) && l.src[j+1] == '\n':
			size = 2
			fallthrough
		case r == '\n' || r == '\r':
			pos.Line++
			pos.Column = 1
		default:
			pos.Column++
		}
		j += size
	}
	if j == offset {
		l.markOffset, l.markPos = offset, pos
	}
	return pos
}

func (l *lexer) errorf(at int, format string, args ...any) *SyntaxError {
	pos := l.position(at)
	return &SyntaxError{Msg: fmt.Sprintf(format, args...), Line: pos.Line, Column: pos.Column}
}

func (l *lexer) peek() TokenKind {
	if l.pos >= len(l.text) {
		return End
	}
	switch l.text[l.pos] {
	case '{':
		return OpenBrace
	case '}':
		return CloseBrace
	case '[':
		return OpenBracket
	case ']':
		return CloseBracket
	case ':':
		return Colon
	case ',':
		return Comma
	case '"':
		return StringStart
	}
	return ValueExpression
}

func (l *lexer) advance() {
	l.pos++
}

// scanString consumes a quoted string starting at the current position
// and returns its unescaped content.
func (l *lexer) scanString() (string, error) {
	start := l.pos
	escaped := false
	for i := start + 1; i < len(l.text); i++ {
		c := l.text[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			l.pos = i + 1
			s, err := unescape(string(l.text[start+1 : i]))
			if err != nil {
				return "", l.errorf(start, "%v", err)
			}
			return s, nil
		}
	}
	return "", l.errorf(start, "unterminated string")
}

// scanExpr consumes a value expression: everything up to the next
// structural character that is not inside a quoted payload.
func (l *lexer) scanExpr() (string, int, error) {
	start := l.pos
	quoted, escaped := false, false
	for i := start; i < len(l.text); i++ {
		c := l.text[i]
		switch {
		case quoted && escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case !quoted && isStructural(c):
			l.pos = i
			return string(l.text[start:i]), start, nil
		}
	}
	return "", start, l.errorf(start, "unterminated value expression")
}

type errorStop struct{}

var errStop = errorStop{}

// Tokens iterates over the lexical tokens of the input with the position
// at which each one starts. Whitespace outside quoted strings is skipped.
//
// The sequence ends with an [End] token, or with an [Error] token if the
// input contains an unterminated string or value expression. Tokens does
// not check that the structure is valid, use [Parse] for that.
func Tokens(input string) iter.Seq2[Position, Token] {
	return func(yieldTo func(Position, Token) bool) {
		defer func() {
			if r := recover(); r != nil {
				if r == errStop {
					return
				}
				panic(r)
			}
		}()

		lex := newLexer(input)
		emit := func(at int, token Token) {
			if !yieldTo(lex.position(at), token) {
				panic(errStop)
			}
		}

		for {
			at := lex.pos
			switch kind := lex.peek(); kind {
			case End:
				emit(at, Token{Kind: End})
				return
			case StringStart:
				s, err := lex.scanString()
				if err != nil {
					emit(at, Token{Kind: Error, Content: err.(*SyntaxError).Msg})
					return
				}
				emit(at, Token{Kind: StringStart, Content: s})
			case ValueExpression:
				span, _, err := lex.scanExpr()
				if err != nil {
					emit(at, Token{Kind: Error, Content: err.(*SyntaxError).Msg})
					return
				}
				emit(at, Token{Kind: ValueExpression, Content: span})
			default:
				emit(at, Token{Kind: kind, Content: string(lex.text[at])})
				lex.advance()
			}
		}
	}
}
