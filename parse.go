package tson

import (
	"fmt"
)

// SyntaxError describes why a document could not be parsed, and where.
// Line and Column are 1-based and refer to the input as given, before
// whitespace is removed.
type SyntaxError struct {
	Msg    string
	Line   int
	Column int

	// Err is the underlying cause when a known value tag has a payload
	// that could not be decoded, for example a *strconv.NumError.
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// Position returns the location of the error.
func (e *SyntaxError) Position() Position {
	return Position{Line: e.Line, Column: e.Column}
}

const maxDepth = 10000

type parser struct {
	lex   *lexer
	depth int
}

// Parse decodes a TSON document into a [Value]. The document must be a
// single object or array.
//
// Unknown value tags such as weirdtag(1) decode to null, so that readers
// tolerate newer writers. A known tag with a payload that does not parse,
// such as int(abc) or byte(256), is an error.
//
// If a key appears more than once in an object, the last value is kept at
// the position of the first.
//
// On failure the error is a *SyntaxError.
func Parse(input string) (Value, error) {
	p := &parser{lex: newLexer(input)}

	var root Value
	var err error
	switch p.lex.peek() {
	case OpenBrace:
		root, err = p.parseObject()
	case OpenBracket:
		root, err = p.parseArray()
	case End:
		return Null(), p.lex.errorf(p.lex.pos, "unexpected end of input, expected '{' or '['")
	default:
		return Null(), p.lex.errorf(p.lex.pos, "expected '{' or '['")
	}
	if err != nil {
		return Null(), err
	}
	if p.lex.peek() != End {
		return Null(), p.lex.errorf(p.lex.pos, "unexpected %q after end of document", p.lex.text[p.lex.pos])
	}
	return root, nil
}

func (p *parser) enter() error {
	p.depth++
	if p.depth > maxDepth {
		return p.lex.errorf(p.lex.pos, "exceeded max depth of %d", maxDepth)
	}
	return nil
}

func (p *parser) parseObject() (Value, error) {
	if err := p.enter(); err != nil {
		return Null(), err
	}
	defer func() { p.depth-- }()
	open := p.lex.pos
	p.lex.advance()

	var members []Member
	index := map[string]int{}
	for {
		switch p.lex.peek() {
		case End:
			return Null(), p.lex.errorf(p.lex.pos, "unexpected end of input, expected '}' to close '{' at %s", p.lex.position(open))
		case CloseBrace:
			p.lex.advance()
			return Value{kind: KindObject, members: members}, nil
		case Comma:
			p.lex.advance()
			continue
		case StringStart:
		default:
			return Null(), p.lex.errorf(p.lex.pos, "expected object key")
		}

		key, err := p.lex.scanString()
		if err != nil {
			return Null(), err
		}
		if p.lex.peek() != Colon {
			return Null(), p.lex.errorf(p.lex.pos, "expected ':' after object key %q", key)
		}
		p.lex.advance()

		value, err := p.parseValue()
		if err != nil {
			return Null(), err
		}
		if i, ok := index[key]; ok {
			members[i].Value = value
			continue
		}
		index[key] = len(members)
		members = append(members, Member{Key: key, Value: value})
	}
}

func (p *parser) parseArray() (Value, error) {
	if err := p.enter(); err != nil {
		return Null(), err
	}
	defer func() { p.depth-- }()
	open := p.lex.pos
	p.lex.advance()

	items := []Value{}
	for {
		switch p.lex.peek() {
		case End:
			return Null(), p.lex.errorf(p.lex.pos, "unexpected end of input, expected ']' to close '[' at %s", p.lex.position(open))
		case CloseBracket:
			p.lex.advance()
			return Value{kind: KindArray, items: items}, nil
		case Comma:
			p.lex.advance()
			continue
		}

		value, err := p.parseValue()
		if err != nil {
			return Null(), err
		}
		items = append(items, value)
	}
}

func (p *parser) parseValue() (Value, error) {
	switch kind := p.lex.peek(); kind {
	case OpenBrace:
		return p.parseObject()
	case OpenBracket:
		return p.parseArray()
	case StringStart:
		s, err := p.lex.scanString()
		if err != nil {
			return Null(), err
		}
		return String(s), nil
	case ValueExpression:
		span, start, err := p.lex.scanExpr()
		if err != nil {
			return Null(), err
		}
		v, err := decodeExpr(span)
		if err != nil {
			serr := p.lex.errorf(start, "%v", err)
			serr.Err = err
			return Null(), serr
		}
		return v, nil
	case End:
		return Null(), p.lex.errorf(p.lex.pos, "unexpected end of input, expected value")
	default:
		return Null(), p.lex.errorf(p.lex.pos, "unexpected %q, expected value", p.lex.text[p.lex.pos])
	}
}
