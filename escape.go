package tson

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const hexDigits = "0123456789abcdef"

// writeQuoted writes s as a double-quoted string. Printable ASCII passes
// through, everything else is a named escape or a \uXXXX escape of its
// UTF-16 code units.
func writeQuoted(b *bytes.Buffer, s string) {
	b.WriteByte('"')
	for _, c := range s {
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if c >= 0x20 && c <= 0x7e {
				b.WriteByte(byte(c))
			} else if r1, r2 := utf16.EncodeRune(c); r1 != utf8.RuneError {
				writeUnicodeEscape(b, r1)
				writeUnicodeEscape(b, r2)
			} else {
				writeUnicodeEscape(b, c)
			}
		}
	}
	b.WriteByte('"')
}

func writeUnicodeEscape(b *bytes.Buffer, r rune) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[r>>12&0xf])
	b.WriteByte(hexDigits[r>>8&0xf])
	b.WriteByte(hexDigits[r>>4&0xf])
	b.WriteByte(hexDigits[r&0xf])
}

// unescape decodes the content of a quoted string (without its quotes).
// An escape cut short by the end of s ends the string there.
// Unrecognised escape letters are dropped.
func unescape(s string) (string, error) {
	if strings.IndexByte(s, '\\') < 0 {
		return s, nil
	}
	var b bytes.Buffer
	b.Grow(len(s))
	var high rune = -1
	flush := func() {
		if high >= 0 {
			b.WriteRune(utf8.RuneError)
			high = -1
		}
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			flush()
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(s) {
			break
		}
		if s[i] != 'u' {
			flush()
		}
		switch s[i] {
		case '"', '\\', '/':
			b.WriteByte(s[i])
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			if len(s)-i-1 < 4 {
				flush()
				return b.String(), nil
			}
			code, err := strconv.ParseUint(s[i+1:i+5], 16, 16)
			if err != nil {
				return "", fmt.Errorf("invalid unicode escape \\u%s", s[i+1:i+5])
			}
			i += 4
			r := rune(code)
			switch {
			case utf16.IsSurrogate(r) && r < 0xdc00:
				flush()
				high = r
			case utf16.IsSurrogate(r) && high >= 0:
				b.WriteRune(utf16.DecodeRune(high, r))
				high = -1
			default:
				flush()
				b.WriteRune(r)
			}
		}
	}
	flush()
	return b.String(), nil
}
