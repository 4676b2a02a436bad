package tson

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// splitExpr splits a tag(payload) span. The payload runs from the first
// '(' to its matching ')', counting parentheses outside quoted strings
// only, and the matching ')' must end the span.
func splitExpr(span string) (tag, payload string, ok bool) {
	open := strings.IndexByte(span, '(')
	if open <= 0 {
		return "", "", false
	}
	tag = span[:open]
	for i := 0; i < len(tag); i++ {
		c := tag[i]
		if !(c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return "", "", false
		}
	}

	depth := 0
	quoted, escaped := false, false
	for i := open; i < len(span); i++ {
		c := span[i]
		switch {
		case quoted && escaped:
			escaped = false
		case quoted && c == '\\':
			escaped = true
		case c == '"':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				if i != len(span)-1 {
					return "", "", false
				}
				return tag, span[open+1 : i], true
			}
		}
	}
	return "", "", false
}

// decodeExpr decodes a value expression. Spans that are not shaped like
// tag(payload), or whose tag is unknown, decode to null. A known tag with
// a payload that does not parse is an error.
func decodeExpr(span string) (Value, error) {
	tag, payload, ok := splitExpr(span)
	if !ok {
		return Null(), nil
	}
	kind, ok := KindOf(tag)
	if !ok {
		return Null(), nil
	}
	v, err := decodePayload(kind, payload)
	if err != nil {
		return Null(), fmt.Errorf("invalid %s(%s): %w", tag, payload, err)
	}
	return v, nil
}

var errMissingQuotes = errors.New("payload must be a quoted string")

func unquotePayload(payload string) (string, error) {
	if len(payload) < 2 || payload[0] != '"' || payload[len(payload)-1] != '"' {
		return "", errMissingQuotes
	}
	return unescape(payload[1 : len(payload)-1])
}

func decodePayload(kind Kind, payload string) (Value, error) {
	if kind.quoted() {
		s, err := unquotePayload(payload)
		if err != nil {
			return Null(), err
		}
		return decodeQuoted(kind, s)
	}

	switch kind {
	case KindNull:
		return Null(), nil
	case KindBool:
		switch {
		case strings.EqualFold(payload, "true"):
			return Bool(true), nil
		case strings.EqualFold(payload, "false"):
			return Bool(false), nil
		}
		return Null(), fmt.Errorf("%q is not a bool", payload)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		i, err := strconv.ParseInt(payload, 10, intBits(kind))
		if err != nil {
			return Null(), err
		}
		switch kind {
		case KindInt8:
			return Int8(int8(i)), nil
		case KindInt16:
			return Int16(int16(i)), nil
		case KindInt32:
			return Int32(int32(i)), nil
		}
		return Int64(i), nil
	case KindUint8, KindUint16, KindUint32, KindUint64:
		u, err := strconv.ParseUint(strings.TrimPrefix(payload, "+"), 10, intBits(kind))
		if err != nil {
			return Null(), err
		}
		switch kind {
		case KindUint8:
			return Uint8(uint8(u)), nil
		case KindUint16:
			return Uint16(uint16(u)), nil
		case KindUint32:
			return Uint32(uint32(u)), nil
		}
		return Uint64(u), nil
	case KindFloat32:
		f, err := parseFloat(payload, 32)
		if err != nil {
			return Null(), err
		}
		return Float32(float32(f)), nil
	case KindFloat64:
		f, err := parseFloat(payload, 64)
		if err != nil {
			return Null(), err
		}
		return Float64(f), nil
	}
	return Null(), fmt.Errorf("unsupported kind %s", kind)
}

func decodeQuoted(kind Kind, s string) (Value, error) {
	switch kind {
	case KindString:
		return String(s), nil
	case KindChar:
		r, size := utf8.DecodeRuneInString(s)
		if size == 0 || size != len(s) {
			return Null(), fmt.Errorf("%q is not a single character", s)
		}
		return Char(r), nil
	case KindBytes:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Null(), err
		}
		return Bytes(b), nil
	case KindTimestamp:
		t, err := parseTimestamp(s)
		if err != nil {
			return Null(), err
		}
		return Timestamp(t), nil
	case KindURI:
		u, err := url.Parse(s)
		if err != nil {
			return Null(), err
		}
		return URI(u), nil
	}
	return Null(), fmt.Errorf("unsupported kind %s", kind)
}

func intBits(kind Kind) int {
	switch kind {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32:
		return 32
	}
	return 64
}

// parseFloat accepts what formatFloat writes, including the NaN and
// Infinity payloads. Values outside the range of the width are errors.
func parseFloat(s string, bitSize int) (float64, error) {
	switch s {
	case "NaN":
		return math.NaN(), nil
	case "Infinity", "+Infinity":
		return math.Inf(1), nil
	case "-Infinity":
		return math.Inf(-1), nil
	}
	if strings.ContainsAny(s, "nNiI_xX") {
		return 0, &strconv.NumError{Func: "ParseFloat", Num: s, Err: strconv.ErrSyntax}
	}
	return strconv.ParseFloat(s, bitSize)
}

// Layouts accepted for datetime payloads, most specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z07:00:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
