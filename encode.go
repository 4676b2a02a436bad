package tson

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// TimestampLayout is the layout used to write datetime payloads: ISO-8601
// with seven fractional digits and the zone offset ("Z" for UTC).
const TimestampLayout = "2006-01-02T15:04:05.0000000Z07:00"

// timestampSecondsLayout is used instead of [TimestampLayout] when the zone
// offset is not a whole number of minutes.
const timestampSecondsLayout = "2006-01-02T15:04:05.0000000Z07:00:00"

// ErrTimestampRange is returned when writing a datetime whose year is
// outside 0..9999. Such a timestamp has no four digit year to write.
var ErrTimestampRange = errors.New("tson: datetime year outside 0..9999")

// writeValue writes the canonical text of an already built value. Every
// member of an object is written, including null ones. The whole value is
// written even if an error is returned; the error is the first datetime
// that could not be written in a form that reads back.
func writeValue(b *bytes.Buffer, v Value) error {
	var err error
	switch v.kind {
	case KindObject:
		b.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				b.WriteByte(',')
			}
			writeQuoted(b, m.Key)
			b.WriteByte(':')
			if e := writeValue(b, m.Value); err == nil {
				err = e
			}
		}
		b.WriteByte('}')
	case KindArray:
		b.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				b.WriteByte(',')
			}
			if e := writeValue(b, item); err == nil {
				err = e
			}
		}
		b.WriteByte(']')
	default:
		b.WriteString(v.kind.Tag())
		b.WriteByte('(')
		err = writePayload(b, v)
		b.WriteByte(')')
	}
	return err
}

func writePayload(b *bytes.Buffer, v Value) error {
	switch v.kind {
	case KindNull:
	case KindBool:
		b.WriteString(strconv.FormatBool(v.bits != 0))
	case KindInt8, KindInt16, KindInt32, KindInt64:
		b.WriteString(strconv.FormatInt(int64(v.bits), 10))
	case KindUint8, KindUint16, KindUint32, KindUint64:
		b.WriteString(strconv.FormatUint(v.bits, 10))
	case KindFloat32:
		b.WriteString(formatFloat(float64(math.Float32frombits(uint32(v.bits))), 32))
	case KindFloat64:
		b.WriteString(formatFloat(roundDouble(math.Float64frombits(v.bits)), 64))
	case KindChar:
		writeQuoted(b, string(rune(v.bits)))
	case KindString, KindURI:
		writeQuoted(b, v.str)
	case KindBytes:
		writeQuoted(b, base64.StdEncoding.EncodeToString([]byte(v.str)))
	case KindTimestamp:
		writeQuoted(b, formatTimestamp(v.time))
		return checkTimestamp(v.time)
	}
	return nil
}

// roundDouble rounds f to 10 fractional digits. It works on the decimal
// expansion so the result is the double nearest the rounded text. Above
// 1e15 a double has no fractional digits to spare.
func roundDouble(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e15 {
		return f
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 10, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// formatFloat writes the shortest text that reads back as f, in plain
// decimal unless f is very large or very small.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) || bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// clean up e-09 to e-9
		n := len(s)
		if n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}

func formatTimestamp(t time.Time) string {
	if _, offset := t.Zone(); offset%60 != 0 {
		return t.Format(timestampSecondsLayout)
	}
	return t.Format(TimestampLayout)
}

func checkTimestamp(t time.Time) error {
	if y := t.Year(); y < 0 || y > 9999 {
		return fmt.Errorf("%w: %d", ErrTimestampRange, y)
	}
	return nil
}
