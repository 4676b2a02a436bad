// Package bridge converts between TSON values and JSON or YAML documents.
//
// JSON and YAML carry fewer types than TSON, so conversions towards them
// lose tags: bytes become base64 strings, datetimes become RFC 3339
// strings, uris and chars become plain strings. Conversions from them pick
// the smallest of int, long and ulong that holds an integer, and double for
// every other number.
//
// Object member order is kept in both directions.
package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/ConradIrwin/tson-go"
)

// Options configures the text written by [ToJSON] and [ToYAML].
type Options struct {
	// Indent is the number of spaces per nesting level. Zero writes compact
	// JSON, and the default of 4 for YAML.
	Indent int
}

// FromJSON converts a JSON document to a TSON value. Comments and trailing
// commas are accepted, as in JSONC.
func FromJSON(data []byte) (tson.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.UseNumber()

	v, err := readJSON(dec)
	if err != nil {
		return tson.Null(), fmt.Errorf("parsing json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return tson.Null(), fmt.Errorf("parsing json: unexpected content after document")
	}
	return v, nil
}

func readJSON(dec *json.Decoder) (tson.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return tson.Null(), err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var members []tson.Member
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return tson.Null(), err
				}
				key, ok := keyTok.(string)
				if !ok {
					return tson.Null(), fmt.Errorf("expected object key, got %v", keyTok)
				}
				value, err := readJSON(dec)
				if err != nil {
					return tson.Null(), err
				}
				members = append(members, tson.Member{Key: key, Value: value})
			}
			if _, err := dec.Token(); err != nil {
				return tson.Null(), err
			}
			return tson.Object(members...), nil
		case '[':
			items := []tson.Value{}
			for dec.More() {
				item, err := readJSON(dec)
				if err != nil {
					return tson.Null(), err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return tson.Null(), err
			}
			return tson.Array(items...), nil
		}
		return tson.Null(), fmt.Errorf("unexpected %v", t)
	case nil:
		return tson.Null(), nil
	case bool:
		return tson.Bool(t), nil
	case string:
		return tson.String(t), nil
	case json.Number:
		return number(string(t))
	}
	return tson.Null(), fmt.Errorf("unexpected token %v", tok)
}

// number picks the narrowest of int, long, ulong, or double for a JSON or
// YAML number.
func number(s string) (tson.Value, error) {
	if i, err := strconv.ParseInt(s, 10, 32); err == nil {
		return tson.Int32(int32(i)), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tson.Int64(i), nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return tson.Uint64(u), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return tson.Null(), err
	}
	return tson.Float64(f), nil
}

// ToJSON writes v as JSON.
func ToJSON(v tson.Value, opts Options) ([]byte, error) {
	var b bytes.Buffer
	if err := writeJSON(&b, v, opts.Indent, 0); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

var errNonFinite = errors.New("NaN and Infinity cannot be written as json")

func writeJSON(b *bytes.Buffer, v tson.Value, indent, depth int) error {
	newline := func(depth int) {
		if indent == 0 {
			return
		}
		b.WriteByte('\n')
		b.WriteString(strings.Repeat(" ", indent*depth))
	}

	switch v.Kind() {
	case tson.KindObject:
		members := v.Members()
		if len(members) == 0 {
			b.WriteString("{}")
			return nil
		}
		b.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(depth + 1)
			key, err := quoteJSON(m.Key)
			if err != nil {
				return err
			}
			b.WriteString(key)
			b.WriteByte(':')
			if indent > 0 {
				b.WriteByte(' ')
			}
			if err := writeJSON(b, m.Value, indent, depth+1); err != nil {
				return fmt.Errorf("%s: %w", m.Key, err)
			}
		}
		newline(depth)
		b.WriteByte('}')
	case tson.KindArray:
		items := v.Items()
		if len(items) == 0 {
			b.WriteString("[]")
			return nil
		}
		b.WriteByte('[')
		for i, item := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			newline(depth + 1)
			if err := writeJSON(b, item, indent, depth+1); err != nil {
				return fmt.Errorf("[%d]: %w", i, err)
			}
		}
		newline(depth)
		b.WriteByte(']')
	default:
		s, err := jsonScalar(v)
		if err != nil {
			return err
		}
		b.WriteString(s)
	}
	return nil
}

func jsonScalar(v tson.Value) (string, error) {
	switch v.Kind() {
	case tson.KindNull:
		return "null", nil
	case tson.KindBool:
		return strconv.FormatBool(v.AsBool()), nil
	case tson.KindFloat32, tson.KindFloat64:
		f, _ := v.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", errNonFinite
		}
		bits := 64
		if v.Kind() == tson.KindFloat32 {
			bits = 32
		}
		return strconv.FormatFloat(f, 'g', -1, bits), nil
	case tson.KindChar:
		r, _ := v.AsChar()
		return quoteJSON(string(r))
	case tson.KindString:
		s, _ := v.AsString()
		return quoteJSON(s)
	case tson.KindBytes:
		raw, _ := v.AsBytes()
		return quoteJSON(base64.StdEncoding.EncodeToString(raw))
	case tson.KindTimestamp:
		t, _ := v.AsTime()
		return quoteJSON(t.Format(time.RFC3339Nano))
	case tson.KindURI:
		u, _ := v.AsURI()
		return quoteJSON(u.String())
	}
	if i, ok := v.AsInt(); ok {
		return strconv.FormatInt(i, 10), nil
	}
	if u, ok := v.AsUint(); ok {
		return strconv.FormatUint(u, 10), nil
	}
	return "", fmt.Errorf("unsupported kind %v", v.Kind())
}

// quoteJSON returns s as a JSON string literal, leaving <, > and &
// unescaped.
func quoteJSON(s string) (string, error) {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}
