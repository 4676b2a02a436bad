package tson

import (
	"bytes"
	"math"
	"net/url"
	"time"
	"unicode/utf8"
)

// Kind identifies the variant held by a [Value].
type Kind int8

// The kinds of value that TSON can represent. Each scalar kind except
// the composites has exactly one tag in the text format.
const (
	KindNull = Kind(iota)
	KindBool
	KindInt8
	KindUint8
	KindInt16
	KindUint16
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindFloat32
	KindFloat64
	KindChar
	KindString
	KindBytes
	KindTimestamp
	KindURI
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindInt8:
		return "Int8"
	case KindUint8:
		return "Uint8"
	case KindInt16:
		return "Int16"
	case KindUint16:
		return "Uint16"
	case KindInt32:
		return "Int32"
	case KindUint32:
		return "Uint32"
	case KindInt64:
		return "Int64"
	case KindUint64:
		return "Uint64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindChar:
		return "Char"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindTimestamp:
		return "Timestamp"
	case KindURI:
		return "URI"
	case KindObject:
		return "Object"
	case KindArray:
		return "Array"
	default:
		panic("Unknown Kind")
	}
}

func (k Kind) GoString() string {
	return k.String()
}

// IsSigned reports whether k is one of the signed integer kinds.
func (k Kind) IsSigned() bool {
	return k == KindInt8 || k == KindInt16 || k == KindInt32 || k == KindInt64
}

// IsUnsigned reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsigned() bool {
	return k == KindUint8 || k == KindUint16 || k == KindUint32 || k == KindUint64
}

// IsFloat reports whether k is KindFloat32 or KindFloat64.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// Value is an immutable TSON value: null, a typed scalar, an ordered
// object or an array. The zero Value is null.
//
// Values are built with the constructors in this package ([Null], [Int32],
// [String], [Object] and so on) or returned by [Parse].
type Value struct {
	kind    Kind
	bits    uint64 // bool, integers, floats and char, by kind
	str     string // string, bytes (as raw bytes) and uri text
	time    time.Time
	uri     *url.URL
	members []Member
	items   []Value
}

// Member is a single key/value pair in an object.
type Member struct {
	Key   string
	Value Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool returns a bool value.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

// Int8 returns an sbyte value.
func Int8(i int8) Value { return Value{kind: KindInt8, bits: uint64(int64(i))} }

// Uint8 returns a byte value.
func Uint8(u uint8) Value { return Value{kind: KindUint8, bits: uint64(u)} }

// Int16 returns a short value.
func Int16(i int16) Value { return Value{kind: KindInt16, bits: uint64(int64(i))} }

// Uint16 returns a ushort value.
func Uint16(u uint16) Value { return Value{kind: KindUint16, bits: uint64(u)} }

// Int32 returns an int value.
func Int32(i int32) Value { return Value{kind: KindInt32, bits: uint64(int64(i))} }

// Uint32 returns a uint value.
func Uint32(u uint32) Value { return Value{kind: KindUint32, bits: uint64(u)} }

// Int64 returns a long value.
func Int64(i int64) Value { return Value{kind: KindInt64, bits: uint64(i)} }

// Uint64 returns a ulong value.
func Uint64(u uint64) Value { return Value{kind: KindUint64, bits: u} }

// Float32 returns a float value.
func Float32(f float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(f))}
}

// Float64 returns a double value. The value is stored as given; rounding
// to 10 fractional digits happens when it is written.
func Float64(f float64) Value {
	return Value{kind: KindFloat64, bits: math.Float64bits(f)}
}

// Char returns a char value holding a single Unicode scalar. A surrogate
// half or a rune outside the Unicode range is replaced by U+FFFD.
func Char(r rune) Value {
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	return Value{kind: KindChar, bits: uint64(r)}
}

// String returns a string value. s is kept as given, but each byte that
// is not valid UTF-8 is written as "\ufffd", so such a value is not
// [Equal] to the one read back from its text.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bytes returns a bytes value. The slice is copied.
func Bytes(b []byte) Value { return Value{kind: KindBytes, str: string(b)} }

// Timestamp returns a datetime value. The text format carries 100ns
// precision, so t is truncated to that.
func Timestamp(t time.Time) Value {
	return Value{kind: KindTimestamp, time: t.Truncate(100 * time.Nanosecond)}
}

// URI returns a uri value. A nil u is null.
func URI(u *url.URL) Value {
	if u == nil {
		return Null()
	}
	c := *u
	return Value{kind: KindURI, uri: &c, str: c.String()}
}

// Object returns an object holding members in order. If a key is repeated
// the later value replaces the earlier one, keeping the earlier position.
func Object(members ...Member) Value {
	out := make([]Member, 0, len(members))
	index := make(map[string]int, len(members))
	for _, m := range members {
		if i, ok := index[m.Key]; ok {
			out[i].Value = m.Value
			continue
		}
		index[m.Key] = len(out)
		out = append(out, m)
	}
	return Value{kind: KindObject, members: out}
}

// Array returns an array holding items in order.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: append([]Value{}, items...)}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the payload of a bool value and false for anything else.
func (v Value) AsBool() bool { return v.kind == KindBool && v.bits != 0 }

// AsInt returns the payload of a signed integer value, widened to int64.
// ok is false for every other kind.
func (v Value) AsInt() (i int64, ok bool) {
	if !v.kind.IsSigned() {
		return 0, false
	}
	return int64(v.bits), true
}

// AsUint returns the payload of an unsigned integer value, widened to
// uint64. ok is false for every other kind.
func (v Value) AsUint() (u uint64, ok bool) {
	if !v.kind.IsUnsigned() {
		return 0, false
	}
	return v.bits, true
}

// AsFloat returns the payload of a float or double value as a float64.
func (v Value) AsFloat() (f float64, ok bool) {
	switch v.kind {
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.bits))), true
	case KindFloat64:
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

// AsChar returns the payload of a char value.
func (v Value) AsChar() (r rune, ok bool) {
	if v.kind != KindChar {
		return 0, false
	}
	return rune(v.bits), true
}

// AsString returns the payload of a string value.
func (v Value) AsString() (s string, ok bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsBytes returns a copy of the payload of a bytes value.
func (v Value) AsBytes() (b []byte, ok bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return []byte(v.str), true
}

// AsTime returns the payload of a datetime value.
func (v Value) AsTime() (t time.Time, ok bool) {
	if v.kind != KindTimestamp {
		return time.Time{}, false
	}
	return v.time, true
}

// AsURI returns a copy of the payload of a uri value.
func (v Value) AsURI() (u *url.URL, ok bool) {
	if v.kind != KindURI {
		return nil, false
	}
	c := *v.uri
	return &c, true
}

// Members returns the members of an object in order, or nil.
func (v Value) Members() []Member {
	if v.kind != KindObject {
		return nil
	}
	return append([]Member{}, v.members...)
}

// Items returns the items of an array in order, or nil.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return append([]Value{}, v.items...)
}

// Len returns the number of members of an object or items of an array,
// and 0 for scalars.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.members)
	case KindArray:
		return len(v.items)
	}
	return 0
}

// Get returns the member of an object with the given key.
func (v Value) Get(key string) (Value, bool) {
	for _, m := range v.members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Value{}, false
}

// Index returns the i'th item of an array, or null if i is out of range.
func (v Value) Index(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}
	}
	return v.items[i]
}

// String returns the canonical TSON text for v.
//
// A datetime with a year outside 0..9999 is still written, but the text
// will not parse. [Marshal] reports [ErrTimestampRange] instead.
func (v Value) String() string {
	var b bytes.Buffer
	_ = writeValue(&b, v)
	return b.String()
}

// Equal reports whether a and b are structurally equal: the same kind,
// the same payload (NaN equals NaN), and pairwise-equal members in the
// same order or items.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindFloat32, KindFloat64:
		fa, _ := a.AsFloat()
		fb, _ := b.AsFloat()
		return a.bits == b.bits || (math.IsNaN(fa) && math.IsNaN(fb)) || fa == fb
	case KindString, KindBytes, KindURI:
		return a.str == b.str
	case KindTimestamp:
		_, oa := a.time.Zone()
		_, ob := b.time.Zone()
		return a.time.Equal(b.time) && oa == ob
	case KindObject:
		if len(a.members) != len(b.members) {
			return false
		}
		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	default:
		return a.bits == b.bits
	}
}
