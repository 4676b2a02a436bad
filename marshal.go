package tson

import (
	"bytes"
	"encoding"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unsafe"
)

// ErrCycle is returned (wrapped) by [Marshal] when a value refers back to
// one of the values that contain it.
var ErrCycle = errors.New("tson: self-referencing loop detected")

// An UnsupportedTypeError is returned by [Marshal] when a value of a type
// with no TSON representation, such as a channel or a func, is reached.
type UnsupportedTypeError struct {
	Type reflect.Type
	Path string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("tson: unsupported type %s", e.Type)
	}
	return fmt.Sprintf("tson: unsupported type %s at %s", e.Type, e.Path)
}

// Marshaler is implemented by types that build their own TSON value.
type Marshaler interface {
	MarshalTSON() (Value, error)
}

// Field describes one member of a [Describer].
type Field struct {
	// Name is the member name, used as the key unless Rename is set.
	Name string
	// Rename, if not empty, replaces Name as the key.
	Rename string
	// Ignore drops the member.
	Ignore bool
	// Private members are only written with IncludeNonPublicMembers.
	Private bool
	// Value is encoded like any other Go value.
	Value any
}

// Describer is implemented by types that list their own members instead of
// having them discovered by reflection. Members are written in the order
// returned.
type Describer interface {
	DescribeTSON() []Field
}

// MarshalOptions configures how Go values are turned into TSON.
// The zero value writes canonical text, skips members that are null, and
// skips unexported struct fields.
type MarshalOptions struct {
	// IncludeNullMembers writes struct and Describer members whose value
	// is null as null() instead of leaving them out.
	IncludeNullMembers bool

	// IncludeNonPublicMembers writes unexported struct fields and private
	// Describer members.
	IncludeNonPublicMembers bool

	// Indent formats the output with [Format].
	Indent bool
}

// Marshal converts a go value to canonical TSON text.
//
// Go types map onto the value tags as follows: bool is bool; int8, uint8,
// int16, uint16, int32, uint32, int64 and uint64 are sbyte, byte, short,
// ushort, int, uint, long and ulong; int and uint are long and ulong;
// float32 and float64 are float and double; string is string; []byte is
// bytes; [time.Time] is datetime; [url.URL] is uri. Slices and arrays
// become arrays, and maps and structs become objects. A [Value] is written
// as is.
//
// Struct fields are named by a `tson:"name"` tag, then a `json:"name"`
// tag, then the field name. The tag `tson:"-"` skips the field, the option
// omitempty skips zero values, and the option char writes an int32 field
// as a char.
//
// It returns an error if the value could not be marshaled (for example if
// it contains a channel or a func, or refers to itself). Nothing is
// written in that case.
func Marshal(v any) ([]byte, error) {
	return MarshalOptions{}.Marshal(v)
}

// MarshalIndent is like [Marshal] but formats the output with [Format].
func MarshalIndent(v any) ([]byte, error) {
	return MarshalOptions{Indent: true}.Marshal(v)
}

// Marshal converts a go value to TSON text using the options in o.
func (o MarshalOptions) Marshal(v any) ([]byte, error) {
	val, err := o.ToValue(v)
	if err != nil {
		return nil, err
	}
	var b bytes.Buffer
	if err := writeValue(&b, val); err != nil {
		return nil, err
	}
	if o.Indent {
		return []byte(Format(b.String())), nil
	}
	return b.Bytes(), nil
}

// ValueOf converts a go value to a [Value] with the default options.
func ValueOf(v any) (Value, error) {
	return MarshalOptions{}.ToValue(v)
}

// ToValue converts a go value to a [Value] using the options in o.
func (o MarshalOptions) ToValue(v any) (Value, error) {
	e := &encodeState{opts: o, ancestors: map[visit]struct{}{}}
	return e.encode(reflect.ValueOf(v), false)
}

var (
	valueType         = reflect.TypeFor[Value]()
	timeType          = reflect.TypeFor[time.Time]()
	urlType           = reflect.TypeFor[url.URL]()
	marshalerType     = reflect.TypeFor[Marshaler]()
	describerType     = reflect.TypeFor[Describer]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// visit identifies a pointer, map or slice on the encode stack.
type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

type encodeState struct {
	opts      MarshalOptions
	ancestors map[visit]struct{}
	path      []string
}

// pathString returns the location being encoded, in the same form as
// [BindError.Path]: ".a.b[0]", or "" at the root.
func (e *encodeState) pathString() string {
	return strings.Join(e.path, "")
}

// wrap prefixes err with the location being encoded.
func (e *encodeState) wrap(err error) error {
	if len(e.path) == 0 {
		return fmt.Errorf("tson: %w", err)
	}
	return fmt.Errorf("tson: %s: %w", e.pathString(), err)
}

// enter records v as an ancestor of everything encoded until the returned
// func is called.
func (e *encodeState) enter(v reflect.Value) (func(), error) {
	key := visit{ptr: v.Pointer(), typ: v.Type()}
	if v.Kind() == reflect.Slice {
		key.len = v.Len()
	}
	if _, ok := e.ancestors[key]; ok {
		return nil, fmt.Errorf("%w: %s refers to an enclosing %s", ErrCycle, e.pathString(), v.Type())
	}
	e.ancestors[key] = struct{}{}
	return func() { delete(e.ancestors, key) }, nil
}

func (e *encodeState) encode(v reflect.Value, asChar bool) (Value, error) {
	if !v.IsValid() {
		return Null(), nil
	}

	switch v.Type() {
	case valueType:
		return v.Interface().(Value), nil
	case timeType:
		t := v.Interface().(time.Time)
		if err := checkTimestamp(t); err != nil {
			if len(e.path) > 0 {
				err = fmt.Errorf("%w at %s", err, e.pathString())
			}
			return Null(), err
		}
		return Timestamp(t), nil
	case urlType:
		u := v.Interface().(url.URL)
		return URI(&u), nil
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return Null(), nil
		}
	}

	if val, ok, err := e.hooks(v); ok {
		return val, err
	}

	switch v.Kind() {
	case reflect.Interface:
		return e.encode(v.Elem(), asChar)
	case reflect.Pointer:
		leave, err := e.enter(v)
		if err != nil {
			return Null(), err
		}
		defer leave()
		return e.encode(v.Elem(), asChar)
	case reflect.Bool:
		return Bool(v.Bool()), nil
	case reflect.Int8:
		return Int8(int8(v.Int())), nil
	case reflect.Int16:
		return Int16(int16(v.Int())), nil
	case reflect.Int32:
		if asChar {
			return Char(rune(v.Int())), nil
		}
		return Int32(int32(v.Int())), nil
	case reflect.Int, reflect.Int64:
		return Int64(v.Int()), nil
	case reflect.Uint8:
		return Uint8(uint8(v.Uint())), nil
	case reflect.Uint16:
		return Uint16(uint16(v.Uint())), nil
	case reflect.Uint32:
		return Uint32(uint32(v.Uint())), nil
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return Uint64(v.Uint()), nil
	case reflect.Float32:
		return Float32(float32(v.Float())), nil
	case reflect.Float64:
		return Float64(v.Float()), nil
	case reflect.String:
		return String(v.String()), nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(v.Bytes()), nil
		}
		leave, err := e.enter(v)
		if err != nil {
			return Null(), err
		}
		defer leave()
		return e.encodeItems(v)
	case reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, v.Len())
			for i := range b {
				b[i] = byte(v.Index(i).Uint())
			}
			return Bytes(b), nil
		}
		return e.encodeItems(v)
	case reflect.Map:
		leave, err := e.enter(v)
		if err != nil {
			return Null(), err
		}
		defer leave()
		return e.encodeMap(v)
	case reflect.Struct:
		return e.encodeStruct(v)
	}
	return Null(), &UnsupportedTypeError{Type: v.Type(), Path: e.pathString()}
}

// hooks handles types that implement Marshaler, Describer or
// encoding.TextMarshaler, directly or through a pointer.
func (e *encodeState) hooks(v reflect.Value) (Value, bool, error) {
	t := v.Type()
	if !v.CanInterface() || v.Kind() == reflect.Interface {
		return Null(), false, nil
	}
	if v.Kind() == reflect.Pointer {
		switch t.Elem() {
		case valueType, timeType, urlType:
			return Null(), false, nil
		}
	}
	if !t.Implements(marshalerType) && !t.Implements(describerType) && !t.Implements(textMarshalerType) {
		if !v.CanAddr() {
			return Null(), false, nil
		}
		v = v.Addr()
	}

	switch x := v.Interface().(type) {
	case Marshaler:
		val, err := x.MarshalTSON()
		if err != nil {
			return Null(), true, e.wrap(err)
		}
		return val, true, nil
	case Describer:
		val, err := e.encodeDescriber(v, x.DescribeTSON())
		return val, true, err
	case encoding.TextMarshaler:
		text, err := x.MarshalText()
		if err != nil {
			return Null(), true, e.wrap(err)
		}
		return String(string(text)), true, nil
	}
	return Null(), false, nil
}

func (e *encodeState) encodeDescriber(v reflect.Value, fields []Field) (Value, error) {
	if v.Kind() == reflect.Pointer {
		leave, err := e.enter(v)
		if err != nil {
			return Null(), err
		}
		defer leave()
	}

	members := make([]Member, 0, len(fields))
	for _, f := range fields {
		if f.Ignore || f.Private && !e.opts.IncludeNonPublicMembers {
			continue
		}
		name := f.Name
		if f.Rename != "" {
			name = f.Rename
		}
		e.path = append(e.path, "."+name)
		val, err := e.encode(reflect.ValueOf(f.Value), false)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return Null(), err
		}
		if val.IsNull() && !e.opts.IncludeNullMembers {
			continue
		}
		members = append(members, Member{Key: name, Value: val})
	}
	return Object(members...), nil
}

func (e *encodeState) encodeItems(v reflect.Value) (Value, error) {
	items := make([]Value, v.Len())
	for i := range v.Len() {
		e.path = append(e.path, "["+strconv.Itoa(i)+"]")
		val, err := e.encode(v.Index(i), false)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return Null(), err
		}
		items[i] = val
	}
	return Value{kind: KindArray, items: items}, nil
}

func (e *encodeState) encodeMap(v reflect.Value) (Value, error) {
	members := make([]Member, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		key, err := e.mapKey(iter.Key())
		if err != nil {
			return Null(), err
		}
		e.path = append(e.path, "["+strconv.Quote(key)+"]")
		val, err := e.encode(iter.Value(), false)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return Null(), err
		}
		members = append(members, Member{Key: key, Value: val})
	}
	slices.SortFunc(members, func(a, b Member) int {
		return strings.Compare(a.Key, b.Key)
	})
	return Value{kind: KindObject, members: members}, nil
}

func (e *encodeState) mapKey(k reflect.Value) (string, error) {
	if k.Kind() == reflect.String {
		return k.String(), nil
	}
	if m, ok := k.Interface().(encoding.TextMarshaler); ok {
		if k.Kind() == reflect.Pointer && k.IsNil() {
			return "", nil
		}
		text, err := m.MarshalText()
		if err != nil {
			return "", e.wrap(err)
		}
		return string(text), nil
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(k.Uint(), 10), nil
	}
	return "", &UnsupportedTypeError{Type: k.Type(), Path: e.pathString()}
}

func (e *encodeState) encodeStruct(v reflect.Value) (Value, error) {
	if !v.CanAddr() {
		c := reflect.New(v.Type()).Elem()
		c.Set(v)
		v = c
	}

	fields := cachedFields(v.Type())
	members := make([]Member, 0, len(fields))
	for _, f := range fields {
		if !f.exported && !e.opts.IncludeNonPublicMembers {
			continue
		}
		fv := v.Field(f.index)
		if !f.exported {
			fv = exposed(fv)
		}
		if f.omitEmpty && fv.IsZero() {
			continue
		}
		e.path = append(e.path, "."+f.name)
		val, err := e.encode(fv, f.char)
		e.path = e.path[:len(e.path)-1]
		if err != nil {
			return Null(), err
		}
		if val.IsNull() && !e.opts.IncludeNullMembers {
			continue
		}
		members = append(members, Member{Key: f.name, Value: val})
	}
	return Value{kind: KindObject, members: members}, nil
}

// exposed returns a view of an addressable unexported field that can be
// read and written like an exported one.
func exposed(v reflect.Value) reflect.Value {
	return reflect.NewAt(v.Type(), unsafe.Pointer(v.UnsafeAddr())).Elem()
}

type field struct {
	name      string
	index     int
	exported  bool
	tagged    bool
	omitEmpty bool
	char      bool
}

var fieldCache sync.Map // map[reflect.Type][]field

// cachedFields lists the fields of a struct type that take part in
// marshaling, in declaration order.
func cachedFields(t reflect.Type) []field {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]field)
	}
	var fields []field
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, ok := sf.Tag.Lookup("tson")
		if !ok {
			tag, ok = sf.Tag.Lookup("json")
		}
		if tag == "-" {
			continue
		}
		name, options, _ := strings.Cut(tag, ",")
		f := field{
			name:     name,
			index:    i,
			exported: sf.IsExported(),
			tagged:   ok && name != "",
		}
		if f.name == "" {
			f.name = sf.Name
		}
		for _, opt := range strings.Split(options, ",") {
			switch opt {
			case "omitempty":
				f.omitEmpty = true
			case "char":
				f.char = true
			}
		}
		fields = append(fields, f)
	}
	f, _ := fieldCache.LoadOrStore(t, fields)
	return f.([]field)
}

func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			result.WriteRune('_')
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}
