package tson

import (
	"encoding"
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
)

// Unmarshaler is implemented by types that bind themselves from a parsed
// TSON value.
type Unmarshaler interface {
	UnmarshalTSON(Value) error
}

// A BindError reports a member that could not be assigned while binding a
// value onto a go value. Path locates the member, for example
// ".children[2].name".
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return e.Path + ": " + e.Err.Error()
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// UnmarshalOptions configures how TSON values are bound onto Go values.
type UnmarshalOptions struct {
	// IncludeNonPublicMembers also assigns unexported struct fields.
	IncludeNonPublicMembers bool

	// DisallowUnknownMembers reports object members that match no field.
	// By default they are ignored.
	DisallowUnknownMembers bool
}

// Unmarshal updates the value v with the data from the TSON document.
// v should be a non-nil pointer to a struct, slice, map, interface, array.
// Unmarshal acts similarly to json.Unmarshal.
//
// For struct fields, TSON will first look for the name in a `tson:"name"`
// tag, then in a `json:"name"` tag, and finally use the field name itself
// or its snake_case version.
//
// Integers bind into any integer field whose range holds them, and integers
// and floats bind into float fields. A null value leaves the target as it
// was, so defaults set before the call are kept.
//
// When unmarshalling into an interface, objects become map[string]any,
// arrays become []any, and scalars become the Go type of their tag.
//
// If the document is invalid the error is a *SyntaxError. Otherwise every
// member that could not be bound is reported, as a *BindError, in one
// joined error.
func Unmarshal(data []byte, v any) error {
	return UnmarshalOptions{}.Unmarshal(data, v)
}

// UnmarshalTo parses a TSON document into a new value of type T.
func UnmarshalTo[T any](data []byte) (T, error) {
	var t T
	err := Unmarshal(data, &t)
	return t, err
}

// Unmarshal parses data and binds it onto v using the options in o.
func (o UnmarshalOptions) Unmarshal(data []byte, v any) error {
	if err := checkTarget(v); err != nil {
		return err
	}
	root, err := Parse(string(data))
	if err != nil {
		return err
	}
	return o.Bind(root, v)
}

// Bind assigns an already parsed value onto v, which must be a non-nil
// pointer.
func (o UnmarshalOptions) Bind(val Value, v any) error {
	if err := checkTarget(v); err != nil {
		return err
	}
	d := &decodeState{opts: o}
	d.bind("", val, reflect.ValueOf(v).Elem())
	return errors.Join(d.errs...)
}

func checkTarget(v any) error {
	value := reflect.ValueOf(v)
	if value.Kind() != reflect.Pointer || value.IsNil() {
		return fmt.Errorf("invalid target, must be a non-nil pointer")
	}
	return nil
}

type decodeState struct {
	opts UnmarshalOptions
	errs []error
}

func (d *decodeState) fail(path string, err error) {
	d.errs = append(d.errs, &BindError{Path: path, Err: err})
}

func (d *decodeState) mismatch(path string, val Value, t reflect.Type) {
	name := val.Kind().Tag()
	switch val.Kind() {
	case KindObject:
		name = "object"
	case KindArray:
		name = "array"
	}
	d.fail(path, fmt.Errorf("cannot bind %s to %s", name, t))
}

var (
	unmarshalerType     = reflect.TypeFor[Unmarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

func (d *decodeState) bind(path string, val Value, v reflect.Value) {
	if val.IsNull() {
		return
	}
	t := v.Type()

	if v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(unmarshalerType) {
		if err := v.Addr().Interface().(Unmarshaler).UnmarshalTSON(val); err != nil {
			d.fail(path, err)
		}
		return
	}

	switch t {
	case valueType:
		v.Set(reflect.ValueOf(val))
		return
	case timeType:
		if tm, ok := val.AsTime(); ok {
			v.Set(reflect.ValueOf(tm))
			return
		}
		d.mismatch(path, val, t)
		return
	case urlType:
		if u, ok := val.AsURI(); ok {
			v.Set(reflect.ValueOf(*u))
			return
		}
		if s, ok := val.AsString(); ok {
			u, err := url.Parse(s)
			if err != nil {
				d.fail(path, err)
				return
			}
			v.Set(reflect.ValueOf(*u))
			return
		}
		d.mismatch(path, val, t)
		return
	}

	if s, ok := val.AsString(); ok && v.Kind() != reflect.Pointer && v.CanAddr() && reflect.PointerTo(t).Implements(textUnmarshalerType) {
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			d.fail(path, err)
		}
		return
	}

	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			v.Set(reflect.New(t.Elem()))
		}
		d.bind(path, val, v.Elem())
	case reflect.Interface:
		if t.NumMethod() == 0 {
			v.Set(reflect.ValueOf(natural(val)))
		} else if valueType.Implements(t) {
			v.Set(reflect.ValueOf(val))
		} else {
			d.mismatch(path, val, t)
		}
	case reflect.Bool:
		if val.Kind() != KindBool {
			d.mismatch(path, val, t)
			return
		}
		v.SetBool(val.AsBool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d.bindInt(path, val, v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		d.bindUint(path, val, v)
	case reflect.Float32, reflect.Float64:
		f, ok := val.AsFloat()
		if !ok {
			if i, isInt := val.AsInt(); isInt {
				f, ok = float64(i), true
			} else if u, isUint := val.AsUint(); isUint {
				f, ok = float64(u), true
			}
		}
		if !ok {
			d.mismatch(path, val, t)
			return
		}
		if v.OverflowFloat(f) {
			d.fail(path, fmt.Errorf("invalid %s: %v", t, f))
			return
		}
		v.SetFloat(f)
	case reflect.String:
		if s, ok := val.AsString(); ok {
			v.SetString(s)
		} else if r, ok := val.AsChar(); ok {
			v.SetString(string(r))
		} else {
			d.mismatch(path, val, t)
		}
	case reflect.Slice:
		d.bindSlice(path, val, v)
	case reflect.Array:
		d.bindArray(path, val, v)
	case reflect.Map:
		d.bindMap(path, val, v)
	case reflect.Struct:
		d.bindStruct(path, val, v)
	default:
		d.fail(path, fmt.Errorf("unsupported type: %v", t))
	}
}

func (d *decodeState) bindInt(path string, val Value, v reflect.Value) {
	var i int64
	if n, ok := val.AsInt(); ok {
		i = n
	} else if u, ok := val.AsUint(); ok {
		if u > math.MaxInt64 {
			d.fail(path, fmt.Errorf("invalid %s: %v", v.Type(), u))
			return
		}
		i = int64(u)
	} else if r, ok := val.AsChar(); ok {
		i = int64(r)
	} else {
		d.mismatch(path, val, v.Type())
		return
	}
	if v.OverflowInt(i) {
		d.fail(path, fmt.Errorf("invalid %s: %v", v.Type(), i))
		return
	}
	v.SetInt(i)
}

func (d *decodeState) bindUint(path string, val Value, v reflect.Value) {
	var u uint64
	if n, ok := val.AsUint(); ok {
		u = n
	} else if i, ok := val.AsInt(); ok {
		if i < 0 {
			d.fail(path, fmt.Errorf("invalid %s: %v", v.Type(), i))
			return
		}
		u = uint64(i)
	} else {
		d.mismatch(path, val, v.Type())
		return
	}
	if v.OverflowUint(u) {
		d.fail(path, fmt.Errorf("invalid %s: %v", v.Type(), u))
		return
	}
	v.SetUint(u)
}

func (d *decodeState) bindSlice(path string, val Value, v reflect.Value) {
	t := v.Type()
	if t.Elem().Kind() == reflect.Uint8 {
		b, ok := val.AsBytes()
		if !ok {
			d.mismatch(path, val, t)
			return
		}
		v.Set(reflect.ValueOf(b).Convert(t))
		return
	}
	if val.Kind() != KindArray {
		d.mismatch(path, val, t)
		return
	}
	s := reflect.MakeSlice(t, len(val.items), len(val.items))
	for i, item := range val.items {
		d.bind(path+"["+strconv.Itoa(i)+"]", item, s.Index(i))
	}
	v.Set(s)
}

func (d *decodeState) bindArray(path string, val Value, v reflect.Value) {
	t := v.Type()
	if t.Elem().Kind() == reflect.Uint8 {
		b, ok := val.AsBytes()
		if !ok {
			d.mismatch(path, val, t)
			return
		}
		if len(b) != v.Len() {
			d.fail(path, fmt.Errorf("expected %d bytes, got %d", v.Len(), len(b)))
			return
		}
		for i, c := range b {
			v.Index(i).SetUint(uint64(c))
		}
		return
	}
	if val.Kind() != KindArray {
		d.mismatch(path, val, t)
		return
	}
	if len(val.items) > v.Len() {
		d.fail(path, fmt.Errorf("too many elements, limit %d", v.Len()))
		return
	}
	for i, item := range val.items {
		d.bind(path+"["+strconv.Itoa(i)+"]", item, v.Index(i))
	}
}

func (d *decodeState) bindMap(path string, val Value, v reflect.Value) {
	t := v.Type()
	if val.Kind() != KindObject {
		d.mismatch(path, val, t)
		return
	}
	if v.IsNil() {
		v.Set(reflect.MakeMap(t))
	}
	for _, m := range val.members {
		memberPath := path + "[" + strconv.Quote(m.Key) + "]"
		key, err := mapKey(m.Key, t.Key())
		if err != nil {
			d.fail(memberPath, fmt.Errorf("invalid key: %w", err))
			continue
		}
		elem := reflect.New(t.Elem()).Elem()
		d.bind(memberPath, m.Value, elem)
		v.SetMapIndex(key, elem)
	}
}

func mapKey(s string, t reflect.Type) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshalerType) {
		key := reflect.New(t)
		if err := key.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return reflect.Value{}, err
		}
		return key.Elem(), nil
	}
	key := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		key.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		key.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, err
		}
		key.SetUint(u)
	default:
		return reflect.Value{}, fmt.Errorf("unsupported map key type: %s", t)
	}
	return key, nil
}

func (d *decodeState) bindStruct(path string, val Value, v reflect.Value) {
	t := v.Type()
	if val.Kind() != KindObject {
		d.mismatch(path, val, t)
		return
	}

	// Tagged names win over field names, which win over snake_case aliases.
	fieldMap := make(map[string]field)
	var untagged []field
	for _, f := range cachedFields(t) {
		if !f.exported && !d.opts.IncludeNonPublicMembers {
			continue
		}
		if f.tagged {
			fieldMap[f.name] = f
		} else {
			untagged = append(untagged, f)
		}
	}
	for _, f := range untagged {
		if _, ok := fieldMap[f.name]; !ok {
			fieldMap[f.name] = f
		}
	}
	for _, f := range untagged {
		if _, ok := fieldMap[toSnakeCase(f.name)]; !ok {
			fieldMap[toSnakeCase(f.name)] = f
		}
	}

	for _, m := range val.members {
		memberPath := path + "." + m.Key
		f, ok := fieldMap[m.Key]
		if !ok {
			if d.opts.DisallowUnknownMembers {
				d.fail(memberPath, fmt.Errorf("unknown field %s", m.Key))
			}
			continue
		}
		fv := v.Field(f.index)
		if !f.exported {
			fv = exposed(fv)
		}
		if f.char && fv.Kind() == reflect.Int32 {
			if r, ok := m.Value.AsChar(); ok {
				fv.SetInt(int64(r))
				continue
			}
		}
		d.bind(memberPath, m.Value, fv)
	}
}

// natural converts a value to the plain go value used for interface
// targets.
func natural(val Value) any {
	switch val.kind {
	case KindNull:
		return nil
	case KindBool:
		return val.AsBool()
	case KindInt8:
		return int8(val.bits)
	case KindUint8:
		return uint8(val.bits)
	case KindInt16:
		return int16(val.bits)
	case KindUint16:
		return uint16(val.bits)
	case KindInt32:
		return int32(val.bits)
	case KindUint32:
		return uint32(val.bits)
	case KindInt64:
		return int64(val.bits)
	case KindUint64:
		return val.bits
	case KindFloat32:
		return math.Float32frombits(uint32(val.bits))
	case KindFloat64:
		return math.Float64frombits(val.bits)
	case KindChar:
		return rune(val.bits)
	case KindString:
		return val.str
	case KindBytes:
		return []byte(val.str)
	case KindTimestamp:
		return val.time
	case KindURI:
		u, _ := val.AsURI()
		return u
	case KindObject:
		m := make(map[string]any, len(val.members))
		for _, member := range val.members {
			m[member.Key] = natural(member.Value)
		}
		return m
	case KindArray:
		s := make([]any, len(val.items))
		for i, item := range val.items {
			s[i] = natural(item)
		}
		return s
	}
	return nil
}
