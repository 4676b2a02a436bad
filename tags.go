package tson

// The type tags of the text format. The table is fixed at compile time
// and never written, so it is safe to share between goroutines.
var tagKinds = map[string]Kind{
	"null":     KindNull,
	"bool":     KindBool,
	"sbyte":    KindInt8,
	"byte":     KindUint8,
	"short":    KindInt16,
	"ushort":   KindUint16,
	"int":      KindInt32,
	"uint":     KindUint32,
	"long":     KindInt64,
	"ulong":    KindUint64,
	"float":    KindFloat32,
	"double":   KindFloat64,
	"char":     KindChar,
	"string":   KindString,
	"bytes":    KindBytes,
	"datetime": KindTimestamp,
	"uri":      KindURI,
}

var kindTags = func() [KindArray + 1]string {
	var tags [KindArray + 1]string
	for tag, kind := range tagKinds {
		tags[kind] = tag
	}
	return tags
}()

// Tag returns the text-format tag for k, such as "int" for [KindInt32].
// Objects and arrays have no tag and return "".
func (k Kind) Tag() string {
	if k < 0 || int(k) >= len(kindTags) {
		return ""
	}
	return kindTags[k]
}

// KindOf returns the kind identified by a text-format tag.
func KindOf(tag string) (Kind, bool) {
	k, ok := tagKinds[tag]
	return k, ok
}

// quoted reports whether the payload for k is a quoted string.
func (k Kind) quoted() bool {
	switch k {
	case KindString, KindChar, KindBytes, KindTimestamp, KindURI:
		return true
	}
	return false
}
