package tson_test

import (
	"math"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConradIrwin/tson-go"
)

func TestScenarios(t *testing.T) {
	v, err := tson.Parse(`{"a":string("hi")}`)
	require.NoError(t, err)
	s, ok := v.Get("a")
	require.True(t, ok)
	assert.True(t, tson.Equal(tson.String("hi"), s))
	assert.Equal(t, `{"a":string("hi")}`, v.String())

	spaced, err := tson.Parse(`{ "a": int(1000) }`)
	require.NoError(t, err)
	compact, err := tson.Parse(`{"a":int(1000)}`)
	require.NoError(t, err)
	assert.True(t, tson.Equal(spaced, compact))
	assert.True(t, tson.Equal(tson.Object(tson.Member{Key: "a", Value: tson.Int32(1000)}), spaced))

	v, err = tson.Parse(`{"a":bytes("AAQABA==")}`)
	require.NoError(t, err)
	b, _ := v.Get("a")
	raw, ok := b.AsBytes()
	require.True(t, ok)
	assert.Equal(t, []byte{0, 4, 0, 4}, raw)

	v, err = tson.Parse(`[byte(255)]`)
	require.NoError(t, err)
	assert.Equal(t, tson.KindUint8, v.Index(0).Kind())
	assert.Equal(t, `[byte(255)]`, v.String())

	v, err = tson.Parse(`{"a":weirdtag(123),"b":int(2)}`)
	require.NoError(t, err)
	a, ok := v.Get("a")
	require.True(t, ok)
	assert.True(t, a.IsNull())
	assert.Equal(t, 2, v.Len())
}

func TestValueAccessors(t *testing.T) {
	assert.True(t, tson.Null().IsNull())
	assert.True(t, tson.Value{}.IsNull())
	assert.True(t, tson.URI(nil).IsNull())
	assert.True(t, tson.Bool(true).AsBool())
	assert.False(t, tson.Int32(1).AsBool())

	i, ok := tson.Int16(-3).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(-3), i)
	_, ok = tson.Uint16(3).AsInt()
	assert.False(t, ok)

	u, ok := tson.Uint32(math.MaxUint32).AsUint()
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint32), u)

	f, ok := tson.Float32(0.25).AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 0.25, f)

	r, ok := tson.Char('é').AsChar()
	assert.True(t, ok)
	assert.Equal(t, 'é', r)

	r, _ = tson.Char(0xd800).AsChar()
	assert.Equal(t, '\ufffd', r)
	r, _ = tson.Char(-1).AsChar()
	assert.Equal(t, '\ufffd', r)

	when := time.Date(2024, time.November, 1, 16, 0, 0, 123456789, time.UTC)
	ts, ok := tson.Timestamp(when).AsTime()
	assert.True(t, ok)
	assert.Equal(t, when.Truncate(100*time.Nanosecond), ts)

	link, _ := url.Parse("https://example.com")
	got, ok := tson.URI(link).AsURI()
	assert.True(t, ok)
	got.Path = "/changed"
	assert.Equal(t, "https://example.com", link.String())

	arr := tson.Array(tson.Int8(1), tson.Int8(2))
	assert.Equal(t, 2, arr.Len())
	assert.True(t, arr.Index(5).IsNull())
	assert.Len(t, arr.Items(), 2)
	assert.Nil(t, arr.Members())
}

func TestObjectDuplicates(t *testing.T) {
	obj := tson.Object(
		tson.Member{Key: "a", Value: tson.Int32(1)},
		tson.Member{Key: "b", Value: tson.Int32(2)},
		tson.Member{Key: "a", Value: tson.Int32(3)},
	)
	assert.Equal(t, `{"a":int(3),"b":int(2)}`, obj.String())
}

func TestEqual(t *testing.T) {
	assert.True(t, tson.Equal(tson.Float64(math.NaN()), tson.Float64(math.NaN())))
	assert.False(t, tson.Equal(tson.Int32(1), tson.Int64(1)))
	assert.False(t, tson.Equal(
		tson.Object(tson.Member{Key: "a", Value: tson.Null()}, tson.Member{Key: "b", Value: tson.Null()}),
		tson.Object(tson.Member{Key: "b", Value: tson.Null()}, tson.Member{Key: "a", Value: tson.Null()}),
	))

	utc := time.Date(2024, time.November, 1, 16, 0, 0, 0, time.UTC)
	assert.False(t, tson.Equal(tson.Timestamp(utc), tson.Timestamp(utc.In(time.FixedZone("", 3600)))))
}

func TestInvalidUnicode(t *testing.T) {
	c := tson.Char(0x110000)
	assert.Equal(t, `char("\ufffd")`, c.String())
	back, err := tson.Parse(`[` + c.String() + `]`)
	require.NoError(t, err)
	assert.True(t, tson.Equal(c, back.Index(0)))

	s := tson.String("a\xffb")
	assert.Equal(t, `string("a\ufffdb")`, s.String())
	back, err = tson.Parse(`[` + s.String() + `]`)
	require.NoError(t, err)
	got, _ := back.Index(0).AsString()
	assert.Equal(t, "a\ufffdb", got)
	assert.False(t, tson.Equal(s, back.Index(0)))
}

func TestKindTags(t *testing.T) {
	for tag, kind := range map[string]tson.Kind{
		"string": tson.KindString, "bool": tson.KindBool, "int": tson.KindInt32,
		"byte": tson.KindUint8, "sbyte": tson.KindInt8, "short": tson.KindInt16,
		"ushort": tson.KindUint16, "uint": tson.KindUint32, "long": tson.KindInt64,
		"ulong": tson.KindUint64, "float": tson.KindFloat32, "double": tson.KindFloat64,
		"char": tson.KindChar, "bytes": tson.KindBytes, "datetime": tson.KindTimestamp,
		"uri": tson.KindURI, "null": tson.KindNull,
	} {
		got, ok := tson.KindOf(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, kind, got, tag)
		assert.Equal(t, tag, kind.Tag())
	}
	_, ok := tson.KindOf("weirdtag")
	assert.False(t, ok)
	assert.Equal(t, "", tson.KindObject.Tag())
}
