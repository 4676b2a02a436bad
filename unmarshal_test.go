package tson_test

import (
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConradIrwin/tson-go"
)

type settings struct {
	Theme string `tson:"theme"`
	Debug bool   `tson:"debug"`
}

func TestUnmarshal(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		target   any
		expected any
		wantErr  bool
	}{
		{
			name:     "basic string map",
			input:    `{"name":string("John"),"age":"30"}`,
			target:   &map[string]string{},
			expected: map[string]string{"name": "John", "age": "30"},
		},
		{
			name:   "nested map",
			input:  `{"user":{"name":"John"},"settings":{"theme":"dark"}}`,
			target: &map[string]map[string]string{},
			expected: map[string]map[string]string{
				"user":     {"name": "John"},
				"settings": {"theme": "dark"},
			},
		},
		{
			name:  "mixed types struct",
			input: `{"name":"John","age":byte(30),"active":bool(true),"score":double(95.5),"tags":["developer","golang"],"snake_case":long(1)}`,
			target: &struct {
				Name      string
				Age       int
				Active    bool
				Score     float64
				Tags      []string
				SnakeCase int64
			}{},
			expected: struct {
				Name      string
				Age       int
				Active    bool
				Score     float64
				Tags      []string
				SnakeCase int64
			}{
				Name:      "John",
				Age:       30,
				Active:    true,
				Score:     95.5,
				Tags:      []string{"developer", "golang"},
				SnakeCase: 1,
			},
		},
		{
			name:     "struct pointer",
			input:    `{"theme":"dark","debug":bool(true)}`,
			target:   new(*settings),
			expected: &settings{Theme: "dark", Debug: true},
		},
		{
			name:    "string into int",
			input:   `{"Age":"not a number"}`,
			target:  &struct{ Age int }{},
			wantErr: true,
		},
		{
			name:    "overflow",
			input:   `{"Age":long(300)}`,
			target:  &struct{ Age uint8 }{},
			wantErr: true,
		},
		{
			name:    "negative into unsigned",
			input:   `{"Age":int(-1)}`,
			target:  &struct{ Age uint }{},
			wantErr: true,
		},
		{
			name:    "nil pointer",
			input:   `{"test":"value"}`,
			target:  nil,
			wantErr: true,
		},
		{
			name:     "escaped strings",
			input:    `{"message":"Hello \"World\"","path":"C:\\Program Files"}`,
			target:   &map[string]string{},
			expected: map[string]string{"message": `Hello "World"`, "path": `C:\Program Files`},
		},
		{
			name:  "any",
			input: `{"users":[{"name":"Jane","age":int(25),"id":ulong(7),"ratio":float(0.5),"c":char("x")}],"none":null()}`,
			target: &map[string]any{},
			expected: map[string]any{
				"users": []any{
					map[string]any{"name": "Jane", "age": int32(25), "id": uint64(7), "ratio": float32(0.5), "c": 'x'},
				},
				"none": nil,
			},
		},
		{
			name:     "arrays",
			input:    `[int(1),int(2)]`,
			target:   &[3]int{9, 9, 9},
			expected: [3]int{1, 2, 9},
		},
		{
			name:    "too many elements",
			input:   `[int(1),int(2),int(3)]`,
			target:  &[2]int{},
			wantErr: true,
		},
		{
			name:     "int keys",
			input:    `{"1":"one","20":"twenty"}`,
			target:   &map[int]string{},
			expected: map[int]string{1: "one", 20: "twenty"},
		},
		{
			name:     "text keys and values",
			input:    `{"high":"low"}`,
			target:   &map[level]level{},
			expected: map[level]level{1: 0},
		},
		{
			name:     "unmarshaler",
			input:    `{"P":[int(3),int(4)]}`,
			target:   &struct{ P point }{},
			expected: struct{ P point }{P: point{3, 4}},
		},
		{
			name:     "widening",
			input:    `{"A":sbyte(-5),"B":byte(5),"C":int(7),"D":char("é")}`,
			target:   &struct{ A int64; B uint16; C float32; D string }{},
			expected: struct{ A int64; B uint16; C float32; D string }{A: -5, B: 5, C: 7, D: "é"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tson.Unmarshal([]byte(tt.input), tt.target)

			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}

			actual := reflect.ValueOf(tt.target).Elem().Interface()
			if !reflect.DeepEqual(actual, tt.expected) {
				t.Errorf("got %+v, want %+v", actual, tt.expected)
			}
		})
	}
}

func TestUnmarshalScalars(t *testing.T) {
	type record struct {
		When  time.Time
		Where url.URL
		Link  *url.URL
		Raw   []byte
		Key   [2]byte
		Char  rune `tson:",char"`
		Level level
	}
	var r record
	err := tson.Unmarshal([]byte(`{
		"When": datetime("2024-11-01T16:00:00.1234567Z"),
		"Where": uri("https://example.com/a"),
		"Link": "https://example.com/b",
		"Raw": bytes("AQID"),
		"Key": bytes("/wA="),
		"Char": char("x"),
		"Level": "high"
	}`), &r)
	require.NoError(t, err)

	assert.True(t, r.When.Equal(time.Date(2024, time.November, 1, 16, 0, 0, 123456700, time.UTC)))
	assert.Equal(t, "https://example.com/a", r.Where.String())
	require.NotNil(t, r.Link)
	assert.Equal(t, "https://example.com/b", r.Link.String())
	assert.Equal(t, []byte{1, 2, 3}, r.Raw)
	assert.Equal(t, [2]byte{0xff, 0}, r.Key)
	assert.Equal(t, 'x', r.Char)
	assert.Equal(t, level(1), r.Level)
}

func TestUnmarshalNullKeepsDefaults(t *testing.T) {
	target := struct {
		Name  string
		Count int
	}{Name: "default", Count: 3}

	require.NoError(t, tson.Unmarshal([]byte(`{"Name":null(),"Count":weirdtag(1)}`), &target))
	assert.Equal(t, "default", target.Name)
	assert.Equal(t, 3, target.Count)
}

func TestUnmarshalErrors(t *testing.T) {
	var target struct {
		A int
		B []uint16
		C struct{ D bool }
	}
	err := tson.Unmarshal([]byte(`{"A":"x","B":[int(1),int(-1)],"C":{"D":int(1)}}`), &target)
	require.Error(t, err)

	var berr *tson.BindError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, ".A", berr.Path)
	assert.Equal(t, ".A: cannot bind string to int\n.B[1]: invalid uint16: -1\n.C.D: cannot bind int to bool", err.Error())

	err = tson.Unmarshal([]byte(`{"A":`), &target)
	var serr *tson.SyntaxError
	require.ErrorAs(t, err, &serr)

	err = tson.Unmarshal([]byte(`{}`), target)
	assert.EqualError(t, err, "invalid target, must be a non-nil pointer")
}

func TestUnmarshalUnknownMembers(t *testing.T) {
	var target struct {
		Time time.Time `tson:"time"`
	}
	input := []byte(`{"tyme":datetime("2024-11-01T16:00:00Z")}`)

	require.NoError(t, tson.Unmarshal(input, &target))

	err := tson.UnmarshalOptions{DisallowUnknownMembers: true}.Unmarshal(input, &target)
	assert.EqualError(t, err, ".tyme: unknown field tyme")
}

func TestUnmarshalFieldPrecedence(t *testing.T) {
	var before struct {
		A    string `tson:"Name"`
		Name string
	}
	require.NoError(t, tson.Unmarshal([]byte(`{"Name":"x"}`), &before))
	assert.Equal(t, "x", before.A)
	assert.Empty(t, before.Name)

	var after struct {
		Name string
		A    string `tson:"Name"`
	}
	require.NoError(t, tson.Unmarshal([]byte(`{"Name":"x"}`), &after))
	assert.Equal(t, "x", after.A)
	assert.Empty(t, after.Name)

	var alias struct {
		UserName string
		Other    string `tson:"user_name"`
	}
	require.NoError(t, tson.Unmarshal([]byte(`{"user_name":"x","UserName":"y"}`), &alias))
	assert.Equal(t, "x", alias.Other)
	assert.Equal(t, "y", alias.UserName)
}

func TestUnmarshalNonPublic(t *testing.T) {
	type secret struct {
		Name  string
		token string
	}
	input := []byte(`{"Name":"n","token":"t"}`)

	var s secret
	require.NoError(t, tson.Unmarshal(input, &s))
	assert.Equal(t, secret{Name: "n"}, s)

	require.NoError(t, tson.UnmarshalOptions{IncludeNonPublicMembers: true}.Unmarshal(input, &s))
	assert.Equal(t, secret{Name: "n", token: "t"}, s)
}

func TestUnmarshalTo(t *testing.T) {
	s, err := tson.UnmarshalTo[settings]([]byte(`{"theme":"light","debug":bool(false)}`))
	require.NoError(t, err)
	assert.Equal(t, settings{Theme: "light"}, s)

	v, err := tson.UnmarshalTo[tson.Value]([]byte(`[byte(255)]`))
	require.NoError(t, err)
	assert.Equal(t, tson.KindUint8, v.Index(0).Kind())
	u, _ := v.Index(0).AsUint()
	assert.Equal(t, uint64(255), u)
}

type failing struct{}

func (failing) UnmarshalTSON(tson.Value) error {
	return errors.New("no thanks")
}

func TestBind(t *testing.T) {
	v := tson.Object(tson.Member{Key: "F", Value: tson.Int32(1)})

	var target struct{ F failing }
	err := tson.UnmarshalOptions{}.Bind(v, &target)
	assert.EqualError(t, err, ".F: no thanks")

	var m map[string]int8
	require.NoError(t, tson.UnmarshalOptions{}.Bind(v, &m))
	assert.Equal(t, map[string]int8{"F": 1}, m)
}
