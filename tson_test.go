package tson_test

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ConradIrwin/tson-go"
)

func readExamples(t *testing.T, file string) [][2]string {
	t.Helper()
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", file, err)
	}

	examplesStr := strings.ReplaceAll(string(data), "␉", "\t")
	examplesStr = strings.ReplaceAll(examplesStr, "␊", "\r")

	var examples [][2]string
	for _, example := range strings.Split(examplesStr, "\n===\n") {
		parts := strings.SplitN(example, "\n---\n", 2)
		if len(parts) != 2 {
			t.Fatalf("Invalid example format: %s", example)
		}
		examples = append(examples, [2]string{parts[0], strings.TrimSpace(parts[1])})
	}
	return examples
}

func TestEquivalence(t *testing.T) {
	for _, example := range readExamples(t, "testdata/examples.txt") {
		input, expected := example[0], example[1]

		v, err := tson.Parse(input)
		if err != nil {
			t.Fatalf("Failed to parse: %v\nInput: %s", err, input)
		} else if v.String() != expected {
			t.Fatalf("Mismatch:\nInput: %#v\nExpected: %#v\nGot: %#v", input, expected, v.String())
		}

		// canonical text is a fixed point
		again, err := tson.Parse(expected)
		if err != nil {
			t.Fatalf("Failed to reparse: %v\nInput: %s", err, expected)
		} else if again.String() != expected {
			t.Fatalf("Not canonical:\nExpected: %#v\nGot: %#v", expected, again.String())
		}
		if !tson.Equal(v, again) {
			t.Fatalf("Reparsed value differs: %s", expected)
		}
	}
}

func TestErrors(t *testing.T) {
	for _, example := range readExamples(t, "testdata/errors.txt") {
		input, expected := example[0], example[1]

		v, err := tson.Parse(input)
		if err == nil {
			t.Errorf("Expected to be unable to parse: %s\nGot: %s", input, v)
			continue
		}
		var serr *tson.SyntaxError
		if !errors.As(err, &serr) {
			t.Errorf("Expected a *SyntaxError, got %T", err)
		}
		if err.Error() != expected {
			t.Errorf("Error mismatch:\nInput: %s\nExpected: %#v\nGot: %#v", input, expected, err.Error())
		}
	}
}

func TestErrorCauses(t *testing.T) {
	_, err := tson.Parse(`{"a":byte(256)}`)
	var numErr *strconv.NumError
	require.ErrorAs(t, err, &numErr)
	assert.ErrorIs(t, err, strconv.ErrRange)

	_, err = tson.Parse("   ")
	require.Error(t, err)
	assert.Equal(t, "1:4: unexpected end of input, expected '{' or '['", err.Error())

	_, err = tson.Parse(strings.Repeat("[", 10001) + strings.Repeat("]", 10001))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded max depth of 10000")
}

func TestTokens(t *testing.T) {
	type tok struct {
		pos   string
		kind  tson.TokenKind
		value string
	}
	var got []tok
	for pos, token := range tson.Tokens("{\n  \"a\": [int(1), \"x y\"]\n}") {
		got = append(got, tok{pos.String(), token.Kind, token.Content})
	}
	assert.Equal(t, []tok{
		{"1:1", tson.OpenBrace, "{"},
		{"2:3", tson.StringStart, "a"},
		{"2:6", tson.Colon, ":"},
		{"2:8", tson.OpenBracket, "["},
		{"2:9", tson.ValueExpression, "int(1)"},
		{"2:15", tson.Comma, ","},
		{"2:17", tson.StringStart, "x y"},
		{"2:22", tson.CloseBracket, "]"},
		{"3:1", tson.CloseBrace, "}"},
		{"3:2", tson.End, ""},
	}, got)
}

func TestTokensError(t *testing.T) {
	var last tson.Token
	count := 0
	for _, token := range tson.Tokens(`["abc`) {
		last = token
		count++
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, tson.Error, last.Kind)
	assert.Equal(t, "unterminated string", last.Content)

	// stopping early must not panic
	for range tson.Tokens(`[int(1),int(2)]`) {
		break
	}
}

func TestTokenKindString(t *testing.T) {
	assert.Equal(t, "ValueExpression", tson.ValueExpression.String())
	assert.Equal(t, "CloseBracket", tson.CloseBracket.GoString())
}
