package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"negative int", -100, "-100"},
		{"max int64", int64(9223372036854775807), "9223372036854775807"},
		{"bool", true, "true"},
		{"null", nil, "null"},
		{"empty slice", []string{}, "[]"},
		{"ints", []int{1, 2, 3}, "[1,2,3]"},
		{"map", map[string]int{"b": 1, "a": 2}, `{"a":2,"b":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshal_StructFieldsSorted(t *testing.T) {
	type event struct {
		Zeta  int    `json:"zeta"`
		Alpha string `json:"alpha"`
		Skip  string `json:"skip,omitempty"`
	}

	got, err := Marshal(event{Zeta: 1, Alpha: "x"})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":"x","zeta":1}`, string(got))
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	got, err := Marshal("<a & b>")
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(got))
}

func TestMarshal_LineSeparatorsLiteral(t *testing.T) {
	got, err := Marshal("a\u2028b\u2029c")
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(got))
}

func TestMarshal_ControlCharacters(t *testing.T) {
	got, err := Marshal("tab\there\x01\"q\"\\")
	require.NoError(t, err)
	assert.Equal(t, `"tab\there\u0001\"q\"\\"`, string(got))
}

func TestMarshal_NFCNormalization(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := Marshal(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\""+composed+"\"", string(a))
}

func TestMarshal_RejectsFloats(t *testing.T) {
	_, err := Marshal(map[string]any{"x": 1.5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floats are forbidden")
}

func TestCompareKeys_UTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after its surrogate pair in UTF-16.
	emoji := "\U0001F600"
	halfwidth := "\uFF61"

	assert.Equal(t, 1, CompareKeys(halfwidth, emoji))
	assert.Equal(t, -1, CompareKeys("a", "b"))
	assert.Equal(t, 0, CompareKeys("k", "k"))
}
