package reactotron

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSentinels(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in   string
		want any
	}{
		{"~~~ null ~~~", nil},
		{"~~~ undefined ~~~", nil},
		{"~~~ false ~~~", false},
		{"~~~ true ~~~", true},
		{"~~~ zero ~~~", float64(0)},
		{"~~~ empty string ~~~", ""},
		{"~~~ anonymous function ~~~", "fn()"},
		{"~~~ skipped ~~~", "[skipped]"},
		{"~~~ Circular Reference ~~~", "[Circular Reference]"},
		{"~~~ doSomething() ~~~", "fn:doSomething"},
		{"plain string", "plain string"},
	}
	for _, c := range cases {
		got := Normalize(c.in)
		assert.Equal(t, c.want, got, "Normalize(%q)", c.in)
	}
}

func TestNormalizeNaNAndInfinityMarshalAsLiterals(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		in   string
		want string
	}{
		{"~~~ NaN ~~~", "NaN"},
		{"~~~ Infinity ~~~", "Infinity"},
		{"~~~ -Infinity ~~~", "-Infinity"},
	} {
		got := Normalize(tc.in)
		raw, err := json.Marshal(got)
		assert.NoError(t, err)
		assert.Equal(t, tc.want, string(raw))
	}
}

func TestNormalizeRecursesIntoArraysAndObjects(t *testing.T) {
	t.Parallel()
	in := map[string]any{
		"list": []any{"~~~ null ~~~", "~~~ true ~~~"},
		"obj":  map[string]any{"inner": "~~~ zero ~~~"},
	}
	got := Normalize(in).(map[string]any)
	assert.Equal(t, []any{nil, true}, got["list"])
	assert.Equal(t, map[string]any{"inner": float64(0)}, got["obj"])
}

func TestNormalizeRecursesIntoJSONLookingStrings(t *testing.T) {
	t.Parallel()
	in := `{"a":"~~~ null ~~~"}`
	got := Normalize(in)
	assert.Equal(t, map[string]any{"a": nil}, got)
}

func TestNormalizeLeavesMalformedJSONLookingStringAlone(t *testing.T) {
	t.Parallel()
	in := `{not valid json}`
	got := Normalize(in)
	assert.Equal(t, in, got)
}
