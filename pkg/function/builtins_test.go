package function

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func call(t *testing.T, r *Registry, name string, args ...any) any {
	t.Helper()
	fn, ok := r.Get(name)
	require.True(t, ok, "function %q not registered", name)
	out, err := fn.Execute(context.Background(), args)
	require.NoError(t, err)
	return out
}

func TestBuiltins_StringCase(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, "HELLO", call(t, r, "upper", "hello"))
	assert.Equal(t, "hello", call(t, r, "lower", "HELLO"))
	assert.Equal(t, "camelCase", call(t, r, "camelCase", "camel_case"))
	assert.Equal(t, "kebab-case", call(t, r, "kebabCase", "KebabCase"))
}

func TestBuiltins_JoinSplit(t *testing.T) {
	r := DefaultRegistry()
	joined := call(t, r, "join", ",", []any{"a", "b", "c"})
	assert.Equal(t, "a,b,c", joined)

	split := call(t, r, "split", ",", "a,b,c")
	assert.Equal(t, []any{"a", "b", "c"}, split)
}

func TestBuiltins_Slice(t *testing.T) {
	r := DefaultRegistry()
	out := call(t, r, "slice", []any{"a", "b", "c", "d"}, float64(1), float64(3))
	assert.Equal(t, []any{"b", "c"}, out)
}

func TestBuiltins_IsEmpty(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, true, call(t, r, "isEmpty", ""))
	assert.Equal(t, false, call(t, r, "isEmpty", "x"))
	assert.Equal(t, true, call(t, r, "isEmpty", []any{}))
	assert.Equal(t, true, call(t, r, "isEmpty", nil))
}

func TestBuiltins_Contains(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, true, call(t, r, "contains", "hello world", "world"))
	assert.Equal(t, true, call(t, r, "contains", []any{"a", "b"}, "b"))
	assert.Equal(t, false, call(t, r, "contains", []any{"a", "b"}, "c"))
}

func TestBuiltins_JSONYAMLEncode(t *testing.T) {
	r := DefaultRegistry()
	j := call(t, r, "jsonEncode", map[string]any{"a": float64(1)})
	assert.Equal(t, `{"a":1}`, j)

	y := call(t, r, "yamlEncode", map[string]any{"a": "b"})
	assert.Equal(t, "a: b", y)
}

func TestBuiltins_Base64RoundTrip(t *testing.T) {
	r := DefaultRegistry()
	enc := call(t, r, "base64Encode", "hello").(string)
	dec := call(t, r, "base64Decode", enc)
	assert.Equal(t, "hello", dec)
}

func TestBuiltins_FormatDateUTC(t *testing.T) {
	r := DefaultRegistry()
	out := call(t, r, "formatDateUTC", "2006-01-02", "2026-07-30T10:00:00Z")
	assert.Equal(t, "2026-07-30", out)
}

func TestBuiltins_CtyRoundTrip(t *testing.T) {
	r := DefaultRegistry()
	fn, ok := r.Get("upper")
	require.True(t, ok)

	cf := fn.CtyFunc()
	arg, err := ToCty("hello")
	require.NoError(t, err)

	result, err := cf.Call([]cty.Value{arg})
	require.NoError(t, err)

	native, err := FromCty(result)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", native)
}
