package template

import (
	"context"
	"testing"

	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapContext map[string]any

func (m mapContext) Lookup(path string) (any, LookupStatus) {
	v, ok := m[path]
	if !ok {
		return nil, Absent
	}
	if u, isUnresolved := v.(*Unresolved); isUnresolved {
		return u, FoundUnresolved
	}
	return v, Found
}

func evalString(t *testing.T, src string, ctx EvalContext, partial bool) (any, bool) {
	t.Helper()
	node, err := Parse(src)
	require.NoError(t, err)
	v, ok, err := node.Evaluate(context.Background(), ctx, EvalOptions{AllowPartial: partial, Functions: function.DefaultRegistry()})
	require.NoError(t, err)
	return v, ok
}

func TestParse_LiteralPassthrough(t *testing.T) {
	v, ok := evalString(t, "hello world", mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, "hello world", v)
}

func TestParse_SingleInterpolationPreservesType(t *testing.T) {
	v, ok := evalString(t, "${var.count}", mapContext{"var.count": float64(3)}, false)
	assert.True(t, ok)
	assert.Equal(t, float64(3), v)
}

func TestParse_MixedTextConcatenates(t *testing.T) {
	v, ok := evalString(t, "count=${var.count}!", mapContext{"var.count": float64(3)}, false)
	assert.True(t, ok)
	assert.Equal(t, "count=3!", v)
}

func TestParse_ArithmeticAndComparison(t *testing.T) {
	v, ok := evalString(t, "${1 + 2 * 3}", mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, float64(7), v)

	v, ok = evalString(t, "${2 < 3 && 3 <= 3}", mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, true, v)
}

func TestParse_Ternary(t *testing.T) {
	v, ok := evalString(t, "${true ? 'yes' : 'no'}", mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
}

func TestParse_Coalesce(t *testing.T) {
	v, ok := evalString(t, "${var.missing ?? 'default'}", mapContext{}, true)
	assert.True(t, ok)
	assert.Equal(t, "default", v)
}

func TestParse_IndexAndCall(t *testing.T) {
	v, ok := evalString(t, `${upper(var.names[0])}`, mapContext{"var.names.0": "alice"}, false)
	assert.True(t, ok)
	assert.Equal(t, "ALICE", v)
}

func TestParse_ArrayAndObjectLiterals(t *testing.T) {
	v, ok := evalString(t, "${[1, 2, 3]}", mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, v)

	v, ok = evalString(t, `${ {a: 1, b: 2} }`, mapContext{}, false)
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"a": float64(1), "b": float64(2)}, v)
}

func TestParse_PartialEvaluationProducesUnresolved(t *testing.T) {
	v, ok := evalString(t, "${var.missing}", mapContext{}, true)
	assert.False(t, ok)
	u, isUnresolved := IsUnresolved(v)
	require.True(t, isUnresolved)
	require.NotNil(t, u)
}

func TestParse_UnresolvedReevaluatesConsistently(t *testing.T) {
	v, ok := evalString(t, "${var.x + 1}", mapContext{}, true)
	require.False(t, ok)
	u, isUnresolved := IsUnresolved(v)
	require.True(t, isUnresolved)

	richer := mapContext{"var.x": float64(41)}
	result, ok, err := u.Reevaluate(context.Background(), richer)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, float64(42), result)

	direct, ok := evalString(t, "${var.x + 1}", richer, true)
	assert.True(t, ok)
	assert.Equal(t, direct, result)
}

func TestParse_NonPartialMissingLookupErrors(t *testing.T) {
	_, _, err := func() (any, bool, error) {
		node, err := Parse("${var.missing}")
		require.NoError(t, err)
		return node.Evaluate(context.Background(), mapContext{}, EvalOptions{AllowPartial: false})
	}()
	assert.Error(t, err)
}
