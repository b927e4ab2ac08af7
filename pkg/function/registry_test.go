package function

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockFunction(name string, aliases []string, phase Phase) *BaseFunction {
	return &BaseFunction{
		FunctionName:    name,
		FunctionAliases: aliases,
		FunctionPhase:   phase,
		Impl: func(_ context.Context, args []any) (any, error) {
			if len(args) == 0 {
				return nil, nil
			}
			return args[0], nil
		},
	}
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.NotNil(t, r)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	fn := newMockFunction("env", nil, PreMerge)

	require.NoError(t, r.Register(fn))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Has("env"))
}

func TestRegistryRegisterWithAliases(t *testing.T) {
	r := NewRegistry()
	fn := newMockFunction("store.get", []string{"store"}, PostMerge)

	require.NoError(t, r.Register(fn))
	assert.True(t, r.Has("store.get"))
	assert.True(t, r.Has("store"))
	assert.Equal(t, 2, r.Len())
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(newMockFunction("env", nil, PreMerge)))
	err := r.Register(newMockFunction("env", nil, PreMerge))
	assert.Error(t, err)
}

func TestDefaultRegistry_HasFixedHelperSet(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{
		"upper", "lower", "title", "camelCase", "kebabCase", "indent",
		"join", "split", "slice", "isEmpty", "contains",
		"jsonEncode", "yamlEncode", "base64Encode", "base64Decode",
		"formatDateUTC",
	} {
		assert.True(t, r.Has(name), "expected builtin %q to be registered", name)
	}
}

func TestHCLFunctions_Namespaced(t *testing.T) {
	r := DefaultRegistry()
	funcs := HCLFunctions(r)

	assert.Contains(t, funcs, "garden::upper")
	assert.Contains(t, funcs, "garden::jsonEncode")
}
