package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild(t *testing.T) {
	baseErr := New("test error")
	builder := Build(baseErr)

	assert.NotNil(t, builder)
	assert.Equal(t, baseErr, builder.err)
	assert.Empty(t, builder.hints)
	assert.Nil(t, builder.exitCode)
}

func TestErrorBuilder_WithHint_Multiple(t *testing.T) {
	builder := Build(New("test error")).
		WithHint("hint 1").
		WithHintf("hint %d", 2)

	assert.Len(t, builder.hints, 2)
	assert.Equal(t, "hint 1", builder.hints[0])
	assert.Equal(t, "hint 2", builder.hints[1])
}

func TestErrorBuilder_WithContext_SortedKeys(t *testing.T) {
	err := Build(New("test error")).
		WithContext("stack", "prod").
		WithContext("component", "vpc").
		Err()

	details := GetAllSafeDetails(err)
	assert.NotEmpty(t, details)

	joined := strings.Join(details, " ")
	assert.Less(t, strings.Index(joined, "component="), strings.Index(joined, "stack="))
}

func TestErrorBuilder_Err_NilError(t *testing.T) {
	err := Build(nil).WithHint("hint").WithExitCode(42).Err()
	assert.Nil(t, err)
}

func TestErrorBuilder_Err_CompleteExample(t *testing.T) {
	err := Build(New("database connection failed")).
		WithHint("check credentials").
		WithHintf("retry after %ds", 5).
		WithContext("component", "vpc").
		WithExitCode(2).
		Err()

	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "database connection failed")

	hints := GetAllHints(err)
	assert.Equal(t, []string{"check credentials", "retry after 5s"}, hints)
	assert.Equal(t, 2, GetExitCode(err))
}

func TestErrorBuilder_Chaining_SameInstance(t *testing.T) {
	builder := Build(New("base"))
	b1 := builder.WithHint("hint 1")
	assert.Same(t, builder, b1)
}

func TestTaxonomySentinelsMatchWithIs(t *testing.T) {
	err := Mark(Wrap(New("boom"), "while building graph"), ErrValidation)
	assert.True(t, Is(err, ErrValidation))
	assert.False(t, Is(err, ErrTemplate))
}
