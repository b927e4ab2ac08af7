package configloader

import (
	"path/filepath"
	"testing"

	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile_MultiDocumentSniffsKind(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stack.garden.yaml")
	writeFile(t, path, ""+
		"kind: Project\nname: demo\n"+
		"---\n"+
		"kind: build\nname: api\nspec:\n  image: nginx\n"+
		"---\n"+
		"kind: Deploy\nname: api\nspec:\n  replicas: 1\n")

	docs, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 3)

	assert.Equal(t, schema.DocProject, docs[0].Kind)
	assert.Equal(t, schema.DocAction, docs[1].Kind)
	assert.Equal(t, schema.KindBuild, docs[1].ActionKind)
	assert.Equal(t, schema.DocAction, docs[2].Kind)
	assert.Equal(t, schema.KindDeploy, docs[2].ActionKind)
}

func TestParseFile_SkipsBlankDocuments(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "stack.garden.yaml")
	writeFile(t, path, "kind: Project\nname: demo\n---\n---\n")

	docs, err := ParseFile(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestParseFile_MissingKindErrors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.garden.yaml")
	writeFile(t, path, "name: demo\n")

	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseFile_UnknownKindErrors(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.garden.yaml")
	writeFile(t, path, "kind: Bogus\nname: demo\n")

	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseFile_TopLevelMustBeMapping(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.garden.yaml")
	writeFile(t, path, "- 1\n- 2\n")

	_, err := ParseFile(path)
	require.Error(t, err)
}

func TestParseAll_ConcatenatesInOrder(t *testing.T) {
	root := t.TempDir()
	p1 := filepath.Join(root, "a.garden.yaml")
	p2 := filepath.Join(root, "b.garden.yaml")
	writeFile(t, p1, "kind: Project\nname: demo\n")
	writeFile(t, p2, "kind: build\nname: api\nspec: {}\n")

	docs, err := ParseAll([]string{p1, p2})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, schema.DocProject, docs[0].Kind)
	assert.Equal(t, schema.DocAction, docs[1].Kind)
}
