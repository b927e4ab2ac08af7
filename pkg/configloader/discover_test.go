package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDiscover_MatchesDefaultGlobsRecursively(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "project.garden.yaml"), "kind: Project\nname: demo\n")
	writeFile(t, filepath.Join(root, "services", "api.garden.yml"), "kind: Deploy\nname: api\n")
	writeFile(t, filepath.Join(root, "node_modules", "ignored.garden.yaml"), "kind: Project\nname: ignored\n")
	writeFile(t, filepath.Join(root, "README.md"), "not a config")

	paths, err := Discover(root, nil, nil)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	for _, p := range paths {
		require.NotContains(t, p, "node_modules")
	}
}

func TestDiscover_DedupesAcrossOverlappingRoots(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.garden.yaml"), "kind: Project\nname: demo\n")

	paths, err := Discover(root, []string{root}, nil)
	require.NoError(t, err)
	require.Len(t, paths, 1)
}

func TestDiscover_CustomIncludeGlobs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "custom.yaml"), "kind: Project\nname: demo\n")

	paths, err := Discover(root, nil, []string{"*.yaml"})
	require.NoError(t, err)
	require.Len(t, paths, 1)
}
