// Package configloader implements the Config Loader & Templater (spec.md
// §4.3, C3): discovering configuration documents, expanding ConfigTemplate
// macros, resolving Project/Environment/Provider scopes, and staging each
// action's fields through the Template Engine against the layered Config
// Context.
package configloader

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	gerrors "github.com/garden-io/garden-sub017/errors"
)

// defaultIncludeGlobs matches every *.garden.yaml/*.garden.yml document
// under the project root, mirroring the teacher's stack-discovery globs
// adapted to this project's document-naming convention.
var defaultIncludeGlobs = []string{"**/*.garden.yaml", "**/*.garden.yml"}

var defaultExcludeDirs = []string{".git", "node_modules", ".garden"}

// Discover walks root (and any additionalRoots) for configuration
// documents matching includeGlobs (defaultIncludeGlobs if empty),
// returning absolute paths sorted for deterministic processing order.
func Discover(root string, additionalRoots []string, includeGlobs []string) ([]string, error) {
	if len(includeGlobs) == 0 {
		includeGlobs = defaultIncludeGlobs
	}
	roots := append([]string{root}, additionalRoots...)

	var out []string
	seen := make(map[string]bool)
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "resolving root %s", r), gerrors.ErrConfiguration)).Err()
		}
		matches, err := discoverOne(abs, includeGlobs)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

func discoverOne(root string, includeGlobs []string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if isExcludedDir(info.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)
		for _, pat := range includeGlobs {
			if ok, _ := doublestar.Match(pat, rel); ok {
				out = append(out, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "walking %s", root), gerrors.ErrConfiguration)).Err()
	}
	return out, nil
}

func isExcludedDir(name string) bool {
	for _, d := range defaultExcludeDirs {
		if name == d {
			return true
		}
	}
	return false
}

