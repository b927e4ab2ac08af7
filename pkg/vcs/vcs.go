// Package vcs computes the per-file content hashes the Graph Builder (C5)
// folds into an action's version (spec.md §4.5 "Version computation").
// The default Provider uses the go-git library to read the enclosing work
// tree's status and hashes every file on disk that matches include/exclude,
// whether git tracks or ignores it; GetPathHash falls back to hashing the
// files on disk directly when the path isn't inside a git work tree at
// all (spec.md §9 "VCS hashing").
package vcs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-git/go-git/v5"
	gerrors "github.com/garden-io/garden-sub017/errors"
)

// Provider computes a stable hash for the set of files under path that
// match include/exclude glob patterns.
type Provider interface {
	GetPathHash(ctx context.Context, path string, include, exclude []string) (string, error)
}

// GitProvider hashes every file under a path that matches include/exclude,
// mixing in the git status codes of each file that has an entry in its
// nearest enclosing repository's work-tree status, and falls back to
// FallbackProvider when path is not
// inside a repository (a source that's never been `git init`ed, or an
// action that points outside any repo).
type GitProvider struct {
	fallback Provider
}

// NewGitProvider returns the default Provider.
func NewGitProvider() *GitProvider {
	return &GitProvider{fallback: &FallbackProvider{}}
}

func (p *GitProvider) GetPathHash(ctx context.Context, path string, include, exclude []string) (string, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return p.fallback.GetPathHash(ctx, path, include, exclude)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return p.fallback.GetPathHash(ctx, path, include, exclude)
	}

	status, err := wt.Status()
	if err != nil {
		return p.fallback.GetPathHash(ctx, path, include, exclude)
	}

	// Hash every matched file's content plus its status codes where git
	// reports a status entry for it, so
	// an uncommitted edit changes the version without requiring a commit.
	// The status bytes alone aren't enough: a clean worktree reports
	// Unmodified/Unmodified for a tracked file regardless of which commit
	// it was last changed in, so content must be hashed too.
	files, err := listFiles(path, include, exclude)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, f := range files {
		rel, relErr := filepath.Rel(wt.Filesystem.Root(), f)
		if relErr == nil {
			if st, tracked := status[rel]; tracked {
				h.Write([]byte{byte(st.Staging), byte(st.Worktree)})
			}
		}
		if err := hashFile(h, f); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// FallbackProvider hashes file contents directly with SHA-256, used when
// a path is not inside a git work tree.
type FallbackProvider struct{}

func (p *FallbackProvider) GetPathHash(_ context.Context, path string, include, exclude []string) (string, error) {
	files, err := listFiles(path, include, exclude)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	for _, f := range files {
		if err := hashFile(h, f); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// listFiles walks path, returning files matching include (default "**")
// and not matching exclude, sorted for a deterministic hash order.
func listFiles(path string, include, exclude []string) ([]string, error) {
	if len(include) == 0 {
		include = []string{"**"}
	}
	var out []string
	err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(path, p)
		if relErr != nil {
			rel = p
		}
		if !matchesAny(include, rel) {
			return nil
		}
		if matchesAny(exclude, rel) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "walking %s", path), gerrors.ErrInternal)).Err()
	}
	sort.Strings(out)
	return out, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func hashFile(h io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "opening %s", path), gerrors.ErrInternal)).Err()
	}
	defer f.Close()
	io.WriteString(h, path)
	if _, err := io.Copy(h, f); err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "hashing %s", path), gerrors.ErrInternal)).Err()
	}
	return nil
}
