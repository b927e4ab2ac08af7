// Package gcache implements the two caches the Solver (C6) relies on
// (spec.md §4.6 "Caching"): a content-addressed, atomic-rename FileCache
// for Process results keyed by action version, and an in-run LRU for
// Status results that only needs to live as long as one solve.
package gcache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

const defaultFilePerm = 0o644

// FileCache stores opaque byte payloads on disk under baseDir, one file
// per key, written via a temp-file-then-rename so a reader never observes
// a partially written entry (spec.md §4.6 "cache writes are atomic").
type FileCache struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileCache creates baseDir if needed and returns a cache rooted there.
func NewFileCache(baseDir string) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "creating cache directory %s", baseDir), gerrors.ErrInternal)).Err()
	}
	return &FileCache{baseDir: baseDir}, nil
}

// BaseDir returns the cache's root directory.
func (c *FileCache) BaseDir() string { return c.baseDir }

func keyToFilename(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:]) + ".json"
}

// actionCachePath parses a "Kind.Name@Version" key (the shape every
// Solver cache key takes — see pkg/solver's cacheKey) into the on-disk
// layout spec.md §4.6 documents: <cache>/<kind>/<name>/<version>.json.
// Keys that don't match the shape (none currently do, but FileCache's
// Get/Set/GetOrFetch accept any string) fall back to a flat hashed name.
func actionCachePath(key string) (rel string, ok bool) {
	at := strings.LastIndexByte(key, '@')
	if at <= 0 || at == len(key)-1 {
		return "", false
	}
	ref, version := key[:at], key[at+1:]
	dot := strings.IndexByte(ref, '.')
	if dot <= 0 || dot == len(ref)-1 {
		return "", false
	}
	kind, name := ref[:dot], ref[dot+1:]
	return filepath.Join(kind, name, version+".json"), true
}

func (c *FileCache) relPath(key string) string {
	if rel, ok := actionCachePath(key); ok {
		return rel
	}
	return keyToFilename(key)
}

// GetPath returns the path Set would write key to, and whether it
// currently exists.
func (c *FileCache) GetPath(key string) (string, bool) {
	path := filepath.Join(c.baseDir, c.relPath(key))
	_, err := os.Stat(path)
	return path, err == nil
}

// Set writes content for key atomically.
func (c *FileCache) Set(key string, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path := filepath.Join(c.baseDir, c.relPath(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "creating cache directory for %s", key), gerrors.ErrInternal)).Err()
	}
	tmp, err := os.CreateTemp(c.baseDir, ".tmp-*")
	if err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "creating temp cache file"), gerrors.ErrInternal)).Err()
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "writing temp cache file"), gerrors.ErrInternal)).Err()
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "closing temp cache file"), gerrors.ErrInternal)).Err()
	}
	if err := os.Chmod(tmpPath, defaultFilePerm); err != nil {
		os.Remove(tmpPath)
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "chmod temp cache file"), gerrors.ErrInternal)).Err()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "renaming cache file into place"), gerrors.ErrInternal)).Err()
	}
	return nil
}

// Get reads key's content. exists is false (with a nil error) on a plain
// cache miss.
func (c *FileCache) Get(key string) (content []byte, exists bool, err error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	path := filepath.Join(c.baseDir, c.relPath(key))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "reading cache file for %s", key), gerrors.ErrInternal)).Err()
	}
	return data, true, nil
}

// GetOrFetch returns the cached content for key, calling fetch and storing
// its result on a miss.
func (c *FileCache) GetOrFetch(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if content, exists, err := c.Get(key); err != nil {
		return nil, err
	} else if exists {
		return content, nil
	}
	content, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := c.Set(key, content); err != nil {
		return nil, err
	}
	return content, nil
}

// Clear removes every entry, including the per-kind/per-name
// subdirectories actionCachePath creates.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrap(err, "reading cache directory"), gerrors.ErrInternal)).Err()
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(c.baseDir, e.Name())); err != nil {
			return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "removing cache entry %s", e.Name()), gerrors.ErrInternal)).Err()
		}
	}
	return nil
}
