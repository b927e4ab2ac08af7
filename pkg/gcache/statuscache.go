package gcache

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// StatusCache holds Status(action) results keyed by "Kind.Name@Version".
// The Solver writes each fresh Status result here but never reads from it
// before dispatching a Status task, so it does not spare a repeated check.
// It is process-local, not on disk — an LRU of a few thousand entries
// comfortably covers any one project's action count.
type StatusCache struct {
	lru *lru.Cache[string, any]
}

// NewStatusCache returns a StatusCache holding at most size entries.
func NewStatusCache(size int) (*StatusCache, error) {
	if size <= 0 {
		size = 2048
	}
	c, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &StatusCache{lru: c}, nil
}

// Get returns the cached status result for key, if any.
func (c *StatusCache) Get(key string) (any, bool) {
	return c.lru.Get(key)
}

// Set stores the status result for key.
func (c *StatusCache) Set(key string, value any) {
	c.lru.Add(key, value)
}

// Purge drops every entry, used between solves that must not see stale
// status.
func (c *StatusCache) Purge() {
	c.lru.Purge()
}
