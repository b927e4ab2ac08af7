// Package coreenv assembles the CoreEnv value threaded through C3-C6:
// everything that would otherwise be an ambient global (the clock, the
// process environment snapshot, the logger, the VCS provider, cache roots,
// concurrency settings) lives here instead, so every component takes it as
// an explicit argument (spec.md §9 design note) and tests can substitute a
// fake without touching package-level state.
package coreenv

import (
	"os"
	"strings"
	"time"

	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/gardenevent"
	"github.com/garden-io/garden-sub017/pkg/gardenlog"
	"github.com/garden-io/garden-sub017/pkg/gcache"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/vcs"
)

// Clock is the minimal time source components depend on, so tests can
// inject a fixed time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// CoreEnv is the dependency bundle passed to the Config Loader, Graph
// Builder and Solver.
type CoreEnv struct {
	Clock       Clock
	Env         map[string]string
	Logger      *gardenlog.Logger
	VCS         vcs.Provider
	Functions   *function.Registry
	Plugins     *plugin.Registry
	Events      *gardenevent.Bus
	ResultCache *gcache.FileCache
	StatusCache *gcache.StatusCache
	Settings    schema.Settings
	ProjectRoot string
}

// Option configures a CoreEnv built by New.
type Option func(*CoreEnv)

// WithSettings overrides the default Settings.
func WithSettings(s schema.Settings) Option {
	return func(e *CoreEnv) { e.Settings = s }
}

// WithLogger overrides the default logger.
func WithLogger(l *gardenlog.Logger) Option {
	return func(e *CoreEnv) { e.Logger = l }
}

// WithPlugins registers the plugin registry to use.
func WithPlugins(r *plugin.Registry) Option {
	return func(e *CoreEnv) { e.Plugins = r }
}

// New builds a CoreEnv rooted at projectRoot, snapshotting the process
// environment once (spec.md §4.2 "env is a frozen snapshot taken at
// startup, not a live view of os.Environ").
func New(projectRoot string, opts ...Option) (*CoreEnv, error) {
	logger, err := gardenlog.InitializeLogger(gardenlog.LogLevelInfo, "")
	if err != nil {
		return nil, err
	}

	statusCache, err := gcache.NewStatusCache(0)
	if err != nil {
		return nil, err
	}

	e := &CoreEnv{
		Clock:       systemClock{},
		Env:         snapshotEnv(),
		Logger:      logger,
		VCS:         vcs.NewGitProvider(),
		Functions:   function.DefaultRegistry(),
		Plugins:     plugin.NewRegistry(),
		Events:      gardenevent.NewBus(0),
		StatusCache: statusCache,
		Settings:    schema.DefaultSettings(),
		ProjectRoot: projectRoot,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Derived from e.Settings after opts are applied, so a caller-supplied
	// WithSettings override (e.g. a non-default CacheDir) is honored rather
	// than silently rooting the cache at the pre-option default.
	resultCache, err := gcache.NewFileCache(projectRoot + string(os.PathSeparator) + e.Settings.CacheDir)
	if err != nil {
		return nil, err
	}
	e.ResultCache = resultCache
	return e, nil
}

func snapshotEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}
