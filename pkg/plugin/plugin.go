// Package plugin defines the narrow interfaces Garden-core consumes from a
// provider implementation (spec.md §1 "Non-goals": the plugin host/RPC
// layer itself is out of scope, but the Solver and Graph Builder need a Go
// interface to call through).
package plugin

import (
	"context"

	"github.com/garden-io/garden-sub017/pkg/schema"
)

// BuildHandler implements the Build action kind.
type BuildHandler interface {
	GetBuildStatus(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
	Build(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
}

// DeployHandler implements the Deploy action kind.
type DeployHandler interface {
	GetDeployStatus(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
	Deploy(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
	Delete(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
}

// RunHandler implements the Run action kind. Run has no separate status
// check: GetRunResult reports whether a prior run with this exact version was
// already recorded.
type RunHandler interface {
	GetRunResult(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
	Run(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
}

// TestHandler implements the Test action kind, symmetric to RunHandler.
type TestHandler interface {
	GetTestResult(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
	RunTest(ctx context.Context, action *schema.Action) (*schema.TaskResult, error)
}

// ConfigureHandler lets a provider validate and/or rewrite its own config
// document before the Config Loader finishes staging it.
type ConfigureHandler interface {
	Configure(ctx context.Context, config map[string]any) (map[string]any, error)
}

// ConvertHandler lets a provider override the legacy Module→Action
// conversion for module types it owns (spec.md §4.4).
type ConvertHandler interface {
	Convert(ctx context.Context, module *schema.Module) ([]*schema.Action, error)
}

// AugmentGraphHandler lets a provider add extra actions and dependency
// edges to the graph after the Config Loader and Converter have run but
// before the Graph Builder finalizes it (spec.md §4.5).
type AugmentGraphHandler interface {
	AugmentGraph(ctx context.Context, actions []*schema.Action) (addActions []*schema.Action, addDependencies map[schema.ActionRef][]schema.ActionRef, err error)
}

// Provider is the full set of handlers a provider plugin may implement.
// Every field is optional and typed as one of the narrower interfaces
// above rather than a monolithic implementation; call sites check the
// field for nil before dispatching through it.
type Provider struct {
	Name string

	Build        BuildHandler
	Deploy       DeployHandler
	Run          RunHandler
	Test         TestHandler
	Configure    ConfigureHandler
	Convert      ConvertHandler
	AugmentGraph AugmentGraphHandler
}

// Registry looks providers up by name (spec.md §3 "Provider" document
// kind). A missing provider, or a provider with no handler for an
// action's kind, is reported as a plugin error when the Solver dispatches
// that action's Status or Process task.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry returns an empty plugin Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Provider)}
}

// Register adds or replaces a provider.
func (r *Registry) Register(p *Provider) {
	r.providers[p.Name] = p
}

// Get looks up a provider by name.
func (r *Registry) Get(name string) (*Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns every registered provider name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	return out
}
