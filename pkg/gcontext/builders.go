package gcontext

import "github.com/garden-io/garden-sub017/pkg/schema"

// NewProjectContext starts the chain off Root with the project-wide
// "project" and "var" values (spec.md §3 scope ordering).
func NewProjectContext(project, variables map[string]any) *Context {
	return Root().Child(ScopeProject, map[string]any{
		"project": project,
		"var":     variables,
	})
}

// WithEnvironment layers environment-scoped values ("environment", and any
// environment-level variable overlays already merged into variables by the
// Config Loader) on top of c.
func (c *Context) WithEnvironment(environment, variables map[string]any) *Context {
	return c.Child(ScopeEnvironment, map[string]any{
		"environment": environment,
		"var":         variables,
	})
}

// WithProvider layers one provider's own config under "providers.<name>"
// plus its outputs under "outputs" once available.
func (c *Context) WithProvider(name string, config map[string]any, outputs map[string]any) *Context {
	providers, _ := c.lookupLocalOrAncestor("providers")
	merged := cloneMap(providers)
	merged[name] = map[string]any{
		"config":  config,
		"outputs": outputs,
	}
	return c.Child(ScopeProvider, map[string]any{
		"providers": merged,
	})
}

// WithActionRef layers every other action's resolved outputs/version
// under "actions.<kind>.<name>" (spec.md §3 "ActionRefContext... adds
// actions.<kind>.<name>.outputs and .version"), with sibling-action
// lookups restricted by action kind left to the caller.
func (c *Context) WithActionRef(actions map[string]any) *Context {
	return c.Child(ScopeActionRef, map[string]any{
		"actions": actions,
	})
}

// WithActionSpec layers the identity of the action currently being
// evaluated ("this.mode"/"this.name", spec.md §3 "ActionSpecContext")
// so self-referential templates in an action's own fields can resolve.
// It is the final and narrowest scope.
func (c *Context) WithActionSpec(ref schema.ActionRef) *Context {
	return c.Child(ScopeActionSpec, map[string]any{
		"this": map[string]any{
			"mode": string(ref.Kind),
			"name": ref.Name,
		},
	})
}

func (c *Context) lookupLocalOrAncestor(key string) (map[string]any, bool) {
	for layer := c; layer != nil; layer = layer.parent {
		if v, ok := layer.values[key]; ok {
			if m, isMap := v.(map[string]any); isMap {
				return m, true
			}
			return nil, false
		}
	}
	return nil, false
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
