// Package gcontext implements the layered Config Context (spec.md §3, §4.2):
// an immutable chain of scopes — Project, Environment, Provider, ActionRef,
// ActionSpec — each contributing named values, with lookups falling through
// to the parent scope when a key isn't found locally.
package gcontext

import (
	"strconv"
	"strings"

	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
)

// Scope names a layer in the chain, used for diagnostics only.
type Scope string

const (
	ScopeCore        Scope = "core"
	ScopeProject     Scope = "project"
	ScopeEnvironment Scope = "environment"
	ScopeProvider    Scope = "provider"
	ScopeActionRef   Scope = "actionRef"  // adds actions.<kind>.<name>.{outputs,version}
	ScopeActionSpec  Scope = "actionSpec" // adds this.mode/this.name
)

// Context is one immutable layer. Values is keyed by top-level variable
// name ("var", "project", "environment", ...); nested field access within
// a value is resolved by navigating the stored tree.
type Context struct {
	scope  Scope
	values map[string]any
	parent *Context
}

// Root returns an empty base context with no parent — the ultimate fallback
// for any lookup chain, always reporting Absent.
func Root() *Context {
	return &Context{scope: ScopeCore, values: map[string]any{}}
}

// Child returns a new context layering values on top of c. Values set here
// shadow identically-named values from c and its ancestors.
func (c *Context) Child(scope Scope, values map[string]any) *Context {
	return &Context{scope: scope, values: values, parent: c}
}

// Scope reports which layer this context represents.
func (c *Context) Scope() Scope { return c.scope }

// Parent returns the enclosing context, or nil at the root.
func (c *Context) Parent() *Context { return c.parent }

// Lookup implements template.EvalContext: path is dot-separated, e.g.
// "var.replicas" or "actions.build.my-service.outputs.image". The first
// segment selects which top-level value in this layer (or an ancestor) to
// descend into.
func (c *Context) Lookup(path string) (any, template.LookupStatus) {
	head, rest := splitHead(path)
	for layer := c; layer != nil; layer = layer.parent {
		v, ok := layer.values[head]
		if !ok {
			continue
		}
		return navigate(v, rest)
	}
	return nil, template.Absent
}

func splitHead(path string) (head, rest string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func navigate(value any, rest string) (any, template.LookupStatus) {
	cur := value
	if rest != "" {
		for _, seg := range strings.Split(rest, ".") {
			switch c := cur.(type) {
			case *schema.OrderedMap:
				v, ok := c.Get(seg)
				if !ok {
					return nil, template.Absent
				}
				cur = v
			case map[string]any:
				v, ok := c[seg]
				if !ok {
					return nil, template.Absent
				}
				cur = v
			case []any:
				idx, err := strconv.Atoi(seg)
				if err != nil || idx < 0 || idx >= len(c) {
					return nil, template.Absent
				}
				cur = c[idx]
			default:
				return nil, template.Absent
			}
		}
	}
	switch cur.(type) {
	case *template.Unresolved, *template.DeferredTree:
		return cur, template.FoundUnresolved
	default:
		return cur, template.Found
	}
}

