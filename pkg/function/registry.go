// Package function implements the Template Engine's fixed helper-function
// set (spec.md §4.1): string case conversions, join/split, isEmpty, slice,
// jsonEncode/yamlEncode, base64Encode/Decode, indent, camelCase, kebabCase,
// formatDateUTC. Functions are registered by name (plus aliases) in a small
// Registry, the same shape as the teacher's pkg/function registry, adapted
// from YAML-tag dispatch (`!template '...'`) to expression-call dispatch
// (`${join(",", list)}`).
//
// Each function additionally exposes a github.com/zclconf/go-cty
// function.Function adapter (CtyFunc) so the same helper set can be handed
// to a github.com/hashicorp/hcl/v2 EvalContext under an `atmos`-style
// namespace for plugins that accept legacy HCL-flavored expressions
// (SPEC_FULL.md §4.1 grounding note).
package function

import (
	"context"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

// Phase selects when a helper function may run relative to structural-
// operator flattening (spec.md §4.1 "Evaluation modes" / §4.3 "deferred
// merge"): PreMerge functions see only their own literal arguments,
// PostMerge functions may reference the fully-merged tree.
type Phase int

const (
	PreMerge Phase = iota
	PostMerge
)

// ExecFunc is a helper function's native Go implementation.
type ExecFunc func(ctx context.Context, args []any) (any, error)

// Function is one registered helper.
type Function interface {
	Name() string
	Aliases() []string
	Phase() Phase
	Execute(ctx context.Context, args []any) (any, error)
	CtyFunc() function.Function
}

// BaseFunction is embedded by concrete Function implementations; Execute
// defers to Impl, and CtyFunc lazily builds a dynamic-typed cty adapter
// around the same Impl the first time it's asked for.
type BaseFunction struct {
	FunctionName    string
	FunctionAliases []string
	FunctionPhase   Phase
	Impl            ExecFunc

	ctyOnce sync.Once
	ctyFunc function.Function
}

func (b BaseFunction) Name() string      { return b.FunctionName }
func (b BaseFunction) Aliases() []string { return b.FunctionAliases }
func (b BaseFunction) Phase() Phase      { return b.FunctionPhase }

func (b BaseFunction) Execute(ctx context.Context, args []any) (any, error) {
	if b.Impl == nil {
		return nil, gerrors.Newf("function %q has no implementation", b.FunctionName)
	}
	return b.Impl(ctx, args)
}

// CtyFunc adapts Impl into a variadic, dynamically-typed cty function:
// every argument and the return value flow through as cty.DynamicPseudoType
// converted at the boundary via ToCty/FromCty. This keeps one
// implementation per helper while still letting it ride inside an
// hcl.EvalContext's Functions map for plugin-facing HCL expressions.
func (b *BaseFunction) CtyFunc() function.Function {
	b.ctyOnce.Do(func() {
		name := b.FunctionName
		impl := b.Impl
		b.ctyFunc = function.New(&function.Spec{
			VarParam: &function.Parameter{
				Name:             "args",
				Type:             cty.DynamicPseudoType,
				AllowNull:        true,
				AllowUnknown:     true,
				AllowDynamicType: true,
			},
			Type: function.StaticReturnType(cty.DynamicPseudoType),
			Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
				native := make([]any, len(args))
				for i, a := range args {
					v, err := FromCty(a)
					if err != nil {
						return cty.NilVal, gerrors.Wrapf(err, "function %q argument %d", name, i)
					}
					native[i] = v
				}
				out, err := impl(context.Background(), native)
				if err != nil {
					return cty.NilVal, err
				}
				return ToCty(out)
			},
		})
	})
	return b.ctyFunc
}

// Registry holds every helper function reachable from template expressions,
// indexed by primary name and by alias. Safe for concurrent reads; writes
// (Register) are expected only at startup.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Function
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Function)}
}

// Register adds fn under its name and every alias. Returns an error if any
// of those keys is already taken.
func (r *Registry) Register(fn Function) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{fn.Name()}, fn.Aliases()...)
	for _, k := range keys {
		if _, exists := r.byName[k]; exists {
			return gerrors.Build(gerrors.Newf("function %q already registered", k)).Err()
		}
	}
	for _, k := range keys {
		r.byName[k] = fn
	}
	return nil
}

// Get looks up a function by name or alias.
func (r *Registry) Get(name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.byName[name]
	return fn, ok
}

// Has reports whether name resolves to a registered function.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Len returns the number of distinct registered keys (names + aliases).
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Names returns every registered key, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byName))
	for k := range r.byName {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a Registry pre-populated with the fixed helper
// set from spec.md §4.1.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, fn := range allBuiltins() {
		if err := r.Register(fn); err != nil {
			// Builtins are defined once, in this package; a collision here
			// is a programming error, not a runtime condition.
			panic(err)
		}
	}
	return r
}

// HCLFunctions returns every registered helper's cty adapter, namespaced
// under "atmos::" the way the teacher's pkg/function/hcl.go exposes its
// registry to an hcl.EvalContext — kept here under the "garden" namespace
// for plugins (Terraform/Pulumi/Helm) that need to hand a legacy HCL
// expression the same helper set the Template Engine uses.
func HCLFunctions(r *Registry) map[string]function.Function {
	out := make(map[string]function.Function)
	for _, name := range r.Names() {
		fn, _ := r.Get(name)
		out["garden::"+name] = fn.CtyFunc()
	}
	return out
}
