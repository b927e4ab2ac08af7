package template

import "context"

// Unresolved is the tagged value spec.md §3 describes as "Unresolved
// template value": the result of evaluating a node with AllowPartial=true
// against a context that cannot yet supply everything the node needs. It
// carries enough to complete the evaluation later — the original AST node,
// the context it was evaluated against, and the options used — so a
// downstream merge/stage can hand it a richer context without re-parsing
// the source expression.
type Unresolved struct {
	Node Node
	Ctx  EvalContext
	Opts EvalOptions
}

// IsUnresolved reports whether v is an *Unresolved value, the standard way
// callers check whether a deepEvaluate result still needs a later pass.
func IsUnresolved(v any) (*Unresolved, bool) {
	u, ok := v.(*Unresolved)
	return u, ok
}

// Reevaluate re-runs the wrapped node against a new (presumably more
// complete) context. It does not consult u.Ctx at all: ctx is expected to
// already be the richer context, typically built by layering additional
// scopes on top of whatever was available when u was produced.
func (u *Unresolved) Reevaluate(ctx context.Context, ectx EvalContext) (any, bool, error) {
	return u.Node.Evaluate(ctx, ectx, u.Opts)
}

// ReevaluateSame re-runs the wrapped node against the context it was
// originally evaluated against — useful when the context itself is
// mutable/layered and has since been extended in place.
func (u *Unresolved) ReevaluateSame(ctx context.Context) (any, bool, error) {
	return u.Node.Evaluate(ctx, u.Ctx, u.Opts)
}
