package template

import (
	"context"
	"fmt"
	"strings"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

// unresolvedSelf is the shared implementation behind every composite node's
// partial-evaluation bailout: when some constituent of n cannot yet be
// resolved, n is wrapped whole as an *Unresolved rather than attempting to
// assemble a value from a mix of resolved and unresolved pieces. Later
// re-evaluation against a richer context simply re-runs n.Evaluate from
// scratch, which is cheap (these trees are small) and keeps the "same
// expression evaluated twice gives the same answer" property trivially
// true (spec.md testable property 4).
func unresolvedSelf(n Node, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	return &Unresolved{Node: n, Ctx: ectx, Opts: opts}, false, nil
}

func (n *LookupNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	var parts []string
	for _, seg := range n.Path {
		if seg.Index == nil {
			parts = append(parts, seg.Name)
			continue
		}
		v, ok, err := seg.Index.Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if opts.AllowPartial {
				return unresolvedSelf(n, ectx, opts)
			}
			return nil, false, n.errf("index expression did not resolve")
		}
		parts = append(parts, fmt.Sprint(v))
	}
	path := strings.Join(parts, ".")

	value, status := ectx.Lookup(path)
	switch status {
	case Found:
		return value, true, nil
	case FoundUnresolved:
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, n.errf("value at %q is unresolved and allowPartial is false", path)
	default: // Absent
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, n.errf("no value at %q", path)
	}
}

func (n *LookupNode) errf(format string, args ...any) error {
	return gerrors.Build(gerrors.Mark(gerrors.Newf(format, args...), gerrors.ErrTemplate)).
		WithContext("offset", itoa(n.pos)).
		Err()
}

func (n *CallNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	args := make([]any, len(n.Args))
	for i, a := range n.Args {
		v, ok, err := a.Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if opts.AllowPartial {
				return unresolvedSelf(n, ectx, opts)
			}
			return nil, false, gerrors.Build(gerrors.Mark(gerrors.Newf("argument %d to %s did not resolve", i, n.Name), gerrors.ErrTemplate)).
				WithContext("offset", itoa(n.pos)).Err()
		}
		args[i] = v
	}
	if opts.Functions == nil {
		return nil, false, gerrors.Build(gerrors.Mark(gerrors.Newf("no function registry available, cannot call %s", n.Name), gerrors.ErrTemplate)).
			WithContext("offset", itoa(n.pos)).Err()
	}
	fn, ok := opts.Functions.Get(n.Name)
	if !ok {
		return nil, false, gerrors.Build(gerrors.Mark(gerrors.Newf("unknown function %q", n.Name), gerrors.ErrTemplate)).
			WithContext("offset", itoa(n.pos)).Err()
	}
	out, err := fn.Execute(ctx, args)
	if err != nil {
		return nil, false, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "calling %s", n.Name), gerrors.ErrTemplate)).
			WithContext("offset", itoa(n.pos)).Err()
	}
	return out, true, nil
}

func (n *UnaryNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	v, ok, err := n.Operand.Evaluate(ctx, ectx, opts)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, gerrors.Build(gerrors.Mark(gerrors.Newf("operand did not resolve"), gerrors.ErrTemplate)).
			WithContext("offset", itoa(n.pos)).Err()
	}
	switch n.Op {
	case "!":
		return !truthy(v), true, nil
	case "-":
		f, ferr := asNumber(v)
		if ferr != nil {
			return nil, false, ferr
		}
		return -f, true, nil
	}
	return nil, false, gerrors.Newf("unknown unary operator %q", n.Op)
}

func (n *BinaryNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	left, lok, err := n.Left.Evaluate(ctx, ectx, opts)
	if err != nil {
		return nil, false, err
	}
	if !lok {
		// ?? coalesces an unresolved left side to the right side; if the
		// right side is unresolved too, the whole expression stays unresolved.
		if n.Op == "??" {
			right, rok, err := n.Right.Evaluate(ctx, ectx, opts)
			if err != nil {
				return nil, false, err
			}
			if rok {
				return right, true, nil
			}
		}
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, gerrors.Newf("left operand of %q did not resolve", n.Op)
	}

	// Short circuit: && / || / ?? may not need the right side at all.
	switch n.Op {
	case "&&":
		if !truthy(left) {
			return false, true, nil
		}
	case "||":
		if truthy(left) {
			return true, true, nil
		}
	case "??":
		if left != nil {
			return left, true, nil
		}
	}

	right, rok, err := n.Right.Evaluate(ctx, ectx, opts)
	if err != nil {
		return nil, false, err
	}
	if !rok {
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, gerrors.Newf("right operand of %q did not resolve", n.Op)
	}

	switch n.Op {
	case "&&":
		return truthy(right), true, nil
	case "||":
		return truthy(right), true, nil
	case "??":
		return right, true, nil
	case "==":
		return equalValues(left, right), true, nil
	case "!=":
		return !equalValues(left, right), true, nil
	}

	if n.Op == "+" {
		if ls, lIsStr := left.(string); lIsStr {
			if rs, rIsStr := right.(string); rIsStr {
				return ls + rs, true, nil
			}
		}
	}

	lf, err := asNumber(left)
	if err != nil {
		return nil, false, n.errf("left operand of %q is not a number", n.Op)
	}
	rf, err := asNumber(right)
	if err != nil {
		return nil, false, n.errf("right operand of %q is not a number", n.Op)
	}
	switch n.Op {
	case "+":
		return lf + rf, true, nil
	case "-":
		return lf - rf, true, nil
	case "*":
		return lf * rf, true, nil
	case "/":
		if rf == 0 {
			return nil, false, n.errf("division by zero")
		}
		return lf / rf, true, nil
	case "%":
		if rf == 0 {
			return nil, false, n.errf("modulo by zero")
		}
		return float64(int64(lf) % int64(rf)), true, nil
	case "<":
		return lf < rf, true, nil
	case "<=":
		return lf <= rf, true, nil
	case ">":
		return lf > rf, true, nil
	case ">=":
		return lf >= rf, true, nil
	}
	return nil, false, n.errf("unknown binary operator %q", n.Op)
}

func (n *BinaryNode) errf(format string, args ...any) error {
	return gerrors.Build(gerrors.Mark(gerrors.Newf(format, args...), gerrors.ErrTemplate)).
		WithContext("offset", itoa(n.pos)).
		Err()
}

func (n *TernaryNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	cond, ok, err := n.Cond.Evaluate(ctx, ectx, opts)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if opts.AllowPartial {
			return unresolvedSelf(n, ectx, opts)
		}
		return nil, false, gerrors.Newf("ternary condition did not resolve")
	}
	if truthy(cond) {
		return n.Then.Evaluate(ctx, ectx, opts)
	}
	return n.Else.Evaluate(ctx, ectx, opts)
}

func (n *ArrayNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	out := make([]any, len(n.Elements))
	for i, e := range n.Elements {
		v, ok, err := e.Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if opts.AllowPartial {
				return unresolvedSelf(n, ectx, opts)
			}
			return nil, false, gerrors.Newf("array element %d did not resolve", i)
		}
		out[i] = v
	}
	return out, true, nil
}

func (n *ObjectNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	out := make(map[string]any, len(n.Keys))
	for i, k := range n.Keys {
		v, ok, err := n.Values[i].Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if opts.AllowPartial {
				return unresolvedSelf(n, ectx, opts)
			}
			return nil, false, gerrors.Newf("object field %q did not resolve", k)
		}
		out[k] = v
	}
	return out, true, nil
}

func (n *TemplateNode) Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (any, bool, error) {
	var sb strings.Builder
	for _, part := range n.Parts {
		v, ok, err := part.Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if opts.AllowPartial {
				return unresolvedSelf(n, ectx, opts)
			}
			return nil, false, gerrors.Newf("template part did not resolve")
		}
		sb.WriteString(toDisplayString(v))
	}
	return sb.String(), true, nil
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	default:
		return true
	}
}

func asNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	}
	return 0, gerrors.Build(gerrors.Mark(gerrors.Newf("value %v is not a number", v), gerrors.ErrTemplate)).Err()
}

func toDisplayString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
