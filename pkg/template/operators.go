package template

import (
	"context"
	"sort"
	"strconv"
	"strings"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// skipMarker is the sentinel a $if without a matching branch resolves to
// (spec.md §4.1 structural operators): the containing map key or list
// element is omitted entirely rather than set to null.
type skipMarker struct{}

// SkipValue is the shared skipMarker singleton; compare with == or the
// IsSkip helper.
var SkipValue = &skipMarker{}

// IsSkip reports whether v is the $if "omit this entry" sentinel.
func IsSkip(v any) bool {
	_, ok := v.(*skipMarker)
	return ok
}

// DeferredTree is the container-level counterpart of *Unresolved: it is
// produced when a structural operator ($merge/$if/$forEach/$concat)
// cannot be evaluated yet because one of its own operand trees resolved to
// an *Unresolved or *DeferredTree leaf. Unlike a plain unresolved leaf
// value (which DeepEvaluate is happy to leave embedded in place inside a
// map or list, for some other field to pick up later), an operator cannot
// be partially applied — e.g. you cannot evaluate $if without knowing the
// condition — so the whole operator tree is deferred as a unit.
type DeferredTree struct {
	Tree any
	Ctx  EvalContext
	Opts EvalOptions
}

// Reevaluate re-runs DeepEvaluate over the deferred tree against a new
// (presumably richer) context.
func (d *DeferredTree) Reevaluate(ctx context.Context, ectx EvalContext) (any, bool, error) {
	return DeepEvaluate(ctx, ectx, d.Opts, d.Tree)
}

// DeepEvaluate walks an arbitrary document tree (as decoded by
// schema.DecodeOrdered: *schema.OrderedMap / []any / scalars, or a plain
// map[string]any for trees built directly in Go code) evaluating every
// `${...}` string leaf and applying the $merge/$concat/$if/$forEach
// structural operators (spec.md §4.1). Unlike Node.Evaluate, an unresolved
// leaf does not abort the whole call: DeepEvaluate leaves the *Unresolved
// embedded at that position in the returned tree and keeps walking, so a
// document can be "mostly resolved" with a handful of deferred leaves. A
// structural operator whose own operand is unresolved defers as a whole
// (*DeferredTree), since e.g. $if cannot pick a branch without its
// condition.
func DeepEvaluate(ctx context.Context, ectx EvalContext, opts EvalOptions, tree any) (any, bool, error) {
	switch v := tree.(type) {
	case string:
		node, err := Parse(v)
		if err != nil {
			return nil, false, err
		}
		val, _, err := node.Evaluate(ctx, ectx, opts)
		if err != nil {
			return nil, false, err
		}
		// An unresolved leaf (val is an *Unresolved) is embedded in place
		// rather than propagated as a DeepEvaluate-level failure.
		return val, true, nil
	case *schema.OrderedMap:
		return evaluateMap(ctx, ectx, opts, v)
	case map[string]any:
		om := schema.NewOrderedMap()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			om.Set(k, v[k])
		}
		return evaluateMap(ctx, ectx, opts, om)
	case []any:
		return evaluateList(ctx, ectx, opts, v)
	default:
		return v, true, nil
	}
}

func opError(format string, args ...any) error {
	return gerrors.Build(gerrors.Mark(gerrors.Newf(format, args...), gerrors.ErrTemplate)).Err()
}

// isDeferredValue reports whether v is an embedded *Unresolved or
// *DeferredTree. Plain map/list fields are happy to hold such a value and
// move on (spec.md §4.1 "deepEvaluate leaves an unresolved leaf embedded
// in place"), but a structural operator's own required operand — the
// $merge base, the $if condition, the $forEach collection, the $concat
// splice source — must be a concrete value to proceed, so those call
// sites check this and defer the whole operator when it is not.
func isDeferredValue(v any) bool {
	switch v.(type) {
	case *Unresolved, *DeferredTree:
		return true
	}
	return false
}

func evaluateMap(ctx context.Context, ectx EvalContext, opts EvalOptions, m *schema.OrderedMap) (any, bool, error) {
	if v, ok := m.Get("$merge"); ok {
		return evalMergeOp(ctx, ectx, opts, m, v)
	}
	if v, ok := m.Get("$if"); ok {
		return evalIfOp(ctx, ectx, opts, m, v)
	}
	if v, ok := m.Get("$forEach"); ok {
		return evalForEachOp(ctx, ectx, opts, m, v)
	}
	if v, ok := m.Get("$concat"); ok && m.Len() == 1 {
		return DeepEvaluate(ctx, ectx, opts, v)
	}

	out := schema.NewOrderedMap()
	for _, k := range m.Keys() {
		val, _ := m.Get(k)
		rv, _, err := DeepEvaluate(ctx, ectx, opts, val)
		if err != nil {
			return nil, false, err
		}
		if IsSkip(rv) {
			continue
		}
		out.Set(k, rv)
	}
	return out, true, nil
}

// evalMergeOp implements `{"$merge": base, ...overlay}`: base is evaluated
// first, then every other key in m is evaluated and overlaid on top,
// ordinary-key-wins, in the order those keys appear in the source
// document.
func evalMergeOp(ctx context.Context, ectx EvalContext, opts EvalOptions, m *schema.OrderedMap, baseTree any) (any, bool, error) {
	baseVal, _, err := DeepEvaluate(ctx, ectx, opts, baseTree)
	if err != nil {
		return nil, false, err
	}
	if isDeferredValue(baseVal) {
		return &DeferredTree{Tree: m, Ctx: ectx, Opts: opts}, false, nil
	}
	baseMap, isMap := baseVal.(*schema.OrderedMap)
	if !isMap {
		return nil, false, opError("$merge base did not evaluate to an object")
	}
	out := baseMap.Clone()
	for _, k := range m.Keys() {
		if k == "$merge" {
			continue
		}
		val, _ := m.Get(k)
		rv, _, err := DeepEvaluate(ctx, ectx, opts, val)
		if err != nil {
			return nil, false, err
		}
		if IsSkip(rv) {
			out.Delete(k)
			continue
		}
		out.Set(k, rv)
	}
	return out, true, nil
}

// evalIfOp implements `{"$if": cond, "then": ..., "else": ...}`. Missing
// "else" resolves to SkipValue when the condition is false.
func evalIfOp(ctx context.Context, ectx EvalContext, opts EvalOptions, m *schema.OrderedMap, condTree any) (any, bool, error) {
	condVal, _, err := DeepEvaluate(ctx, ectx, opts, condTree)
	if err != nil {
		return nil, false, err
	}
	if isDeferredValue(condVal) {
		return &DeferredTree{Tree: m, Ctx: ectx, Opts: opts}, false, nil
	}
	cond, isBool := condVal.(bool)
	if !isBool {
		return nil, false, opError("$if condition did not evaluate to a boolean")
	}
	if cond {
		thenTree, has := m.Get("then")
		if !has {
			return nil, false, opError(`$if is missing required "then"`)
		}
		return DeepEvaluate(ctx, ectx, opts, thenTree)
	}
	if elseTree, has := m.Get("else"); has {
		return DeepEvaluate(ctx, ectx, opts, elseTree)
	}
	return SkipValue, true, nil
}

// evalForEachOp implements `{"$forEach": collection, "as": "item", "into":
// template}`. "as" defaults to "item". Iterating a list binds each element
// directly; iterating an object binds `{key, value}` pairs. The result is
// always a list, in input order (spec.md §9 open question 1: mapping
// $forEach onto a surrounding object's keys is not supported — use
// $forEach only where a list is expected).
func evalForEachOp(ctx context.Context, ectx EvalContext, opts EvalOptions, m *schema.OrderedMap, collTree any) (any, bool, error) {
	collVal, _, err := DeepEvaluate(ctx, ectx, opts, collTree)
	if err != nil {
		return nil, false, err
	}
	if isDeferredValue(collVal) {
		return &DeferredTree{Tree: m, Ctx: ectx, Opts: opts}, false, nil
	}
	intoTree, has := m.Get("into")
	if !has {
		return nil, false, opError(`$forEach is missing required "into"`)
	}
	asName := "item"
	if v, has := m.Get("as"); has {
		if s, isStr := v.(string); isStr {
			asName = s
		}
	}

	var items []any
	switch c := collVal.(type) {
	case []any:
		items = c
	case *schema.OrderedMap:
		for _, k := range c.Keys() {
			v, _ := c.Get(k)
			items = append(items, map[string]any{"key": k, "value": v})
		}
	default:
		return nil, false, opError("$forEach collection is not a list or object")
	}

	out := make([]any, 0, len(items))
	for _, item := range items {
		childCtx := &itemContext{name: asName, value: item, parent: ectx}
		rv, _, err := DeepEvaluate(ctx, childCtx, opts, intoTree)
		if err != nil {
			return nil, false, err
		}
		if IsSkip(rv) {
			continue
		}
		out = append(out, rv)
	}
	return out, true, nil
}

// evaluateList walks a raw list, splicing in any `{"$concat": list}`
// element in place (spec.md §4.1: "$concat inside a list splices its
// evaluated-list argument into the surrounding list").
func evaluateList(ctx context.Context, ectx EvalContext, opts EvalOptions, list []any) (any, bool, error) {
	out := make([]any, 0, len(list))
	for _, elem := range list {
		if om, isMap := elem.(*schema.OrderedMap); isMap {
			if v, has := om.Get("$concat"); has && om.Len() == 1 {
				spliced, _, err := DeepEvaluate(ctx, ectx, opts, v)
				if err != nil {
					return nil, false, err
				}
				if isDeferredValue(spliced) {
					return &DeferredTree{Tree: list, Ctx: ectx, Opts: opts}, false, nil
				}
				sl, isList := spliced.([]any)
				if !isList {
					return nil, false, opError("$concat value is not a list")
				}
				out = append(out, sl...)
				continue
			}
		}
		rv, _, err := DeepEvaluate(ctx, ectx, opts, elem)
		if err != nil {
			return nil, false, err
		}
		if IsSkip(rv) {
			continue
		}
		out = append(out, rv)
	}
	return out, true, nil
}

// itemContext overlays one $forEach-bound variable on top of a parent
// EvalContext: lookups for `<name>` or `<name>.<rest>` resolve against the
// bound item; everything else falls through to parent.
type itemContext struct {
	name   string
	value  any
	parent EvalContext
}

func (c *itemContext) Lookup(path string) (any, LookupStatus) {
	if path == c.name {
		return navigate(c.value, "")
	}
	prefix := c.name + "."
	if strings.HasPrefix(path, prefix) {
		return navigate(c.value, strings.TrimPrefix(path, prefix))
	}
	return c.parent.Lookup(path)
}

// navigate resolves a dotted/numeric rest-path inside an already-evaluated
// value tree (map[string]any / *schema.OrderedMap / []any).
func navigate(value any, path string) (any, LookupStatus) {
	cur := value
	if path != "" {
		for _, seg := range strings.Split(path, ".") {
			switch c := cur.(type) {
			case *schema.OrderedMap:
				v, ok := c.Get(seg)
				if !ok {
					return nil, Absent
				}
				cur = v
			case map[string]any:
				v, ok := c[seg]
				if !ok {
					return nil, Absent
				}
				cur = v
			case []any:
				idx, err := strconv.Atoi(seg)
				if err != nil || idx < 0 || idx >= len(c) {
					return nil, Absent
				}
				cur = c[idx]
			default:
				return nil, Absent
			}
		}
	}
	switch cur.(type) {
	case *Unresolved, *DeferredTree:
		return cur, FoundUnresolved
	default:
		return cur, Found
	}
}
