package function

import (
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

// ToCty converts a native Go value (as produced by the Template Engine's
// evaluator: nil/bool/string/int/int64/float64/[]any/map[string]any) into a
// cty.Value, so helper functions can be exposed through an hcl.EvalContext.
func ToCty(v any) (cty.Value, error) {
	switch val := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return val, nil
	case bool:
		return cty.BoolVal(val), nil
	case string:
		return cty.StringVal(val), nil
	case int:
		return cty.NumberIntVal(int64(val)), nil
	case int64:
		return cty.NumberIntVal(val), nil
	case float64:
		return cty.NumberFloatVal(val), nil
	case []any:
		if len(val) == 0 {
			return cty.ListValEmpty(cty.DynamicPseudoType), nil
		}
		elems := make([]cty.Value, len(val))
		for i, e := range val {
			cv, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			elems[i] = cv
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		if len(val) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attrs := make(map[string]cty.Value, len(val))
		for k, e := range val {
			cv, err := ToCty(e)
			if err != nil {
				return cty.NilVal, err
			}
			attrs[k] = cv
		}
		return cty.ObjectVal(attrs), nil
	default:
		return cty.NilVal, gerrors.Newf("cannot convert %T to cty.Value", v)
	}
}

// FromCty converts a cty.Value back into a native Go value.
func FromCty(v cty.Value) (any, error) {
	if !v.IsKnown() {
		return nil, nil
	}
	if v.IsNull() {
		return nil, nil
	}

	t := v.Type()
	switch {
	case t == cty.String:
		return v.AsString(), nil
	case t == cty.Bool:
		return v.True(), nil
	case t == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case t.IsTupleType() || t.IsListType() || t.IsSetType():
		out := make([]any, 0, v.LengthInt())
		it := v.ElementIterator()
		for it.Next() {
			_, ev := it.Element()
			native, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case t.IsObjectType() || t.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			kv, ev := it.Element()
			native, err := FromCty(ev)
			if err != nil {
				return nil, err
			}
			out[kv.AsString()] = native
		}
		return out, nil
	default:
		return nil, gerrors.Newf("cannot convert cty type %s to a native value", t.FriendlyName())
	}
}
