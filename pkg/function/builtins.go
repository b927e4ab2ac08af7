package function

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	gerrors "github.com/garden-io/garden-sub017/errors"
)

// sprigFuncs is resolved once: several helpers (camelCase, kebabCase,
// indent) delegate to Masterminds/sprig's string-case functions rather
// than reimplementing case-conversion rules by hand.
var sprigFuncs = sprig.TxtFuncMap()

func sprigString1(name string) func(string) string {
	fn, ok := sprigFuncs[name].(func(string) string)
	if !ok {
		panic(fmt.Sprintf("sprig function %q missing or has an unexpected signature", name))
	}
	return fn
}

func sprigIndent() func(int, string) string {
	fn, ok := sprigFuncs["indent"].(func(int, string) string)
	if !ok {
		panic("sprig function \"indent\" missing or has an unexpected signature")
	}
	return fn
}

func allBuiltins() []Function {
	camelcase := sprigString1("camelcase")
	return []Function{
		// String case conversions.
		strFn("upper", strings.ToUpper),
		strFn("lower", strings.ToLower),
		strFn("title", strings.Title), //nolint:staticcheck // matches teacher's stdlib "title" helper semantics
		&BaseFunction{FunctionName: "camelCase", FunctionPhase: PostMerge, Impl: strImpl(func(s string) string {
			// sprig's camelcase capitalizes the first word; lower its first rune.
			out := camelcase(s)
			r, size := utf8.DecodeRuneInString(out)
			if size == 0 {
				return out
			}
			return string(unicode.ToLower(r)) + out[size:]
		})},
		&BaseFunction{FunctionName: "kebabCase", FunctionPhase: PostMerge, Impl: strImpl(sprigString1("kebabcase"))},
		&BaseFunction{FunctionName: "indent", FunctionPhase: PostMerge, Impl: indentImpl},

		// Collection helpers.
		&BaseFunction{FunctionName: "join", FunctionPhase: PostMerge, Impl: joinImpl},
		&BaseFunction{FunctionName: "split", FunctionPhase: PostMerge, Impl: splitImpl},
		&BaseFunction{FunctionName: "slice", FunctionPhase: PostMerge, Impl: sliceImpl},
		&BaseFunction{FunctionName: "isEmpty", FunctionPhase: PostMerge, Impl: isEmptyImpl},
		&BaseFunction{FunctionName: "contains", FunctionPhase: PostMerge, Impl: containsImpl},

		// Encoding helpers.
		&BaseFunction{FunctionName: "jsonEncode", FunctionPhase: PostMerge, Impl: jsonEncodeImpl},
		&BaseFunction{FunctionName: "yamlEncode", FunctionPhase: PostMerge, Impl: yamlEncodeImpl},
		&BaseFunction{FunctionName: "base64Encode", FunctionPhase: PostMerge, Impl: base64EncodeImpl},
		&BaseFunction{FunctionName: "base64Decode", FunctionPhase: PostMerge, Impl: base64DecodeImpl},

		// Date helper.
		&BaseFunction{FunctionName: "formatDateUTC", FunctionPhase: PostMerge, Impl: formatDateUTCImpl},
	}
}

func strFn(name string, f func(string) string) Function {
	return &BaseFunction{FunctionName: name, FunctionPhase: PostMerge, Impl: strImpl(f)}
}

func strImpl(f func(string) string) ExecFunc {
	return func(_ context.Context, args []any) (any, error) {
		s, err := arg1String(args)
		if err != nil {
			return nil, err
		}
		return f(s), nil
	}
}

func arg1String(args []any) (string, error) {
	if len(args) != 1 {
		return "", gerrors.Newf("expected exactly 1 argument, got %d", len(args))
	}
	s, ok := args[0].(string)
	if !ok {
		return "", gerrors.Newf("expected a string argument, got %T", args[0])
	}
	return s, nil
}

func indentImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, gerrors.Newf("indent expects 2 arguments (spaces, value), got %d", len(args))
	}
	spacesF, ok := toFloat(args[0])
	if !ok {
		return nil, gerrors.Newf("indent: first argument must be a number")
	}
	s, ok := args[1].(string)
	if !ok {
		return nil, gerrors.Newf("indent: second argument must be a string")
	}
	return sprigIndent()(int(spacesF), s), nil
}

func joinImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, gerrors.Newf("join expects 2 arguments (separator, list), got %d", len(args))
	}
	sep, ok := args[0].(string)
	if !ok {
		return nil, gerrors.Newf("join: first argument must be a string separator")
	}
	items, err := toStringSlice(args[1])
	if err != nil {
		return nil, gerrors.Wrap(err, "join: second argument")
	}
	return strings.Join(items, sep), nil
}

func splitImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, gerrors.Newf("split expects 2 arguments (separator, value), got %d", len(args))
	}
	sep, ok := args[0].(string)
	if !ok {
		return nil, gerrors.Newf("split: first argument must be a string separator")
	}
	s, ok := args[1].(string)
	if !ok {
		return nil, gerrors.Newf("split: second argument must be a string")
	}
	parts := strings.Split(s, sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func sliceImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 3 {
		return nil, gerrors.Newf("slice expects 3 arguments (list, start, end), got %d", len(args))
	}
	list, ok := args[0].([]any)
	if !ok {
		return nil, gerrors.Newf("slice: first argument must be a list")
	}
	startF, ok1 := toFloat(args[1])
	endF, ok2 := toFloat(args[2])
	if !ok1 || !ok2 {
		return nil, gerrors.Newf("slice: start/end must be numbers")
	}
	start, end := int(startF), int(endF)
	if start < 0 || end > len(list) || start > end {
		return nil, gerrors.Newf("slice: index out of range [%d:%d] on list of length %d", start, end, len(list))
	}
	out := make([]any, end-start)
	copy(out, list[start:end])
	return out, nil
}

func isEmptyImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, gerrors.Newf("isEmpty expects exactly 1 argument, got %d", len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return true, nil
	case string:
		return v == "", nil
	case []any:
		return len(v) == 0, nil
	case map[string]any:
		return len(v) == 0, nil
	case bool:
		return !v, nil
	default:
		return false, nil
	}
}

func containsImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, gerrors.Newf("contains expects 2 arguments (collection, item), got %d", len(args))
	}
	switch c := args[0].(type) {
	case string:
		item, ok := args[1].(string)
		if !ok {
			return nil, gerrors.Newf("contains: item must be a string when collection is a string")
		}
		return strings.Contains(c, item), nil
	case []any:
		for _, el := range c {
			if equalValues(el, args[1]) {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, gerrors.Newf("contains: unsupported collection type %T", args[0])
	}
}

func jsonEncodeImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, gerrors.Newf("jsonEncode expects exactly 1 argument, got %d", len(args))
	}
	b, err := json.Marshal(args[0])
	if err != nil {
		return nil, gerrors.Wrap(err, "jsonEncode")
	}
	return string(b), nil
}

func yamlEncodeImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 1 {
		return nil, gerrors.Newf("yamlEncode expects exactly 1 argument, got %d", len(args))
	}
	b, err := yaml.Marshal(args[0])
	if err != nil {
		return nil, gerrors.Wrap(err, "yamlEncode")
	}
	return strings.TrimSuffix(string(b), "\n"), nil
}

func base64EncodeImpl(_ context.Context, args []any) (any, error) {
	s, err := arg1String(args)
	if err != nil {
		return nil, gerrors.Wrap(err, "base64Encode")
	}
	return base64.StdEncoding.EncodeToString([]byte(s)), nil
}

func base64DecodeImpl(_ context.Context, args []any) (any, error) {
	s, err := arg1String(args)
	if err != nil {
		return nil, gerrors.Wrap(err, "base64Decode")
	}
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, gerrors.Wrap(err, "base64Decode: invalid base64 input")
	}
	return string(decoded), nil
}

func formatDateUTCImpl(_ context.Context, args []any) (any, error) {
	if len(args) != 2 {
		return nil, gerrors.Newf("formatDateUTC expects 2 arguments (layout, rfc3339Value), got %d", len(args))
	}
	layout, ok := args[0].(string)
	if !ok {
		return nil, gerrors.Newf("formatDateUTC: first argument must be a layout string")
	}
	raw, ok := args[1].(string)
	if !ok {
		return nil, gerrors.Newf("formatDateUTC: second argument must be an RFC3339 timestamp string")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, gerrors.Wrap(err, "formatDateUTC: parsing timestamp")
	}
	return t.UTC().Format(layout), nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toStringSlice(v any) ([]string, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, gerrors.Newf("expected a list, got %T", v)
	}
	out := make([]string, len(list))
	for i, e := range list {
		s, ok := e.(string)
		if !ok {
			return nil, gerrors.Newf("element %d is not a string (got %T)", i, e)
		}
		out[i] = s
	}
	return out, nil
}

func equalValues(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}
