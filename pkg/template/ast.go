// Package template implements the Template Engine (spec.md §4.1): parsing
// `${ ... }` expressions and structural operators ($merge/$concat/$if/
// $forEach) into an AST, and evaluating that AST against a layered Config
// Context with partial-evaluation support.
package template

import (
	"context"

	"github.com/garden-io/garden-sub017/pkg/function"
)

// LookupStatus is the three-way result of a Context lookup (spec.md §3
// "Config Context", §4.2): a concrete value, an unresolved leaf the caller
// may choose to force, or nothing at all.
type LookupStatus int

const (
	Absent LookupStatus = iota
	Found
	FoundUnresolved
)

// EvalContext is the minimal surface the Template Engine needs from a
// Config Context (pkg/gcontext implements the full layered version).
type EvalContext interface {
	Lookup(path string) (value any, status LookupStatus)
}

// EvalOptions controls one Evaluate call (spec.md §4.1 "Evaluation
// modes").
type EvalOptions struct {
	// AllowPartial permits a missing key to produce an Unresolved value
	// instead of a hard error.
	AllowPartial bool
	Functions    *function.Registry
}

// Node is one AST node produced by Parse. Evaluate returns the resulting
// value; ok reports whether the value is fully resolved (false means the
// returned value is an *Unresolved that must be re-evaluated later).
type Node interface {
	Evaluate(ctx context.Context, ectx EvalContext, opts EvalOptions) (value any, ok bool, err error)
	// Pos is the byte offset of this node's source span within the
	// original template string, for error reporting.
	Pos() int
}

// LiteralNode is a literal string/number/boolean/null value.
type LiteralNode struct {
	Value any
	pos   int
}

func (n *LiteralNode) Pos() int { return n.pos }
func (n *LiteralNode) Evaluate(context.Context, EvalContext, EvalOptions) (any, bool, error) {
	return n.Value, true, nil
}

// LookupNode resolves a dotted context path (spec.md §3 "Template AST
// node"). Segments may themselves be dynamic (index expressions), hence
// []PathSegment rather than []string.
type LookupNode struct {
	Path []PathSegment
	pos  int
}

// PathSegment is one component of a dotted/indexed lookup path: either a
// literal field name (Name != "") or a dynamic index expression (Index !=
// nil), covering both `a.b.c` and `a.b[0]`/`a["x"]` forms.
type PathSegment struct {
	Name  string
	Index Node
}

func (n *LookupNode) Pos() int { return n.pos }

// CallNode is a helper-function invocation (spec.md §4.1 "function calls
// from a fixed helper set").
type CallNode struct {
	Name string
	Args []Node
	pos  int
}

func (n *CallNode) Pos() int { return n.pos }

// UnaryNode is a prefix `!` or `-` expression.
type UnaryNode struct {
	Op      string
	Operand Node
	pos     int
}

func (n *UnaryNode) Pos() int { return n.pos }

// BinaryNode is any `==`, `!=`, `<`, `<=`, `>`, `>=`, `&&`, `||`, `+`, `-`,
// `*`, `/`, `%` or `??` expression.
type BinaryNode struct {
	Op          string
	Left, Right Node
	pos         int
}

func (n *BinaryNode) Pos() int { return n.pos }

// TernaryNode is a `cond ? then : else` expression.
type TernaryNode struct {
	Cond, Then, Else Node
	pos              int
}

func (n *TernaryNode) Pos() int { return n.pos }

// ArrayNode is an array literal.
type ArrayNode struct {
	Elements []Node
	pos      int
}

func (n *ArrayNode) Pos() int { return n.pos }

// ObjectNode is an object literal; key order is preserved (spec.md §9 open
// question 1 about insertion order applies symmetrically here).
type ObjectNode struct {
	Keys   []string
	Values []Node
	pos    int
}

func (n *ObjectNode) Pos() int { return n.pos }

// TemplateNode is a whole template string: literal text interleaved with
// `${...}` interpolations (spec.md §4.1 "Grammar"). When a template string
// is exactly one interpolation with no surrounding literal text, Parse
// returns that interpolation's inner Node directly instead of wrapping it
// in a TemplateNode, so `"${var.count}"` evaluates to a number rather than
// being stringified — a common convention in templating engines for
// infrastructure tools, preserved here deliberately.
type TemplateNode struct {
	Parts []Node // LiteralNode or an expression Node
	pos   int
}

func (n *TemplateNode) Pos() int { return n.pos }
