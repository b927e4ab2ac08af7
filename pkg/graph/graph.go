// Package graph builds and queries the immutable action DAG (spec.md §4.5,
// Graph Builder / C5): nodes are actions, edges are the implicit
// dependencies discovered while preprocessing each action's template
// references, typed as either a status edge (reference to a statically
// known output) or a process edge (reference to a runtime output).
package graph

import (
	"fmt"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// EdgeKind distinguishes a dependency that only needs the dependency's
// status checked from one that needs it actually processed first
// (spec.md §4.5 "Implicit dependencies").
type EdgeKind int

const (
	StatusEdge EdgeKind = iota
	ProcessEdge
)

func (k EdgeKind) String() string {
	if k == ProcessEdge {
		return "process"
	}
	return "status"
}

// Edge is one outgoing dependency from a Node.
type Edge struct {
	To   string
	Kind EdgeKind
}

// Node is one action in the graph.
type Node struct {
	ID           string
	Action       *schema.Action
	Dependencies []Edge
	Dependents   []string
	Version      string
}

// Graph is a directed graph of action Nodes, built incrementally via
// AddNode/AddDependency and then queried via the traversal methods below.
type Graph struct {
	Nodes map[string]*Node
	Roots []string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

// Size returns the number of nodes.
func (g *Graph) Size() int { return len(g.Nodes) }

// AddNode registers a new node. Returns an error for a nil node, an empty
// ID, or a duplicate ID.
func (g *Graph) AddNode(n *Node) error {
	if n == nil {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("cannot add nil node"), gerrors.ErrValidation)).Err()
	}
	if n.ID == "" {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node ID cannot be empty"), gerrors.ErrValidation)).Err()
	}
	if _, exists := g.Nodes[n.ID]; exists {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node %q already exists", n.ID), gerrors.ErrValidation)).Err()
	}
	g.Nodes[n.ID] = n
	return nil
}

// AddDependency records that fromID depends on toID with the given edge
// kind. Both nodes must already exist; a self-dependency or duplicate edge
// is rejected/ignored respectively.
func (g *Graph) AddDependency(fromID, toID string, kind EdgeKind) error {
	if fromID == "" || toID == "" {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node IDs cannot be empty"), gerrors.ErrValidation)).Err()
	}
	if fromID == toID {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node %q cannot depend on itself", fromID), gerrors.ErrValidation)).Err()
	}
	from, ok := g.Nodes[fromID]
	if !ok {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node %q does not exist", fromID), gerrors.ErrValidation)).Err()
	}
	to, ok := g.Nodes[toID]
	if !ok {
		return gerrors.Build(gerrors.Mark(gerrors.Newf("node %q does not exist", toID), gerrors.ErrValidation)).Err()
	}
	for _, e := range from.Dependencies {
		if e.To == toID {
			return nil // idempotent
		}
	}
	from.Dependencies = append(from.Dependencies, Edge{To: toID, Kind: kind})
	to.Dependents = append(to.Dependents, fromID)
	return nil
}

// IdentifyRoots recomputes Roots: nodes with no outgoing dependencies.
func (g *Graph) IdentifyRoots() {
	g.Roots = nil
	for id, n := range g.Nodes {
		if len(n.Dependencies) == 0 {
			g.Roots = append(g.Roots, id)
		}
	}
}

// HasCycles reports whether the graph contains a cycle and, if so, one
// concrete cycle path for diagnostics.
func (g *Graph) HasCycles() (bool, []string) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.Nodes))
	var stack []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		stack = append(stack, id)
		for _, e := range g.Nodes[id].Dependencies {
			switch color[e.To] {
			case gray:
				// Found the back-edge; build the cycle path from the
				// stack starting at e.To.
				start := 0
				for i, s := range stack {
					if s == e.To {
						start = i
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, e.To)
			case white:
				if cyc := visit(e.To); cyc != nil {
					return cyc
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for id := range g.Nodes {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return true, cyc
			}
		}
	}
	return false, nil
}

// TopologicalSort returns nodes ordered so every dependency precedes its
// dependents, using Kahn's algorithm over the Dependencies edges (so a
// node with no dependencies — a "root" in this package's terminology —
// comes first). Returns an error naming the cycle if the graph is not a
// DAG.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if has, cycle := g.HasCycles(); has {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("circular dependency detected: %v", cycle), gerrors.ErrCycle)).Err()
	}

	remaining := make(map[string]int, len(g.Nodes))
	for id, n := range g.Nodes {
		remaining[id] = len(n.Dependencies)
	}

	var ready []string
	for id, count := range remaining {
		if count == 0 {
			ready = append(ready, id)
		}
	}

	var order []*Node
	for len(ready) > 0 {
		sortStrings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, g.Nodes[id])
		for _, dependentID := range g.Nodes[id].Dependents {
			remaining[dependentID]--
			if remaining[dependentID] == 0 {
				ready = append(ready, dependentID)
			}
		}
	}
	return order, nil
}

// ReverseTopologicalSort returns nodes in the opposite order: every
// dependent precedes its dependencies.
func (g *Graph) ReverseTopologicalSort() ([]*Node, error) {
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]*Node, len(order))
	for i, n := range order {
		out[len(order)-1-i] = n
	}
	return out, nil
}

// GetExecutionLevels groups nodes into waves: level 0 has no dependencies,
// level k's nodes depend only on nodes in levels < k. Every node in the
// same level can run concurrently.
func (g *Graph) GetExecutionLevels() ([][]*Node, error) {
	if has, cycle := g.HasCycles(); has {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("circular dependency detected: %v", cycle), gerrors.ErrCycle)).Err()
	}

	level := make(map[string]int, len(g.Nodes))
	var compute func(id string) int
	compute = func(id string) int {
		if lv, ok := level[id]; ok {
			return lv
		}
		max := -1
		for _, e := range g.Nodes[id].Dependencies {
			if lv := compute(e.To); lv > max {
				max = lv
			}
		}
		level[id] = max + 1
		return level[id]
	}

	maxLevel := 0
	for id := range g.Nodes {
		lv := compute(id)
		if lv > maxLevel {
			maxLevel = lv
		}
	}

	levels := make([][]*Node, maxLevel+1)
	for id, lv := range level {
		levels[lv] = append(levels[lv], g.Nodes[id])
	}
	for _, lv := range levels {
		sortNodes(lv)
	}
	return levels, nil
}

// FindPath returns a dependency chain from fromID to toID (inclusive,
// fromID first), if one exists.
func (g *Graph) FindPath(fromID, toID string) ([]string, bool) {
	if fromID == toID {
		if _, ok := g.Nodes[fromID]; ok {
			return []string{fromID}, true
		}
		return nil, false
	}
	visited := map[string]bool{fromID: true}
	var dfs func(id string, path []string) ([]string, bool)
	dfs = func(id string, path []string) ([]string, bool) {
		n, ok := g.Nodes[id]
		if !ok {
			return nil, false
		}
		for _, e := range n.Dependencies {
			if e.To == toID {
				return append(append([]string{}, path...), e.To), true
			}
			if !visited[e.To] {
				visited[e.To] = true
				if p, found := dfs(e.To, append(path, e.To)); found {
					return p, true
				}
			}
		}
		return nil, false
	}
	return dfs(fromID, []string{fromID})
}

// IsReachable reports whether toID is reachable from fromID by following
// dependency edges (including fromID == toID).
func (g *Graph) IsReachable(fromID, toID string) bool {
	if fromID == toID {
		_, ok := g.Nodes[fromID]
		return ok
	}
	_, found := g.FindPath(fromID, toID)
	return found
}

// Filter returns a new graph containing only nodes for which keep returns
// true, along with edges between two kept nodes.
func (g *Graph) Filter(keep func(*Node) bool) *Graph {
	out := NewGraph()
	for id, n := range g.Nodes {
		if keep(n) {
			out.Nodes[id] = &Node{ID: n.ID, Action: n.Action, Version: n.Version}
		}
	}
	for id, n := range g.Nodes {
		if _, ok := out.Nodes[id]; !ok {
			continue
		}
		for _, e := range n.Dependencies {
			if _, ok := out.Nodes[e.To]; ok {
				out.Nodes[id].Dependencies = append(out.Nodes[id].Dependencies, e)
				out.Nodes[e.To].Dependents = append(out.Nodes[e.To].Dependents, id)
			}
		}
	}
	out.IdentifyRoots()
	return out
}

// Clone deep-copies the graph: nodes, edges and Roots are all independent
// of the original (the *schema.Action pointer itself is shared, since
// actions are treated as immutable once the graph is built).
func (g *Graph) Clone() *Graph {
	out := NewGraph()
	for id, n := range g.Nodes {
		out.Nodes[id] = &Node{
			ID:           n.ID,
			Action:       n.Action,
			Version:      n.Version,
			Dependencies: append([]Edge{}, n.Dependencies...),
			Dependents:   append([]string{}, n.Dependents...),
		}
	}
	out.Roots = append([]string{}, g.Roots...)
	return out
}

func sortStrings(ss []string) {
	for i := 1; i < len(ss); i++ {
		for j := i; j > 0 && ss[j-1] > ss[j]; j-- {
			ss[j-1], ss[j] = ss[j], ss[j-1]
		}
	}
}

func sortNodes(ns []*Node) {
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j-1].ID > ns[j].ID; j-- {
			ns[j-1], ns[j] = ns[j], ns[j-1]
		}
	}
}

// String renders a node for diagnostics (e.g. inside a cycle-detection
// error already formatted by the caller).
func (n *Node) String() string {
	return fmt.Sprintf("%s(%s)", n.ID, n.Version)
}
