// Package solver implements the Solver (spec.md §4.6, C6): it expands a
// requested operation over the action graph into a Resolve/Status/Process
// task per action, schedules those tasks respecting the dependency rules
// below and the project's concurrency ceilings, and assembles the outcome
// into an OperationResult.
//
// Task dependency rules (spec.md §4.6 "Task", refined here where the
// prose leaves the exact wiring an implementation choice):
//
//   - Resolve(A) depends on Resolve(dep) for every dependency, plus
//     Status(dep) for a status-edge dependency or Process(dep) for a
//     process-edge one — either way, by the time Resolve(A) runs, dep has
//     published whatever outputs it's going to have before A's own
//     process step needs them.
//   - Status(A) depends on Resolve(A) plus Status(dep) for every
//     dependency (a status check never needs a dependency's full
//     process-result outputs, only that the dependency itself resolved
//     and has a status).
//   - Process(A) depends on Status(A), Resolve(A), and the same
//     Status(dep)/Process(dep) split Resolve(A) uses.
package solver

import (
	"fmt"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/graph"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// taskKey identifies one task in the forest.
type taskKey struct {
	Ref  schema.ActionRef
	Kind schema.TaskKind
}

func (k taskKey) String() string {
	return fmt.Sprintf("%s.%s", k.Ref, k.Kind)
}

// taskNode is one scheduled unit of work plus the bookkeeping the
// scheduler needs: which tasks it waits on, and a done channel other
// tasks wait on in turn.
type taskNode struct {
	key       taskKey
	dependsOn []taskKey
	node      *graph.Node

	done   chan struct{}
	state  schema.TaskState
	result schema.TaskResult
}

// buildForest expands every action in closure into its three tasks and
// wires dependsOn per the rules in the package doc comment.
func buildForest(closure []*graph.Node) map[taskKey]*taskNode {
	forest := make(map[taskKey]*taskNode, len(closure)*3)
	inClosure := make(map[string]bool, len(closure))
	for _, n := range closure {
		inClosure[n.ID] = true
	}

	for _, n := range closure {
		ref := n.Action.Ref()
		for _, kind := range []schema.TaskKind{schema.TaskResolve, schema.TaskStatus, schema.TaskProcess} {
			forest[taskKey{Ref: ref, Kind: kind}] = &taskNode{
				key:  taskKey{Ref: ref, Kind: kind},
				node: n,
				done: make(chan struct{}),
			}
		}
	}

	for _, n := range closure {
		ref := n.Action.Ref()
		resolve := forest[taskKey{Ref: ref, Kind: schema.TaskResolve}]
		status := forest[taskKey{Ref: ref, Kind: schema.TaskStatus}]
		process := forest[taskKey{Ref: ref, Kind: schema.TaskProcess}]

		status.dependsOn = append(status.dependsOn, resolve.key)
		process.dependsOn = append(process.dependsOn, status.key, resolve.key)

		for _, e := range n.Dependencies {
			if !inClosure[e.To] {
				continue
			}
			depAction := refOf(e.To)
			depResolve := taskKey{Ref: depAction, Kind: schema.TaskResolve}
			depStatus := taskKey{Ref: depAction, Kind: schema.TaskStatus}
			depProcess := taskKey{Ref: depAction, Kind: schema.TaskProcess}

			resolve.dependsOn = append(resolve.dependsOn, depResolve)
			status.dependsOn = append(status.dependsOn, depStatus)

			if e.Kind == graph.ProcessEdge {
				resolve.dependsOn = append(resolve.dependsOn, depProcess)
				process.dependsOn = append(process.dependsOn, depProcess)
			} else {
				resolve.dependsOn = append(resolve.dependsOn, depStatus)
				process.dependsOn = append(process.dependsOn, depStatus)
			}
		}
	}
	return forest
}

// refOf parses a graph node ID ("Kind.Name") back into an ActionRef. Node
// IDs are always produced by ActionRef.String, so this is a simple split
// on the first '.'.
func refOf(id string) schema.ActionRef {
	for i := 0; i < len(id); i++ {
		if id[i] == '.' {
			return schema.ActionRef{Kind: schema.ActionKind(id[:i]), Name: id[i+1:]}
		}
	}
	return schema.ActionRef{Name: id}
}

// closureOf collects every node reachable from targets by following
// Dependencies edges (targets included), or every node in g if targets is
// empty.
func closureOf(g *graph.Graph, targets []schema.ActionRef) ([]*graph.Node, error) {
	if len(targets) == 0 {
		out := make([]*graph.Node, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			out = append(out, n)
		}
		return out, nil
	}

	seen := make(map[string]bool)
	var order []*graph.Node
	var visit func(id string) error
	visit = func(id string) error {
		if seen[id] {
			return nil
		}
		seen[id] = true
		n, ok := g.Nodes[id]
		if !ok {
			return gerrors.Build(gerrors.Mark(gerrors.Newf("target %q does not refer to an existing action", id), gerrors.ErrValidation)).Err()
		}
		for _, e := range n.Dependencies {
			if err := visit(e.To); err != nil {
				return err
			}
		}
		order = append(order, n)
		return nil
	}
	for _, t := range targets {
		if err := visit(t.String()); err != nil {
			return nil, err
		}
	}
	return order, nil
}
