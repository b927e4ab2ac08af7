// Package graphbuilder implements the Graph Builder (spec.md §4.5, C5):
// discovering each action's implicit dependencies by scanning its
// unresolved template references, validating the resulting DAG, and
// computing each action's content-derived Version in dependency order.
package graphbuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/hashstructure/v2"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/graph"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
	"github.com/garden-io/garden-sub017/pkg/vcs"
)

// Build constructs the immutable action DAG from a set of resolved
// actions (spec.md §4.5 "Preprocess" through "Output"): it runs each
// registered provider's AugmentGraph handler, records every implicit
// dependency discovered in an action's still-unresolved spec/variables
// fields plus every explicit "dependencies" entry, validates the graph,
// and computes each action's Version. plugins may be nil, in which case
// augmentation is skipped entirely.
func Build(ctx context.Context, actions []*schema.Action, settings schema.Settings, vcsProvider vcs.Provider, plugins *plugin.Registry) (*graph.Graph, error) {
	actions, err := augment(ctx, actions, plugins)
	if err != nil {
		return nil, err
	}

	g := graph.NewGraph()
	byRef := make(map[schema.ActionRef]*schema.Action, len(actions))

	for _, a := range actions {
		byRef[a.Ref()] = a
	}

	for _, a := range actions {
		if err := g.AddNode(&graph.Node{ID: a.Ref().String(), Action: a}); err != nil {
			return nil, err
		}
	}

	for _, a := range actions {
		edges, err := discoverEdges(a, byRef)
		if err != nil {
			return nil, err
		}
		for to, kind := range edges {
			if err := g.AddDependency(a.Ref().String(), to.String(), kind); err != nil {
				return nil, err
			}
		}
		if a.Build != "" {
			buildRef := schema.ActionRef{Kind: schema.KindBuild, Name: a.Build}
			if _, ok := byRef[buildRef]; !ok {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: build %q does not refer to an existing Build action", a.Ref(), a.Build), gerrors.ErrValidation)).Err()
			}
			if err := g.AddDependency(a.Ref().String(), buildRef.String(), graph.StatusEdge); err != nil {
				return nil, err
			}
		}
	}

	if has, cycle := g.HasCycles(); has {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("circular dependency: %v", cycle), gerrors.ErrCycle)).Err()
	}
	g.IdentifyRoots()

	if err := computeVersions(ctx, g, settings, vcsProvider); err != nil {
		return nil, err
	}
	return g, nil
}

// augment runs every registered provider's AugmentGraph handler (spec.md
// §4.5 "Augmentation": "each provider may run an augmentGraph handler that
// returns additional action configs and/or edges... cannot remove or
// mutate existing actions"). Returns actions unchanged if plugins is nil
// or no provider implements the handler.
func augment(ctx context.Context, actions []*schema.Action, plugins *plugin.Registry) ([]*schema.Action, error) {
	if plugins == nil {
		return actions, nil
	}

	byRef := make(map[schema.ActionRef]*schema.Action, len(actions))
	for _, a := range actions {
		byRef[a.Ref()] = a
	}

	out := append([]*schema.Action(nil), actions...)
	for _, name := range plugins.Names() {
		p, ok := plugins.Get(name)
		if !ok || p.AugmentGraph == nil {
			continue
		}
		addActions, addDependencies, err := p.AugmentGraph.AugmentGraph(ctx, actions)
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "provider %q: augmentGraph", name), gerrors.ErrPlugin)).Err()
		}
		for _, a := range addActions {
			if _, exists := byRef[a.Ref()]; exists {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("provider %q: augmentGraph added %s, which already exists", name, a.Ref()), gerrors.ErrValidation)).Err()
			}
			byRef[a.Ref()] = a
			out = append(out, a)
		}
		for ref, deps := range addDependencies {
			target, ok := byRef[ref]
			if !ok {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("provider %q: augmentGraph added a dependency for %s, which does not exist", name, ref), gerrors.ErrValidation)).Err()
			}
			target.DeclaredDependencies = append(target.DeclaredDependencies, deps...)
		}
	}
	return out, nil
}

// discoverEdges scans an action's declared dependency list and its still
// -unresolved spec/variables for "actions.<kind>.<name>..." references,
// classifying each as a status or process edge.
//
// Classification heuristic (SPEC_FULL.md open question, resolved here): a
// reference to another action's ".version" or to a Build action's
// ".outputs" is a status edge — both are knowable without running
// anything, a Build's outputs being deterministic functions of its
// version. A reference to a Deploy/Run/Test action's ".outputs" is a
// process edge, since those outputs only exist once the action has
// actually been processed. An explicit "dependencies" entry with no
// discovered template reference defaults to a status edge — it is a
// plain ordering constraint, not evidence the runtime output is used.
func discoverEdges(a *schema.Action, byRef map[schema.ActionRef]*schema.Action) (map[schema.ActionRef]graph.EdgeKind, error) {
	edges := make(map[schema.ActionRef]graph.EdgeKind)

	for _, ref := range a.DeclaredDependencies {
		if _, ok := byRef[ref]; !ok {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: dependency %s does not refer to an existing action", a.Ref(), ref), gerrors.ErrValidation)).Err()
		}
		edges[ref] = graph.StatusEdge
	}

	walkUnresolved(a.Spec, func(u *template.Unresolved) {
		recordReference(u, byRef, edges)
	})
	walkUnresolved(a.Variables, func(u *template.Unresolved) {
		recordReference(u, byRef, edges)
	})

	return edges, nil
}

// recordReference inspects one Unresolved leaf's underlying LookupNode
// for a literal "actions.<kind>.<name>.<field>..." path prefix (a dynamic
// segment anywhere in the prefix makes the reference unrecognizable; the
// Graph Builder then relies solely on the action's explicit "dependencies"
// list for that edge).
func recordReference(u *template.Unresolved, byRef map[schema.ActionRef]*schema.Action, edges map[schema.ActionRef]graph.EdgeKind) {
	lookup, ok := u.Node.(*template.LookupNode)
	if !ok || len(lookup.Path) < 3 {
		return
	}
	if lookup.Path[0].Name != "actions" {
		return
	}
	for _, seg := range lookup.Path[:3] {
		if seg.Index != nil {
			return
		}
	}
	kindStr, name := lookup.Path[1].Name, lookup.Path[2].Name
	var field string
	if len(lookup.Path) > 3 && lookup.Path[3].Index == nil {
		field = lookup.Path[3].Name
	}

	kind, ok := actionKindsByLowerName[kindStr]
	if !ok {
		return
	}
	ref := schema.ActionRef{Kind: kind, Name: name}
	target, ok := byRef[ref]
	if !ok {
		return
	}
	if target.IsDisabledBool() {
		// spec.md §3 invariant: dependency edges never cross into disabled
		// actions except as explicit ignored edges — an implicit reference
		// discovered from a template doesn't count as explicit, so it's
		// dropped here; a declared "dependencies" entry still goes through.
		return
	}

	edgeKind := graph.ProcessEdge
	if field == "version" || target.Kind == schema.KindBuild {
		edgeKind = graph.StatusEdge
	}

	if existing, has := edges[ref]; has && existing == graph.ProcessEdge {
		return // a process requirement anywhere wins over a status-only one
	}
	edges[ref] = edgeKind
}

var actionKindsByLowerName = map[string]schema.ActionKind{
	"build":  schema.KindBuild,
	"deploy": schema.KindDeploy,
	"run":    schema.KindRun,
	"test":   schema.KindTest,
}

// walkUnresolved visits every *template.Unresolved leaf reachable inside
// tree (an already-evaluated OrderedMap/map/[]any/scalar tree, per
// template.DeepEvaluate's output shape).
func walkUnresolved(tree any, visit func(*template.Unresolved)) {
	switch v := tree.(type) {
	case *template.Unresolved:
		visit(v)
	case *template.DeferredTree:
		walkUnresolved(v.Tree, visit)
	case *schema.OrderedMap:
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			walkUnresolved(val, visit)
		}
	case map[string]any:
		for _, val := range v {
			walkUnresolved(val, visit)
		}
	case []any:
		for _, val := range v {
			walkUnresolved(val, visit)
		}
	}
}

// computeVersions assigns each node's Version in dependency order
// (leaves first) per spec.md §3 "Version": declared inputs' content hash
// combined with every dependency's already-computed version, tie-broken
// by (kind,name) lexicographic order.
func computeVersions(ctx context.Context, g *graph.Graph, settings schema.Settings, vcsProvider vcs.Provider) error {
	order, err := g.TopologicalSort()
	if err != nil {
		return err
	}

	for _, node := range order {
		action := node.Action

		contentHash := ""
		if action.Source.Path != "" && vcsProvider != nil {
			h, err := vcsProvider.GetPathHash(ctx, action.Source.Path, action.Source.Include, action.Source.Exclude)
			if err != nil {
				return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "hashing source for %s", node.ID), gerrors.ErrValidation)).Err()
			}
			contentHash = h
		}

		depVersions := make([]string, 0, len(node.Dependencies))
		for _, e := range node.Dependencies {
			depVersions = append(depVersions, g.Nodes[e.To].Version)
		}
		sort.Strings(depVersions)

		payload := struct {
			Kind        schema.ActionKind
			Type        string
			ContentHash string
			Spec        any
			DepVersions []string
		}{
			Kind:        action.Kind,
			Type:        action.Type,
			ContentHash: contentHash,
			Spec:        stabilize(excludeCachePaths(action.Spec, settings.Cache.Exclude)),
			DepVersions: depVersions,
		}
		hash, err := hashstructure.Hash(payload, hashstructure.FormatV2, nil)
		if err != nil {
			return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "hashing version for %s", node.ID), gerrors.ErrValidation)).Err()
		}

		version := fmt.Sprintf("v%x", hash)
		node.Version = version
		action.Version = version
	}
	return nil
}

// stabilize replaces every Unresolved/DeferredTree leaf in tree with a
// deterministic string descriptor before hashing: hashstructure cannot
// hash an *Unresolved value directly (it embeds an EvalOptions carrying a
// *function.Registry, which is not a hashable value), and an unresolved
// leaf is expected in a spec at this stage — it's exactly what
// discoverEdges scans for. The descriptor only needs to be a deterministic
// function of the template source (not of ambient evaluation state), so
// two actions with the same unresolved expression hash identically.
func stabilize(tree any) any {
	switch v := tree.(type) {
	case *template.Unresolved:
		return "unresolved:" + describeNode(v.Node)
	case *template.DeferredTree:
		return stabilize(v.Tree)
	case *schema.OrderedMap:
		out := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			out[k] = stabilize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = stabilize(val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = stabilize(val)
		}
		return out
	default:
		return tree
	}
}

// describeNode renders a LookupNode as its dotted path (the common case
// for a template reference); any other node shape falls back to its Go
// type name, which is still deterministic for a given source expression.
func describeNode(n template.Node) string {
	lookup, ok := n.(*template.LookupNode)
	if !ok {
		return fmt.Sprintf("%T", n)
	}
	var parts []string
	for _, seg := range lookup.Path {
		if seg.Index != nil {
			parts = append(parts, "*")
			continue
		}
		parts = append(parts, seg.Name)
	}
	return strings.Join(parts, ".")
}

// excludeCachePaths removes each settings.cache.exclude entry from a copy
// of spec before hashing. An entry is a dotted path ("a.b.c") walked
// through nested OrderedMaps; the maps along the path are cloned so the
// action's own spec is untouched. A path that does not exist, or that
// passes through a non-map value, removes nothing.
func excludeCachePaths(spec any, exclude []string) any {
	if len(exclude) == 0 {
		return spec
	}
	om, ok := spec.(*schema.OrderedMap)
	if !ok {
		return spec
	}
	out := om.Clone()
	for _, path := range exclude {
		segs := strings.Split(path, ".")
		cur := out
		for _, seg := range segs[:len(segs)-1] {
			v, _ := cur.Get(seg)
			child, isMap := v.(*schema.OrderedMap)
			if !isMap {
				cur = nil
				break
			}
			child = child.Clone()
			cur.Set(seg, child)
			cur = child
		}
		if cur != nil {
			cur.Delete(segs[len(segs)-1])
		}
	}
	return out
}
