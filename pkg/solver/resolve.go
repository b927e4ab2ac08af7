package solver

import (
	"context"

	"github.com/garden-io/garden-sub017/pkg/gcontext"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
)

// runResolve re-evaluates action.Spec/Variables now that every dependency
// has published whatever status/process outputs it is ever going to
// publish before this action needs them (see the dependency rules in
// task.go). It mutates the action in place and returns whether everything
// resolved to a concrete value.
func runResolve(ctx context.Context, action *schema.Action, actionsMap map[string]any) (bool, error) {
	allResolved := true

	if action.Spec != nil {
		resolved, ok, err := reresolveTree(ctx, action.Spec, actionsMap)
		if err != nil {
			return false, err
		}
		action.Spec = resolved
		allResolved = allResolved && ok
	}
	if action.Variables != nil {
		resolved, ok, err := reresolveTree(ctx, action.Variables, actionsMap)
		if err != nil {
			return false, err
		}
		action.Variables = resolved
		allResolved = allResolved && ok
	}
	return allResolved, nil
}

// reresolveTree walks tree looking for Unresolved/DeferredTree leaves and
// re-evaluates each one against its original context layered with the
// dependency outputs now available under "actions.<kind>.<name>". A
// reresolved value may itself still contain nested unresolved leaves (a
// lookup can resolve to another template-bearing tree), so the result is
// walked again before being returned.
func reresolveTree(ctx context.Context, tree any, actionsMap map[string]any) (any, bool, error) {
	switch v := tree.(type) {
	case *template.Unresolved:
		val, ok, err := v.Reevaluate(ctx, richContext(v.Ctx, actionsMap))
		if err != nil || !ok {
			return val, ok, err
		}
		return reresolveTree(ctx, val, actionsMap)
	case *template.DeferredTree:
		val, ok, err := v.Reevaluate(ctx, richContext(v.Ctx, actionsMap))
		if err != nil || !ok {
			return val, ok, err
		}
		return reresolveTree(ctx, val, actionsMap)
	case *schema.OrderedMap:
		out := schema.NewOrderedMap()
		allResolved := true
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			newVal, ok, err := reresolveTree(ctx, val, actionsMap)
			if err != nil {
				return nil, false, err
			}
			allResolved = allResolved && ok
			out.Set(k, newVal)
		}
		return out, allResolved, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		allResolved := true
		for k, val := range v {
			newVal, ok, err := reresolveTree(ctx, val, actionsMap)
			if err != nil {
				return nil, false, err
			}
			allResolved = allResolved && ok
			out[k] = newVal
		}
		return out, allResolved, nil
	case []any:
		out := make([]any, len(v))
		allResolved := true
		for i, val := range v {
			newVal, ok, err := reresolveTree(ctx, val, actionsMap)
			if err != nil {
				return nil, false, err
			}
			allResolved = allResolved && ok
			out[i] = newVal
		}
		return out, allResolved, nil
	default:
		return v, true, nil
	}
}

// richContext layers actionsMap onto whatever context the Unresolved/
// DeferredTree value was originally produced against. Every context built
// by the Config Loader is a *gcontext.Context, so the common case extends
// that chain directly; anything else falls back to a bare root, which
// loses project/environment/provider scoping but still lets action-output
// references resolve.
func richContext(orig template.EvalContext, actionsMap map[string]any) template.EvalContext {
	if gc, ok := orig.(*gcontext.Context); ok {
		return gc.WithActionRef(actionsMap)
	}
	return gcontext.Root().WithActionRef(actionsMap)
}

// actionsMapFor assembles the "actions.<kind>.<name>" lookup tree Resolve
// needs, sourced from each dependency's already-completed task results
// (see task.go: by the time Resolve(A) runs, every dependency has reached
// whichever of Status/Process it is going to reach before A needs it).
func actionsMapFor(forest map[taskKey]*taskNode, deps []schema.ActionRef) map[string]any {
	actions := make(map[string]any)
	for _, ref := range deps {
		statusTask, known := forest[taskKey{Ref: ref, Kind: schema.TaskStatus}]
		if !known {
			continue // dependency fell outside this solve's closure
		}
		kindKey := lowerKind(ref.Kind)
		byName, ok := actions[kindKey].(map[string]any)
		if !ok {
			byName = make(map[string]any)
			actions[kindKey] = byName
		}

		version := statusTask.node.Action.Version
		outputs := map[string]any{}
		if process, ok := forest[taskKey{Ref: ref, Kind: schema.TaskProcess}]; ok && process.state == schema.TaskCompleted {
			outputs = process.result.Outputs
		} else if status, ok := forest[taskKey{Ref: ref, Kind: schema.TaskStatus}]; ok && status.state == schema.TaskCompleted {
			outputs = status.result.Outputs
		}

		byName[ref.Name] = map[string]any{
			"version": version,
			"outputs": outputs,
		}
	}
	return actions
}

func lowerKind(k schema.ActionKind) string {
	switch k {
	case schema.KindBuild:
		return "build"
	case schema.KindDeploy:
		return "deploy"
	case schema.KindRun:
		return "run"
	case schema.KindTest:
		return "test"
	default:
		return string(k)
	}
}
