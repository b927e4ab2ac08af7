package solver

import (
	"context"
	"fmt"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// runStatus dispatches an action's status check to its provider. Run and
// Test have no separate status check in the plugin surface (plugin.
// RunHandler/TestHandler doc comments): GetRunResult/GetTestResult double
// as both, reporting whether a prior run at this exact version already
// exists.
func runStatus(ctx context.Context, action *schema.Action, providers *plugin.Registry) (schema.TaskResult, error) {
	p, ok := providers.Get(action.Type)
	if !ok {
		return schema.TaskResult{}, pluginErr(action, "no provider registered for type %q", action.Type)
	}

	switch action.Kind {
	case schema.KindBuild:
		if p.Build == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no BuildHandler", action.Type)
		}
		return deref(p.Build.GetBuildStatus(ctx, action))
	case schema.KindDeploy:
		if p.Deploy == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no DeployHandler", action.Type)
		}
		return deref(p.Deploy.GetDeployStatus(ctx, action))
	case schema.KindRun:
		if p.Run == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no RunHandler", action.Type)
		}
		return deref(p.Run.GetRunResult(ctx, action))
	case schema.KindTest:
		if p.Test == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no TestHandler", action.Type)
		}
		return deref(p.Test.GetTestResult(ctx, action))
	default:
		return schema.TaskResult{}, pluginErr(action, "unknown action kind %q", action.Kind)
	}
}

// runProcess dispatches the actual build/deploy/run/test. For a Deploy
// action under an OperationCleanup request it calls Delete instead of
// Deploy, since cleanup tears down rather than converges the deployed
// state.
func runProcess(ctx context.Context, action *schema.Action, providers *plugin.Registry, op schema.OperationKind) (schema.TaskResult, error) {
	p, ok := providers.Get(action.Type)
	if !ok {
		return schema.TaskResult{}, pluginErr(action, "no provider registered for type %q", action.Type)
	}

	switch action.Kind {
	case schema.KindBuild:
		if p.Build == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no BuildHandler", action.Type)
		}
		return deref(p.Build.Build(ctx, action))
	case schema.KindDeploy:
		if p.Deploy == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no DeployHandler", action.Type)
		}
		if op == schema.OperationCleanup {
			return deref(p.Deploy.Delete(ctx, action))
		}
		return deref(p.Deploy.Deploy(ctx, action))
	case schema.KindRun:
		if p.Run == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no RunHandler", action.Type)
		}
		return deref(p.Run.Run(ctx, action))
	case schema.KindTest:
		if p.Test == nil {
			return schema.TaskResult{}, pluginErr(action, "provider %q implements no TestHandler", action.Type)
		}
		return deref(p.Test.RunTest(ctx, action))
	default:
		return schema.TaskResult{}, pluginErr(action, "unknown action kind %q", action.Kind)
	}
}

func deref(r *schema.TaskResult, err error) (schema.TaskResult, error) {
	if err != nil || r == nil {
		return schema.TaskResult{}, err
	}
	return *r, nil
}

func pluginErr(action *schema.Action, format string, args ...any) error {
	msg := fmt.Sprintf("%s: %s", action.Ref(), fmt.Sprintf(format, args...))
	return gerrors.Build(gerrors.Mark(gerrors.Newf("%s", msg), gerrors.ErrPlugin)).Err()
}
