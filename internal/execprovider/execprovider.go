// Package execprovider implements a provider for the "exec" action type:
// every task kind runs a configured shell command and reports its
// combined output as the task's sole output value. It exists so
// cmd/garden-core has at least one real, runnable provider to wire the
// pipeline end to end without depending on an external plugin host
// (out of scope per spec.md §1 "Non-goals").
package execprovider

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// Provider runs an action's "command" spec field as a subprocess.
type Provider struct{}

func command(action *schema.Action) ([]string, error) {
	spec, ok := action.Spec.(*schema.OrderedMap)
	if !ok {
		if m, ok := action.Spec.(map[string]any); ok {
			spec = schema.NewOrderedMap()
			for k, v := range m {
				spec.Set(k, v)
			}
		}
	}
	if spec == nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: spec has no \"command\" field", action.Ref()), gerrors.ErrConfiguration)).Err()
	}
	raw, ok := spec.Get("command")
	if !ok {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: spec has no \"command\" field", action.Ref()), gerrors.ErrConfiguration)).Err()
	}
	switch v := raw.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, part := range v {
			out = append(out, toString(part))
		}
		return out, nil
	case []string:
		return v, nil
	case string:
		return strings.Fields(v), nil
	default:
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: \"command\" must be a string or list of strings", action.Ref()), gerrors.ErrConfiguration)).Err()
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func run(ctx context.Context, action *schema.Action) (*schema.TaskResult, error) {
	parts, err := command(action)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("%s: \"command\" is empty", action.Ref()), gerrors.ErrConfiguration)).Err()
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	if action.Source.Path != "" {
		cmd.Dir = action.Source.Path
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	if err := cmd.Run(); err != nil {
		return &schema.TaskResult{
			State: schema.ResultFailed,
			Error: err.Error(),
			Detail: map[string]any{
				"output": buf.String(),
			},
		}, nil
	}
	return &schema.TaskResult{
		State:   schema.ResultReady,
		Outputs: map[string]any{"output": buf.String()},
	}, nil
}

// GetBuildStatus always reports not-ready: an exec Build has no
// out-of-band way to check whether a previous invocation's result is
// still current short of actually running it again.
func (Provider) GetBuildStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady}, nil
}

func (Provider) Build(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) { return run(ctx, a) }

func (Provider) GetDeployStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady}, nil
}

func (Provider) Deploy(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) { return run(ctx, a) }

// Delete runs the same configured command; an exec module that needs
// teardown behavior distinct from its deploy step should declare a
// separate action rather than rely on this provider distinguishing them.
func (Provider) Delete(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) { return run(ctx, a) }

func (Provider) GetRunResult(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady}, nil
}

func (Provider) Run(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) { return run(ctx, a) }

func (Provider) GetTestResult(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady}, nil
}

func (Provider) RunTest(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) { return run(ctx, a) }
