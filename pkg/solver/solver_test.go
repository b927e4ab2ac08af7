package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garden-io/garden-sub017/internal/coreenv"
	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/gcontext"
	"github.com/garden-io/garden-sub017/pkg/graphbuilder"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
)

// resolvedSpecFor parses and partially evaluates each `${...}` expression
// in fields against an empty context, reproducing the unresolved-leaf
// shape configloader.Resolve would hand the Solver.
func resolvedSpecFor(t *testing.T, fields map[string]string) *schema.OrderedMap {
	t.Helper()
	om := schema.NewOrderedMap()
	ctx := gcontext.Root()
	opts := template.EvalOptions{AllowPartial: true, Functions: function.DefaultRegistry()}
	for k, src := range fields {
		node, err := template.Parse(src)
		require.NoError(t, err)
		val, _, err := node.Evaluate(context.Background(), ctx, opts)
		require.NoError(t, err)
		om.Set(k, val)
	}
	return om
}

// fakeProvider is a minimal in-memory provider: Build always succeeds and
// reports a content-addressed "imageId" output derived from the action's
// version; Deploy succeeds and echoes the image it was given.
type fakeProvider struct {
	buildCalls  int
	deployCalls int
}

// GetBuildStatus reports the image tag a Build with this version would
// produce without actually running one, honoring the Graph Builder's
// assumption that a Build's outputs are a deterministic function of its
// version (pkg/graphbuilder's status-edge classification for Build
// references).
func (p *fakeProvider) GetBuildStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady, Outputs: map[string]any{"imageId": "img-" + a.Version}}, nil
}

func (p *fakeProvider) Build(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	p.buildCalls++
	return &schema.TaskResult{State: schema.ResultReady, Outputs: map[string]any{"imageId": "img-" + a.Version}}, nil
}

func (p *fakeProvider) GetDeployStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultNotReady}, nil
}

func (p *fakeProvider) Deploy(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	p.deployCalls++
	spec := a.Spec.(*schema.OrderedMap)
	image, _ := spec.Get("image")
	return &schema.TaskResult{State: schema.ResultReady, Outputs: map[string]any{"deployedImage": image}}, nil
}

func (p *fakeProvider) Delete(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultReady}, nil
}

func newTestEnv(t *testing.T, registry *plugin.Registry) *coreenv.CoreEnv {
	t.Helper()
	env, err := coreenv.New(t.TempDir(), coreenv.WithPlugins(registry))
	require.NoError(t, err)
	return env
}

func TestSolve_ResolvesBuildOutputIntoDeploySpec(t *testing.T) {
	fp := &fakeProvider{}
	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{Name: "container", Build: fp, Deploy: fp})

	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Type: "container", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind: schema.KindDeploy,
		Name: "api",
		Type: "container",
		Spec: resolvedSpecFor(t, map[string]string{"image": "${actions.build.api.outputs.imageId}"}),
	}

	g, err := graphbuilder.Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	env := newTestEnv(t, registry)
	s := New(env)
	result, err := s.Solve(context.Background(), g, Request{Operation: schema.OperationDeploy})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, fp.buildCalls)
	assert.Equal(t, 1, fp.deployCalls)
	assert.Contains(t, result.Succeeded, schema.ActionRef{Kind: schema.KindDeploy, Name: "api"})

	deployResult := result.TaskResults["Deploy.api.Process"]
	assert.Equal(t, "img-"+build.Version, deployResult.Outputs["deployedImage"])
}

func TestSolve_ProcessResultIsCachedAndReused(t *testing.T) {
	fp := &fakeProvider{}
	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{Name: "container", Build: fp, Deploy: fp})

	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Type: "container", Spec: schema.NewOrderedMap()}
	g, err := graphbuilder.Build(context.Background(), []*schema.Action{build}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	env := newTestEnv(t, registry)
	s := New(env)

	_, err = s.Solve(context.Background(), g, Request{Operation: schema.OperationBuild})
	require.NoError(t, err)
	assert.Equal(t, 1, fp.buildCalls)

	g2, err := graphbuilder.Build(context.Background(), []*schema.Action{build}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	result2, err := s.Solve(context.Background(), g2, Request{Operation: schema.OperationBuild})
	require.NoError(t, err)

	assert.Equal(t, 1, fp.buildCalls, "second solve should be served from the result cache")
	buildResult := result2.TaskResults["Build.api.Process"]
	assert.True(t, buildResult.Cached)
}

func TestSolve_FailedDependencyCancelsDependent(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{Name: "broken", Build: brokenBuild{}})

	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Type: "broken", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind:                 schema.KindDeploy,
		Name:                 "api",
		Type:                 "broken",
		Spec:                 schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindBuild, Name: "api"}},
	}

	g, err := graphbuilder.Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	env := newTestEnv(t, registry)
	s := New(env)
	result, err := s.Solve(context.Background(), g, Request{Operation: schema.OperationDeploy})
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, schema.ResultFailed, result.TaskResults["Build.api.Status"].State)
	assert.Contains(t, result.Cancelled, schema.ActionRef{Kind: schema.KindBuild, Name: "api"})
	assert.Contains(t, result.Cancelled, schema.ActionRef{Kind: schema.KindDeploy, Name: "api"})
}

// readyStatusBuild reports its status as already ready, so Build should
// never be invoked when force isn't set.
type readyStatusBuild struct {
	buildCalls int
}

func (p *readyStatusBuild) GetBuildStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultReady, Outputs: map[string]any{"imageId": "img-" + a.Version}}, nil
}

func (p *readyStatusBuild) Build(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	p.buildCalls++
	return &schema.TaskResult{State: schema.ResultReady, Outputs: map[string]any{"imageId": "img-" + a.Version}}, nil
}

func TestSolve_ProcessSkippedWhenStatusReady(t *testing.T) {
	fp := &readyStatusBuild{}
	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{Name: "container", Build: fp})

	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Type: "container", Spec: schema.NewOrderedMap()}
	g, err := graphbuilder.Build(context.Background(), []*schema.Action{build}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	env := newTestEnv(t, registry)
	s := New(env)
	result, err := s.Solve(context.Background(), g, Request{Operation: schema.OperationBuild})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 0, fp.buildCalls, "Build should never be invoked once Status reports ready")
	processResult := result.TaskResults["Build.api.Process"]
	assert.Equal(t, schema.ResultReady, processResult.State)
	assert.True(t, processResult.Cached)
}

type brokenBuild struct{}

func (brokenBuild) GetBuildStatus(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultFailed, Error: "status check failed"}, nil
}

func (brokenBuild) Build(ctx context.Context, a *schema.Action) (*schema.TaskResult, error) {
	return &schema.TaskResult{State: schema.ResultFailed, Error: "boom"}, nil
}
