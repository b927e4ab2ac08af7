package graphbuilder

import (
	"context"
	"testing"

	"github.com/garden-io/garden-sub017/pkg/graph"
	"github.com/garden-io/garden-sub017/pkg/gcontext"
	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolvedSpec parses and partially evaluates src (a `${...}` expression)
// against an empty context, producing the same unresolved-leaf shape
// configloader.Resolve would hand the Graph Builder.
func resolvedSpec(t *testing.T, fields map[string]string) *schema.OrderedMap {
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

func TestBuild_StatusEdgeFromBuildOutputReference(t *testing.T) {
	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind: schema.KindDeploy,
		Name: "api",
		Spec: resolvedSpec(t, map[string]string{"image": "${actions.build.api.outputs.imageId}"}),
	}

	g, err := Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	node := g.Nodes["Deploy.api"]
	require.Len(t, node.Dependencies, 1)
	assert.Equal(t, "Build.api", node.Dependencies[0].To)
	assert.Equal(t, graph.StatusEdge, node.Dependencies[0].Kind)
}

func TestBuild_ProcessEdgeFromRunOutputReference(t *testing.T) {
	run := &schema.Action{Kind: schema.KindRun, Name: "seed", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind: schema.KindDeploy,
		Name: "svc",
		Spec: resolvedSpec(t, map[string]string{"url": "${actions.run.seed.outputs.url}"}),
	}

	g, err := Build(context.Background(), []*schema.Action{run, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)

	node := g.Nodes["Deploy.svc"]
	require.Len(t, node.Dependencies, 1)
	assert.Equal(t, graph.ProcessEdge, node.Dependencies[0].Kind)
}

func TestBuild_ExplicitDependencyBecomesStatusEdge(t *testing.T) {
	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind:                 schema.KindDeploy,
		Name:                 "api",
		Spec:                 schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindBuild, Name: "api"}},
	}

	g, err := Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.StatusEdge, g.Nodes["Deploy.api"].Dependencies[0].Kind)
}

func TestBuild_UndeclaredDependencyErrors(t *testing.T) {
	deploy := &schema.Action{
		Kind:                 schema.KindDeploy,
		Name:                 "api",
		Spec:                 schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindBuild, Name: "missing"}},
	}
	_, err := Build(context.Background(), []*schema.Action{deploy}, schema.DefaultSettings(), nil, nil)
	require.Error(t, err)
}

func TestBuild_CycleIsDetected(t *testing.T) {
	a := &schema.Action{
		Kind: schema.KindDeploy, Name: "a", Spec: schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindDeploy, Name: "b"}},
	}
	b := &schema.Action{
		Kind: schema.KindDeploy, Name: "b", Spec: schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindDeploy, Name: "a"}},
	}
	_, err := Build(context.Background(), []*schema.Action{a, b}, schema.DefaultSettings(), nil, nil)
	require.Error(t, err)
}

func TestBuild_VersionsComputedLeavesFirst(t *testing.T) {
	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind:                 schema.KindDeploy,
		Name:                 "api",
		Spec:                 schema.NewOrderedMap(),
		DeclaredDependencies: []schema.ActionRef{{Kind: schema.KindBuild, Name: "api"}},
	}

	g, err := Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, g.Nodes["Build.api"].Version)
	assert.NotEmpty(t, g.Nodes["Deploy.api"].Version)
	assert.NotEqual(t, g.Nodes["Build.api"].Version, g.Nodes["Deploy.api"].Version)
}

func TestBuild_BuildFieldAddsStatusEdge(t *testing.T) {
	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Spec: schema.NewOrderedMap()}
	test := &schema.Action{Kind: schema.KindTest, Name: "api-unit", Build: "api", Spec: schema.NewOrderedMap()}

	g, err := Build(context.Background(), []*schema.Action{build, test}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	require.Len(t, g.Nodes["Test.api-unit"].Dependencies, 1)
	assert.Equal(t, "Build.api", g.Nodes["Test.api-unit"].Dependencies[0].To)
}

func TestBuild_DisabledActionNeverGetsImplicitDependants(t *testing.T) {
	build := &schema.Action{Kind: schema.KindBuild, Name: "api", Disabled: true, Spec: schema.NewOrderedMap()}
	deploy := &schema.Action{
		Kind: schema.KindDeploy,
		Name: "api",
		Spec: resolvedSpec(t, map[string]string{"image": "${actions.build.api.outputs.imageId}"}),
	}

	g, err := Build(context.Background(), []*schema.Action{build, deploy}, schema.DefaultSettings(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, g.Nodes["Deploy.api"].Dependencies)
}

type augmentingProvider struct {
	addAction *schema.Action
	addDep    schema.ActionRef
}

func (p *augmentingProvider) AugmentGraph(ctx context.Context, actions []*schema.Action) ([]*schema.Action, map[schema.ActionRef][]schema.ActionRef, error) {
	return []*schema.Action{p.addAction}, map[schema.ActionRef][]schema.ActionRef{
		p.addDep: {p.addAction.Ref()},
	}, nil
}

func TestBuild_AugmentGraphAddsActionsAndDependencies(t *testing.T) {
	deploy := &schema.Action{Kind: schema.KindDeploy, Name: "api", Type: "container", Spec: schema.NewOrderedMap()}
	sidecar := &schema.Action{Kind: schema.KindDeploy, Name: "sidecar", Type: "container", Spec: schema.NewOrderedMap()}

	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{
		Name: "container",
		AugmentGraph: &augmentingProvider{
			addAction: sidecar,
			addDep:    deploy.Ref(),
		},
	})

	g, err := Build(context.Background(), []*schema.Action{deploy}, schema.DefaultSettings(), nil, registry)
	require.NoError(t, err)

	require.Contains(t, g.Nodes, "Deploy.sidecar")
	require.Len(t, g.Nodes["Deploy.api"].Dependencies, 1)
	assert.Equal(t, "Deploy.sidecar", g.Nodes["Deploy.api"].Dependencies[0].To)
}

func TestBuild_AugmentGraphRejectsCollidingAction(t *testing.T) {
	deploy := &schema.Action{Kind: schema.KindDeploy, Name: "api", Type: "container", Spec: schema.NewOrderedMap()}

	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{
		Name: "container",
		AugmentGraph: &augmentingProvider{
			addAction: &schema.Action{Kind: schema.KindDeploy, Name: "api", Type: "container", Spec: schema.NewOrderedMap()},
			addDep:    deploy.Ref(),
		},
	})

	_, err := Build(context.Background(), []*schema.Action{deploy}, schema.DefaultSettings(), nil, registry)
	require.Error(t, err)
}
