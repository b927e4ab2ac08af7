package convert

import (
	"context"
	"testing"

	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleModule() *schema.Module {
	return &schema.Module{
		Name: "api",
		Type: "container",
		Source: schema.Source{Path: "./api"},
		Services: []schema.ModuleService{
			{Name: "api", Spec: map[string]any{"replicas": 1}},
		},
		Tests: []schema.ModuleTest{
			{Name: "unit", Spec: map[string]any{"command": []string{"go", "test"}}},
		},
		Tasks: []schema.ModuleTask{
			{Name: "migrate", Spec: map[string]any{"command": []string{"migrate"}}, Dependencies: []string{"build.api"}},
		},
	}
}

func TestConvert_DefaultFanOut(t *testing.T) {
	actions, err := Convert(context.Background(), sampleModule(), nil)
	require.NoError(t, err)
	require.Len(t, actions, 4)

	byKind := map[schema.ActionKind]*schema.Action{}
	for _, a := range actions {
		byKind[a.Kind] = a
	}

	require.Contains(t, byKind, schema.KindBuild)
	require.Contains(t, byKind, schema.KindDeploy)
	require.Contains(t, byKind, schema.KindTest)
	require.Contains(t, byKind, schema.KindRun)

	assert.Equal(t, "api", byKind[schema.KindBuild].Name)
	assert.Equal(t, "api", byKind[schema.KindDeploy].Name)
	assert.Contains(t, byKind[schema.KindDeploy].DeclaredDependencies, schema.ActionRef{Kind: schema.KindBuild, Name: "api"})
}

func TestConvert_DisabledModuleSkipsBuild(t *testing.T) {
	m := sampleModule()
	m.Disabled = true
	actions, err := Convert(context.Background(), m, nil)
	require.NoError(t, err)
	for _, a := range actions {
		assert.NotEqual(t, schema.KindBuild, a.Kind)
		assert.Empty(t, a.Build)
	}
}

func TestConvert_CopyFromBecomesImplicitBuildSpec(t *testing.T) {
	m := sampleModule()
	m.CopyFrom = []schema.CopyFromSpec{{Build: "base", Source: "dist", Target: "dist"}}
	actions, err := Convert(context.Background(), m, nil)
	require.NoError(t, err)

	var build *schema.Action
	for _, a := range actions {
		if a.Kind == schema.KindBuild {
			build = a
		}
	}
	require.NotNil(t, build)
	spec := build.Spec.(map[string]any)
	assert.Equal(t, m.CopyFrom, spec["copyFrom"])
}

func TestConvert_PluginOverridesDefaultFanOut(t *testing.T) {
	registry := plugin.NewRegistry()
	registry.Register(&plugin.Provider{
		Name: "container",
		Convert: convertFunc(func(ctx context.Context, m *schema.Module) ([]*schema.Action, error) {
			return []*schema.Action{{Kind: schema.KindDeploy, Name: m.Name}}, nil
		}),
	})

	actions, err := Convert(context.Background(), sampleModule(), registry)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, schema.KindDeploy, actions[0].Kind)
}

type convertFunc func(ctx context.Context, m *schema.Module) ([]*schema.Action, error)

func (f convertFunc) Convert(ctx context.Context, m *schema.Module) ([]*schema.Action, error) {
	return f(ctx, m)
}

func TestConvertAll_DetectsCollisionWithNativeAction(t *testing.T) {
	existing := []*schema.Action{{Kind: schema.KindBuild, Name: "api"}}
	_, err := ConvertAll(context.Background(), []*schema.Module{sampleModule()}, existing, nil)
	require.Error(t, err)
}

func TestConvertAll_DetectsCollisionAcrossModules(t *testing.T) {
	m1 := sampleModule()
	m2 := sampleModule()
	_, err := ConvertAll(context.Background(), []*schema.Module{m1, m2}, nil, nil)
	require.Error(t, err)
}

func TestConvertAll_NoCollisionSucceeds(t *testing.T) {
	m2 := sampleModule()
	m2.Name = "web"
	m2.Services[0].Name = "web"
	m2.Tests[0].Name = "web-unit"
	m2.Tasks[0].Name = "web-migrate"

	actions, err := ConvertAll(context.Background(), []*schema.Module{sampleModule(), m2}, nil, nil)
	require.NoError(t, err)
	assert.Len(t, actions, 8)
}
