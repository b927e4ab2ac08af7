package gcontext

import (
	"testing"

	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
	"github.com/stretchr/testify/assert"
)

func TestContext_LookupFallsThroughLayers(t *testing.T) {
	root := NewProjectContext(
		map[string]any{"name": "my-project"},
		map[string]any{"region": "us-east-1"},
	)
	env := root.WithEnvironment(
		map[string]any{"name": "dev"},
		map[string]any{"region": "us-east-1", "replicas": float64(2)},
	)

	v, status := env.Lookup("project.name")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, "my-project", v)

	v, status = env.Lookup("environment.name")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, "dev", v)

	v, status = env.Lookup("var.replicas")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, float64(2), v)
}

func TestContext_ShadowingNarrowerLayerWins(t *testing.T) {
	root := NewProjectContext(nil, map[string]any{"x": float64(1)})
	env := root.WithEnvironment(nil, map[string]any{"x": float64(2)})

	v, status := env.Lookup("var.x")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, float64(2), v)
}

func TestContext_MissingKeyIsAbsent(t *testing.T) {
	root := NewProjectContext(nil, nil)
	_, status := root.Lookup("var.nope")
	assert.Equal(t, template.Absent, status)
}

func TestContext_NestedOrderedMapNavigation(t *testing.T) {
	om := schema.NewOrderedMap()
	om.Set("image", "nginx:latest")
	root := NewProjectContext(nil, map[string]any{"build": om})

	v, status := root.Lookup("var.build.image")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, "nginx:latest", v)
}

func TestContext_ActionSpecScopeSeesDependencyOutputs(t *testing.T) {
	root := NewProjectContext(nil, nil)
	ref := schema.ActionRef{Kind: schema.KindDeploy, Name: "api"}
	scoped := root.WithActionRef(map[string]any{
		"build": map[string]any{
			"api": map[string]any{"outputs": map[string]any{"image": "api:abc123"}},
		},
	}).WithActionSpec(ref)

	v, status := scoped.Lookup("this.name")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, "api", v)

	v, status = scoped.Lookup("actions.build.api.outputs.image")
	assert.Equal(t, template.Found, status)
	assert.Equal(t, "api:abc123", v)
}

func TestContext_UnresolvedPropagatesStatus(t *testing.T) {
	u := &template.Unresolved{}
	root := NewProjectContext(nil, map[string]any{"pending": u})
	_, status := root.Lookup("var.pending")
	assert.Equal(t, template.FoundUnresolved, status)
}
