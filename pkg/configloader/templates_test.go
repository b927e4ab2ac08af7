package configloader

import (
	"testing"

	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplate() map[string]*schema.ConfigTemplate {
	return map[string]*schema.ConfigTemplate{
		"web-service": {
			Name: "web-service",
			Configs: []map[string]any{
				{
					"kind": "Deploy",
					"name": "${inputs.name}",
					"spec": map[string]any{
						"image": "${inputs.image}",
					},
				},
			},
		},
	}
}

func TestExpandRenderTemplates_SubstitutesInputsAndRenamesHygienically(t *testing.T) {
	renders := []*schema.RenderTemplate{
		{Name: "frontend", Template: "web-service", Inputs: map[string]any{"name": "web", "image": "nginx:1.0"}},
	}

	docs, err := ExpandRenderTemplates(renders, testTemplate(), function.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, schema.DocAction, docs[0].Kind)
	assert.Equal(t, schema.KindDeploy, docs[0].ActionKind)

	om := docs[0].Body.(*schema.OrderedMap)
	name, _ := om.Get("name")
	assert.Equal(t, "frontend-web", name)
}

func TestExpandRenderTemplates_UnknownTemplateErrors(t *testing.T) {
	renders := []*schema.RenderTemplate{
		{Name: "frontend", Template: "missing"},
	}
	_, err := ExpandRenderTemplates(renders, testTemplate(), function.DefaultRegistry())
	require.Error(t, err)
}

func TestExpandRenderTemplates_NameCollisionErrors(t *testing.T) {
	renders := []*schema.RenderTemplate{
		{Name: "frontend", Template: "web-service", Inputs: map[string]any{"name": "web", "image": "nginx:1.0"}},
		{Name: "frontend", Template: "web-service", Inputs: map[string]any{"name": "web", "image": "nginx:2.0"}},
	}
	_, err := ExpandRenderTemplates(renders, testTemplate(), function.DefaultRegistry())
	require.Error(t, err)
}

func TestExpandRenderTemplates_DistinctRendersDoNotCollide(t *testing.T) {
	renders := []*schema.RenderTemplate{
		{Name: "frontend", Template: "web-service", Inputs: map[string]any{"name": "web", "image": "nginx:1.0"}},
		{Name: "backend", Template: "web-service", Inputs: map[string]any{"name": "web", "image": "nginx:2.0"}},
	}
	docs, err := ExpandRenderTemplates(renders, testTemplate(), function.DefaultRegistry())
	require.NoError(t, err)
	require.Len(t, docs, 2)
}
