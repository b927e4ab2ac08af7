package configloader

import (
	"context"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// LoadOptions configures one end-to-end Load call.
type LoadOptions struct {
	// AdditionalRoots are extra directories walked alongside Root during
	// discovery (spec.md §4.3 "Discovery").
	AdditionalRoots []string
	// IncludeGlobs overrides defaultIncludeGlobs.
	IncludeGlobs []string
	// Environment selects the active Environment document; falls back to
	// the Project's declared default.
	Environment string
	Functions   *function.Registry
}

// Load runs the full Config Loader & Templater pipeline (spec.md §4.3):
// discover documents under root, parse them, expand ConfigTemplate/
// RenderTemplate pairs into additional action/module documents, then
// resolve the Project/Environment/Provider scopes and stage every action's
// fields through the Template Engine.
func Load(ctx context.Context, root string, opts LoadOptions) (*Resolved, error) {
	functions := opts.Functions
	if functions == nil {
		functions = function.DefaultRegistry()
	}

	paths, err := Discover(root, opts.AdditionalRoots, opts.IncludeGlobs)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("no configuration documents found under %s", root), gerrors.ErrConfiguration)).Err()
	}

	docs, err := ParseAll(paths)
	if err != nil {
		return nil, err
	}

	expanded, err := expandTemplates(docs, functions)
	if err != nil {
		return nil, err
	}
	docs = append(docs, expanded...)

	return Resolve(ctx, docs, opts.Environment, functions)
}

// expandTemplates decodes every ConfigTemplate/RenderTemplate document
// pair found in docs and expands them into additional action/module
// documents; documents of every other kind pass through Resolve
// unmodified.
func expandTemplates(docs []*schema.Document, functions *function.Registry) ([]*schema.Document, error) {
	templates := make(map[string]*schema.ConfigTemplate)
	var renders []*schema.RenderTemplate

	for _, d := range docs {
		switch d.Kind {
		case schema.DocConfigTemplate:
			ct, err := DecodeConfigTemplate(d)
			if err != nil {
				return nil, err
			}
			templates[ct.Name] = ct
		case schema.DocRenderTemplate:
			rt, err := DecodeRenderTemplate(d)
			if err != nil {
				return nil, err
			}
			renders = append(renders, rt)
		}
	}
	if len(renders) == 0 {
		return nil, nil
	}
	return ExpandRenderTemplates(renders, templates, functions)
}
