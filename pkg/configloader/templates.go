package configloader

import (
	"context"
	"fmt"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
	"github.com/go-viper/mapstructure/v2"
)

// inputsContext exposes a RenderTemplate's resolved inputs under the
// "inputs" variable name, the only context a ConfigTemplate's configs are
// allowed to reference while expanding (spec.md §4.3 "reference
// ${inputs.*}").
type inputsContext struct {
	inputs any
}

func (c inputsContext) Lookup(path string) (any, template.LookupStatus) {
	const prefix = "inputs"
	if path == prefix {
		return navigateAny(c.inputs, "")
	}
	if len(path) > len(prefix)+1 && path[:len(prefix)+1] == prefix+"." {
		return navigateAny(c.inputs, path[len(prefix)+1:])
	}
	return nil, template.Absent
}

func navigateAny(value any, rest string) (any, template.LookupStatus) {
	cur := value
	if rest != "" {
		segs := splitDots(rest)
		for _, seg := range segs {
			switch c := cur.(type) {
			case *schema.OrderedMap:
				v, ok := c.Get(seg)
				if !ok {
					return nil, template.Absent
				}
				cur = v
			case map[string]any:
				v, ok := c[seg]
				if !ok {
					return nil, template.Absent
				}
				cur = v
			default:
				return nil, template.Absent
			}
		}
	}
	switch cur.(type) {
	case *template.Unresolved, *template.DeferredTree:
		return cur, template.FoundUnresolved
	default:
		return cur, template.Found
	}
}

func splitDots(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// DecodeConfigTemplate decodes a Document's body into a schema.ConfigTemplate.
func DecodeConfigTemplate(doc *schema.Document) (*schema.ConfigTemplate, error) {
	var ct schema.ConfigTemplate
	if err := decodeBody(doc, &ct); err != nil {
		return nil, err
	}
	ct.SourceFile = doc.SourceFile
	return &ct, nil
}

// DecodeRenderTemplate decodes a Document's body into a schema.RenderTemplate.
func DecodeRenderTemplate(doc *schema.Document) (*schema.RenderTemplate, error) {
	var rt schema.RenderTemplate
	if err := decodeBody(doc, &rt); err != nil {
		return nil, err
	}
	rt.SourceFile = doc.SourceFile
	return &rt, nil
}

// decodeBody decodes a document's raw tree into out using the "yaml"
// struct tags already declared on the schema types, so the same field
// names used throughout the YAML documents (and their Go struct
// definitions) double as the mapstructure decode keys.
func decodeBody(doc *schema.Document, out any) error {
	body := doc.Body
	if om, ok := body.(*schema.OrderedMap); ok {
		body = om.ToMap()
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "building decoder for %s", doc.SourceFile), gerrors.ErrConfiguration)).Err()
	}
	if err := dec.Decode(body); err != nil {
		return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "decoding %s", doc.SourceFile), gerrors.ErrConfiguration)).Err()
	}
	return nil
}

// ExpandRenderTemplates expands every RenderTemplate document against its
// named ConfigTemplate, producing the action/module documents it
// generates. Expansion is hygienic: each generated document's "name" is
// set to "<render.Name>-<name>" when the expanded config carries a string
// name, or "<render.Name>-<index>" otherwise, so two renders of the same
// template never collide; a collision is still a hard error, since it
// means two renders share a name or one render produced the same name
// twice.
func ExpandRenderTemplates(renders []*schema.RenderTemplate, templates map[string]*schema.ConfigTemplate, functions *function.Registry) ([]*schema.Document, error) {
	var out []*schema.Document
	seenNames := make(map[string]string)

	for _, render := range renders {
		tmpl, ok := templates[render.Template]
		if !ok {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("render %q references unknown config template %q", render.Name, render.Template), gerrors.ErrConfiguration)).Err()
		}

		ectx := inputsContext{inputs: render.Inputs}
		opts := template.EvalOptions{AllowPartial: true, Functions: functions}

		for i, cfg := range tmpl.Configs {
			result, _, err := template.DeepEvaluate(context.Background(), ectx, opts, cfg)
			if err != nil {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "expanding render %q, config %d of template %q", render.Name, i, tmpl.Name), gerrors.ErrTemplate)).Err()
			}

			om, isMap := result.(*schema.OrderedMap)
			if !isMap {
				mapResult, wasMap := result.(map[string]any)
				if !wasMap {
					return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("render %q, config %d: expanded value is not an object", render.Name, i), gerrors.ErrConfiguration)).Err()
				}
				om = schema.NewOrderedMap()
				for k, v := range mapResult {
					om.Set(k, v)
				}
			}

			generatedName := fmt.Sprintf("%s-%d", render.Name, i)
			if nameVal, has := om.Get("name"); has {
				if s, isStr := nameVal.(string); isStr {
					generatedName = fmt.Sprintf("%s-%s", render.Name, s)
				}
			}
			if prior, dup := seenNames[generatedName]; dup {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("render %q produces a name %q that collides with %q", render.Name, generatedName, prior), gerrors.ErrConfiguration)).Err()
			}
			seenNames[generatedName] = render.Name
			om.Set("name", generatedName)

			doc, err := classify(om, render.SourceFile, i)
			if err != nil {
				return nil, err
			}
			out = append(out, doc)
		}
	}
	return out, nil
}
