// Package convert implements the Module→Action Converter (spec.md §4.4,
// C4): the legacy-compatibility fan-out of one Module document into the
// Build/Deploy/Test/Run actions it implies, with a plugin escape hatch for
// module types that need a different shape.
package convert

import (
	"context"
	"fmt"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/plugin"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// Convert fans module out into its derived actions. If plugins has a
// provider registered under module.Type with a Convert handler, that
// handler fully owns the conversion (e.g. a Helm provider whose modules
// declare skipDeploy and omit the Deploy action); otherwise the default
// fan-out described in spec.md §4.4 applies:
//
//   - one Build named after the module, type=module.Type, carrying the
//     module's source plus an implicit copy step per copyFrom entry
//   - one Deploy per service, depending on {the Build} ∪ its own explicit
//     dependencies
//   - one Test per test config
//   - one Run per task config
func Convert(ctx context.Context, module *schema.Module, plugins *plugin.Registry) ([]*schema.Action, error) {
	if plugins != nil {
		if p, ok := plugins.Get(module.Type); ok && p.Convert != nil {
			return p.Convert(ctx, module)
		}
	}
	return defaultConvert(module)
}

func defaultConvert(module *schema.Module) ([]*schema.Action, error) {
	var actions []*schema.Action

	buildRef, hasBuild := schema.ActionRef{}, false
	if !isDisabled(module.Disabled) {
		build := &schema.Action{
			Kind:       schema.KindBuild,
			Name:       module.Name,
			Type:       module.Type,
			Source:     module.Source,
			Variables:  module.Variables,
			SourceFile: module.SourceFile,
		}
		if len(module.CopyFrom) > 0 {
			build.Spec = map[string]any{"copyFrom": module.CopyFrom}
		}
		actions = append(actions, build)
		buildRef, hasBuild = build.Ref(), true
	}

	for _, svc := range module.Services {
		if isDisabled(svc.Disabled) {
			continue
		}
		deps, err := parseRefs(svc.Dependencies)
		if err != nil {
			return nil, convertErr(module, "service", svc.Name, err)
		}
		if hasBuild {
			deps = append([]schema.ActionRef{buildRef}, deps...)
		}
		actions = append(actions, &schema.Action{
			Kind:                 schema.KindDeploy,
			Name:                 svc.Name,
			Type:                 module.Type,
			Build:                buildNameOrEmpty(hasBuild, module.Name),
			DeclaredDependencies: deps,
			Spec:                 svc.Spec,
			SourceFile:           module.SourceFile,
		})
	}

	for _, test := range module.Tests {
		deps, err := parseRefs(test.Dependencies)
		if err != nil {
			return nil, convertErr(module, "test", test.Name, err)
		}
		if hasBuild {
			deps = append([]schema.ActionRef{buildRef}, deps...)
		}
		actions = append(actions, &schema.Action{
			Kind:                 schema.KindTest,
			Name:                 test.Name,
			Type:                 module.Type,
			Build:                buildNameOrEmpty(hasBuild, module.Name),
			DeclaredDependencies: deps,
			Spec:                 test.Spec,
			SourceFile:           module.SourceFile,
		})
	}

	for _, task := range module.Tasks {
		deps, err := parseRefs(task.Dependencies)
		if err != nil {
			return nil, convertErr(module, "task", task.Name, err)
		}
		if hasBuild {
			deps = append([]schema.ActionRef{buildRef}, deps...)
		}
		actions = append(actions, &schema.Action{
			Kind:                 schema.KindRun,
			Name:                 task.Name,
			Type:                 module.Type,
			Build:                buildNameOrEmpty(hasBuild, module.Name),
			DeclaredDependencies: deps,
			Spec:                 task.Spec,
			SourceFile:           module.SourceFile,
		})
	}

	return actions, nil
}

func buildNameOrEmpty(hasBuild bool, name string) string {
	if hasBuild {
		return name
	}
	return ""
}

func isDisabled(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func parseRefs(raw []string) ([]schema.ActionRef, error) {
	refs := make([]schema.ActionRef, 0, len(raw))
	for _, r := range raw {
		ref, err := ParseActionRef(r)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// ParseActionRef parses a "kind.name" dependency reference, the same
// dotted form used in native action documents.
func ParseActionRef(raw string) (schema.ActionRef, error) {
	for kindStr, kind := range kindsByLowerName {
		prefix := kindStr + "."
		if len(raw) > len(prefix) && raw[:len(prefix)] == prefix {
			return schema.ActionRef{Kind: kind, Name: raw[len(prefix):]}, nil
		}
	}
	return schema.ActionRef{}, gerrors.Build(gerrors.Mark(gerrors.Newf("expected \"kind.name\" with kind one of build/deploy/run/test, got %q", raw), gerrors.ErrConfiguration)).Err()
}

var kindsByLowerName = map[string]schema.ActionKind{
	"build":  schema.KindBuild,
	"deploy": schema.KindDeploy,
	"run":    schema.KindRun,
	"test":   schema.KindTest,
}

func convertErr(module *schema.Module, section, name string, err error) error {
	return gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "%s: module %q %s %q", module.SourceFile, module.Name, section, name), gerrors.ErrConfiguration)).Err()
}

// ConvertAll runs Convert over every module and checks the combined result
// for name collisions, both against each other and against existing
// (native) actions already loaded — spec.md §4.4 "Name collisions ... are
// hard errors".
func ConvertAll(ctx context.Context, modules []*schema.Module, existing []*schema.Action, plugins *plugin.Registry) ([]*schema.Action, error) {
	seen := make(map[schema.ActionRef]string, len(existing))
	for _, a := range existing {
		seen[a.Ref()] = "a native action document"
	}

	var generated []*schema.Action
	for _, m := range modules {
		actions, err := Convert(ctx, m, plugins)
		if err != nil {
			return nil, err
		}
		for _, a := range actions {
			ref := a.Ref()
			if origin, dup := seen[ref]; dup {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("action %s, converted from module %q, collides with %s", ref, m.Name, origin), gerrors.ErrConfiguration)).Err()
			}
			seen[ref] = fmt.Sprintf("module %q", m.Name)
			generated = append(generated, a)
		}
	}
	return generated, nil
}
