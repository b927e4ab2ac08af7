package configloader

import (
	"context"
	"strings"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/pkg/configmerge"
	"github.com/garden-io/garden-sub017/pkg/function"
	"github.com/garden-io/garden-sub017/pkg/gcontext"
	"github.com/garden-io/garden-sub017/pkg/schema"
	"github.com/garden-io/garden-sub017/pkg/template"
)

// Resolved is the output of resolving a project's documents: the concrete
// project/environment, and every action with its fields staged through the
// Template Engine against the layered Config Context (possibly still
// carrying Unresolved leaves, per spec.md §4.2 "partial evaluation").
type Resolved struct {
	Project     *schema.Project
	Environment *schema.Environment
	Providers   map[string]*schema.Provider
	Actions     []*schema.Action
	Modules     []*schema.Module
}

// DecodeProject decodes a Document into a schema.Project.
func DecodeProject(doc *schema.Document) (*schema.Project, error) {
	var p schema.Project
	if err := decodeBody(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeEnvironment decodes a Document into a schema.Environment.
func DecodeEnvironment(doc *schema.Document) (*schema.Environment, error) {
	var e schema.Environment
	if err := decodeBody(doc, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeProvider decodes a Document into a schema.Provider.
func DecodeProvider(doc *schema.Document) (*schema.Provider, error) {
	var p schema.Provider
	if err := decodeBody(doc, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DecodeModule decodes a Document into a schema.Module.
func DecodeModule(doc *schema.Document) (*schema.Module, error) {
	var m schema.Module
	if err := decodeBody(doc, &m); err != nil {
		return nil, err
	}
	m.SourceFile = doc.SourceFile
	return &m, nil
}

// DecodeAction decodes a Document into a schema.Action, parsing its raw
// "kind.name" dependency references (e.g. "build.api") into ActionRefs.
//
// Spec and Variables are re-attached from the document's original
// *OrderedMap rather than left as decodeBody's flattened map[string]any:
// $forEach/$merge need the source key order preserved through to template
// evaluation, and decodeBody's ToMap() call (required so mapstructure can
// walk the envelope fields) already discarded it.
func DecodeAction(doc *schema.Document) (*schema.Action, error) {
	var a schema.Action
	if err := decodeBody(doc, &a); err != nil {
		return nil, err
	}
	a.Kind = doc.ActionKind
	a.SourceFile = doc.SourceFile

	if om, ok := doc.Body.(*schema.OrderedMap); ok {
		if spec, has := om.Get("spec"); has {
			a.Spec = spec
		}
		if vars, has := om.Get("variables"); has {
			a.Variables = vars
		}
	}

	for _, raw := range a.RawDependencies {
		ref, err := parseActionRef(raw)
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "%s: action %q dependency %q", doc.SourceFile, a.Name, raw), gerrors.ErrConfiguration)).Err()
		}
		a.DeclaredDependencies = append(a.DeclaredDependencies, ref)
	}
	return &a, nil
}

func parseActionRef(raw string) (schema.ActionRef, error) {
	idx := strings.IndexByte(raw, '.')
	if idx < 0 {
		return schema.ActionRef{}, gerrors.Newf("expected \"kind.name\", got %q", raw)
	}
	kindStr, name := raw[:idx], raw[idx+1:]
	kind, ok := actionKinds[strings.ToLower(kindStr)]
	if !ok || name == "" {
		return schema.ActionRef{}, gerrors.Newf("expected \"kind.name\" with kind one of build/deploy/run/test, got %q", raw)
	}
	return schema.ActionRef{Kind: kind, Name: name}, nil
}

// Resolve groups the loaded documents by kind, merges variable scopes and
// stages every action's fields through the Template Engine against the
// resulting layered Config Context. environmentName selects which
// Environment document (and which of its Providers) is active; it must
// name one of the loaded Environment documents (project.DefaultEnv is
// used if it is empty).
func Resolve(ctx context.Context, docs []*schema.Document, environmentName string, functions *function.Registry) (*Resolved, error) {
	var (
		projectDoc *schema.Document
		envDocs    []*schema.Document
		provDocs   []*schema.Document
		actionDocs []*schema.Document
		moduleDocs []*schema.Document
	)
	for _, d := range docs {
		switch d.Kind {
		case schema.DocProject:
			projectDoc = d
		case schema.DocEnvironment:
			envDocs = append(envDocs, d)
		case schema.DocProvider:
			provDocs = append(provDocs, d)
		case schema.DocAction:
			actionDocs = append(actionDocs, d)
		case schema.DocModule:
			moduleDocs = append(moduleDocs, d)
		}
	}
	if projectDoc == nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.New("no Project document found"), gerrors.ErrConfiguration)).Err()
	}
	project, err := DecodeProject(projectDoc)
	if err != nil {
		return nil, err
	}

	if environmentName == "" {
		environmentName = project.DefaultEnv
	}
	if environmentName == "" {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("project %q declares no defaultEnvironment and none was requested", project.Name), gerrors.ErrConfiguration)).Err()
	}

	var environment *schema.Environment
	for _, d := range envDocs {
		env, err := DecodeEnvironment(d)
		if err != nil {
			return nil, err
		}
		if env.Name == environmentName {
			environment = env
			break
		}
	}
	if environment == nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Newf("no Environment document named %q", environmentName), gerrors.ErrConfiguration)).Err()
	}

	providers := make(map[string]*schema.Provider)
	for _, d := range provDocs {
		prov, err := DecodeProvider(d)
		if err != nil {
			return nil, err
		}
		if len(prov.Environments) > 0 && !containsString(prov.Environments, environmentName) {
			continue
		}
		providers[prov.Name] = prov
	}

	gctx := gcontext.NewProjectContext(map[string]any{"name": project.Name}, project.Variables)

	mergedVars, err := configmerge.MergeMaps(project.Variables, environment.Variables)
	if err != nil {
		return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "merging environment %q variables", environmentName), gerrors.ErrConfiguration)).Err()
	}
	gctx = gctx.WithEnvironment(map[string]any{
		"name":      environment.Name,
		"namespace": environment.Namespace,
	}, mergedVars)

	for name, prov := range providers {
		var cfg map[string]any
		if m, ok := prov.Config.(map[string]any); ok {
			cfg = m
		}
		gctx = gctx.WithProvider(name, cfg, nil)
	}

	actions := make([]*schema.Action, 0, len(actionDocs))
	opts := template.EvalOptions{AllowPartial: true, Functions: functions}
	for _, d := range actionDocs {
		action, err := DecodeAction(d)
		if err != nil {
			return nil, err
		}
		actionCtx := gctx.WithActionSpec(action.Ref())

		resolvedSpec, _, err := template.DeepEvaluate(ctx, actionCtx, opts, action.Spec)
		if err != nil {
			return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "resolving %s.%s spec", action.Kind, action.Name), gerrors.ErrTemplate)).Err()
		}
		action.Spec = resolvedSpec

		if action.Variables != nil {
			resolvedVars, _, err := template.DeepEvaluate(ctx, actionCtx, opts, action.Variables)
			if err != nil {
				return nil, gerrors.Build(gerrors.Mark(gerrors.Wrapf(err, "resolving %s.%s variables", action.Kind, action.Name), gerrors.ErrTemplate)).Err()
			}
			action.Variables = resolvedVars
		}

		actions = append(actions, action)
	}

	modules := make([]*schema.Module, 0, len(moduleDocs))
	for _, d := range moduleDocs {
		m, err := DecodeModule(d)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}

	return &Resolved{
		Project:     project,
		Environment: environment,
		Providers:   providers,
		Actions:     actions,
		Modules:     modules,
	}, nil
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
