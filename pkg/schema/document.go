package schema

// DocumentKind enumerates the configuration document kinds discovered by
// C3 (spec.md §4.3 "Discovery").
type DocumentKind string

const (
	DocProject        DocumentKind = "Project"
	DocEnvironment    DocumentKind = "Environment"
	DocProvider       DocumentKind = "Provider"
	DocWorkflow       DocumentKind = "Workflow"
	DocCommand        DocumentKind = "Command"
	DocConfigTemplate DocumentKind = "ConfigTemplate"
	DocRenderTemplate DocumentKind = "RenderTemplate"
	DocAction         DocumentKind = "Action" // Build | Deploy | Run | Test, see Kind field
	DocModule         DocumentKind = "Module"
)

// Document is one parsed configuration unit prior to field resolution
// (SPEC_FULL.md §3 "Document"): its kind, source location and raw body.
type Document struct {
	Kind DocumentKind

	// ActionKind is set when Kind == DocAction, carrying the concrete
	// Build/Deploy/Run/Test discriminator.
	ActionKind ActionKind

	SourceFile string
	// DocIndex is the zero-based position of this document within a
	// multi-document ("---"-separated) YAML file, for error reporting.
	DocIndex int

	// Body is the raw decoded tree, normally a *OrderedMap (order is
	// significant for deepEvaluate's $forEach/$merge operators), until
	// field resolution flattens it for hand-off to a plugin.
	Body any
}

// Project is the single required project-scope document (spec.md §4.3
// "Project/environment resolution").
type Project struct {
	Name             string            `yaml:"name" json:"name"`
	RootPaths        []string          `yaml:"sourceRoots,omitempty" json:"sourceRoots,omitempty"`
	Environments     []string          `yaml:"environments,omitempty" json:"environments,omitempty"`
	DefaultEnv       string            `yaml:"defaultEnvironment,omitempty" json:"defaultEnvironment,omitempty"`
	Variables        map[string]any    `yaml:"variables,omitempty" json:"variables,omitempty"`
	ProjectVariables map[string]string `yaml:"-" json:"-"`
}

// Environment declares per-environment variables/overrides and provider
// membership.
type Environment struct {
	Name       string         `yaml:"name" json:"name"`
	Namespace  string         `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Variables  map[string]any `yaml:"variables,omitempty" json:"variables,omitempty"`
	Providers  []string       `yaml:"providers,omitempty" json:"providers,omitempty"`
}

// Provider declares a registered plugin provider available to the current
// environment.
type Provider struct {
	Name         string   `yaml:"name" json:"name"`
	Environments []string `yaml:"environments,omitempty" json:"environments,omitempty"`
	Config       any      `yaml:"config,omitempty" json:"config,omitempty"`
}

// ConfigTemplate defines a macro: a typed inputs schema and a list of
// partially-templated action/module bodies referencing ${inputs.*}
// (spec.md §4.3 "Config templates").
type ConfigTemplate struct {
	Name        string           `yaml:"name" json:"name"`
	InputsSchema map[string]any  `yaml:"inputsSchema,omitempty" json:"inputsSchema,omitempty"`
	Configs     []map[string]any `yaml:"configs" json:"configs"`

	SourceFile string `yaml:"-" json:"-"`
}

// RenderTemplate names a ConfigTemplate and supplies inputs, expanding into
// zero or more action/module configs (spec.md §4.3).
type RenderTemplate struct {
	Name     string `yaml:"name" json:"name"`
	Template string `yaml:"template" json:"template"`
	Inputs   any    `yaml:"inputs,omitempty" json:"inputs,omitempty"`

	SourceFile string `yaml:"-" json:"-"`
}
