package schema

// Module is the legacy pre-conversion grouping (spec.md §4.4, GLOSSARY). A
// Module fans out into one Build, one Deploy per Service, one Test per Test
// config and one Run per Task config via the Module→Action Converter (C4).
type Module struct {
	Name string `yaml:"name" json:"name"`
	Type string `yaml:"type" json:"type"`

	Source   Source `yaml:"source,omitempty" json:"source,omitempty"`
	CopyFrom []CopyFromSpec `yaml:"copyFrom,omitempty" json:"copyFrom,omitempty"`

	Services []ModuleService `yaml:"services,omitempty" json:"services,omitempty"`
	Tests    []ModuleTest    `yaml:"tests,omitempty" json:"tests,omitempty"`
	Tasks    []ModuleTask    `yaml:"tasks,omitempty" json:"tasks,omitempty"`

	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Variables    any      `yaml:"variables,omitempty" json:"variables,omitempty"`
	Disabled     any      `yaml:"disabled,omitempty" json:"disabled,omitempty"`

	SourceFile string `yaml:"-" json:"-"`
}

// CopyFromSpec becomes an implicit file-copy step on the derived Build
// (spec.md §4.4).
type CopyFromSpec struct {
	Build  string `yaml:"build,omitempty" json:"build,omitempty"`
	Source string `yaml:"source" json:"source"`
	Target string `yaml:"target" json:"target"`
}

// ModuleService converts to one Deploy action, depending on the module's
// derived Build plus any explicit dependencies.
type ModuleService struct {
	Name         string   `yaml:"name" json:"name"`
	Spec         any      `yaml:"spec" json:"spec"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Disabled     any      `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// ModuleTest converts to one Test action.
type ModuleTest struct {
	Name         string   `yaml:"name" json:"name"`
	Spec         any      `yaml:"spec" json:"spec"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}

// ModuleTask converts to one Run action.
type ModuleTask struct {
	Name         string   `yaml:"name" json:"name"`
	Spec         any      `yaml:"spec" json:"spec"`
	Dependencies []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
}
