package schema

// ListMergeStrategy names a way of combining list values across layered
// documents, mirroring the teacher's Settings.ListMergeStrategy field. The
// Config Loader's merge (pkg/configmerge) does not read it and always
// replaces lists.
type ListMergeStrategy string

const (
	ListMergeStrategyReplace ListMergeStrategy = "replace"
	ListMergeStrategyAppend  ListMergeStrategy = "append"
	ListMergeStrategyMerge   ListMergeStrategy = "merge"
)

// CacheSettings configures the version/content-hash cache-exclude
// mechanism (spec.md §3 "Version" invariant, §4.6 "Caching").
type CacheSettings struct {
	// Exclude lists dotted paths under an action's spec that never
	// contribute to its Version, so incidental edits (hostnames,
	// non-semantic vars) do not invalidate the cache.
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// ConcurrencySettings bounds the Solver's worker pools, one ceiling per
// task kind plus an optional per-plugin-type partition for Process
// (spec.md §4.6 "Scheduling model").
type ConcurrencySettings struct {
	Resolve       int            `yaml:"resolve,omitempty" json:"resolve,omitempty"`
	Status        int            `yaml:"status,omitempty" json:"status,omitempty"`
	Process       int            `yaml:"process,omitempty" json:"process,omitempty"`
	ProcessByType map[string]int `yaml:"processByType,omitempty" json:"processByType,omitempty"`
}

// FailurePolicy selects the Solver's cancellation behavior on first
// failure (spec.md §4.6 "Cancellation").
type FailurePolicy string

const (
	FailurePolicyAbort    FailurePolicy = "abort"
	FailurePolicyContinue FailurePolicy = "continue"
)

// Settings is the core-level configuration bag a full Garden deployment
// loads via viper (SPEC_FULL.md §6 "Ambient config file"). It is distinct
// from project/action configuration, which always goes through the YAML
// document loader in C3.
type Settings struct {
	ListMergeStrategy ListMergeStrategy   `yaml:"listMergeStrategy,omitempty" json:"listMergeStrategy,omitempty"`
	Cache             CacheSettings       `yaml:"cache,omitempty" json:"cache,omitempty"`
	Concurrency       ConcurrencySettings `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	FailurePolicy     FailurePolicy       `yaml:"failurePolicy,omitempty" json:"failurePolicy,omitempty"`

	CacheDir       string `yaml:"cacheDir,omitempty" json:"cacheDir,omitempty"`
	DefaultTimeout int    `yaml:"defaultTimeout,omitempty" json:"defaultTimeout,omitempty"`
}

// DefaultSettings returns the settings a project gets when it declares
// none explicitly.
func DefaultSettings() Settings {
	return Settings{
		ListMergeStrategy: ListMergeStrategyReplace,
		Concurrency: ConcurrencySettings{
			Resolve: 10,
			Status:  10,
			Process: 5,
		},
		FailurePolicy:  FailurePolicyAbort,
		CacheDir:       ".garden/cache",
		DefaultTimeout: 600,
	}
}
