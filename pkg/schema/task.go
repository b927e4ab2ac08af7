package schema

import "time"

// OperationKind is the user-requested top-level verb the Solver expands
// into a task forest (spec.md §4.6 "Given a requested set of actions and
// an operation kind (deploy | build | test | run | cleanup)").
type OperationKind string

const (
	OperationDeploy  OperationKind = "deploy"
	OperationBuild   OperationKind = "build"
	OperationTest    OperationKind = "test"
	OperationRun     OperationKind = "run"
	OperationCleanup OperationKind = "cleanup"
)

// TaskKind distinguishes the three task phases the Solver schedules per
// action (spec.md §3 "Task", §4.6).
type TaskKind string

const (
	TaskResolve TaskKind = "Resolve"
	TaskStatus  TaskKind = "Status"
	TaskProcess TaskKind = "Process"
)

// TaskState is the Task lifecycle (spec.md §3): pending → ready → running →
// {completed, failed, cancelled}.
type TaskState string

const (
	TaskPending   TaskState = "pending"
	TaskReady     TaskState = "ready"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
	TaskCancelled TaskState = "cancelled"
)

// ResultState is the outcome recorded in a Task Result (spec.md §3).
type ResultState string

const (
	ResultReady    ResultState = "ready"
	ResultNotReady ResultState = "not-ready"
	ResultCached   ResultState = "cached"
	ResultFailed   ResultState = "failed"
	ResultMissing  ResultState = "missing"
	ResultSkipped  ResultState = "skipped"
)

// TaskResult is the outcome of running one Task (spec.md §3 "Task Result").
type TaskResult struct {
	State       ResultState    `json:"state"`
	Outputs     map[string]any `json:"outputs,omitempty"`
	Detail      any            `json:"detail,omitempty"`
	StartedAt   time.Time      `json:"startedAt,omitempty"`
	CompletedAt time.Time      `json:"completedAt,omitempty"`
	Error       string         `json:"error,omitempty"`

	// Cached reports whether this result was served from the result
	// cache rather than invoking a plugin.
	Cached bool `json:"cached,omitempty"`
}

// Failed reports whether the result represents a failure.
func (r TaskResult) Failed() bool {
	return r.State == ResultFailed
}

// CachePayload is the JSON shape persisted under
// <project>/.garden/cache/<kind>/<name>/<version>.json (spec.md §6).
type CachePayload struct {
	ActionKind ActionKind `json:"actionKind"`
	ActionName string     `json:"actionName"`
	Version    string     `json:"version"`
	Result     TaskResult `json:"result"`
}

// OperationResult is the composite result the core returns to the CLI
// collaborator (spec.md §6 "Exit semantics").
type OperationResult struct {
	Success     bool                           `json:"success"`
	TaskResults map[string]TaskResult          `json:"taskResults"`
	Aborted     bool                           `json:"aborted"`
	Failed      []ActionRef                    `json:"failed,omitempty"`
	Cancelled   []ActionRef                    `json:"cancelled,omitempty"`
	Succeeded   []ActionRef                    `json:"succeeded,omitempty"`
}
