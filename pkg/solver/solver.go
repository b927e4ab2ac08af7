package solver

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	gerrors "github.com/garden-io/garden-sub017/errors"
	"github.com/garden-io/garden-sub017/internal/coreenv"
	"github.com/garden-io/garden-sub017/pkg/gardenevent"
	"github.com/garden-io/garden-sub017/pkg/graph"
	"github.com/garden-io/garden-sub017/pkg/schema"
)

// Request describes one solve: the requested operation, the actions it
// targets (empty means every action in the graph), and whether the result
// cache should be bypassed.
type Request struct {
	Operation schema.OperationKind
	Targets   []schema.ActionRef
	Force     bool
}

// Solver schedules and runs the Resolve/Status/Process task forest for one
// Request against an already-built Graph.
type Solver struct {
	env *coreenv.CoreEnv
}

// New returns a Solver drawing its plugins, caches, concurrency ceilings
// and event bus from env.
func New(env *coreenv.CoreEnv) *Solver {
	return &Solver{env: env}
}

// semaphores bundles the per-kind worker pools spec.md §4.6 "Scheduling
// model" describes, plus one pool per plugin type for Process when the
// project configures processByType overrides.
type semaphores struct {
	resolve *semaphore.Weighted
	status  *semaphore.Weighted
	process *semaphore.Weighted

	mu            sync.Mutex
	processByType map[string]*semaphore.Weighted
}

func newSemaphores(c schema.ConcurrencySettings) *semaphores {
	return &semaphores{
		resolve:       semaphore.NewWeighted(int64(orDefault(c.Resolve, 10))),
		status:        semaphore.NewWeighted(int64(orDefault(c.Status, 10))),
		process:       semaphore.NewWeighted(int64(orDefault(c.Process, 5))),
		processByType: map[string]*semaphore.Weighted{},
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (s *semaphores) forTask(kind schema.TaskKind, actionType string, concurrency schema.ConcurrencySettings) *semaphore.Weighted {
	switch kind {
	case schema.TaskResolve:
		return s.resolve
	case schema.TaskStatus:
		return s.status
	default:
		if n, ok := concurrency.ProcessByType[actionType]; ok && n > 0 {
			s.mu.Lock()
			defer s.mu.Unlock()
			sem, ok := s.processByType[actionType]
			if !ok {
				sem = semaphore.NewWeighted(int64(n))
				s.processByType[actionType] = sem
			}
			return sem
		}
		return s.process
	}
}

// Solve runs req against g, returning the composite result described in
// spec.md §6 "Exit semantics".
func (s *Solver) Solve(ctx context.Context, g *graph.Graph, req Request) (*schema.OperationResult, error) {
	closure, err := closureOf(g, req.Targets)
	if err != nil {
		return nil, err
	}
	forest := buildForest(closure)
	sems := newSemaphores(s.env.Settings.Concurrency)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var aborted atomic.Bool

	var wg sync.WaitGroup
	for _, n := range forest {
		wg.Add(1)
		go func(n *taskNode) {
			defer wg.Done()
			s.runTask(runCtx, n, forest, sems, req, cancel, &aborted)
		}(n)
	}
	wg.Wait()

	return s.assemble(forest, closure, aborted.Load()), nil
}

// runTask waits for n's dependencies, decides whether n should run or be
// skipped as a cancellation cascade, then executes it.
func (s *Solver) runTask(ctx context.Context, n *taskNode, forest map[taskKey]*taskNode, sems *semaphores, req Request, cancel context.CancelFunc, aborted *atomic.Bool) {
	defer close(n.done)

	// Skip-on-disabled (spec.md §8 "a disabled action never produces a
	// Process task; its declared dependants see state: skipped rather than
	// ready"): short-circuit before waiting on dependencies or touching a
	// provider — a disabled action's Process step never runs at all.
	if n.key.Kind == schema.TaskProcess && n.node.Action.IsDisabledBool() {
		now := s.env.Clock.Now()
		n.state = schema.TaskCompleted
		n.result = schema.TaskResult{State: schema.ResultSkipped, StartedAt: now, CompletedAt: now}
		s.env.Events.Publish(gardenevent.Event{Kind: gardenevent.TaskCompleted, TaskKind: n.key.Kind, ActionRef: n.key.Ref, At: now})
		return
	}

	for _, depKey := range n.dependsOn {
		dep := forest[depKey]
		select {
		case <-dep.done:
		case <-ctx.Done():
			n.state = schema.TaskCancelled
			n.result = schema.TaskResult{State: schema.ResultMissing, Error: ctx.Err().Error()}
			return
		}
		if dep.state == schema.TaskFailed || dep.state == schema.TaskCancelled {
			n.state = schema.TaskCancelled
			n.result = schema.TaskResult{State: schema.ResultMissing, Error: "a dependency did not complete"}
			s.env.Events.Publish(gardenevent.Event{Kind: gardenevent.TaskCancelled, TaskKind: n.key.Kind, ActionRef: n.key.Ref, At: s.env.Clock.Now()})
			return
		}
	}

	select {
	case <-ctx.Done():
		n.state = schema.TaskCancelled
		n.result = schema.TaskResult{State: schema.ResultMissing, Error: ctx.Err().Error()}
		return
	default:
	}

	sem := sems.forTask(n.key.Kind, n.node.Action.Type, s.env.Settings.Concurrency)
	if err := sem.Acquire(ctx, 1); err != nil {
		n.state = schema.TaskCancelled
		n.result = schema.TaskResult{State: schema.ResultMissing, Error: err.Error()}
		return
	}
	defer sem.Release(1)

	n.state = schema.TaskRunning
	s.env.Events.Publish(gardenevent.Event{Kind: gardenevent.TaskStarted, TaskKind: n.key.Kind, ActionRef: n.key.Ref, At: s.env.Clock.Now()})

	result, err := s.execute(ctx, n, forest, req)
	result.CompletedAt = s.env.Clock.Now()
	n.result = result

	if err != nil || result.Failed() {
		n.state = schema.TaskFailed
		errMsg := result.Error
		if err != nil {
			errMsg = err.Error()
			n.result.Error = errMsg
			n.result.State = schema.ResultFailed
		}
		s.env.Events.Publish(gardenevent.Event{Kind: gardenevent.TaskFailed, TaskKind: n.key.Kind, ActionRef: n.key.Ref, At: s.env.Clock.Now(), Error: err})
		if s.env.Settings.FailurePolicy == schema.FailurePolicyAbort {
			aborted.Store(true)
			cancel()
		}
		return
	}

	n.state = schema.TaskCompleted
	s.env.Events.Publish(gardenevent.Event{Kind: gardenevent.TaskCompleted, TaskKind: n.key.Kind, ActionRef: n.key.Ref, At: s.env.Clock.Now()})
}

// execute runs the actual work for one task kind.
func (s *Solver) execute(ctx context.Context, n *taskNode, forest map[taskKey]*taskNode, req Request) (schema.TaskResult, error) {
	action := n.node.Action
	timeout := time.Duration(orDefault(action.TimeoutSeconds, s.env.Settings.DefaultTimeout)) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	switch n.key.Kind {
	case schema.TaskResolve:
		return s.executeResolve(ctx, n, forest)
	case schema.TaskStatus:
		result, err := runStatus(ctx, action, s.env.Plugins)
		if err != nil {
			return schema.TaskResult{State: schema.ResultFailed, StartedAt: s.env.Clock.Now()}, err
		}
		s.env.StatusCache.Set(cacheKey(action), result)
		return result, nil
	case schema.TaskProcess:
		return s.executeProcess(ctx, n, forest, req)
	default:
		return schema.TaskResult{}, gerrors.Build(gerrors.Mark(gerrors.Newf("unknown task kind %q", n.key.Kind), gerrors.ErrInternal)).Err()
	}
}

func (s *Solver) executeResolve(ctx context.Context, n *taskNode, forest map[taskKey]*taskNode) (schema.TaskResult, error) {
	action := n.node.Action
	deps := make([]schema.ActionRef, 0, len(n.node.Dependencies))
	for _, e := range n.node.Dependencies {
		deps = append(deps, refOf(e.To))
	}
	actionsMap := actionsMapFor(forest, deps)

	ok, err := runResolve(ctx, action, actionsMap)
	if err != nil {
		return schema.TaskResult{State: schema.ResultFailed}, err
	}
	state := schema.ResultReady
	if !ok {
		state = schema.ResultNotReady
	}
	return schema.TaskResult{State: state, StartedAt: s.env.Clock.Now()}, nil
}

func (s *Solver) executeProcess(ctx context.Context, n *taskNode, forest map[taskKey]*taskNode, req Request) (schema.TaskResult, error) {
	action := n.node.Action

	if !req.Force {
		// spec.md §4.6 "A Process(A) is skipped ... iff Status(A) reports
		// ready": the scheduler's own status check, not just the on-disk
		// result cache, can tell us the process step is unnecessary.
		if status := forest[taskKey{Ref: n.key.Ref, Kind: schema.TaskStatus}]; status != nil && status.state == schema.TaskCompleted && status.result.State == schema.ResultReady {
			return schema.TaskResult{State: schema.ResultReady, Cached: true, StartedAt: s.env.Clock.Now()}, nil
		}
		if payload, ok := s.loadCached(action); ok {
			payload.Result.Cached = true
			return payload.Result, nil
		}
	}

	result, err := runProcess(ctx, action, s.env.Plugins, req.Operation)
	if err != nil {
		return schema.TaskResult{State: schema.ResultFailed, StartedAt: s.env.Clock.Now()}, err
	}

	if result.State == schema.ResultReady {
		s.storeCached(action, result)
	}
	return result, nil
}

func cacheKey(action *schema.Action) string {
	return action.Ref().String() + "@" + action.Version
}

func (s *Solver) loadCached(action *schema.Action) (schema.CachePayload, bool) {
	if s.env.ResultCache == nil || action.Version == "" {
		return schema.CachePayload{}, false
	}
	raw, exists, err := s.env.ResultCache.Get(cacheKey(action))
	if err != nil || !exists {
		return schema.CachePayload{}, false
	}
	var payload schema.CachePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return schema.CachePayload{}, false
	}
	return payload, true
}

func (s *Solver) storeCached(action *schema.Action, result schema.TaskResult) {
	if s.env.ResultCache == nil || action.Version == "" {
		return
	}
	payload := schema.CachePayload{
		ActionKind: action.Kind,
		ActionName: action.Name,
		Version:    action.Version,
		Result:     result,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = s.env.ResultCache.Set(cacheKey(action), raw)
}

// assemble builds the final OperationResult from every task's terminal
// state, keying TaskResults by "Kind.Name.TaskKind" and summarizing each
// action's outcome by its Process task (spec.md §6).
func (s *Solver) assemble(forest map[taskKey]*taskNode, closure []*graph.Node, aborted bool) *schema.OperationResult {
	out := &schema.OperationResult{
		Success:     true,
		TaskResults: make(map[string]schema.TaskResult, len(forest)),
		Aborted:     aborted,
	}
	for key, n := range forest {
		out.TaskResults[key.String()] = n.result
	}
	for _, n := range closure {
		process := forest[taskKey{Ref: n.Action.Ref(), Kind: schema.TaskProcess}]
		switch {
		case process.state == schema.TaskCompleted && process.result.State == schema.ResultSkipped:
			// a disabled action: neither succeeded nor failed, just never ran.
		case process.state == schema.TaskCompleted:
			out.Succeeded = append(out.Succeeded, n.Action.Ref())
		case process.state == schema.TaskFailed:
			out.Success = false
			out.Failed = append(out.Failed, n.Action.Ref())
		case process.state == schema.TaskCancelled:
			out.Success = false
			out.Cancelled = append(out.Cancelled, n.Action.Ref())
		}
	}
	return out
}
