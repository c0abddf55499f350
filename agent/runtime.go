package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/growmesh/growmesh/core"
	"github.com/growmesh/growmesh/logging"
)

// Runtime is the lifecycle wrapper around one agent's handler registry. It
// validates submissions, enforces the configured concurrency limit, runs the
// resolved handler under the task deadline, converts every failure into a
// typed error from the core taxonomy, and produces exactly one Result per
// submission. Public methods are safe for concurrent use.
type Runtime struct {
	cfg      core.Config
	registry *Registry
	bus      core.Bus
	cache    core.Cache
	logger   logging.Logger

	ownsTransports bool

	sem chan struct{}

	mu       sync.Mutex
	inflight map[string]struct{}
	stopped  bool

	running sync.WaitGroup
}

// Options holds dependency overrides passed to NewRuntime.
type Options struct {
	// Bus connects the agent to the message transport. Optional.
	Bus core.Bus
	// Cache backs quota-bound handler operations. Optional.
	Cache core.Cache
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// OwnsTransports makes Stop close the injected bus and cache. Leave
	// false when they are shared across a hierarchy; the owner (typically
	// the mesh façade) closes them instead.
	OwnsTransports bool
}

// NewRuntime constructs a runtime for a validated config and a registry
// populated with the agent's role-specific operation set.
func NewRuntime(cfg core.Config, registry *Registry, optFns ...func(o *Options)) *Runtime {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if registry == nil {
		registry = NewRegistry()
	}
	return &Runtime{
		cfg:            cfg,
		registry:       registry,
		bus:            opts.Bus,
		cache:          opts.Cache,
		logger:         opts.Logger,
		ownsTransports: opts.OwnsTransports,
		sem:            make(chan struct{}, cfg.MaxConcurrentTasks),
		inflight:       make(map[string]struct{}),
	}
}

// WithBus injects the message bus.
func WithBus(b core.Bus) func(o *Options) {
	return func(o *Options) { o.Bus = b }
}

// WithCache injects the cache layer.
func WithCache(c core.Cache) func(o *Options) {
	return func(o *Options) { o.Cache = c }
}

// WithLogger injects the logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithOwnedTransports makes Stop close the injected bus and cache.
func WithOwnedTransports() func(o *Options) {
	return func(o *Options) { o.OwnsTransports = true }
}

// AgentID returns the agent's unique identifier.
func (r *Runtime) AgentID() string { return r.cfg.AgentID }

// Role returns the agent's role.
func (r *Runtime) Role() core.Role { return r.cfg.Role }

// Config returns the agent's immutable configuration.
func (r *Runtime) Config() core.Config { return r.cfg }

// Registry exposes the agent's handler registry, primarily so hierarchy
// constructors can report supported operations.
func (r *Runtime) Registry() *Registry { return r.registry }

// Bus returns the injected message bus, or nil.
func (r *Runtime) Bus() core.Bus { return r.bus }

// Cache returns the injected cache layer, or nil.
func (r *Runtime) Cache() core.Cache { return r.cache }

// InFlight returns the number of tasks currently executing.
func (r *Runtime) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inflight)
}

// Available reports whether the agent accepts new submissions.
func (r *Runtime) Available() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.stopped
}

// validate performs the pure pre-admission checks: target role, handler
// registration, declared required parameters and agent availability. It has
// no side effects; calling it twice on the same task yields the same
// verdict.
func (r *Runtime) validate(task core.Task) error {
	if !r.Available() {
		return core.NewValidationError(r.cfg.AgentID, task.ID, core.ErrAgentStopped.Error())
	}
	if task.TargetRole != r.cfg.Role {
		return core.NewValidationError(r.cfg.AgentID, task.ID,
			fmt.Sprintf("task targets role %q, agent role is %q", task.TargetRole, r.cfg.Role))
	}
	spec, err := r.registry.Resolve(task.Type)
	if err != nil {
		return core.NewValidationError(r.cfg.AgentID, task.ID, err.Error())
	}
	for _, name := range spec.Required {
		if _, ok := task.Params[name]; !ok {
			return core.NewValidationError(r.cfg.AgentID, task.ID,
				fmt.Sprintf("missing required parameter %q", name))
		}
	}
	return nil
}

// Submit executes one task and returns its Result. The call is synchronous:
// it blocks while the task waits for capacity (bounded by the submit
// timeout) and while the handler runs (bounded by the task timeout).
//
// Lifecycle: a failed validation produces a failed Result without the task
// ever entering the running state. An admitted task's id is tracked in the
// in-flight set for exactly the duration of its execution; removal happens
// on every exit path including panics and timeouts.
func (r *Runtime) Submit(ctx context.Context, task core.Task) core.Result {
	started := time.Now().UTC()

	if err := r.validate(task); err != nil {
		r.logger.Warn("task rejected", "agent_id", r.cfg.AgentID, "task_id", task.ID, "error", err)
		return core.NewFailureResult(task.ID, err, started)
	}

	if err := r.admit(ctx, task); err != nil {
		r.logger.Warn("task not admitted", "agent_id", r.cfg.AgentID, "task_id", task.ID, "error", err)
		return core.NewFailureResult(task.ID, err, started)
	}

	r.trackTask(task.ID)
	defer func() {
		// Untrack before releasing the slot so the in-flight set never
		// momentarily exceeds the concurrency limit when a waiting
		// submission is admitted.
		r.untrackTask(task.ID)
		<-r.sem
	}()

	output, err := r.execute(ctx, task)
	if err != nil {
		r.logger.Error("task failed", "agent_id", r.cfg.AgentID, "task_id", task.ID,
			"task_type", task.Type, "duration", time.Since(started), "error", err)
		return core.NewFailureResult(task.ID, err, started)
	}

	r.logger.Info("task succeeded", "agent_id", r.cfg.AgentID, "task_id", task.ID,
		"task_type", task.Type, "duration", time.Since(started))
	return core.NewSuccessResult(task.ID, output, started)
}

// admit blocks until a concurrency slot frees, the submit timeout elapses,
// or the caller's context is cancelled. A submission is never silently
// dropped: timeout and cancellation both surface as typed failures.
func (r *Runtime) admit(ctx context.Context, task core.Task) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	default:
	}

	timer := time.NewTimer(r.cfg.SubmitTimeout)
	defer timer.Stop()

	select {
	case r.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return core.NewExecutionError(r.cfg.AgentID, task.ID,
			fmt.Sprintf("no capacity within %s", r.cfg.SubmitTimeout), core.ErrCapacityExceeded)
	case <-ctx.Done():
		return core.NewExecutionError(r.cfg.AgentID, task.ID, "submission cancelled", ctx.Err())
	}
}

// execute runs the handler on its own goroutine under the task deadline so
// a hung handler cannot pin the submitting caller past the timeout. The
// caller releases the concurrency slot once the task is untracked.
func (r *Runtime) execute(ctx context.Context, task core.Task) (map[string]any, error) {
	execCtx, cancel := context.WithTimeout(ctx, r.cfg.TaskTimeout)
	defer cancel()

	spec, err := r.registry.Resolve(task.Type)
	if err != nil {
		// Unreachable after validation unless the registry was mutated
		// concurrently; fail closed either way.
		return nil, core.NewExecutionError(r.cfg.AgentID, task.ID, "handler resolution failed", err)
	}

	type outcome struct {
		output map[string]any
		err    error
	}
	done := make(chan outcome, 1)

	r.running.Add(1)
	go func() {
		defer r.running.Done()
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("handler panicked: %v", rec)}
			}
		}()
		output, err := spec.Handler(execCtx, task)
		done <- outcome{output: output, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, r.wrapHandlerError(task, execCtx, out.err)
		}
		return out.output, nil
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return nil, core.NewTimeoutError(r.cfg.AgentID, task.ID, execCtx.Err())
		}
		return nil, core.NewExecutionError(r.cfg.AgentID, task.ID, "execution cancelled", execCtx.Err())
	}
}

// wrapHandlerError converts a handler failure into the core taxonomy. Errors
// that already carry taxonomy context (nested delegation results, bus
// failures) pass through; raw collaborator errors are wrapped so they never
// escape the agent boundary unlabelled. A handler error caused by the
// deadline surfaces as a TimeoutError.
func (r *Runtime) wrapHandlerError(task core.Task, execCtx context.Context, err error) error {
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return core.NewTimeoutError(r.cfg.AgentID, task.ID, err)
	}
	if kind := core.ErrorKind(err); kind != core.KindInternal {
		return err
	}
	return core.NewExecutionError(r.cfg.AgentID, task.ID, "handler failed", err)
}

func (r *Runtime) trackTask(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inflight[id] = struct{}{}
}

func (r *Runtime) untrackTask(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, id)
}

// Stop marks the agent unavailable, waits up to the drain timeout for
// in-flight tasks to settle, and releases owned transport connections.
// New submissions fail validation immediately. Idempotent.
func (r *Runtime) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		r.running.Wait()
		close(drained)
	}()

	timer := time.NewTimer(r.cfg.DrainTimeout)
	defer timer.Stop()

	var drainErr error
	select {
	case <-drained:
	case <-timer.C:
		drainErr = fmt.Errorf("agent %s: drain timed out after %s with %d tasks in flight",
			r.cfg.AgentID, r.cfg.DrainTimeout, r.InFlight())
	case <-ctx.Done():
		drainErr = fmt.Errorf("agent %s: drain cancelled: %w", r.cfg.AgentID, ctx.Err())
	}

	if r.ownsTransports {
		if r.bus != nil {
			if err := r.bus.Close(); err != nil && drainErr == nil {
				drainErr = fmt.Errorf("agent %s: bus close failed: %w", r.cfg.AgentID, err)
			}
		}
		if r.cache != nil {
			if err := r.cache.Close(); err != nil && drainErr == nil {
				drainErr = fmt.Errorf("agent %s: cache close failed: %w", r.cfg.AgentID, err)
			}
		}
	}

	r.logger.Info("agent stopped", "agent_id", r.cfg.AgentID)
	return drainErr
}

// Notify publishes a fire-and-forget notification from this agent. Transport
// failures come back as CommunicationError.
func (r *Runtime) Notify(ctx context.Context, to string, payload map[string]any) error {
	if r.bus == nil {
		return core.NewCommunicationError(r.cfg.AgentID, "notify failed", fmt.Errorf("no bus configured"))
	}
	return r.bus.Send(ctx, core.NewNotificationMessage(r.cfg.AgentID, to, payload))
}

// Drain returns pending messages from this agent's inbox, up to max.
func (r *Runtime) Drain(ctx context.Context, max int) ([]core.Message, error) {
	if r.bus == nil {
		return nil, nil
	}
	return r.bus.Receive(ctx, r.cfg.AgentID, max)
}
