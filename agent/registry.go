package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/growmesh/growmesh/core"
)

// Handler executes one task type, returning an output mapping or an error.
// Handlers must respect ctx cancellation: the runtime enforces the task
// deadline through it.
type Handler func(ctx context.Context, task core.Task) (map[string]any, error)

// HandlerSpec pairs a handler with the parameters it declares as required.
// Required parameters are checked during pre-admission validation, before
// the handler is ever invoked.
type HandlerSpec struct {
	Handler  Handler
	Required []string
}

// Registry maps task-type tags to handlers for one agent. It is populated
// once at agent construction from the fixed, role-specific operation set;
// Register replaces any previous handler for the same tag.
type Registry struct {
	mu    sync.RWMutex
	specs map[core.TaskType]HandlerSpec
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[core.TaskType]HandlerSpec)}
}

// Register adds or replaces the handler for a task type.
func (r *Registry) Register(taskType core.TaskType, spec HandlerSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[taskType] = spec
}

// Resolve returns the spec for a task type, or an error wrapping
// ErrUnsupportedTaskType when nothing is registered for it.
func (r *Registry) Resolve(taskType core.TaskType) (HandlerSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[taskType]
	if !ok {
		return HandlerSpec{}, fmt.Errorf("%w: %q", core.ErrUnsupportedTaskType, taskType)
	}
	return spec, nil
}

// Supports reports whether a handler is registered for the task type.
func (r *Registry) Supports(taskType core.TaskType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.specs[taskType]
	return ok
}

// Types returns the registered task types in sorted order.
func (r *Registry) Types() []core.TaskType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]core.TaskType, 0, len(r.specs))
	for t := range r.specs {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Len returns the number of registered task types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
